package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/playroom/go/internal/dbconfig"
	"gopkg.in/yaml.v3"
)

// Room mirrors the YAML fixture structure
type Room struct {
	ID      string   `yaml:"id"`
	OwnerID string   `yaml:"owner_id"`
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

type fixture struct {
	Rooms []Room `yaml:"rooms"`
}

func main() {
	path := "go/internal/assets/rooms.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the YAML fixture
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read YAML: %v\n", err)
		os.Exit(1)
	}
	var fix fixture
	if err := yaml.Unmarshal(data, &fix); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal YAML: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert rooms and members
	var (
		rooms   int
		members int
		errs    int
	)

	ctx := context.Background()
	for _, r := range fix.Rooms {
		cmdTag, err := pool.Exec(ctx, `
            INSERT INTO rooms (id, owner_id, name)
            VALUES ($1, $2, $3)
            ON CONFLICT (id) DO NOTHING
        `, r.ID, r.OwnerID, r.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting room %s: %v\n", r.ID, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			rooms++
		}

		// The owner is always a member, listed or not.
		ids := r.Members
		if !contains(ids, r.OwnerID) {
			ids = append(ids, r.OwnerID)
		}
		for _, userID := range ids {
			cmdTag, err := pool.Exec(ctx, `
                INSERT INTO room_members (room_id, user_id, online)
                VALUES ($1, $2, false)
                ON CONFLICT (room_id, user_id) DO NOTHING
            `, r.ID, userID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error inserting member %s of room %s: %v\n", userID, r.ID, err)
				errs++
				continue
			}
			if cmdTag.RowsAffected() == 1 {
				members++
			}
		}
	}

	fmt.Printf("Seed complete: %d rooms, %d members inserted, %d errors\n", rooms, members, errs)
	if errs > 0 {
		os.Exit(1)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
