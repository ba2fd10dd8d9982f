package main

import (
	"context"
	"database/sql"

	"github.com/mcdev12/playroom/go/internal/broadcast"
	"github.com/mcdev12/playroom/go/internal/gateway"
	"github.com/mcdev12/playroom/go/internal/models"
	"github.com/mcdev12/playroom/go/internal/rooms"
	"github.com/mcdev12/playroom/go/internal/session"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Sessions       *session.App
	SessionHandler *session.Handler
	Rooms          *rooms.Repository
	Gateway        *gateway.Service
	WSHandler      *gateway.WebSocketHandler
}

// setupBroker picks the event broker: NATS JetStream when NATS_URL is set,
// an in-process broker otherwise. The in-process broker only works for a
// single server instance.
func setupBroker(ctx context.Context) (broadcast.Broker, func(), error) {
	url := getEnv("NATS_URL", "")
	if url == "" {
		log.Warn().Msg("NATS_URL not set, using in-process event broker")
		return broadcast.NewMemoryBroker(), func() {}, nil
	}

	cfg := broadcast.DefaultJetStreamConfig()
	cfg.URL = url
	broker, err := broadcast.NewJetStreamBroker(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return broker, func() {
		if err := broker.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event broker")
		}
	}, nil
}

func setupServices(database *sql.DB, broker broadcast.Broker, rules map[models.GameKind]models.GameRules) *Services {
	// Repository layer → App layer → transport layer.
	roomRepo := rooms.NewRepository(database)
	sessionRepo := session.NewRepository(database)
	sessionApp := session.NewApp(sessionRepo, roomRepo, broker, rules)

	gatewayService := gateway.NewService(sessionApp, roomRepo, broker, gateway.DefaultConnectionConfig())

	return &Services{
		Sessions:       sessionApp,
		SessionHandler: session.NewHandler(sessionApp),
		Rooms:          roomRepo,
		Gateway:        gatewayService,
		WSHandler:      gateway.NewWebSocketHandler(gatewayService),
	}
}
