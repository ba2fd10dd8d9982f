package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/playroom/go/internal/broadcast"
	"github.com/mcdev12/playroom/go/internal/models"
)

type fakeRepo struct {
	sessions map[uuid.UUID]*models.GameSession
	results  map[uuid.UUID][]models.GameResult
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sessions: make(map[uuid.UUID]*models.GameSession),
		results:  make(map[uuid.UUID][]models.GameResult),
	}
}

func (f *fakeRepo) CreateSession(_ context.Context, req CreateSessionRequest) (*models.GameSession, error) {
	sess := &models.GameSession{
		ID:       req.ID,
		RoomID:   req.RoomID,
		GameKind: req.GameKind,
		Status:   req.Status,
		Settings: req.Settings,
	}
	f.sessions[req.ID] = sess
	return sess, nil
}

func (f *fakeRepo) GetSession(_ context.Context, id uuid.UUID) (*models.GameSession, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (f *fakeRepo) GetActiveSessionForRoom(_ context.Context, roomID uuid.UUID) (*models.GameSession, error) {
	for _, sess := range f.sessions {
		if sess.RoomID == roomID && sess.Status.Active() {
			return sess, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (f *fakeRepo) StartSession(_ context.Context, id uuid.UUID) (*models.GameSession, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Status != models.SessionStatusWaiting {
		return nil, ErrWrongStatus
	}
	sess.Status = models.SessionStatusPlaying
	return sess, nil
}

func (f *fakeRepo) FinalizeSession(_ context.Context, id uuid.UUID, results []models.GameResult) error {
	sess, ok := f.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.Status == models.SessionStatusCompleted {
		return errAlreadyCompleted
	}
	if sess.Status != models.SessionStatusPlaying {
		return ErrWrongStatus
	}
	sess.Status = models.SessionStatusCompleted
	f.results[id] = results
	return nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, id uuid.UUID) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeRepo) ListResults(_ context.Context, sessionID uuid.UUID) ([]models.GameResult, error) {
	return f.results[sessionID], nil
}

type fakeRooms struct {
	room    *models.Room
	members []models.RoomMember
	online  int
}

func (f *fakeRooms) GetRoom(_ context.Context, id uuid.UUID) (*models.Room, error) {
	if f.room == nil || f.room.ID != id {
		return nil, errors.New("room not found")
	}
	return f.room, nil
}

func (f *fakeRooms) ListMembers(_ context.Context, _ uuid.UUID) ([]models.RoomMember, error) {
	return f.members, nil
}

func (f *fakeRooms) OnlineMemberCount(_ context.Context, _ uuid.UUID) (int, error) {
	return f.online, nil
}

func testApp(t *testing.T, memberCount, online int) (*App, *fakeRepo, *fakeRooms, *broadcast.MemoryBroker, uuid.UUID, uuid.UUID) {
	t.Helper()
	roomID := uuid.New()
	ownerID := uuid.New()
	members := make([]models.RoomMember, memberCount)
	for i := range members {
		members[i] = models.RoomMember{RoomID: roomID, UserID: uuid.New(), Online: i < online}
	}
	if memberCount > 0 {
		members[0].UserID = ownerID
	}
	rooms := &fakeRooms{
		room:    &models.Room{ID: roomID, OwnerID: ownerID, Name: "test room"},
		members: members,
		online:  online,
	}
	repo := newFakeRepo()
	broker := broadcast.NewMemoryBroker()
	rules := make(map[models.GameKind]models.GameRules)
	for _, kind := range []models.GameKind{models.GameKindNumberGuess, models.GameKindWordGuess, models.GameKindTrivia} {
		r, _ := models.DefaultRules(kind)
		rules[kind] = r
	}
	return NewApp(repo, rooms, broker, rules), repo, rooms, broker, roomID, ownerID
}

func TestCreateSession_TooFewMembers(t *testing.T) {
	app, _, _, _, roomID, _ := testApp(t, 1, 1)
	_, err := app.CreateSession(context.Background(), roomID, models.GameKindNumberGuess)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}
}

func TestCreateSession_UnknownKind(t *testing.T) {
	app, _, _, _, roomID, _ := testApp(t, 3, 3)
	_, err := app.CreateSession(context.Background(), roomID, models.GameKind("CHESS"))
	if !errors.Is(err, ErrUnknownGameKind) {
		t.Fatalf("err = %v, want ErrUnknownGameKind", err)
	}
}

func TestCreateSession_ActiveSessionExists(t *testing.T) {
	app, _, _, _, roomID, _ := testApp(t, 3, 3)
	if _, err := app.CreateSession(context.Background(), roomID, models.GameKindNumberGuess); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := app.CreateSession(context.Background(), roomID, models.GameKindTrivia)
	if !errors.Is(err, ErrActiveSessionExists) {
		t.Fatalf("err = %v, want ErrActiveSessionExists", err)
	}
}

func TestStartSession_NotOwner(t *testing.T) {
	app, _, _, _, roomID, _ := testApp(t, 3, 3)
	sess, err := app.CreateSession(context.Background(), roomID, models.GameKindNumberGuess)
	if err != nil {
		t.Fatal(err)
	}
	_, err = app.StartSession(context.Background(), sess.ID, uuid.New())
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestStartSession_TooFewOnline(t *testing.T) {
	app, _, rooms, _, roomID, ownerID := testApp(t, 3, 3)
	sess, err := app.CreateSession(context.Background(), roomID, models.GameKindNumberGuess)
	if err != nil {
		t.Fatal(err)
	}
	rooms.online = 1
	_, err = app.StartSession(context.Background(), sess.ID, ownerID)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}
}

func TestStartSession_PublishesGameStart(t *testing.T) {
	app, _, _, broker, roomID, ownerID := testApp(t, 3, 3)
	sess, err := app.CreateSession(context.Background(), roomID, models.GameKindNumberGuess)
	if err != nil {
		t.Fatal(err)
	}

	var starts []broadcast.GameStartPayload
	topic := broker.Topic(sess.ID.String())
	if _, err := topic.Subscribe(broadcast.EventTypeGameStart, func(ev broadcast.Event) {
		var p broadcast.GameStartPayload
		if err := ev.Bind(&p); err != nil {
			t.Errorf("bind: %v", err)
			return
		}
		starts = append(starts, p)
	}); err != nil {
		t.Fatal(err)
	}

	started, err := app.StartSession(context.Background(), sess.ID, ownerID)
	if err != nil {
		t.Fatal(err)
	}
	if started.Status != models.SessionStatusPlaying {
		t.Errorf("status = %s, want PLAYING", started.Status)
	}
	if len(starts) != 1 || starts[0].SessionID != sess.ID.String() {
		t.Errorf("game-start deliveries = %+v, want one for session", starts)
	}
}

func TestStartSession_WrongStatus(t *testing.T) {
	app, _, _, _, roomID, ownerID := testApp(t, 3, 3)
	sess, err := app.CreateSession(context.Background(), roomID, models.GameKindNumberGuess)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := app.StartSession(context.Background(), sess.ID, ownerID); err != nil {
		t.Fatal(err)
	}
	_, err = app.StartSession(context.Background(), sess.ID, ownerID)
	if !errors.Is(err, ErrWrongStatus) {
		t.Fatalf("err = %v, want ErrWrongStatus", err)
	}
}

func TestFinalizeSession_Idempotent(t *testing.T) {
	app, repo, _, _, roomID, ownerID := testApp(t, 2, 2)
	sess, err := app.CreateSession(context.Background(), roomID, models.GameKindNumberGuess)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := app.StartSession(context.Background(), sess.ID, ownerID); err != nil {
		t.Fatal(err)
	}

	results := []models.GameResult{
		{UserID: ownerID, GameSessionID: sess.ID, Score: 70, Won: true, Position: 1},
	}
	if err := app.FinalizeSession(context.Background(), sess.ID, ownerID, results); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if err := app.FinalizeSession(context.Background(), sess.ID, ownerID, results); err != nil {
		t.Fatalf("second finalize should be idempotent success, got %v", err)
	}
	if got := len(repo.results[sess.ID]); got != 1 {
		t.Errorf("stored result sets = %d, want exactly one", got)
	}
}

func TestFinalizeSession_NotOwner(t *testing.T) {
	app, _, _, _, roomID, ownerID := testApp(t, 2, 2)
	sess, err := app.CreateSession(context.Background(), roomID, models.GameKindNumberGuess)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := app.StartSession(context.Background(), sess.ID, ownerID); err != nil {
		t.Fatal(err)
	}
	err = app.FinalizeSession(context.Background(), sess.ID, uuid.New(), nil)
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestCancelSession_PublishesCancelAndDeletes(t *testing.T) {
	app, repo, _, broker, roomID, ownerID := testApp(t, 3, 3)
	sess, err := app.CreateSession(context.Background(), roomID, models.GameKindWordGuess)
	if err != nil {
		t.Fatal(err)
	}

	var cancels int
	topic := broker.Topic(sess.ID.String())
	if _, err := topic.Subscribe(broadcast.EventTypeGameCancelled, func(broadcast.Event) { cancels++ }); err != nil {
		t.Fatal(err)
	}

	if err := app.CancelSession(context.Background(), sess.ID, ownerID); err != nil {
		t.Fatal(err)
	}
	if cancels != 1 {
		t.Errorf("game-cancelled deliveries = %d, want 1", cancels)
	}
	if _, ok := repo.sessions[sess.ID]; ok {
		t.Error("session should be deleted")
	}
}
