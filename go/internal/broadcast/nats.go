package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConfig holds configuration for the NATS-backed broker.
type JetStreamConfig struct {
	URL               string
	StreamName        string
	SubjectPrefix     string // events go to <prefix>.<session_id>.<event-type>
	MaxReconnects     int
	ReconnectWait     time.Duration
	AckWait           time.Duration
	MaxDeliver        int
	MaxAckPending     int
	InactiveThreshold time.Duration // ephemeral consumer cleanup after a client goes away
	MaxAge            time.Duration // stream retention
}

// DefaultJetStreamConfig returns default NATS broker configuration.
func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:               nats.DefaultURL,
		StreamName:        "GAME_EVENTS",
		SubjectPrefix:     "game.events",
		MaxReconnects:     -1, // infinite
		ReconnectWait:     2 * time.Second,
		AckWait:           30 * time.Second,
		MaxDeliver:        5,
		MaxAckPending:     100,
		InactiveThreshold: 10 * time.Minute,
		MaxAge:            24 * time.Hour,
	}
}

// JetStreamBroker is the production Broker: per-session subjects on one
// stream, one ephemeral consumer per topic handle. Every runtime holds its
// own consumer, so a publisher always receives its own events back
// (self-delivery). JetStream gives at-least-once delivery; handlers must
// absorb duplicates.
type JetStreamBroker struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg JetStreamConfig
}

// NewJetStreamBroker connects to NATS and ensures the game event stream.
func NewJetStreamBroker(ctx context.Context, cfg JetStreamConfig) (*JetStreamBroker, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	b := &JetStreamBroker{nc: nc, js: js, cfg: cfg}
	if err := b.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return b, nil
}

func (b *JetStreamBroker) ensureStream(ctx context.Context) error {
	_, err := b.js.Stream(ctx, b.cfg.StreamName)
	if err == nil {
		log.Info().Str("stream", b.cfg.StreamName).Msg("using existing JetStream stream")
		return nil
	}
	_, err = b.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:      b.cfg.StreamName,
		Subjects:  []string{b.cfg.SubjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    b.cfg.MaxAge,
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	log.Info().Str("stream", b.cfg.StreamName).Msg("created JetStream stream")
	return nil
}

func (b *JetStreamBroker) Topic(sessionID string) Topic {
	return &jetStreamTopic{
		broker:    b,
		sessionID: sessionID,
		handlers:  make(map[EventType]map[int]Handler),
	}
}

// Close drains the NATS connection.
func (b *JetStreamBroker) Close() error {
	return b.nc.Drain()
}

type jetStreamTopic struct {
	broker    *JetStreamBroker
	sessionID string

	mu         sync.Mutex
	handlers   map[EventType]map[int]Handler
	nextID     int
	consumeCtx jetstream.ConsumeContext
	closed     bool
}

func (t *jetStreamTopic) Publish(ctx context.Context, eventType EventType, payload any) error {
	ev, err := NewEvent(t.sessionID, eventType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	subject := fmt.Sprintf("%s.%s.%s", t.broker.cfg.SubjectPrefix, t.sessionID, eventType)
	if _, err := t.broker.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (t *jetStreamTopic) Subscribe(eventType EventType, h Handler) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("topic for session %s is closed", t.sessionID)
	}
	if t.consumeCtx == nil {
		if err := t.startConsumer(); err != nil {
			return nil, err
		}
	}
	if t.handlers[eventType] == nil {
		t.handlers[eventType] = make(map[int]Handler)
	}
	id := t.nextID
	t.nextID++
	t.handlers[eventType][id] = h

	return func() {
		t.mu.Lock()
		delete(t.handlers[eventType], id)
		t.mu.Unlock()
	}, nil
}

// startConsumer creates this handle's ephemeral consumer. Called with t.mu held.
func (t *jetStreamTopic) startConsumer() error {
	ctx := context.Background()
	cfg := t.broker.cfg

	stream, err := t.broker.js.Stream(ctx, cfg.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}
	consumer, err := stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject:     fmt.Sprintf("%s.%s.>", cfg.SubjectPrefix, t.sessionID),
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		MaxDeliver:        cfg.MaxDeliver,
		AckWait:           cfg.AckWait,
		MaxAckPending:     cfg.MaxAckPending,
		InactiveThreshold: cfg.InactiveThreshold,
		ReplayPolicy:      jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed game event")
			_ = msg.Ack()
			return
		}
		t.dispatch(ev)
		if err := msg.Ack(); err != nil {
			log.Error().Err(err).Str("event_id", ev.ID).Msg("failed to ack game event")
		}
	})
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	t.consumeCtx = consumeCtx

	log.Debug().
		Str("session_id", t.sessionID).
		Str("stream", cfg.StreamName).
		Msg("started session event consumer")
	return nil
}

func (t *jetStreamTopic) dispatch(ev Event) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	hs := make([]Handler, 0, len(t.handlers[ev.Type]))
	for _, h := range t.handlers[ev.Type] {
		hs = append(hs, h)
	}
	t.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

func (t *jetStreamTopic) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.handlers = make(map[EventType]map[int]Handler)
	if t.consumeCtx != nil {
		t.consumeCtx.Stop()
		t.consumeCtx = nil
	}
	return nil
}
