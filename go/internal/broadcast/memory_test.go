package broadcast

import (
	"context"
	"testing"
)

func TestMemoryBroker_SelfDelivery(t *testing.T) {
	broker := NewMemoryBroker()
	topic := broker.Topic("sess-1")

	var got []ScoreUpdatePayload
	unsub, err := topic.Subscribe(EventTypeScoreUpdate, func(ev Event) {
		var p ScoreUpdatePayload
		if err := ev.Bind(&p); err != nil {
			t.Errorf("bind: %v", err)
			return
		}
		got = append(got, p)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	err = topic.Publish(context.Background(), EventTypeScoreUpdate, ScoreUpdatePayload{UserID: "u1", Score: 70})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d deliveries, want 1 (publisher must receive its own event)", len(got))
	}
	if got[0].UserID != "u1" || got[0].Score != 70 {
		t.Errorf("payload = %+v", got[0])
	}
}

func TestMemoryBroker_CrossTopicDelivery(t *testing.T) {
	broker := NewMemoryBroker()
	a := broker.Topic("sess-1")
	b := broker.Topic("sess-1")
	other := broker.Topic("sess-2")

	var bGot, otherGot int
	if _, err := b.Subscribe(EventTypeGameStart, func(Event) { bGot++ }); err != nil {
		t.Fatal(err)
	}
	if _, err := other.Subscribe(EventTypeGameStart, func(Event) { otherGot++ }); err != nil {
		t.Fatal(err)
	}

	if err := a.Publish(context.Background(), EventTypeGameStart, GameStartPayload{SessionID: "sess-1"}); err != nil {
		t.Fatal(err)
	}
	if bGot != 1 {
		t.Errorf("same-session subscriber got %d events, want 1", bGot)
	}
	if otherGot != 0 {
		t.Errorf("other-session subscriber got %d events, want 0", otherGot)
	}
}

func TestMemoryBroker_TypeFiltering(t *testing.T) {
	broker := NewMemoryBroker()
	topic := broker.Topic("sess-1")

	var finishes int
	if _, err := topic.Subscribe(EventTypePlayerFinished, func(Event) { finishes++ }); err != nil {
		t.Fatal(err)
	}
	if err := topic.Publish(context.Background(), EventTypeScoreUpdate, ScoreUpdatePayload{UserID: "u1", Score: 1}); err != nil {
		t.Fatal(err)
	}
	if finishes != 0 {
		t.Errorf("player-finished handler fired for score-update")
	}
}

func TestMemoryBroker_ClosedTopicDropsEvents(t *testing.T) {
	broker := NewMemoryBroker()
	pub := broker.Topic("sess-1")
	sub := broker.Topic("sess-1")

	var got int
	if _, err := sub.Subscribe(EventTypeGameCancelled, func(Event) { got++ }); err != nil {
		t.Fatal(err)
	}
	if err := sub.Close(); err != nil {
		t.Fatal(err)
	}
	if err := pub.Publish(context.Background(), EventTypeGameCancelled, GameCancelledPayload{SessionID: "sess-1"}); err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("closed topic received %d events, want 0", got)
	}
}

func TestMemoryBroker_Unsubscribe(t *testing.T) {
	broker := NewMemoryBroker()
	topic := broker.Topic("sess-1")

	var got int
	unsub, err := topic.Subscribe(EventTypeGameEnd, func(Event) { got++ })
	if err != nil {
		t.Fatal(err)
	}
	unsub()
	if err := topic.Publish(context.Background(), EventTypeGameEnd, GameEndPayload{}); err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("unsubscribed handler received %d events, want 0", got)
	}
}
