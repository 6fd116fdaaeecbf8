package outreach

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisPublisherPushesSerializedEvents(t *testing.T) {
	srv := miniredis.RunT(t)

	publisher, err := NewRedisPublisher(RedisPublisherConfig{
		Address: srv.Addr(),
		Stream:  "test:events",
	})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer publisher.Close()

	event := Event{
		ID:         "evt-1",
		Type:       EventDelivered,
		CycleID:    "cycle-1",
		ProfileID:  "p1",
		Phase:      "new",
		OccurredAt: time.Unix(1_700_000_000, 0).UTC(),
	}
	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	raw, err := srv.Lpop("test:events")
	if err != nil {
		t.Fatalf("lpop: %v", err)
	}
	var decoded Event
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != event.ID || decoded.Type != event.Type || decoded.ProfileID != event.ProfileID {
		t.Fatalf("round-trip mismatch: %+v", decoded)
	}
}

func TestRedisPublisherRequiresAddress(t *testing.T) {
	if _, err := NewRedisPublisher(RedisPublisherConfig{}); err == nil {
		t.Fatalf("expected error for missing address")
	}
}

func TestMemoryPublisherAccumulatesEvents(t *testing.T) {
	publisher := NewMemoryPublisher()
	for i := 0; i < 3; i++ {
		if err := publisher.Publish(context.Background(), Event{Type: EventCycleCompleted}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if got := len(publisher.Events()); got != 3 {
		t.Fatalf("expected 3 events, got %d", got)
	}
}
