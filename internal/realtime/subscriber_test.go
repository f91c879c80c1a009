package realtime

import (
	"context"
	"testing"
	"time"

	"elecrm_backend/internal/events"
	"elecrm_backend/internal/leadevents"
	"elecrm_backend/platform/logger"
)

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg := <-client.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestRelayNewLeadToSalesQueue(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	hub := NewHub(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	member := newTestClient()
	hub.addClient(member)
	hub.Join(member, RoomSalesQueue)

	RegisterSubscribers(bus, hub)

	lead := leadevents.CombinedLead{ID: 1, GlobalID: "gl-1", FirstName: "Ann"}
	bus.Publish(context.Background(), events.NewLead{BaseEvent: events.NewBaseEvent(), Lead: lead})

	msg := receive(t, member)
	if msg.Event != EventNewLead {
		t.Fatalf("expected %s, got %s", EventNewLead, msg.Event)
	}
	got, ok := msg.Payload.(leadevents.CombinedLead)
	if !ok {
		t.Fatalf("expected CombinedLead payload, got %T", msg.Payload)
	}
	if got.GlobalID != "gl-1" {
		t.Fatalf("unexpected lead payload: %+v", got)
	}
}

func TestRelayUserStatusToPresenceRoom(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	hub := NewHub(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	watcher := newTestClient()
	hub.addClient(watcher)
	hub.Join(watcher, RoomPresence)

	RegisterSubscribers(bus, hub)

	bus.Publish(context.Background(), events.UserStatusChanged{
		BaseEvent:    events.NewBaseEvent(),
		UserID:       "agent-1",
		MasterStatus: "busy",
	})

	msg := receive(t, watcher)
	if msg.Event != EventUserStatusUpdated {
		t.Fatalf("expected %s, got %s", EventUserStatusUpdated, msg.Event)
	}
	payload, ok := msg.Payload.(map[string]string)
	if !ok {
		t.Fatalf("expected map payload, got %T", msg.Payload)
	}
	if payload["user_id"] != "agent-1" || payload["masterStatus"] != "busy" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestRelayCallEndedGlobally(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	hub := NewHub(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// No room membership at all; global events still arrive.
	anyone := newTestClient()
	hub.addClient(anyone)

	RegisterSubscribers(bus, hub)

	bus.Publish(context.Background(), events.CallEnded{
		BaseEvent: events.NewBaseEvent(),
		CallSid:   "CA1",
		Status:    "completed",
	})

	msg := receive(t, anyone)
	if msg.Event != EventCallEnded {
		t.Fatalf("expected %s, got %s", EventCallEnded, msg.Event)
	}
}
