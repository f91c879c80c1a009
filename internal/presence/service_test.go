package presence

import (
	"context"
	"testing"

	"elecrm_backend/internal/events"
	"elecrm_backend/platform/logger"
	"elecrm_backend/platform/validator"
)

func TestDeriveMasterStatus(t *testing.T) {
	cases := []struct {
		name         string
		connected    bool
		activeCall   bool
		inConference bool
		manual       string
		want         string
	}{
		{"disconnected wins over everything", false, true, true, "lunch", StatusOffline},
		{"active call forces busy", true, true, false, "lunch", StatusBusy},
		{"conference forces busy", true, false, true, "", StatusBusy},
		{"manual status when idle", true, false, false, "lunch", "lunch"},
		{"manual whitespace ignored", true, false, false, "   ", StatusAvailable},
		{"available when idle", true, false, false, "", StatusAvailable},
	}

	for _, tc := range cases {
		got := DeriveMasterStatus(tc.connected, tc.activeCall, tc.inConference, tc.manual)
		if got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

type fakeStore struct {
	rows map[string]UserStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]UserStatus)}
}

func (s *fakeStore) Get(_ context.Context, userID string) (UserStatus, error) {
	row, ok := s.rows[userID]
	if !ok {
		return UserStatus{}, ErrNotFound
	}
	return row, nil
}

func (s *fakeStore) Upsert(_ context.Context, status UserStatus) error {
	s.rows[status.UserID] = status
	return nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService(store Store, bus events.Bus) *Service {
	return NewService(store, bus, validator.New(), logger.New("development"))
}

func TestHandleStatusUpdatePersistsAndPublishes(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	raw := []byte(`{"user_id":"agent-1","connected":true,"active_call":true}`)
	if err := svc.HandleStatusUpdate(context.Background(), raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row, ok := store.rows["agent-1"]
	if !ok {
		t.Fatal("expected row for agent-1")
	}
	if row.MasterStatus != StatusBusy {
		t.Fatalf("expected master status busy, got %q", row.MasterStatus)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(bus.published))
	}
	changed, ok := bus.published[0].(events.UserStatusChanged)
	if !ok {
		t.Fatalf("expected UserStatusChanged, got %T", bus.published[0])
	}
	if changed.UserID != "agent-1" || changed.MasterStatus != StatusBusy {
		t.Fatalf("unexpected event: %+v", changed)
	}
}

func TestHandleStatusUpdateRejectsMissingUserID(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	if err := svc.HandleStatusUpdate(context.Background(), []byte(`{"connected":true}`)); err == nil {
		t.Fatal("expected validation error for missing user_id")
	}
	if len(store.rows) != 0 {
		t.Fatal("expected no row persisted")
	}
	if len(bus.published) != 0 {
		t.Fatal("expected no event published")
	}
}

func TestHandleStatusUpdateRejectsMalformedJSON(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{})
	if err := svc.HandleStatusUpdate(context.Background(), []byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestHandleDisconnectForcesOffline(t *testing.T) {
	store := newFakeStore()
	store.rows["agent-2"] = UserStatus{
		UserID:       "agent-2",
		ElecrmClient: true,
		ActiveCall:   true,
		MasterStatus: StatusBusy,
	}
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	svc.HandleDisconnect(context.Background(), "agent-2")

	row := store.rows["agent-2"]
	if row.ElecrmClient {
		t.Fatal("expected client connection cleared")
	}
	if row.MasterStatus != StatusOffline {
		t.Fatalf("expected offline after disconnect, got %q", row.MasterStatus)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(bus.published))
	}
}

func TestHandleDisconnectUnknownUserIsNoop(t *testing.T) {
	bus := &recordingBus{}
	svc := newTestService(newFakeStore(), bus)

	svc.HandleDisconnect(context.Background(), "nobody")

	if len(bus.published) != 0 {
		t.Fatal("expected no event for unknown user")
	}
}
