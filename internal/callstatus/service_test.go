package callstatus

import (
	"context"
	"testing"

	"elecrm_backend/internal/events"
	"elecrm_backend/internal/scheduler"
	"elecrm_backend/platform/apperr"
	"elecrm_backend/platform/logger"
)

type fakeStore struct {
	rows map[string]CallLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]CallLog)}
}

func (s *fakeStore) GetByCallSid(_ context.Context, callSid string) (*CallLog, error) {
	row, ok := s.rows[callSid]
	if !ok {
		return nil, nil
	}
	copied := row
	return &copied, nil
}

func (s *fakeStore) GetByConferenceSid(_ context.Context, conferenceSid string) (*CallLog, error) {
	for _, row := range s.rows {
		if row.ConferenceSid == conferenceSid {
			copied := row
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Upsert(_ context.Context, entry CallLog) error {
	// Mirror the non-regressing column rules of the SQL upsert.
	if prev, ok := s.rows[entry.CallSid]; ok {
		if entry.RecordingURL == "" {
			entry.RecordingURL = prev.RecordingURL
		}
		if entry.TransferType == "" {
			entry.TransferType = prev.TransferType
		}
	}
	s.rows[entry.CallSid] = entry
	return nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeArchiver struct {
	payloads []scheduler.RecordingArchivePayload
}

func (a *fakeArchiver) EnqueueRecordingArchive(_ context.Context, payload scheduler.RecordingArchivePayload) error {
	a.payloads = append(a.payloads, payload)
	return nil
}

type staticConfig struct {
	suppressCallEnded bool
}

func (c staticConfig) GetSuppressCallEndedOnWarmTransfer() bool { return c.suppressCallEnded }

func newTestService(store Store, bus events.Bus, archiver Archiver) *Service {
	return NewService(store, bus, archiver, staticConfig{}, logger.New("development"))
}

func TestProcessStatusUpdateRequiresASid(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{}, nil)

	_, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{Status: "ringing"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation kind, got %v", apperr.GetKind(err))
	}
}

func TestProcessStatusUpdateIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{}, nil)

	event := StatusEvent{CallSid: "CA1", Status: "in-progress", From: "+15550001", To: "+15550002"}
	for i := 0; i < 3; i++ {
		if _, err := svc.ProcessStatusUpdate(context.Background(), event); err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i, err)
		}
	}

	if len(store.rows) != 1 {
		t.Fatalf("expected a single row for CA1, got %d", len(store.rows))
	}
	if store.rows["CA1"].Status != "in-progress" {
		t.Fatalf("expected status in-progress, got %q", store.rows["CA1"].Status)
	}
}

func TestStatusUpdateDoesNotEraseRecordingURL(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{}, nil)

	if _, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{CallSid: "CA1", Status: "in-progress"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ProcessRecordingUpdate(context.Background(), RecordingEvent{CallSid: "CA1", RecordingURL: "https://rec/CA1.wav"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{CallSid: "CA1", Status: "completed"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row := store.rows["CA1"]
	if row.RecordingURL != "https://rec/CA1.wav" {
		t.Fatalf("expected recording URL preserved, got %q", row.RecordingURL)
	}
	if row.Status != "completed" {
		t.Fatalf("expected status completed, got %q", row.Status)
	}
}

func TestTransferTypeInference(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{}, nil)

	// First sighting inside a conference: no inference yet.
	if _, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{CallSid: "CA1", ConferenceSid: "CF1", Status: "in-progress"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.rows["CA1"].TransferType != "" {
		t.Fatalf("expected no transfer type yet, got %q", store.rows["CA1"].TransferType)
	}

	// Same call seen in a different conference: internal transfer.
	if _, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{CallSid: "CA1", ConferenceSid: "CF2", Status: "in-progress"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.rows["CA1"].TransferType != TransferInternal {
		t.Fatalf("expected internal transfer, got %q", store.rows["CA1"].TransferType)
	}

	// Later update without conference change keeps the inferred type.
	if _, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{CallSid: "CA1", ConferenceSid: "CF2", Status: "completed"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.rows["CA1"].TransferType != TransferInternal {
		t.Fatalf("expected internal transfer preserved, got %q", store.rows["CA1"].TransferType)
	}

	// API-originated leg with no conference: external transfer.
	if _, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{CallSid: "CA2", Direction: DirectionOutboundAPI, Status: "initiated"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.rows["CA2"].TransferType != TransferExternal {
		t.Fatalf("expected external transfer, got %q", store.rows["CA2"].TransferType)
	}
}

func TestBroadcastsStatusAndCallEnded(t *testing.T) {
	bus := &recordingBus{}
	svc := newTestService(newFakeStore(), bus, nil)

	if _, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{CallSid: "CA1", Status: "completed"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(bus.published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(bus.published))
	}
	if _, ok := bus.published[0].(events.OutboundCallStatus); !ok {
		t.Fatalf("expected OutboundCallStatus first, got %T", bus.published[0])
	}
	ended, ok := bus.published[1].(events.CallEnded)
	if !ok {
		t.Fatalf("expected CallEnded second, got %T", bus.published[1])
	}
	if ended.CallSid != "CA1" || ended.Status != "completed" {
		t.Fatalf("unexpected call ended event: %+v", ended)
	}
}

func TestWarmTransferSuppressesOutboundStatusOnly(t *testing.T) {
	bus := &recordingBus{}
	svc := newTestService(newFakeStore(), bus, nil)

	event := StatusEvent{CallSid: "CA1", Status: "completed", WarmTransfer: true}
	if _, err := svc.ProcessStatusUpdate(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.published))
	}
	if _, ok := bus.published[0].(events.CallEnded); !ok {
		t.Fatalf("expected only CallEnded, got %T", bus.published[0])
	}
}

func TestWarmTransferSuppressesCallEndedWhenConfigured(t *testing.T) {
	bus := &recordingBus{}
	svc := NewService(newFakeStore(), bus, nil, staticConfig{suppressCallEnded: true}, logger.New("development"))

	event := StatusEvent{CallSid: "CA1", Status: "completed", WarmTransfer: true}
	if _, err := svc.ProcessStatusUpdate(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(bus.published) != 0 {
		t.Fatalf("expected no events during suppressed warm transfer, got %d", len(bus.published))
	}
}

func TestNonTerminalStatusDoesNotEndCall(t *testing.T) {
	bus := &recordingBus{}
	svc := newTestService(newFakeStore(), bus, nil)

	if _, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{CallSid: "CA1", Status: "ringing"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, event := range bus.published {
		if _, ok := event.(events.CallEnded); ok {
			t.Fatal("call ended broadcast for non-terminal status")
		}
	}
}

func TestProcessRecordingUpdateUnknownCall(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{}, nil)

	_, err := svc.ProcessRecordingUpdate(context.Background(), RecordingEvent{CallSid: "CA-missing", RecordingURL: "https://rec/x.wav"})
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessRecordingUpdateFallsBackToConference(t *testing.T) {
	store := newFakeStore()
	archiver := &fakeArchiver{}
	svc := newTestService(store, &recordingBus{}, archiver)

	if _, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{CallSid: "CA1", ConferenceSid: "CF1", Status: "completed"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, err := svc.ProcessRecordingUpdate(context.Background(), RecordingEvent{ConferenceSid: "CF1", RecordingURL: "https://rec/CF1.wav", Duration: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.CallSid != "CA1" {
		t.Fatalf("expected recording attached to CA1, got %q", entry.CallSid)
	}
	if entry.Duration != 42 {
		t.Fatalf("expected duration 42, got %d", entry.Duration)
	}

	if len(archiver.payloads) != 1 {
		t.Fatalf("expected 1 archive task, got %d", len(archiver.payloads))
	}
	if archiver.payloads[0].RecordingURL != "https://rec/CF1.wav" {
		t.Fatalf("unexpected archive payload: %+v", archiver.payloads[0])
	}
}

func TestProcessConferenceEvents(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus, nil)

	join := ConferenceEvent{Event: ConferenceEventJoin, CallSid: "CA1", ConferenceSid: "CF1", ParticipantSid: "PT1"}
	if _, err := svc.ProcessConferenceEvent(context.Background(), join); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.rows["CA1"].ParticipantSid != "PT1" {
		t.Fatalf("expected participant PT1, got %q", store.rows["CA1"].ParticipantSid)
	}

	leave := ConferenceEvent{Event: ConferenceEventLeave, CallSid: "CA1", ConferenceSid: "CF1", HangupDirection: "inbound", HangupBy: "agent-1"}
	if _, err := svc.ProcessConferenceEvent(context.Background(), leave); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.rows["CA1"].HangupBy != "agent-1" {
		t.Fatalf("expected hangup by agent-1, got %q", store.rows["CA1"].HangupBy)
	}

	end := ConferenceEvent{Event: ConferenceEventEnd, ConferenceSid: "CF1"}
	entry, err := svc.ProcessConferenceEvent(context.Background(), end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Status != "completed" {
		t.Fatalf("expected completed after conference end, got %q", entry.Status)
	}

	var endedSeen bool
	for _, event := range bus.published {
		if _, ok := event.(events.CallEnded); ok {
			endedSeen = true
		}
	}
	if !endedSeen {
		t.Fatal("expected CallEnded after conference end")
	}
}

func TestParticipantEventWithoutCallSidNeedsPriorRow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{}, nil)

	// No row has ever mentioned CF9; a conference-only join cannot create
	// a keyless entry.
	join := ConferenceEvent{Event: ConferenceEventJoin, ConferenceSid: "CF9", ParticipantSid: "PT1"}
	_, err := svc.ProcessConferenceEvent(context.Background(), join)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("expected no row persisted, got %d", len(store.rows))
	}

	// Once a call row carries the conference, the same event resolves it.
	if _, err := svc.ProcessStatusUpdate(context.Background(), StatusEvent{CallSid: "CA9", ConferenceSid: "CF9", Status: "in-progress"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, err := svc.ProcessConferenceEvent(context.Background(), join)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.CallSid != "CA9" || entry.ParticipantSid != "PT1" {
		t.Fatalf("expected participant attached to CA9, got %+v", entry)
	}
}

func TestProcessConferenceEventUnknownName(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{}, nil)

	_, err := svc.ProcessConferenceEvent(context.Background(), ConferenceEvent{Event: "mute", CallSid: "CA1"})
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}
