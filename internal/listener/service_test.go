package listener

import (
	"context"
	"errors"
	"testing"

	"elecrm_backend/internal/events"
	"elecrm_backend/platform/logger"
)

type fakeAuditor struct {
	appended []string
	err      error
}

func (a *fakeAuditor) Append(_ context.Context, channel, payload string) error {
	if a.err != nil {
		return a.err
	}
	a.appended = append(a.appended, channel+":"+payload)
	return nil
}

type staticChannels struct{}

func (staticChannels) GetLeadChannel() string  { return "combined_lead_changes" }
func (staticChannels) GetQueueChannel() string { return "queue_changes" }

func newTestService(audit Auditor, bus events.Bus) *Service {
	return NewService(nil, audit, bus, staticChannels{}, logger.New("development"))
}

func collect(bus events.Bus, eventName string, sink *[]events.Event) {
	bus.Subscribe(eventName, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		*sink = append(*sink, e)
		return nil
	}))
}

func TestLeadInsertPublishesNewLead(t *testing.T) {
	audit := &fakeAuditor{}
	bus := events.NewInMemoryBus(logger.New("development"))
	svc := newTestService(audit, bus)

	var seen []events.Event
	collect(bus, events.NewLead{}.EventName(), &seen)

	payload := `{"operation":"INSERT","table":"combined_leads","record":{"id":5,"global_id":"gl-5","first_name":"Ann"}}`
	svc.HandleNotification(context.Background(), "combined_lead_changes", payload)

	if len(seen) != 1 {
		t.Fatalf("expected 1 new-lead event, got %d", len(seen))
	}
	lead := seen[0].(events.NewLead).Lead
	if lead.GlobalID != "gl-5" || lead.FirstName != "Ann" {
		t.Fatalf("unexpected lead: %+v", lead)
	}

	if len(audit.appended) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(audit.appended))
	}
}

func TestLeadUpdateAndDeleteRouting(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	svc := newTestService(&fakeAuditor{}, bus)

	var updated, removed []events.Event
	collect(bus, events.UpdateLead{}.EventName(), &updated)
	collect(bus, events.RemoveLead{}.EventName(), &removed)

	svc.HandleNotification(context.Background(), "combined_lead_changes",
		`{"operation":"UPDATE","record":{"id":5,"status":"contacted"}}`)
	svc.HandleNotification(context.Background(), "combined_lead_changes",
		`{"operation":"DELETE","record":{"id":5}}`)

	if len(updated) != 1 {
		t.Fatalf("expected 1 update event, got %d", len(updated))
	}
	if len(removed) != 1 {
		t.Fatalf("expected 1 remove event, got %d", len(removed))
	}
}

func TestQueueInsertPublishesQueueUpdate(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	svc := newTestService(&fakeAuditor{}, bus)

	var seen []events.Event
	collect(bus, events.QueueUpdated{}.EventName(), &seen)

	svc.HandleNotification(context.Background(), "queue_changes",
		`{"operation":"INSERT","record":{"lead_id":"ld-1","first_name":"Bo","state":"TX"}}`)

	if len(seen) != 1 {
		t.Fatalf("expected 1 queue event, got %d", len(seen))
	}
	update := seen[0].(events.QueueUpdated).Update
	if update.LeadID != "ld-1" || update.State != "TX" {
		t.Fatalf("unexpected update: %+v", update)
	}
}

func TestQueueNonInsertIsIgnored(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	svc := newTestService(&fakeAuditor{}, bus)

	var seen []events.Event
	collect(bus, events.QueueUpdated{}.EventName(), &seen)

	svc.HandleNotification(context.Background(), "queue_changes",
		`{"operation":"UPDATE","record":{"lead_id":"ld-1"}}`)

	if len(seen) != 0 {
		t.Fatalf("expected no queue event, got %d", len(seen))
	}
}

func TestMalformedPayloadIsSkipped(t *testing.T) {
	audit := &fakeAuditor{}
	bus := events.NewInMemoryBus(logger.New("development"))
	svc := newTestService(audit, bus)

	var seen []events.Event
	collect(bus, events.NewLead{}.EventName(), &seen)

	svc.HandleNotification(context.Background(), "combined_lead_changes", "not json at all")

	if len(seen) != 0 {
		t.Fatalf("expected no event, got %d", len(seen))
	}
	// The raw payload is still audited.
	if len(audit.appended) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(audit.appended))
	}
}

func TestAuditFailureDoesNotBlockDispatch(t *testing.T) {
	audit := &fakeAuditor{err: errors.New("disk full")}
	bus := events.NewInMemoryBus(logger.New("development"))
	svc := newTestService(audit, bus)

	var seen []events.Event
	collect(bus, events.NewLead{}.EventName(), &seen)

	svc.HandleNotification(context.Background(), "combined_lead_changes",
		`{"operation":"INSERT","record":{"id":1}}`)

	if len(seen) != 1 {
		t.Fatalf("expected event despite audit failure, got %d", len(seen))
	}
}

func TestUnknownChannelIsIgnored(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	svc := newTestService(&fakeAuditor{}, bus)

	var seen []events.Event
	collect(bus, events.NewLead{}.EventName(), &seen)

	svc.HandleNotification(context.Background(), "other_channel",
		`{"operation":"INSERT","record":{"id":1}}`)

	if len(seen) != 0 {
		t.Fatalf("expected no event for unknown channel, got %d", len(seen))
	}
}
