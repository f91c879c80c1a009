package spitfire

import (
	"context"
	"testing"

	"elecrm_backend/internal/events"
	"elecrm_backend/internal/leadevents"
	"elecrm_backend/platform/logger"
)

type fakeScheduler struct {
	order *[]string
	leads []leadevents.CombinedLead
}

func (s *fakeScheduler) EnqueueLeadExport(_ context.Context, lead leadevents.CombinedLead) error {
	*s.order = append(*s.order, "export")
	s.leads = append(s.leads, lead)
	return nil
}

func TestExportTriggerRunsAfterEarlierSubscribers(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)

	var order []string
	bus.Subscribe(events.NewLead{}.EventName(), events.HandlerFunc(func(context.Context, events.Event) error {
		order = append(order, "broadcast")
		return nil
	}))

	sched := &fakeScheduler{order: &order}
	RegisterExportTrigger(bus, sched, log)

	lead := leadevents.CombinedLead{ID: 1, GlobalID: "gl-1"}
	bus.Publish(context.Background(), events.NewLead{BaseEvent: events.NewBaseEvent(), Lead: lead})

	if len(order) != 2 || order[0] != "broadcast" || order[1] != "export" {
		t.Fatalf("expected broadcast before export, got %v", order)
	}
	if len(sched.leads) != 1 || sched.leads[0].GlobalID != "gl-1" {
		t.Fatalf("unexpected scheduled leads: %+v", sched.leads)
	}
}

func TestExportTriggerIgnoresOtherEvents(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)

	var order []string
	sched := &fakeScheduler{order: &order}
	RegisterExportTrigger(bus, sched, log)

	bus.Publish(context.Background(), events.UpdateLead{BaseEvent: events.NewBaseEvent()})

	if len(sched.leads) != 0 {
		t.Fatalf("expected no export for lead update, got %d", len(sched.leads))
	}
}
