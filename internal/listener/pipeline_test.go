package listener

import (
	"context"
	"testing"

	"elecrm_backend/internal/events"
	"elecrm_backend/internal/leadevents"
	"elecrm_backend/internal/spitfire"
	"elecrm_backend/platform/logger"
)

type orderedScheduler struct {
	order *[]string
	leads []leadevents.CombinedLead
}

func (s *orderedScheduler) EnqueueLeadExport(_ context.Context, lead leadevents.CombinedLead) error {
	*s.order = append(*s.order, "export")
	s.leads = append(s.leads, lead)
	return nil
}

// Simulates the full notification path for one lead insert: audit row,
// broadcast relay, export scheduling, with the broadcast never waiting on
// the export.
func TestLeadInsertPipeline(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	audit := &fakeAuditor{}
	svc := newTestService(audit, bus)

	var order []string
	var broadcasted []leadevents.CombinedLead
	// Stands in for the realtime relay, registered first as in the
	// composition root.
	bus.Subscribe(events.NewLead{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		order = append(order, "broadcast")
		broadcasted = append(broadcasted, e.(events.NewLead).Lead)
		return nil
	}))

	sched := &orderedScheduler{order: &order}
	spitfire.RegisterExportTrigger(bus, sched, log)

	payload := `{"operation":"INSERT","table":"combined_leads","record":{"id":42,"global_id":"g-42","first_name":"Ann","last_name":"Lee"}}`
	svc.HandleNotification(context.Background(), "combined_lead_changes", payload)

	if len(order) != 2 || order[0] != "broadcast" || order[1] != "export" {
		t.Fatalf("expected broadcast before export, got %v", order)
	}
	if len(broadcasted) != 1 || broadcasted[0].GlobalID != "g-42" || broadcasted[0].FirstName != "Ann" {
		t.Fatalf("unexpected broadcast payload: %+v", broadcasted)
	}
	if len(sched.leads) != 1 || sched.leads[0].GlobalID != "g-42" {
		t.Fatalf("unexpected scheduled export: %+v", sched.leads)
	}
	if len(audit.appended) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(audit.appended))
	}

	// Redelivery schedules another attempt; the ledger pre-check downstream
	// is what keeps the external submission single.
	svc.HandleNotification(context.Background(), "combined_lead_changes", payload)
	if len(sched.leads) != 2 {
		t.Fatalf("expected redelivery to reschedule, got %d", len(sched.leads))
	}
	if len(audit.appended) != 2 {
		t.Fatalf("expected 2 audit rows after redelivery, got %d", len(audit.appended))
	}
}
