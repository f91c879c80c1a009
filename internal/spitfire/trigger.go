package spitfire

import (
	"context"

	"elecrm_backend/internal/events"
	"elecrm_backend/internal/leadevents"
	"elecrm_backend/platform/logger"
)

// ExportScheduler schedules export work off the notification path.
// Satisfied by the asynq scheduler client.
type ExportScheduler interface {
	EnqueueLeadExport(ctx context.Context, lead leadevents.CombinedLead) error
}

// RegisterExportTrigger subscribes the export pipeline to new-lead events.
// The subscriber only enqueues a background task, so the realtime broadcast
// of the lead never waits on the export; the handler is registered after the
// realtime relay so the broadcast also runs first within the dispatch order.
func RegisterExportTrigger(bus events.Bus, scheduler ExportScheduler, log *logger.Logger) {
	bus.Subscribe(events.NewLead{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		event := e.(events.NewLead)
		if err := scheduler.EnqueueLeadExport(ctx, event.Lead); err != nil {
			log.ExportEvent("enqueue_failed", event.Lead.GlobalID, err)
			return err
		}
		return nil
	}))
}
