package listener

import (
	"context"

	"elecrm_backend/internal/events"
	"elecrm_backend/internal/leadevents"
	"elecrm_backend/platform/config"
	"elecrm_backend/platform/logger"
)

// Auditor records every raw notification before any business logic runs.
type Auditor interface {
	Append(ctx context.Context, channel, payload string) error
}

// Service turns raw notifications into typed domain events on the bus.
type Service struct {
	listener *Listener
	audit    Auditor
	bus      events.Bus
	log      *logger.Logger

	leadChannel  string
	queueChannel string
}

// NewService creates the CDC service.
func NewService(listener *Listener, audit Auditor, bus events.Bus, cfg config.ListenerConfig, log *logger.Logger) *Service {
	return &Service{
		listener:     listener,
		audit:        audit,
		bus:          bus,
		log:          log,
		leadChannel:  cfg.GetLeadChannel(),
		queueChannel: cfg.GetQueueChannel(),
	}
}

// Start establishes both subscription lifetimes: the queue channel on a
// pooled connection released when ctx ends, and the lead channel on a
// dedicated connection held for the life of the process. The two are
// independent; a failure delivering on one does not affect the other.
func (s *Service) Start(ctx context.Context) error {
	if err := s.listener.Subscribe(ctx, []string{s.queueChannel}, s.HandleNotification); err != nil {
		return err
	}
	return s.listener.SubscribeDedicated(ctx, []string{s.leadChannel}, s.HandleNotification)
}

// HandleNotification is the single entry point for raw notifications.
// The audit append always happens first and its failure is swallowed;
// parse and mapping failures skip the one event and keep the subscription
// alive.
func (s *Service) HandleNotification(ctx context.Context, channel, payload string) {
	if err := s.audit.Append(ctx, channel, payload); err != nil {
		s.log.Error("notify audit write failed", "channel", channel, "error", err.Error())
	}

	change, err := leadevents.ParseChangePayload(payload)
	if err != nil {
		s.log.Error("unparseable notification payload",
			"channel", channel,
			"payload", payload,
			"error", err.Error(),
		)
		return
	}

	switch channel {
	case s.leadChannel:
		s.handleLeadChange(ctx, change, payload)
	case s.queueChannel:
		s.handleQueueChange(ctx, change, payload)
	default:
		s.log.Warn("notification on unexpected channel", "channel", channel)
	}
}

func (s *Service) handleLeadChange(ctx context.Context, change leadevents.ChangePayload, payload string) {
	lead, err := leadevents.MapCombinedLead(change.Record)
	if err != nil {
		s.log.Error("unmappable lead change",
			"operation", change.Operation,
			"payload", payload,
			"error", err.Error(),
		)
		return
	}

	switch change.Operation {
	case leadevents.OpInsert:
		s.bus.Publish(ctx, events.NewLead{BaseEvent: events.NewBaseEvent(), Lead: lead})
	case leadevents.OpDelete:
		s.bus.Publish(ctx, events.RemoveLead{BaseEvent: events.NewBaseEvent(), Lead: lead})
	case leadevents.OpUpdate:
		s.bus.Publish(ctx, events.UpdateLead{BaseEvent: events.NewBaseEvent(), Lead: lead})
	default:
		s.log.Warn("lead change with unknown operation", "operation", change.Operation)
	}
}

func (s *Service) handleQueueChange(ctx context.Context, change leadevents.ChangePayload, payload string) {
	if change.Operation != leadevents.OpInsert {
		return
	}

	update, err := leadevents.MapQueueUpdate(change.Record)
	if err != nil {
		s.log.Error("unmappable queue change", "payload", payload, "error", err.Error())
		return
	}

	s.bus.Publish(ctx, events.QueueUpdated{BaseEvent: events.NewBaseEvent(), Update: update})
}
