package callstatus

import (
	"context"
	"time"

	"elecrm_backend/internal/events"
	"elecrm_backend/internal/scheduler"
	"elecrm_backend/platform/apperr"
	"elecrm_backend/platform/config"
	"elecrm_backend/platform/logger"
)

// Archiver schedules background archival of completed recordings.
// Satisfied by the asynq scheduler client; nil disables archival.
type Archiver interface {
	EnqueueRecordingArchive(ctx context.Context, payload scheduler.RecordingArchivePayload) error
}

// Service is the per-call-SID state reconciler.
type Service struct {
	store    Store
	bus      events.Bus
	archiver Archiver
	log      *logger.Logger

	suppressCallEnded bool
}

// NewService creates the reconciler.
func NewService(store Store, bus events.Bus, archiver Archiver, cfg config.CallStatusConfig, log *logger.Logger) *Service {
	return &Service{
		store:             store,
		bus:               bus,
		archiver:          archiver,
		log:               log,
		suppressCallEnded: cfg.GetSuppressCallEndedOnWarmTransfer(),
	}
}

// ProcessStatusUpdate applies one vendor status callback: infer the transfer
// type against the previously stored conference, upsert the row, and
// broadcast the externally visible state changes.
func (s *Service) ProcessStatusUpdate(ctx context.Context, event StatusEvent) (CallLog, error) {
	if event.CallSid == "" && event.ConferenceSid == "" {
		return CallLog{}, apperr.Validation("call_sid or conference_sid is required")
	}

	var prev *CallLog
	if event.CallSid != "" {
		found, err := s.store.GetByCallSid(ctx, event.CallSid)
		if err != nil {
			return CallLog{}, apperr.Wrap(apperr.KindInternal, "call log lookup", err)
		}
		prev = found
	}

	entry := CallLog{
		CallSid:         event.CallSid,
		Status:          event.Status,
		Direction:       event.Direction,
		From:            event.From,
		To:              event.To,
		Duration:        event.Duration,
		RecordingURL:    event.RecordingURL,
		ParticipantSid:  event.ParticipantSid,
		ConferenceSid:   event.ConferenceSid,
		TransferType:    inferTransferType(prev, event),
		HangupDirection: event.HangupDirection,
		HangupBy:        event.HangupBy,
		Username:        event.Username,
		UpdatedAt:       time.Now().UTC(),
	}
	mergeCarryForward(&entry, prev)

	if err := s.store.Upsert(ctx, entry); err != nil {
		return CallLog{}, apperr.Wrap(apperr.KindInternal, "call log upsert", err)
	}

	s.log.CallEvent("status_update", entry.CallSid, entry.Status)
	s.broadcast(ctx, entry, event.WarmTransfer)
	return entry, nil
}

// inferTransferType computes the transfer type for this update. A changed
// conference means the call moved between internal conferences; an
// API-originated outbound leg with no conference is an external handoff.
// Anything else leaves the previously inferred type untouched.
func inferTransferType(prev *CallLog, event StatusEvent) string {
	if prev != nil && prev.ConferenceSid != "" && event.ConferenceSid != "" && prev.ConferenceSid != event.ConferenceSid {
		return TransferInternal
	}
	if event.ConferenceSid == "" && event.Direction == DirectionOutboundAPI {
		return TransferExternal
	}
	return ""
}

// mergeCarryForward preserves the fields that must never regress: a known
// recording URL and a previously inferred transfer type. The storage upsert
// enforces the same rule, so the invariant holds for either entry point.
func mergeCarryForward(entry *CallLog, prev *CallLog) {
	if prev == nil {
		return
	}
	if entry.RecordingURL == "" {
		entry.RecordingURL = prev.RecordingURL
	}
	if entry.TransferType == "" {
		entry.TransferType = prev.TransferType
	}
	if entry.Username == "" {
		entry.Username = prev.Username
	}
}

func (s *Service) broadcast(ctx context.Context, entry CallLog, warmTransfer bool) {
	// The warm-transfer flag gates the outbound status event. Whether it
	// should also gate call-ended is configurable; the observed vendor
	// integration only gated the former.
	if !warmTransfer {
		s.bus.Publish(ctx, events.OutboundCallStatus{
			BaseEvent:      events.NewBaseEvent(),
			CallSid:        entry.CallSid,
			ConferenceSid:  entry.ConferenceSid,
			ParticipantSid: entry.ParticipantSid,
			Status:         entry.Status,
			From:           entry.From,
			To:             entry.To,
			Username:       entry.Username,
		})
	}

	if IsTerminalStatus(entry.Status) {
		if warmTransfer && s.suppressCallEnded {
			return
		}
		s.bus.Publish(ctx, events.CallEnded{
			BaseEvent: events.NewBaseEvent(),
			CallSid:   entry.CallSid,
			Status:    entry.Status,
		})
	}
}

// ProcessRecordingUpdate attaches a completed recording to an existing call
// row, falling back to the conference SID when no call-level row exists.
// Recordings cannot be attached to a call the system never saw start.
func (s *Service) ProcessRecordingUpdate(ctx context.Context, event RecordingEvent) (CallLog, error) {
	if event.CallSid == "" && event.ConferenceSid == "" {
		return CallLog{}, apperr.Validation("call_sid or conference_sid is required")
	}
	if event.RecordingURL == "" {
		return CallLog{}, apperr.Validation("recording_url is required")
	}

	prev, err := s.lookup(ctx, event.CallSid, event.ConferenceSid)
	if err != nil {
		return CallLog{}, err
	}
	if prev == nil {
		return CallLog{}, apperr.NotFound("no call log for recording update")
	}

	entry := *prev
	entry.RecordingURL = event.RecordingURL
	if event.Duration > 0 {
		entry.Duration = event.Duration
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := s.store.Upsert(ctx, entry); err != nil {
		return CallLog{}, apperr.Wrap(apperr.KindInternal, "call log upsert", err)
	}

	s.log.CallEvent("recording_update", entry.CallSid, entry.Status)
	s.scheduleArchive(ctx, entry)
	return entry, nil
}

func (s *Service) lookup(ctx context.Context, callSid, conferenceSid string) (*CallLog, error) {
	if callSid != "" {
		found, err := s.store.GetByCallSid(ctx, callSid)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "call log lookup", err)
		}
		if found != nil {
			return found, nil
		}
	}
	if conferenceSid != "" {
		found, err := s.store.GetByConferenceSid(ctx, conferenceSid)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "call log lookup", err)
		}
		return found, nil
	}
	return nil, nil
}

func (s *Service) scheduleArchive(ctx context.Context, entry CallLog) {
	if s.archiver == nil {
		return
	}
	err := s.archiver.EnqueueRecordingArchive(ctx, scheduler.RecordingArchivePayload{
		CallSid:      entry.CallSid,
		RecordingURL: entry.RecordingURL,
		Duration:     entry.Duration,
	})
	if err != nil {
		s.log.Error("recording archive enqueue failed", "call_sid", entry.CallSid, "error", err.Error())
	}
}

// ProcessConferenceEvent applies participant join/leave and conference end
// callbacks against the call row they correlate to.
func (s *Service) ProcessConferenceEvent(ctx context.Context, event ConferenceEvent) (CallLog, error) {
	if event.CallSid == "" && event.ConferenceSid == "" {
		return CallLog{}, apperr.Validation("call_sid or conference_sid is required")
	}

	switch event.Event {
	case ConferenceEventJoin, ConferenceEventLeave:
		return s.processParticipant(ctx, event)
	case ConferenceEventEnd:
		return s.processConferenceEnd(ctx, event)
	default:
		return CallLog{}, apperr.BadRequest("unknown conference event " + event.Event)
	}
}

func (s *Service) processParticipant(ctx context.Context, event ConferenceEvent) (CallLog, error) {
	prev, err := s.lookup(ctx, event.CallSid, event.ConferenceSid)
	if err != nil {
		return CallLog{}, err
	}
	// Without a call SID there is nothing to key a new row on; a
	// conference-only event must correlate to a call the system has seen.
	if prev == nil && event.CallSid == "" {
		return CallLog{}, apperr.NotFound("no call log for conference participant event")
	}

	var entry CallLog
	if prev != nil {
		entry = *prev
	}
	if entry.CallSid == "" {
		entry.CallSid = event.CallSid
	}
	entry.ConferenceSid = event.ConferenceSid
	entry.ParticipantSid = event.ParticipantSid
	if event.Event == ConferenceEventLeave {
		entry.HangupDirection = event.HangupDirection
		entry.HangupBy = event.HangupBy
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := s.store.Upsert(ctx, entry); err != nil {
		return CallLog{}, apperr.Wrap(apperr.KindInternal, "call log upsert", err)
	}

	s.log.CallEvent(event.Event, entry.CallSid, entry.Status)
	return entry, nil
}

func (s *Service) processConferenceEnd(ctx context.Context, event ConferenceEvent) (CallLog, error) {
	prev, err := s.lookup(ctx, event.CallSid, event.ConferenceSid)
	if err != nil {
		return CallLog{}, err
	}
	if prev == nil {
		return CallLog{}, apperr.NotFound("no call log for conference end")
	}

	entry := *prev
	entry.Status = "completed"
	entry.UpdatedAt = time.Now().UTC()

	if err := s.store.Upsert(ctx, entry); err != nil {
		return CallLog{}, apperr.Wrap(apperr.KindInternal, "call log upsert", err)
	}

	s.log.CallEvent("conference_end", entry.CallSid, entry.Status)
	s.bus.Publish(ctx, events.CallEnded{
		BaseEvent: events.NewBaseEvent(),
		CallSid:   entry.CallSid,
		Status:    entry.Status,
	})
	return entry, nil
}
