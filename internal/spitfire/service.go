package spitfire

import (
	"context"
	"errors"
	"fmt"

	"elecrm_backend/internal/leadevents"
	"elecrm_backend/platform/logger"
)

// Errors surfaced by the export pipeline. None of them is retried
// in-process; a redelivered notification re-attempts from the ledger check.
var (
	// ErrAuthentication means the Spitfire login failed; no ledger write.
	ErrAuthentication = errors.New("spitfire authentication failed")
	// ErrSubmission means the lead creation call failed; no ledger write.
	ErrSubmission = errors.New("spitfire lead submission failed")
	// ErrLedgerWrite means the lead was submitted but the ledger row could
	// not be written. A future redelivery would resubmit the lead; logged
	// as a known discrepancy, not silently resolved.
	ErrLedgerWrite = errors.New("spitfire export succeeded but ledger write failed")
)

// Service is the idempotent export pipeline. A single long-lived instance is
// constructed at startup and injected wherever export work is scheduled.
type Service struct {
	dialer Dialer
	ledger Ledger
	log    *logger.Logger
}

// NewService creates the export service.
func NewService(dialer Dialer, ledger Ledger, log *logger.Logger) *Service {
	return &Service{dialer: dialer, ledger: ledger, log: log}
}

// ExportLead exports one lead to Spitfire at most once per global id:
// ledger pre-check, login, map, submit, record. The ledger row is the sole
// gate; a crash between submit and record leaves the accepted
// at-least-once window.
func (s *Service) ExportLead(ctx context.Context, lead leadevents.CombinedLead) error {
	globalID := lead.GlobalID
	if globalID == "" {
		return fmt.Errorf("lead %d has no global id", lead.ID)
	}

	exported, err := s.ledger.Exists(ctx, globalID)
	if err != nil {
		s.log.ExportEvent("ledger_check_failed", globalID, err)
		return err
	}
	if exported {
		s.log.ExportEvent("already_exported", globalID, nil)
		return nil
	}

	session, err := s.dialer.Login(ctx)
	if err != nil {
		s.log.ExportEvent("authentication_failed", globalID, err)
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	submission := MapLead(lead, session)
	if err := s.dialer.CreateLead(ctx, session, submission); err != nil {
		s.log.ExportEvent("submission_failed", globalID, err)
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	if err := s.ledger.Record(ctx, globalID); err != nil {
		// Exported but not recorded: a redelivery would resubmit.
		s.log.ExportEvent("ledger_write_failed", globalID, err)
		return fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	s.log.ExportEvent("exported", globalID, nil)
	return nil
}
