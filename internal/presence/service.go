package presence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"elecrm_backend/internal/events"
	"elecrm_backend/platform/apperr"
	"elecrm_backend/platform/logger"
	"elecrm_backend/platform/validator"
)

// Store is the persistence surface the service needs. Satisfied by
// *Repository; faked in tests.
type Store interface {
	Get(ctx context.Context, userID string) (UserStatus, error)
	Upsert(ctx context.Context, status UserStatus) error
}

// Service validates presence updates, persists derived state and publishes
// status changes on the event bus.
type Service struct {
	store Store
	bus   events.Bus
	val   *validator.Validator
	log   *logger.Logger
}

// NewService creates a new presence service.
func NewService(store Store, bus events.Bus, val *validator.Validator, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, val: val, log: log}
}

// HandleStatusUpdate processes a raw status-update frame from a client
// session: validate, derive the master status, persist, publish.
func (s *Service) HandleStatusUpdate(ctx context.Context, raw []byte) error {
	var update StatusUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		return apperr.Wrap(apperr.KindBadRequest, "malformed status update", err)
	}
	if err := s.val.Struct(update); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid status update", err)
	}

	master := DeriveMasterStatus(update.Connected, update.ActiveCall, update.SignalwireConf, update.UserStatusInput)

	status := UserStatus{
		UserID:          update.UserID,
		ElecrmClient:    update.Connected,
		SignalwireConf:  update.SignalwireConf,
		ActiveCall:      update.ActiveCall,
		UserStatusInput: update.UserStatusInput,
		MasterStatus:    master,
		LastUpdated:     time.Now().UTC(),
	}
	if err := s.store.Upsert(ctx, status); err != nil {
		return apperr.Wrap(apperr.KindInternal, "persist user status", err)
	}

	s.publish(ctx, update.UserID, master)
	return nil
}

// HandleDisconnect marks the user's session as gone, forcing the derived
// status to offline, and publishes the change. Unknown users are ignored.
func (s *Service) HandleDisconnect(ctx context.Context, userID string) {
	status, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		s.log.DatabaseError("presence disconnect lookup", err)
		return
	}

	status.ElecrmClient = false
	status.MasterStatus = DeriveMasterStatus(false, status.ActiveCall, status.SignalwireConf, status.UserStatusInput)
	status.LastUpdated = time.Now().UTC()

	if err := s.store.Upsert(ctx, status); err != nil {
		s.log.DatabaseError("presence disconnect upsert", err)
		return
	}

	s.publish(ctx, userID, status.MasterStatus)
}

func (s *Service) publish(ctx context.Context, userID, master string) {
	s.bus.Publish(ctx, events.UserStatusChanged{
		BaseEvent:    events.NewBaseEvent(),
		UserID:       userID,
		MasterStatus: master,
	})
}
