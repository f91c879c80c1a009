package callstatus

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistence surface the reconciler needs. Satisfied by
// *Repository; faked in tests.
type Store interface {
	GetByCallSid(ctx context.Context, callSid string) (*CallLog, error)
	GetByConferenceSid(ctx context.Context, conferenceSid string) (*CallLog, error)
	Upsert(ctx context.Context, entry CallLog) error
}

// Repository persists call logs, one row per call SID.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new call log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const callLogColumns = `call_sid, status, direction, from_number, to_number, duration,
	recording_url, participant_sid, conference_sid, transfer_type,
	hangup_direction, hangup_by, username, updated_at`

// GetByCallSid returns the row for a call SID, or nil when none exists.
func (r *Repository) GetByCallSid(ctx context.Context, callSid string) (*CallLog, error) {
	return r.getOne(ctx,
		`SELECT `+callLogColumns+` FROM call_logs WHERE call_sid = $1`,
		callSid,
	)
}

// GetByConferenceSid returns the most recently updated row carrying the
// conference SID, or nil when none exists.
func (r *Repository) GetByConferenceSid(ctx context.Context, conferenceSid string) (*CallLog, error) {
	return r.getOne(ctx,
		`SELECT `+callLogColumns+` FROM call_logs
		 WHERE conference_sid = $1
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		conferenceSid,
	)
}

func (r *Repository) getOne(ctx context.Context, query string, arg string) (*CallLog, error) {
	var entry CallLog
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&entry.CallSid,
		&entry.Status,
		&entry.Direction,
		&entry.From,
		&entry.To,
		&entry.Duration,
		&entry.RecordingURL,
		&entry.ParticipantSid,
		&entry.ConferenceSid,
		&entry.TransferType,
		&entry.HangupDirection,
		&entry.HangupBy,
		&entry.Username,
		&entry.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert inserts the row on first sight and updates it in place afterwards.
// A recording URL, once known, survives updates that do not carry one, and
// an inferred transfer type is never overwritten with the empty value.
func (r *Repository) Upsert(ctx context.Context, entry CallLog) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO call_logs (`+callLogColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (call_sid) DO UPDATE SET
			status = EXCLUDED.status,
			direction = EXCLUDED.direction,
			from_number = EXCLUDED.from_number,
			to_number = EXCLUDED.to_number,
			duration = EXCLUDED.duration,
			recording_url = COALESCE(NULLIF(EXCLUDED.recording_url, ''), call_logs.recording_url),
			participant_sid = EXCLUDED.participant_sid,
			conference_sid = EXCLUDED.conference_sid,
			transfer_type = COALESCE(NULLIF(EXCLUDED.transfer_type, ''), call_logs.transfer_type),
			hangup_direction = EXCLUDED.hangup_direction,
			hangup_by = EXCLUDED.hangup_by,
			username = EXCLUDED.username,
			updated_at = EXCLUDED.updated_at`,
		entry.CallSid,
		entry.Status,
		entry.Direction,
		entry.From,
		entry.To,
		entry.Duration,
		entry.RecordingURL,
		entry.ParticipantSid,
		entry.ConferenceSid,
		entry.TransferType,
		entry.HangupDirection,
		entry.HangupBy,
		entry.Username,
		entry.UpdatedAt,
	)
	return err
}

var _ Store = (*Repository)(nil)
