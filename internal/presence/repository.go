package presence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no presence row exists for a user.
var ErrNotFound = errors.New("user status not found")

// Repository persists presence state in the user_status table, one row per
// user, mutated in place via upsert.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new presence repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches the presence row for a user.
func (r *Repository) Get(ctx context.Context, userID string) (UserStatus, error) {
	var status UserStatus
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, elecrm_client, signalwire_conf, active_call, user_status_input, master_status, last_updated
		 FROM user_status
		 WHERE user_id = $1`,
		userID,
	).Scan(
		&status.UserID,
		&status.ElecrmClient,
		&status.SignalwireConf,
		&status.ActiveCall,
		&status.UserStatusInput,
		&status.MasterStatus,
		&status.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserStatus{}, ErrNotFound
	}
	if err != nil {
		return UserStatus{}, err
	}
	return status, nil
}

// Upsert inserts or replaces the presence row for a user.
func (r *Repository) Upsert(ctx context.Context, status UserStatus) error {
	if status.LastUpdated.IsZero() {
		status.LastUpdated = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_status (user_id, elecrm_client, signalwire_conf, active_call, user_status_input, master_status, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
			elecrm_client = EXCLUDED.elecrm_client,
			signalwire_conf = EXCLUDED.signalwire_conf,
			active_call = EXCLUDED.active_call,
			user_status_input = EXCLUDED.user_status_input,
			master_status = EXCLUDED.master_status,
			last_updated = EXCLUDED.last_updated`,
		status.UserID,
		status.ElecrmClient,
		status.SignalwireConf,
		status.ActiveCall,
		status.UserStatusInput,
		status.MasterStatus,
		status.LastUpdated,
	)
	return err
}
