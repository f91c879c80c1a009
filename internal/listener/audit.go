package listener

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository appends raw notifications to the notify_log table.
// Rows are write-once and never mutated.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append records one raw notification. Callers treat failures as
// log-and-continue; an audit failure must never break the primary path.
func (r *AuditRepository) Append(ctx context.Context, channel, payload string) error {
	if r == nil || r.pool == nil {
		return errors.New("audit repository not configured")
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notify_log (channel, payload) VALUES ($1, $2)`,
		channel, payload,
	)
	return err
}
