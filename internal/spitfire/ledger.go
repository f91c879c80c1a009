package spitfire

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger is the durable record of completed exports, keyed by lead global
// id. At most one entry per global id, ever.
type Ledger interface {
	Exists(ctx context.Context, globalID string) (bool, error)
	Record(ctx context.Context, globalID string) error
}

// PGLedger implements Ledger over the spitfire_export_log table.
type PGLedger struct {
	pool *pgxpool.Pool
}

// NewPGLedger creates a ledger backed by Postgres.
func NewPGLedger(pool *pgxpool.Pool) *PGLedger {
	return &PGLedger{pool: pool}
}

// Exists reports whether a ledger entry already exists for the global id.
func (l *PGLedger) Exists(ctx context.Context, globalID string) (bool, error) {
	if l == nil || l.pool == nil {
		return false, errors.New("export ledger not configured")
	}
	var exists bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM spitfire_export_log WHERE global_id = $1)`,
		globalID,
	).Scan(&exists)
	return exists, err
}

// Record writes the single ledger row for a global id. The unique constraint
// makes a concurrent duplicate a no-op rather than an error.
func (l *PGLedger) Record(ctx context.Context, globalID string) error {
	if l == nil || l.pool == nil {
		return errors.New("export ledger not configured")
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO spitfire_export_log (global_id) VALUES ($1)
		 ON CONFLICT (global_id) DO NOTHING`,
		globalID,
	)
	return err
}

var _ Ledger = (*PGLedger)(nil)
