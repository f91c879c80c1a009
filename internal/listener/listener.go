// Package listener maintains LISTEN/NOTIFY subscriptions against Postgres
// and forwards raw (channel, payload) pairs to registered handlers.
package listener

import (
	"context"
	"errors"

	"elecrm_backend/platform/apperr"
	"elecrm_backend/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyHandler receives every notification delivered on a subscription.
// Delivery is once per receipt; duplicates from the transport propagate and
// are absorbed downstream by idempotency invariants, not suppressed here.
type NotifyHandler func(ctx context.Context, channel, payload string)

// Listener owns LISTEN/NOTIFY subscriptions. Two independent subscription
// lifetimes are supported: a pooled connection hijacked for the subscription
// and released when the context ends, and a dedicated connection that lives
// for the whole process.
type Listener struct {
	pool        *pgxpool.Pool
	databaseURL string
	log         *logger.Logger
}

// New creates a Listener backed by the given pool. The database URL is used
// for the dedicated, never-released subscription connection.
func New(pool *pgxpool.Pool, databaseURL string, log *logger.Logger) *Listener {
	return &Listener{pool: pool, databaseURL: databaseURL, log: log}
}

// Subscribe acquires a pooled connection, issues LISTEN for every channel and
// starts delivering notifications until ctx is canceled, at which point the
// connection is released back to the pool. A connect or LISTEN failure
// releases the connection and returns an unavailable error; no half-subscribed
// connection is left behind.
func (l *Listener) Subscribe(ctx context.Context, channels []string, handler NotifyHandler) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "acquire listen connection", err)
	}

	if err := listenAll(ctx, conn.Conn(), channels); err != nil {
		conn.Release()
		return apperr.Wrap(apperr.KindUnavailable, "subscribe to channels", err)
	}

	go func() {
		defer conn.Release()
		l.deliver(ctx, conn.Conn(), handler)
	}()

	return nil
}

// SubscribeDedicated opens a dedicated connection outside the pool, issues
// LISTEN and delivers notifications for the life of the process. The
// connection is intentionally never returned to any pool; it is closed only
// when ctx ends.
func (l *Listener) SubscribeDedicated(ctx context.Context, channels []string, handler NotifyHandler) error {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "open dedicated listen connection", err)
	}

	if err := listenAll(ctx, conn, channels); err != nil {
		_ = conn.Close(ctx)
		return apperr.Wrap(apperr.KindUnavailable, "subscribe to channels", err)
	}

	go func() {
		defer func() {
			_ = conn.Close(context.Background())
		}()
		l.deliver(ctx, conn, handler)
	}()

	return nil
}

func listenAll(ctx context.Context, conn *pgx.Conn, channels []string) error {
	for _, channel := range channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
			return err
		}
	}
	return nil
}

// deliver blocks on WaitForNotification until ctx ends. Handler failures are
// the handler's concern; a broken connection terminates only this
// subscription, never the process.
func (l *Listener) deliver(ctx context.Context, conn *pgx.Conn, handler NotifyHandler) {
	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			l.log.Error("notification delivery stopped", "error", err.Error())
			return
		}

		l.log.NotifyEvent(notification.Channel, len(notification.Payload))
		handler(ctx, notification.Channel, notification.Payload)
	}
}
