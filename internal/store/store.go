// Package store persists auction, section, and lot records in
// PostgreSQL and serves the bidder deal-history query.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pareedo/pigeonwatch/internal/observability"
)

const (
	// StatusFinished is the terminal auction status set by the sweep.
	StatusFinished = "已完成"
	// StatusRunning marks sections still open for bidding.
	StatusRunning = "进行中"

	upsertChunkSize = 1000
	retryBaseDelay  = 200 * time.Millisecond
	maxWriteRetries = 3
)

// Store is the PostgreSQL-backed persistence layer.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a store backed by the provided pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// retryableWrite reports whether the error is a deadlock or lock
// contention that a rerun can clear.
func retryableWrite(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40P01", "55P03":
		return true
	}
	return false
}

// withWriteRetry reruns fn on lock conflicts with doubling delays.
func (s *Store) withWriteRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := retryBaseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxWriteRetries || !retryableWrite(err) {
			return err
		}
		observability.Log().Warn("write conflict, retrying",
			observability.F("op", op),
			observability.F("attempt", attempt+1),
			observability.F("delay", delay.String()),
			observability.F("error", err.Error()))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

func chunkEnd(i, n, size int) int {
	if end := i + size; end < n {
		return end
	}
	return n
}
