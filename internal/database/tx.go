package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

const (
	baseRetryDelay = 50 * time.Millisecond
	maxRetryDelay  = time.Second
)

type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
	MaxRetries     int
}

func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     3,
	}
}

// WithTransaction runs fn once inside a transaction. fn's error rolls the
// transaction back and is returned unwrapped so callers can match it.
func WithTransaction(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	return runTx(ctx, db, opts, fn)
}

// WithRetry is WithTransaction for contended writes. Serialization
// failures, deadlocks and lock timeouts on either fn or commit start a
// fresh transaction after a jittered backoff, up to opts.MaxRetries times.
// fn must not keep state across attempts other than what it resets itself.
func WithRetry(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	logger := zerolog.Ctx(ctx)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := runTx(ctx, db, opts, fn)
		if err == nil {
			if attempt > 0 {
				logger.Debug().Int("attempts", attempt+1).Msg("transaction committed after retry")
			}
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt >= opts.MaxRetries {
			logger.Warn().Err(err).Int("attempts", attempt+1).Msg("transaction retries exhausted")
			return fmt.Errorf("max retries (%d) exceeded: %w", opts.MaxRetries, err)
		}

		delay := retryDelay(attempt)
		logger.Debug().Err(err).
			Stringer("class", ClassifyError(err)).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("retrying transaction")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func runTx(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.IsolationLevel,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// retryDelay doubles from baseRetryDelay per attempt, capped at
// maxRetryDelay, plus up to a quarter of that as jitter.
func retryDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 0; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)+1))
}
