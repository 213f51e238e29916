package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/pkg/dbutil"
	"github.com/tidegate/vectorpipe/internal/pkg/errs"
)

const defaultMaxAttempts = 5

// statement outcomes the retry loop distinguishes
type errKind int

const (
	errKindFatal errKind = iota
	errKindDuplicate
	errKindTransient
)

// Runner is the query surface the Executor wraps. sqlx.DB and sqlx.Tx both
// satisfy it.
type Runner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Executor runs statements with bounded retries. Duplicate-object errors are
// treated as success so that concurrent provisioning of the same namespace is
// idempotent; transient failures back off exponentially.
type Executor struct {
	runner      Runner
	maxAttempts int
	sleep       func(time.Duration)
}

func NewExecutor(runner Runner) *Executor {
	return &Executor{
		runner:      runner,
		maxAttempts: defaultMaxAttempts,
		sleep:       time.Sleep,
	}
}

// SetSleep overrides the backoff sleeper, for tests.
func (e *Executor) SetSleep(fn func(time.Duration)) {
	e.sleep = fn
}

func (e *Executor) Exec(ctx context.Context, query string, args ...interface{}) error {
	return e.retry(ctx, query, func() error {
		_, err := e.runner.ExecContext(ctx, query, args...)
		return err
	})
}

func (e *Executor) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return e.retry(ctx, query, func() error {
		return e.runner.SelectContext(ctx, dest, query, args...)
	})
}

func (e *Executor) retry(ctx context.Context, query string, fn func() error) error {
	logger := logutil.GetLogger(ctx)
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			e.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}
		err := fn()
		if err == nil {
			return nil
		}
		switch classify(err) {
		case errKindDuplicate:
			logger.Debug("object already exists, treating as success",
				zap.String("query", firstWords(query)))
			return nil
		case errKindTransient:
			lastErr = err
			logger.Warn("transient database error, retrying",
				zap.Int("attempt", attempt+1),
				zap.String("query", firstWords(query)),
				zap.Error(err))
		default:
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", errs.ErrRetryExhausted, e.maxAttempts, lastErr)
}

var duplicateCodes = map[string]struct{}{
	"42P07": {}, // duplicate_table
	"42710": {}, // duplicate_object
	"42723": {}, // duplicate_function
}

func classify(err error) errKind {
	if dbutil.IsConflict(err) { // unique_violation
		return errKindDuplicate
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		code := string(pgErr.Code)
		if _, ok := duplicateCodes[code]; ok {
			return errKindDuplicate
		}
		switch {
		case strings.HasPrefix(code, "08"): // connection failures
			return errKindTransient
		case code == "40001" || code == "40P01": // serialization, deadlock
			return errKindTransient
		case code == "57P03": // cannot_connect_now
			return errKindTransient
		case strings.HasPrefix(code, "53"): // insufficient resources
			return errKindTransient
		case strings.HasPrefix(code, "XX"): // internal error
			return errKindTransient
		}
		return errKindFatal
	}
	msg := err.Error()
	if strings.Contains(msg, "already exists") {
		return errKindDuplicate
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset") {
		return errKindTransient
	}
	return errKindFatal
}

func firstWords(query string) string {
	fields := strings.Fields(query)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

var _ Runner = (*sqlx.DB)(nil)
