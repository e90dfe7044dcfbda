package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

const (
	maxQueryAttempts   = 3
	retryBackoffStep   = 150 * time.Millisecond
	healthProbeTimeout = 2 * time.Second
)

// withRetry wraps a query with the connectivity-retry policy: a transient
// connection error is retried with linear backoff only while the pool health
// probe still passes. An unhealthy pool fails fast as ErrPoolUnhealthy, and
// non-connectivity errors propagate immediately.
func (r *RecordRepository) withRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxQueryAttempts; attempt++ {
		queryCtx, cancel := context.WithTimeout(ctx, r.pool.StatementTimeout)
		err := fn(queryCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectivityError(err) {
			return err
		}
		lastErr = err

		probeCtx, probeCancel := context.WithTimeout(ctx, healthProbeTimeout)
		probeErr := r.Health(probeCtx)
		probeCancel()
		if probeErr != nil {
			return domain.WrapError(domain.ErrPoolUnhealthy, operation, err)
		}

		if attempt == maxQueryAttempts {
			break
		}
		wait := time.Duration(attempt) * retryBackoffStep
		slog.Warn("transient storage error, retrying",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", maxQueryAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

func isConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"unexpected EOF",
		"conn closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
