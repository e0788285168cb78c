package store

import (
	"strings"
	"time"
)

const (
	writeAttempts = 5
	retryBackoff  = 50 * time.Millisecond
)

// withRetry runs fn up to writeAttempts times, backing off exponentially, but
// only while the error looks like SQLite lock contention. Any other failure
// (disk full, permission denied, constraint violation) returns immediately.
// After the budget is exhausted the last error is returned instead of
// blocking indefinitely.
func (d *daoImpl) withRetry(op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !isContention(err) {
			return err
		}
		wait := retryBackoff << uint(attempt)
		d.logger.Printf("%s hit lock contention (attempt %d/%d), retrying in %s", op, attempt+1, writeAttempts, wait)
		time.Sleep(wait)
	}
	return err
}

func isContention(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
