package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsTransient reports whether err looks like a passing connection problem:
// a network timeout, a refused or reset connection, or a Postgres error
// that pgconn marks safe to retry. Startup errors such as "the database
// system is starting up" (SQLSTATE 57P03) also count.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "57P03"
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection refused", "connection reset by peer", "i/o timeout"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
