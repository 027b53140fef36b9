package errs

import (
	"context"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL condition codes that indicate the server is reachable but not
// ready to serve, or the connection itself failed.
var transientPgCodes = map[string]struct{}{
	"57P03": {}, // cannot_connect_now (starting up / shutting down)
	"53300": {}, // too_many_connections
	"08000": {}, // connection_exception
	"08001": {}, // sqlclient_unable_to_establish_sqlconnection
	"08006": {}, // connection_failure
	"08P01": {}, // protocol_violation (torn connection)
}

// Message fragments that show up when the driver hands back a plain error
// instead of a coded one.
var transientFragments = []string{
	"connection terminated",
	"could not connect",
	"starting up",
	"timeout",
	"connection refused",
	"connection reset",
}

// IsTransient reports whether err, anywhere in its cause chain, is a
// transient database/network fault worth a "temporarily unavailable"
// answer or a retry, as opposed to a terminal error.
//
// The walk keeps a visited set: errors.Is/As would spin forever on a
// cyclic Unwrap chain, so each node is inspected directly.
func IsTransient(err error) bool {
	return walkTransient(err, map[error]struct{}{})
}

func walkTransient(err error, seen map[error]struct{}) bool {
	for err != nil {
		if _, ok := seen[err]; ok {
			return false
		}
		seen[err] = struct{}{}

		if transientNode(err) {
			return true
		}

		switch x := err.(type) {
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		case interface{ Unwrap() []error }:
			for _, sub := range x.Unwrap() {
				if walkTransient(sub, seen) {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}

// transientNode classifies a single error value without unwrapping.
func transientNode(err error) bool {
	switch err {
	case ErrUnavailable, ErrProbeTimeout, context.DeadlineExceeded:
		return true
	case syscall.ECONNREFUSED, syscall.ECONNRESET:
		return true
	}

	switch e := err.(type) {
	case *pgconn.PgError:
		if _, ok := transientPgCodes[e.Code]; ok {
			return true
		}
		// 28000 is terminal (bad credentials) except while the server is
		// still starting up and refuses authentication wholesale.
		if e.Code == "28000" && containsFragment(e.Message) {
			return true
		}
	case *pgconn.ConnectError:
		return true
	case *net.DNSError:
		return true
	case net.Error:
		if e.Timeout() {
			return true
		}
	}

	return containsFragment(err.Error())
}

func containsFragment(msg string) bool {
	msg = strings.ToLower(msg)
	for _, f := range transientFragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}
