package postgres

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/and161185/authcore/internal/errs"
)

// Connect opens a pool and waits for the database to answer a probe,
// retrying with backoff while the failure is classified transient (server
// still starting up, connection refused). Terminal errors, such as bad
// credentials, fail immediately.
func Connect(ctx context.Context, dsn string) (*DB, error) {
	db, err := New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	backoff := retry.WithMaxDuration(30*time.Second, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if perr := db.Ping(ctx); perr != nil {
			if errs.IsTransient(perr) {
				return retry.RetryableError(perr)
			}
			return perr
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
