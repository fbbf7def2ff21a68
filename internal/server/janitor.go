package server

import (
	"context"
	"time"

	"github.com/rosedal2/condoauth/internal/logging"
)

// janitor periodically deletes expired sessions. The interval is re-read
// after every pass so a config reload applies on the next tick.
type janitor struct {
	purge    func(ctx context.Context, before time.Time) (int64, error)
	interval func() time.Duration
	now      func() time.Time
	log      logging.Logger
}

func (j *janitor) run(ctx context.Context) {
	for {
		t := time.NewTimer(j.interval())
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		if _, err := j.purge(ctx, j.now()); err != nil && ctx.Err() == nil {
			j.log.Warn(ctx, "session purge failed", "error", err)
		}
	}
}
