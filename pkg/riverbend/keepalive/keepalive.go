// Package keepalive keeps a Riverbend session alive by heartbeating it.
//
// The engine expires sessions whose lease lapses; long-running consumers run
// this loop next to their read loop.
package keepalive

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/riverbend-io/riverbend-client-go/pkg/redact"
	"github.com/riverbend-io/riverbend-client-go/pkg/riverbend"
)

// Options controls heartbeat pacing.
type Options struct {
	// Interval between successful heartbeats.
	Interval time.Duration
	// BackoffMax caps the exponential backoff applied after failures.
	BackoffMax time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 15 * time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Minute
	}
	return o
}

// RunLoop heartbeats the session until the context is cancelled.
//
// Transient failures are logged (redacted) and retried with backoff; the loop
// only returns the context error. A session the engine has already expired
// keeps failing here — callers notice through their own read calls.
func RunLoop(ctx context.Context, client *riverbend.Client, sessionID string, opts Options) error {
	opts = opts.withDefaults()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	sleep := opts.Interval
	for {
		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		if err := client.Heartbeat(ctx, sessionID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Printf("keepalive: heartbeat failed for session=%s: %s", sessionID, redact.Secrets(err.Error()))
			sleep *= 2
			if sleep > opts.BackoffMax {
				sleep = opts.BackoffMax
			}
			continue
		}
		sleep = opts.Interval
	}
}
