package workflows

import (
	"context"
	"errors"
	"time"

	"github.com/PolarWolf314/lastwill/internal/liveness"
)

// WatchOptions configures the watch workflow.
type WatchOptions struct {
	Common

	// Interval overrides switch.poll_interval.
	Interval time.Duration

	Passphrase PassphraseFunc

	// Report receives every check result.
	Report func(liveness.Result)
}

// WatchResult contains the outcome of a watch.
type WatchResult struct {
	Last   liveness.Result
	Checks int
}

// Watch polls the switch until it fires and the nominee has been notified,
// or ctx is cancelled. The key is derived up front because nobody may be
// around to type a passphrase when the switch fires.
func Watch(ctx context.Context, opts WatchOptions) (*WatchResult, error) {
	e, err := loadEnv(opts.Common)
	if err != nil {
		return nil, err
	}
	key, err := e.eagerKey(opts.Passphrase)
	if err != nil {
		return nil, err
	}
	monitor, err := e.armedMonitor(key)
	if err != nil {
		return nil, err
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = e.config.Switch.PollInterval.Duration
	}

	result := &WatchResult{}
	err = monitor.Run(ctx, interval, func(r liveness.Result) {
		result.Last = r
		result.Checks++
		e.recordResult(r)
		if opts.Report != nil {
			opts.Report(r)
		}
	})
	if errors.Is(err, context.Canceled) {
		return result, nil
	}
	return result, err
}
