package workflows

import (
	"context"

	"github.com/PolarWolf314/lastwill/internal/liveness"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	Common

	// Passphrase is only asked for if the switch fires during this check.
	Passphrase PassphraseFunc
}

// Status evaluates the dead man's switch once. If the grace period has
// lapsed this runs the release protocol, exactly like the watcher would.
func Status(ctx context.Context, opts StatusOptions) (liveness.Result, error) {
	e, err := loadEnv(opts.Common)
	if err != nil {
		return liveness.Result{}, err
	}
	monitor, err := e.armedMonitor(e.lazyKey(opts.Passphrase))
	if err != nil {
		return liveness.Result{}, err
	}

	r := monitor.Check(ctx)
	e.recordResult(r)
	return r, nil
}
