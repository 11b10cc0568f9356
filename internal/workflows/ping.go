package workflows

import (
	"context"
	"time"

	"github.com/PolarWolf314/lastwill/internal/audit"
)

// PingOptions configures the ping workflow.
type PingOptions struct {
	Common
}

// PingResult contains the outcome of a ping operation.
type PingResult struct {
	At time.Time
	// Previous is the heartbeat replaced by this ping, zero if none.
	Previous time.Time
}

// Ping records that the owner is alive, restarting the grace period.
func Ping(ctx context.Context, opts PingOptions) (*PingResult, error) {
	e, err := loadEnv(opts.Common)
	if err != nil {
		return nil, err
	}
	monitor, err := e.monitor(nil, nil)
	if err != nil {
		return nil, err
	}

	result := &PingResult{}
	if last, ok, err := monitor.LastSeen(); err == nil && ok {
		result.Previous = last
	}
	if err := monitor.Ping(); err != nil {
		return nil, err
	}
	result.At = e.clock.Now()

	audit.Log(e.settings.AuditPath, audit.LogWithUser("ping", e.userID()))
	return result, nil
}
