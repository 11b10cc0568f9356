package workflows

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PolarWolf314/lastwill/internal/liveness"
	"github.com/PolarWolf314/lastwill/internal/server"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions configures the serve workflow.
type ServeOptions struct {
	Common

	// Addr overrides server.addr.
	Addr string

	// Watch also runs the poll loop in the background, so the switch fires
	// even if nobody asks for the status.
	Watch bool

	Passphrase PassphraseFunc

	// Ready, if set, is called with the bound address once the listener
	// is open.
	Ready func(addr string)

	// Report receives background watch results.
	Report func(liveness.Result)
}

// auditedSwitch records releases triggered through the HTTP status route.
type auditedSwitch struct {
	*liveness.Monitor
	env *env
}

func (s auditedSwitch) Check(ctx context.Context) liveness.Result {
	r := s.Monitor.Check(ctx)
	s.env.recordResult(r)
	return r
}

// Serve runs the HTTP service until ctx is cancelled, then shuts down
// gracefully. The key is derived before listening since requests cannot
// prompt for a passphrase.
func Serve(ctx context.Context, opts ServeOptions) error {
	e, err := loadEnv(opts.Common)
	if err != nil {
		return err
	}
	if err := e.settings.Ensure(); err != nil {
		return err
	}
	key, err := e.eagerKey(opts.Passphrase)
	if err != nil {
		return err
	}
	monitor, err := e.armedMonitor(key)
	if err != nil {
		return err
	}

	addr := opts.Addr
	if addr == "" {
		addr = e.config.Server.Addr
	}
	srv := server.NewServer(addr, server.Options{
		Switch:     auditedSwitch{Monitor: monitor, env: e},
		ReleaseDir: e.settings.ReleaseDir,
		Clock:      e.clock,
		Logger:     e.log,
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	e.log.Infof("Listening on %s", ln.Addr())
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchDone := make(chan error, 1)
	if opts.Watch {
		go func() {
			watchDone <- monitor.Run(ctx, e.config.Switch.PollInterval.Duration, func(r liveness.Result) {
				e.recordResult(r)
				if opts.Report != nil {
					opts.Report(r)
				}
			})
		}()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

wait:
	for {
		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case err := <-watchDone:
			// A fired switch keeps the server up for downloads.
			if err != nil && !errors.Is(err, context.Canceled) {
				e.log.Warnf("Background watch stopped: %v", err)
			}
			watchDone = nil
		case <-ctx.Done():
			break wait
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
