package liveness

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PolarWolf314/lastwill/internal/cipher"
	"github.com/PolarWolf314/lastwill/internal/clock"
	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	logger "github.com/PolarWolf314/lastwill/internal/logging"
	"github.com/PolarWolf314/lastwill/internal/notify"
	"github.com/PolarWolf314/lastwill/internal/sealed"
	"github.com/PolarWolf314/lastwill/internal/utils"
	"github.com/PolarWolf314/lastwill/internal/vault"
)

const (
	DefaultNotifyTimeout = 30 * time.Second
	DefaultOutputName    = "FINAL_ASSET_PACKAGE.zip"
)

// Paths locates the switch state files.
type Paths struct {
	Heartbeat string
	Flag      string
}

// NotifiedPath marks confirmed delivery of the release notification.
func (p Paths) NotifiedPath() string { return p.Flag + ".notified" }

// ClaimPath is the cross-process lock held while releasing.
func (p Paths) ClaimPath() string { return p.Flag + ".lock" }

// Retriever reassembles a will from its fragment map.
type Retriever interface {
	Retrieve(ctx context.Context, m vault.FragmentMap, outputPath string, key cipher.Key) error
}

// MapLoader returns the fragment map to release.
type MapLoader func() (vault.FragmentMap, error)

// KeyFunc supplies the user key. It is only called when the switch fires.
type KeyFunc func() (cipher.Key, error)

// Options configures a Monitor.
type Options struct {
	Paths Paths
	Grace time.Duration

	// NotifyTimeout bounds one notification attempt.
	NotifyTimeout time.Duration

	// ReleaseDir receives the reassembled will, named OutputName.
	ReleaseDir string
	OutputName string
	// PublicURL is the base of the download link sent to the nominee.
	PublicURL string

	Recipient     string
	SealRecipient string

	Maps     MapLoader
	Vault    Retriever
	Key      KeyFunc
	Notifier notify.Notifier

	Clock  clock.Clock
	Logger logger.Logger
}

// Monitor watches the heartbeat and fires the switch at most once.
type Monitor struct {
	opts Options
	mu   sync.Mutex
}

// New validates opts and returns a Monitor.
func New(opts Options) (*Monitor, error) {
	if opts.Paths.Heartbeat == "" || opts.Paths.Flag == "" {
		return nil, fmt.Errorf("%w: heartbeat and flag paths are required", lerrors.ErrInvalidConfig)
	}
	if opts.Grace <= 0 {
		return nil, fmt.Errorf("%w: grace period must be positive", lerrors.ErrInvalidConfig)
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}
	if opts.OutputName == "" {
		opts.OutputName = DefaultOutputName
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Monitor{opts: opts}, nil
}

// Ping records that the owner is alive.
func (m *Monitor) Ping() error {
	return writeHeartbeat(m.opts.Paths.Heartbeat, m.opts.Clock.Now())
}

// LastSeen returns the recorded heartbeat. ok is false if none exists.
func (m *Monitor) LastSeen() (t time.Time, ok bool, err error) {
	t, err = readHeartbeat(m.opts.Paths.Heartbeat)
	if errors.Is(err, errNoHeartbeat) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// Check evaluates the switch and runs the release protocol if the grace
// period has lapsed. Errors are reported as StatusError; Check never
// panics on bad state.
func (m *Monitor) Check(ctx context.Context) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, fired := m.checkFired(ctx, false); fired {
		return r
	}

	last, err := readHeartbeat(m.opts.Paths.Heartbeat)
	if errors.Is(err, errNoHeartbeat) {
		return Result{Status: StatusNoData, Message: "No heartbeat recorded yet"}
	}
	if err != nil {
		return errorResult(err.Error())
	}

	elapsed := m.opts.Clock.Now().Sub(last)
	if elapsed <= m.opts.Grace {
		remaining := m.opts.Grace - elapsed
		return Result{
			Status:    StatusSafe,
			Message:   fmt.Sprintf("Owner active, release in %s", remaining.Round(time.Second)),
			Remaining: remaining,
			LastSeen:  last,
		}
	}

	m.opts.Logger.Warnf("Last heartbeat %s is older than the grace period of %s", last.Format(time.RFC3339), m.opts.Grace)
	r := m.release(ctx)
	r.LastSeen = last
	return r
}

// Run checks the switch every interval until it has fired and the nominee
// has been notified, or ctx is done. report, if non-nil, receives every
// result.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, report func(Result)) error {
	if interval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", lerrors.ErrInvalidConfig)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r := m.Check(ctx)
		if report != nil {
			report(r)
		}
		if r.Final() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// checkFired reports ALREADY_EXECUTED when the flag exists, retrying an
// unconfirmed notification first. The retry runs under the claim lock so
// two processes never notify for the same release; claimed reports whether
// the caller already holds it.
func (m *Monitor) checkFired(ctx context.Context, claimed bool) (Result, bool) {
	rec, fired, err := ReadTrigger(m.opts.Paths.Flag)
	if err != nil {
		return errorResult(err.Error()), true
	}
	if !fired {
		return Result{}, false
	}

	r := Result{
		Status:  StatusAlreadyExecuted,
		Message: "Will already released at " + formatTime(rec.ExecutedAt),
		Locator: rec.Locator,
	}

	notified, err := utils.FileExists(m.opts.Paths.NotifiedPath())
	if err != nil {
		r.Message += "; " + err.Error()
		return r, true
	}
	// The record is written after a delivery attempt, so it alone proves
	// delivery even if the marker was never written.
	if notified || rec.legacy || rec.Notified {
		r.Notified = true
		return r, true
	}

	if !claimed {
		unclaim, err := m.claim()
		if err != nil {
			r.Message += "; nominee notification pending: " + err.Error()
			return r, true
		}
		defer unclaim()
		// The claim holder may have delivered while we waited.
		if notified, _ := utils.FileExists(m.opts.Paths.NotifiedPath()); notified {
			r.Notified = true
			return r, true
		}
	}

	if err := m.notify(ctx, rec); err != nil {
		m.opts.Logger.Warnf("Nominee notification still pending: %v", err)
		r.Message += "; nominee notification pending: " + err.Error()
		return r, true
	}
	m.markNotified()
	r.Notified = true
	r.Message += "; nominee notified"
	return r, true
}

func (m *Monitor) release(ctx context.Context) Result {
	unclaim, err := m.claim()
	if err != nil {
		return errorResult(err.Error())
	}
	defer unclaim()

	// Another process may have finished between our flag check and the claim.
	if _, fired, err := ReadTrigger(m.opts.Paths.Flag); err != nil || fired {
		r, _ := m.checkFired(ctx, true)
		return r
	}

	if m.opts.Maps == nil || m.opts.Vault == nil || m.opts.Key == nil {
		return errorResult(fmt.Sprintf("%v: no will configured", lerrors.ErrRetrieval))
	}
	fragments, err := m.opts.Maps()
	if err != nil {
		return errorResult(fmt.Sprintf("Fragment map unavailable: %v", err))
	}
	key, err := m.opts.Key()
	if err != nil {
		return errorResult(fmt.Sprintf("User key unavailable: %v", err))
	}

	if err := os.MkdirAll(m.opts.ReleaseDir, 0700); err != nil {
		return errorResult(fmt.Sprintf("%v: creating release directory: %v", lerrors.ErrIO, err))
	}
	output := filepath.Join(m.opts.ReleaseDir, m.opts.OutputName)
	if err := m.opts.Vault.Retrieve(ctx, fragments, output, key); err != nil {
		return errorResult(fmt.Sprintf("Retrieval failed: %v", err))
	}
	m.opts.Logger.Infof("Reassembled %d fragments into %s", len(fragments), output)

	rec := TriggerRecord{
		ExecutedAt: m.opts.Clock.Now(),
		Output:     output,
		Fragments:  fragments.Names(),
	}
	if m.opts.SealRecipient != "" {
		sealedPath, err := sealed.SealFile(output, m.opts.SealRecipient)
		if err != nil {
			os.Remove(output)
			return errorResult(fmt.Sprintf("Sealing failed: %v", err))
		}
		rec.Output = sealedPath
		rec.Sealed = true
	}
	rec.Locator = m.locator(rec.Output)

	notifyErr := m.notify(ctx, rec)
	rec.Notified = notifyErr == nil

	created, err := writeTrigger(m.opts.Paths.Flag, rec)
	if err != nil {
		return errorResult(err.Error())
	}
	if !created {
		r, _ := m.checkFired(ctx, true)
		return r
	}

	r := Result{
		Status:   StatusExecuted,
		Message:  "Will released to " + rec.Locator,
		Locator:  rec.Locator,
		Notified: rec.Notified,
	}
	if notifyErr != nil {
		m.opts.Logger.Warnf("Will released but the nominee was not notified: %v", notifyErr)
		r.Message += "; nominee notification pending: " + notifyErr.Error()
		return r
	}
	m.markNotified()
	return r
}

func (m *Monitor) notify(ctx context.Context, rec TriggerRecord) error {
	if m.opts.Notifier == nil {
		return fmt.Errorf("%w: no notifier configured", lerrors.ErrNotifyFailed)
	}
	ctx, cancel := context.WithTimeout(ctx, m.opts.NotifyTimeout)
	defer cancel()

	err := m.opts.Notifier.Notify(ctx, notify.Notice{
		Recipient:  m.opts.Recipient,
		Locator:    rec.Locator,
		Fragments:  rec.Fragments,
		ExecutedAt: rec.ExecutedAt,
		Sealed:     rec.Sealed,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", lerrors.ErrNotifyFailed, err)
	}
	return nil
}

func (m *Monitor) markNotified() {
	if _, err := utils.CreateExclusive(m.opts.Paths.NotifiedPath(), nil, 0600); err != nil {
		m.opts.Logger.Warnf("Failed to record nominee notification: %v", err)
	}
}

func (m *Monitor) locator(output string) string {
	name := filepath.Base(output)
	if m.opts.PublicURL == "" {
		return output
	}
	u, err := url.JoinPath(m.opts.PublicURL, "download", name)
	if err != nil {
		return output
	}
	return u
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "an unknown time"
	}
	return t.Format(time.RFC3339)
}
