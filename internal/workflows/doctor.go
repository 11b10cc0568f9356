package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/liveness"
	"github.com/PolarWolf314/lastwill/internal/utils"
	"github.com/PolarWolf314/lastwill/internal/vault"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	Common
}

// Doctor runs read-only health checks on the lastwill state.
//
// The doctor workflow checks:
//   - Configuration validity
//   - Data directory permissions
//   - Heartbeat presence and age
//   - The latest will and every fragment it names
//   - Orphaned fragments and abandoned work files
//   - Releases holding the claim lock past claim_timeout
//   - Trigger flag and nominee notification state
//   - Nominee delivery settings
//   - Whether released wills are sealed
//
// Doctor never fires the switch. If the configuration cannot be loaded
// only that check is reported.
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	e, err := loadEnv(opts.Common)
	if err != nil {
		return buildDoctorResult([]CheckResult{{
			Name:       "Configuration",
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: "Run 'lastwill init' or fix the configuration file",
		}}), nil
	}

	d := &doctor{env: e}
	d.vault, d.vaultErr = e.vault()

	checks := []func() CheckResult{
		d.checkConfig,
		d.checkDataDir,
		d.checkHeartbeat,
		d.checkWill,
		d.checkOrphans,
		d.checkClaimLock,
		d.checkTrigger,
		d.checkDelivery,
		d.checkSealing,
	}

	var results []CheckResult
	for _, check := range checks {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		results = append(results, check())
	}
	return buildDoctorResult(results), nil
}

func buildDoctorResult(results []CheckResult) *DoctorResult {
	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     calculateDoctorSummary(results),
		Suggestions: suggestions,
	}
}

type doctor struct {
	env      *env
	vault    *vault.Vault
	vaultErr error
}

func (d *doctor) paths() liveness.Paths {
	return liveness.Paths{Heartbeat: d.env.settings.HeartbeatPath, Flag: d.env.settings.FlagPath}
}

func (d *doctor) checkConfig() CheckResult {
	return CheckResult{
		Name:    "Configuration",
		Status:  CheckPass,
		Message: "Valid configuration at " + d.env.configPath,
	}
}

// checkDataDir checks the data directory exists and is private.
func (d *doctor) checkDataDir() CheckResult {
	result := CheckResult{Name: "Data directory"}
	dir := d.env.settings.DataDir

	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		result.Status = CheckError
		result.Message = dir + " does not exist"
		result.Suggestion = "Run 'lastwill init' to create the data directory"
		return result
	}
	if err != nil {
		result.Status = CheckError
		result.Message = fmt.Sprintf("Cannot read %s: %v", dir, err)
		return result
	}
	if !info.IsDir() {
		result.Status = CheckError
		result.Message = dir + " is not a directory"
		return result
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		result.Status = CheckWarning
		result.Message = fmt.Sprintf("%s has permissions %04o, others can read it", dir, perm)
		result.Suggestion = "Run: chmod 700 " + dir
		return result
	}

	result.Status = CheckPass
	result.Message = dir + " is private"
	return result
}

// checkHeartbeat checks a heartbeat exists and reports its age against the
// grace period.
func (d *doctor) checkHeartbeat() CheckResult {
	result := CheckResult{Name: "Heartbeat"}
	monitor, err := d.env.monitor(nil, nil)
	if err != nil {
		result.Status = CheckError
		result.Message = err.Error()
		return result
	}

	last, ok, err := monitor.LastSeen()
	switch {
	case err != nil:
		result.Status = CheckError
		result.Message = "Heartbeat is unreadable: " + err.Error()
		result.Suggestion = "Run 'lastwill ping' to rewrite the heartbeat"
		return result
	case !ok:
		result.Status = CheckWarning
		result.Message = "No heartbeat recorded; the switch cannot fire"
		result.Suggestion = "Run 'lastwill ping' to start the grace period"
		return result
	}

	grace := d.env.config.Switch.GracePeriod.Duration
	elapsed := d.env.clock.Now().Sub(last)
	if elapsed > grace {
		result.Status = CheckWarning
		result.Message = fmt.Sprintf("Last seen %s ago, past the grace period of %s; the next check releases the will",
			elapsed.Round(time.Second), grace)
		result.Suggestion = "Run 'lastwill ping' if you are still around"
		return result
	}

	result.Status = CheckPass
	result.Message = fmt.Sprintf("Last seen %s ago, release in %s",
		elapsed.Round(time.Second), (grace - elapsed).Round(time.Second))
	return result
}

// checkWill checks the latest map loads and every fragment it names exists.
func (d *doctor) checkWill() CheckResult {
	result := CheckResult{Name: "Stored will"}
	if d.vaultErr != nil {
		result.Status = CheckError
		result.Message = d.vaultErr.Error()
		return result
	}

	mapFile, m, err := d.vault.Maps().Latest(d.env.userID())
	if errors.Is(err, lerrors.ErrMapNotFound) {
		result.Status = CheckWarning
		result.Message = "No will stored; there is nothing to release"
		result.Suggestion = "Run 'lastwill store <file>' to protect a will"
		return result
	}
	if err != nil {
		result.Status = CheckError
		result.Message = err.Error()
		return result
	}

	var missing int
	for _, path := range m {
		if ok, _ := utils.FileExists(path); !ok {
			missing++
		}
	}
	if missing > 0 {
		result.Status = CheckError
		result.Message = fmt.Sprintf("%d of %d fragments named by %s are missing", missing, len(m), mapFile.Path)
		result.Suggestion = "Store the will again with 'lastwill store <file>'"
		return result
	}

	result.Status = CheckPass
	result.Message = fmt.Sprintf("%d fragments present for %s", len(m), mapFile.Path)
	return result
}

// checkOrphans looks for the leftovers clean removes.
func (d *doctor) checkOrphans() CheckResult {
	result := CheckResult{Name: "Orphaned files"}
	if d.vaultErr != nil {
		result.Status = CheckError
		result.Message = d.vaultErr.Error()
		return result
	}

	fragments, err := findOrphanedFragments(d.vault)
	if err != nil {
		result.Status = CheckError
		result.Message = err.Error()
		return result
	}
	work, err := findWorkLeftovers(d.env.settings.WorkDir, d.env.clock.Now())
	if err != nil {
		result.Status = CheckError
		result.Message = err.Error()
		return result
	}

	if len(fragments)+len(work) > 0 {
		result.Status = CheckWarning
		result.Message = fmt.Sprintf("%d orphaned fragments, %d abandoned work entries", len(fragments), len(work))
		result.Suggestion = "Run 'lastwill clean' to remove them"
		return result
	}

	result.Status = CheckPass
	result.Message = "No orphaned files"
	return result
}

// checkClaimLock reports a release that has held the claim for longer
// than the configured claim timeout.
func (d *doctor) checkClaimLock() CheckResult {
	result := CheckResult{Name: "Claim lock"}
	held, rec, err := liveness.ProbeClaim(d.paths().ClaimPath())
	if err != nil {
		result.Status = CheckError
		result.Message = err.Error()
		return result
	}
	if !held {
		result.Status = CheckPass
		result.Message = "No release in progress"
		return result
	}

	if !rec.AcquiredAt.IsZero() {
		age := d.env.clock.Now().Sub(rec.AcquiredAt)
		if age > d.env.config.Switch.ClaimTimeout.Duration {
			result.Status = CheckWarning
			result.Message = fmt.Sprintf("Release by pid %d has held the claim for %s", rec.PID, age.Round(time.Second))
			result.Suggestion = fmt.Sprintf("Check that process %d on %s is still making progress", rec.PID, rec.Host)
			return result
		}
	}
	result.Status = CheckPass
	result.Message = "A release is in progress"
	return result
}

// checkTrigger reports whether the switch has fired and whether the
// nominee knows.
func (d *doctor) checkTrigger() CheckResult {
	result := CheckResult{Name: "Trigger flag"}
	rec, fired, err := liveness.ReadTrigger(d.env.settings.FlagPath)
	if err != nil {
		result.Status = CheckError
		result.Message = err.Error()
		return result
	}
	if !fired {
		result.Status = CheckPass
		result.Message = "Switch armed, not fired"
		return result
	}

	notified, _ := utils.FileExists(d.paths().NotifiedPath())
	if !notified && !rec.Notified && rec.Output != "" {
		result.Status = CheckWarning
		result.Message = "Will released but the nominee has not been notified"
		result.Suggestion = "Run 'lastwill status' to retry the notification"
		return result
	}
	result.Status = CheckWarning
	result.Message = "Will already released"
	if rec.Locator != "" {
		result.Message += " to " + rec.Locator
	}
	return result
}

// checkDelivery checks the nominee can actually be reached.
func (d *doctor) checkDelivery() CheckResult {
	result := CheckResult{Name: "Nominee delivery"}
	config := d.env.config
	switch {
	case config.Nominee.Email == "":
		result.Status = CheckWarning
		result.Message = "No nominee configured"
		result.Suggestion = "Set nominee.email in the configuration"
	case !config.SMTP.Enabled():
		result.Status = CheckWarning
		result.Message = "SMTP is not configured; notifications are only logged"
		result.Suggestion = "Configure the [smtp] section to email the nominee"
	default:
		result.Status = CheckPass
		result.Message = fmt.Sprintf("Notifications to %s via %s:%d", config.Nominee.Email, config.SMTP.Host, config.SMTP.Port)
	}
	return result
}

// checkSealing warns when a released package would be served in the clear.
// The download route has no authentication; sealing is what keeps the
// package for the nominee alone.
func (d *doctor) checkSealing() CheckResult {
	result := CheckResult{Name: "Release sealing"}
	if d.env.config.Seal.AgeRecipient == "" {
		result.Status = CheckWarning
		result.Message = "Released wills are served unencrypted to anyone who can reach the download route"
		result.Suggestion = "Set seal.age_recipient to the nominee's age public key"
		return result
	}
	result.Status = CheckPass
	result.Message = "Released wills are sealed to the nominee's age key"
	return result
}

// calculateDoctorSummary calculates the counts of checks by status.
func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
