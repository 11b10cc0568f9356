package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/lastwill/internal/audit"
	"github.com/PolarWolf314/lastwill/internal/clock"
	"github.com/PolarWolf314/lastwill/internal/configs"
	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	Common

	// UserID identifies the owner of the will. Required.
	UserID string

	// NomineeEmail receives the release notification.
	NomineeEmail string

	// DataDir overrides the default state directory.
	DataDir string

	// Legacy selects the single-byte key derivation used by old stores.
	Legacy bool

	// Force overwrites an existing configuration.
	Force bool
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	ConfigPath string
	Settings   configs.Settings
}

// Init writes a new configuration, creates the state directory and
// records the first heartbeat so the grace period starts now.
//
// Returns ErrAlreadyInitialized if a configuration exists and Force is unset.
// Returns ErrInvalidConfig if the options do not form a valid configuration.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	path, err := configs.Path(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	exists, err := utils.FileExists(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lerrors.ErrIO, err)
	}
	if exists && !opts.Force {
		return nil, fmt.Errorf("%w: %s", lerrors.ErrAlreadyInitialized, path)
	}

	config := configs.Default()
	config.User.ID = opts.UserID
	config.Nominee.Email = opts.NomineeEmail
	if opts.DataDir != "" {
		config.Storage.DataDir = opts.DataDir
	}
	if opts.Legacy {
		config.User.KeyDerivation = configs.KeyDerivationLegacy
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	// Store the absolute path so the config works from any directory.
	settings := config.Settings()
	config.Storage.DataDir = settings.DataDir

	if err := settings.Ensure(); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", lerrors.ErrIO, settings.DataDir, err)
	}
	if err := configs.Save(path, config); err != nil {
		return nil, err
	}
	opts.Logger.Infof("Wrote configuration to %s", path)

	e := &env{configPath: path, config: config, settings: settings, log: opts.Logger, clock: opts.Clock}
	if e.clock == nil {
		e.clock = clock.Real()
	}
	monitor, err := e.monitor(nil, nil)
	if err != nil {
		return nil, err
	}
	if err := monitor.Ping(); err != nil {
		return nil, err
	}
	if err := os.Chmod(settings.DataDir, 0700); err != nil {
		opts.Logger.Warnf("Could not restrict %s: %v", settings.DataDir, err)
	}

	audit.Log(settings.AuditPath, audit.LogWithUser("init", config.User.ID))

	return &InitResult{ConfigPath: path, Settings: settings}, nil
}
