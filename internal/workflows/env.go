package workflows

import (
	"fmt"
	"os"
	"strings"

	"github.com/PolarWolf314/lastwill/internal/audit"
	"github.com/PolarWolf314/lastwill/internal/cipher"
	"github.com/PolarWolf314/lastwill/internal/clock"
	"github.com/PolarWolf314/lastwill/internal/configs"
	logger "github.com/PolarWolf314/lastwill/internal/logging"
	"github.com/PolarWolf314/lastwill/internal/liveness"
	"github.com/PolarWolf314/lastwill/internal/notify"
	"github.com/PolarWolf314/lastwill/internal/vault"
)

// PassphraseFunc asks the owner for their passphrase. It is only called
// when the passphrase environment variable is unset.
type PassphraseFunc func() ([]byte, error)

// Common carries the options shared by every workflow that reads the
// configuration.
type Common struct {
	// ConfigPath overrides the configuration file location.
	ConfigPath string

	Logger logger.Logger

	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// env is the loaded configuration every workflow starts from.
type env struct {
	configPath string
	config     *configs.Config
	settings   configs.Settings
	log        logger.Logger
	clock      clock.Clock
}

func loadEnv(c Common) (*env, error) {
	path, err := configs.Path(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	config, err := configs.Load(path)
	if err != nil {
		return nil, err
	}
	clk := c.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &env{
		configPath: path,
		config:     config,
		settings:   config.Settings(),
		log:        c.Logger,
		clock:      clk,
	}, nil
}

func (e *env) userID() string {
	return e.config.User.ID
}

// key derives the user key from the configured derivation mode.
func (e *env) key(passphrase PassphraseFunc) (cipher.Key, error) {
	if e.config.User.KeyDerivation == configs.KeyDerivationLegacy {
		return cipher.ExpandByte(cipher.LegacyByte(e.userID()))
	}

	var secret []byte
	if name := e.config.User.PassphraseEnv; name != "" {
		secret = []byte(os.Getenv(name))
	}
	if len(secret) == 0 && passphrase != nil {
		var err error
		secret, err = passphrase()
		if err != nil {
			return cipher.Key{}, fmt.Errorf("reading passphrase: %w", err)
		}
	}
	if len(secret) == 0 {
		e.log.Warnf("No passphrase given; the key is derived from the user id alone")
	}
	return cipher.DeriveKey(e.userID(), secret)
}

func (e *env) vault() (*vault.Vault, error) {
	tag, err := cipher.ParseCompressionTag(e.config.Storage.Compression)
	if err != nil {
		return nil, err
	}
	return vault.New(vault.Options{
		Layout: vault.Layout{
			StorageDir: e.settings.StorageDir,
			MapDir:     e.settings.MapDir,
			WorkDir:    e.settings.WorkDir,
		},
		Depth:       e.config.Storage.SplitDepth,
		Compression: tag,
		Logger:      e.log,
	})
}

func (e *env) notifier() notify.Notifier {
	smtp := e.config.SMTP
	if !smtp.Enabled() {
		return notify.LogNotifier{Logger: e.log}
	}
	var password string
	if smtp.PasswordEnv != "" {
		password = os.Getenv(smtp.PasswordEnv)
	}
	return notify.SMTPNotifier{
		Host:     smtp.Host,
		Port:     smtp.Port,
		Username: smtp.Username,
		Password: password,
		From:     smtp.From,
		Clock:    e.clock,
	}
}

// monitor builds the dead man's switch. v and key may be nil for
// operations that never release the will, such as Ping.
func (e *env) monitor(v *vault.Vault, key liveness.KeyFunc) (*liveness.Monitor, error) {
	opts := liveness.Options{
		Paths: liveness.Paths{
			Heartbeat: e.settings.HeartbeatPath,
			Flag:      e.settings.FlagPath,
		},
		Grace:         e.config.Switch.GracePeriod.Duration,
		NotifyTimeout: e.config.Switch.NotifyTimeout.Duration,
		ReleaseDir:    e.settings.ReleaseDir,
		PublicURL:     e.config.Server.PublicURL,
		Recipient:     e.config.Nominee.Email,
		SealRecipient: e.config.Seal.AgeRecipient,
		Key:           key,
		Notifier:      e.notifier(),
		Clock:         e.clock,
		Logger:        e.log,
	}
	if v != nil {
		opts.Vault = v
		opts.Maps = func() (vault.FragmentMap, error) {
			_, m, err := v.Maps().Latest(e.userID())
			return m, err
		}
	}
	return liveness.New(opts)
}

// armedMonitor builds a monitor able to release the will.
func (e *env) armedMonitor(key liveness.KeyFunc) (*liveness.Monitor, error) {
	v, err := e.vault()
	if err != nil {
		return nil, err
	}
	return e.monitor(v, key)
}

// eagerKey derives the key now, for long-running processes that cannot
// prompt when the switch fires.
func (e *env) eagerKey(passphrase PassphraseFunc) (liveness.KeyFunc, error) {
	key, err := e.key(passphrase)
	if err != nil {
		return nil, err
	}
	return func() (cipher.Key, error) { return key, nil }, nil
}

// lazyKey defers derivation until the switch actually fires.
func (e *env) lazyKey(passphrase PassphraseFunc) liveness.KeyFunc {
	return func() (cipher.Key, error) { return e.key(passphrase) }
}

// recordResult writes switch transitions worth keeping to the audit log:
// the release itself and a late notification delivery.
func (e *env) recordResult(r liveness.Result) {
	switch {
	case r.Status == liveness.StatusExecuted:
	case r.Status == liveness.StatusAlreadyExecuted && strings.HasSuffix(r.Message, "; nominee notified"):
	default:
		return
	}

	entry := audit.LogWithUser("release", e.userID())
	entry.Status = string(r.Status)
	entry.Locator = r.Locator
	entry.Message = r.Message
	if rec, fired, err := liveness.ReadTrigger(e.settings.FlagPath); err == nil && fired {
		entry.Output = rec.Output
		entry.Fragments = len(rec.Fragments)
		if digest, err := audit.Digest(rec.Output); err == nil {
			entry.Digest = digest
		}
	}
	audit.Log(e.settings.AuditPath, entry)
}
