package configs

import (
	"encoding"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/lastwill/internal/cipher"
	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/sealed"
	"github.com/PolarWolf314/lastwill/internal/shard"
	"github.com/PolarWolf314/lastwill/internal/utils"
)

// EnvConfig overrides the configuration file location.
const EnvConfig = "LASTWILL_CONFIG"

// Key derivation modes.
const (
	KeyDerivationHKDF   = "hkdf"
	KeyDerivationLegacy = "legacy"
)

type Config struct {
	User    User    `toml:"user" json:"user"`
	Nominee Nominee `toml:"nominee" json:"nominee"`
	Switch  Switch  `toml:"switch" json:"switch"`
	Storage Storage `toml:"storage" json:"storage"`
	Server  Server  `toml:"server" json:"server"`
	SMTP    SMTP    `toml:"smtp" json:"smtp"`
	Seal    Seal    `toml:"seal" json:"seal"`
}

type User struct {
	ID            string `toml:"id" json:"id"`
	KeyDerivation string `toml:"key_derivation" json:"key_derivation"`
	// PassphraseEnv names the environment variable holding the passphrase.
	// When it is unset the passphrase is prompted for on a terminal.
	PassphraseEnv string `toml:"passphrase_env" json:"passphrase_env"`
}

type Nominee struct {
	Email string `toml:"email" json:"email"`
}

type Switch struct {
	GracePeriod   Duration `toml:"grace_period" json:"grace_period"`
	PollInterval  Duration `toml:"poll_interval" json:"poll_interval"`
	NotifyTimeout Duration `toml:"notify_timeout" json:"notify_timeout"`
	ClaimTimeout  Duration `toml:"claim_timeout" json:"claim_timeout"`
}

type Storage struct {
	DataDir     string `toml:"data_dir" json:"data_dir"`
	SplitDepth  int    `toml:"split_depth" json:"split_depth"`
	Compression string `toml:"compression" json:"compression"`
}

type Server struct {
	Addr      string `toml:"addr" json:"addr"`
	PublicURL string `toml:"public_url" json:"public_url"`
}

type SMTP struct {
	Host        string `toml:"host,omitempty" json:"host,omitempty"`
	Port        int    `toml:"port,omitempty" json:"port,omitempty"`
	Username    string `toml:"username,omitempty" json:"username,omitempty"`
	PasswordEnv string `toml:"password_env,omitempty" json:"password_env,omitempty"`
	From        string `toml:"from,omitempty" json:"from,omitempty"`
}

// Enabled reports whether notices go out by email.
func (s SMTP) Enabled() bool { return s.Host != "" }

type Seal struct {
	AgeRecipient string `toml:"age_recipient,omitempty" json:"age_recipient,omitempty"`
}

// Duration is a time.Duration written as a string ("336h") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns a configuration with every optional key filled in.
func Default() *Config {
	return &Config{
		User: User{
			KeyDerivation: KeyDerivationHKDF,
			PassphraseEnv: "LASTWILL_PASSPHRASE",
		},
		Switch: Switch{
			GracePeriod:   Duration{14 * 24 * time.Hour},
			PollInterval:  Duration{5 * time.Second},
			NotifyTimeout: Duration{30 * time.Second},
			ClaimTimeout:  Duration{10 * time.Minute},
		},
		Storage: Storage{
			DataDir:     DefaultDataDir(),
			SplitDepth:  1,
			Compression: "zstd",
		},
		Server: Server{
			Addr:      ":8000",
			PublicURL: "http://localhost:8000",
		},
		SMTP: SMTP{
			PasswordEnv: "LASTWILL_SMTP_PASSWORD",
		},
	}
}

// DefaultDataDir returns $XDG_DATA_HOME/lastwill, falling back to
// ~/.local/share/lastwill.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "lastwill")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lastwill"
	}
	return filepath.Join(home, ".local", "share", "lastwill")
}

// Path resolves the configuration file location. An explicit override wins
// over LASTWILL_CONFIG, which wins over the user config directory.
func Path(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(dir, "lastwill", "config.toml"), nil
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	config := Default()
	meta, err := LoadTOML(path, config)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", lerrors.ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", lerrors.ErrInvalidConfig, path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s: unknown keys %s", lerrors.ErrInvalidConfig, path, strings.Join(keys, ", "))
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Save writes the configuration to path.
func Save(path string, config *Config) error {
	if err := SaveTOML(path, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.User.ID) == "" {
		add("user.id is required")
	}
	switch c.User.KeyDerivation {
	case KeyDerivationHKDF, KeyDerivationLegacy:
	default:
		add("user.key_derivation must be %q or %q", KeyDerivationHKDF, KeyDerivationLegacy)
	}
	if c.Nominee.Email != "" && !utils.IsValidEmail(c.Nominee.Email) {
		add("nominee.email %q is not a valid address", c.Nominee.Email)
	}
	if c.Switch.GracePeriod.Duration <= 0 {
		add("switch.grace_period must be positive")
	}
	if c.Switch.PollInterval.Duration <= 0 {
		add("switch.poll_interval must be positive")
	}
	if c.Switch.NotifyTimeout.Duration <= 0 {
		add("switch.notify_timeout must be positive")
	}
	if c.Switch.ClaimTimeout.Duration <= c.Switch.NotifyTimeout.Duration {
		add("switch.claim_timeout must exceed switch.notify_timeout")
	}
	if c.Storage.DataDir == "" {
		add("storage.data_dir is required")
	}
	if c.Storage.SplitDepth < 0 || c.Storage.SplitDepth > shard.MaxDepth {
		add("storage.split_depth must be between 0 and %d", shard.MaxDepth)
	}
	if _, err := cipher.ParseCompressionTag(c.Storage.Compression); err != nil {
		add("storage.compression: %v", err)
	}
	if c.SMTP.Enabled() {
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			add("smtp.port must be between 1 and 65535")
		}
		if !utils.IsValidEmail(c.SMTP.From) {
			add("smtp.from %q is not a valid address", c.SMTP.From)
		}
	}
	if c.Seal.AgeRecipient != "" {
		if _, err := sealed.ParseRecipient(c.Seal.AgeRecipient); err != nil {
			add("seal.age_recipient is not an age public key")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", lerrors.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

var (
	_ encoding.TextMarshaler   = Duration{}
	_ encoding.TextUnmarshaler = (*Duration)(nil)
)
