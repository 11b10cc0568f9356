// Package configs manages the lastwill configuration file.
//
// Configuration is stored in TOML format at:
//
//	$XDG_CONFIG_HOME/lastwill/config.toml
//
// The location can be overridden with --config or the LASTWILL_CONFIG
// environment variable. A typical file:
//
//	[user]
//	id = "alice@example.com"
//	key_derivation = "hkdf"
//	passphrase_env = "LASTWILL_PASSPHRASE"
//
//	[nominee]
//	email = "bob@example.com"
//
//	[switch]
//	grace_period = "336h"
//	poll_interval = "5s"
//
//	[storage]
//	data_dir = "/home/alice/.local/share/lastwill"
//	split_depth = 1
//	compression = "zstd"
//
// Missing keys keep their defaults (see Default). Durations are Go
// duration strings.
//
// # Settings
//
// Every state file lives under storage.data_dir. Settings derives their
// paths so no other package hard-codes a file name.
package configs
