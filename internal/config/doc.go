// Package config loads the courtside client configuration.
//
// # Resolution Order
//
//  1. The TOML file at the given path, or ~/.config/courtside/config.toml
//  2. A .env file in the working directory, if present
//  3. COURTSIDE_* environment variables
//  4. Defaults for anything still empty
//
// A missing config file is not an error. Command-line flags are applied on
// top of the result by the caller.
//
// # Keys
//
//	server = "127.0.0.1:3001"          # COURTSIDE_SERVER, host:port or URL
//	username = "alice"                 # COURTSIDE_USERNAME
//	admin = false                      # COURTSIDE_ADMIN
//	skill_level = "beginner"           # COURTSIDE_SKILL_LEVEL
//	command_timeout_seconds = 10       # COURTSIDE_COMMAND_TIMEOUT_SECONDS
//	notification_seconds = 3           # COURTSIDE_NOTIFICATION_SECONDS
//	log_level = "info"                 # COURTSIDE_LOG_LEVEL
//	log_file = "~/.local/state/courtside/courtside.log"
//
// Tilde paths are expanded for the config file and log_file.
//
// # Errors
//
// Load fails on unreadable files, invalid TOML ("parse config"), malformed
// environment values, an unknown skill_level or an unknown log_level.
package config
