// Package config loads and validates reelsmith configuration from TOML.
//
// Load resolves the config path (explicit flag, then the user config dir),
// decodes over repository defaults, expands home-relative paths, and
// validates the result. EnsureDirectories creates the working directories a
// running pipeline needs.
package config
