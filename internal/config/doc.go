// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/promptscan/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/promptscan/config.cue on macOS, %APPDATA%\promptscan\config.cue
// on Windows). Source locations are ordered lists of {path, enabled} entries rather than
// maps, because Viper folds map keys to lower case and splits them on dots.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations. A Store holds
// the live configuration and reports which keys changed on every update.
package config
