// SPDX-License-Identifier: MPL-2.0

// Package config loads harvest settings using Viper with CUE as the file format.
//
// The file lives at $XDG_CONFIG_HOME/harvest/config.cue (~/Library/Application
// Support/harvest on macOS, %APPDATA%\harvest on Windows) and may be replaced
// with --config. Every file is validated against the embedded
// config_schema.cue before its values are merged over the defaults.
package config
