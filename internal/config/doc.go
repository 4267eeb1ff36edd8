// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the sonox configuration.
//
// Precedence is environment (SONOX_*) over the YAML file over defaults.
// An optional .env file is read into the environment first without
// overriding variables that are already set.
package config
