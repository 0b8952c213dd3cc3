// Package config provides configuration structures and utilities for deepscan.
// It defines vendor credentials, detection thresholds, HTTP server settings,
// history storage and report preferences.
package config
