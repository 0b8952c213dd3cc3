// Package log provides slog handlers that keep vendor credentials and image
// payloads out of log output.
//
// The SecureHandler wraps any slog.Handler and:
//   - masks values stored under credential-like keys (x-api-key, api_secret, ...)
//   - masks values that look like bearer tokens, JWTs or long API keys
//   - shortens base64 image payloads and data URIs to a short preview
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, log.Options{Level: slog.LevelInfo})
//	logger.Info("calling vendor", "x-api-key", key, "media", dataURI)
//	// x-api-key=***REDACTED*** media="data:image/png;base64,... (48211 chars)"
package log
