package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys that should always be sanitized.
var sensitiveKeys = map[string]bool{
	// HTTP headers
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-goog-api-key":      true,
	"proxy-authorization": true,

	// Vendor credentials
	"api_user":   true,
	"apiuser":    true,
	"api_secret": true,
	"apisecret":  true,
	"api_key":    true,
	"apikey":     true,
	"api-key":    true,

	// Generic secrets
	"password":      true,
	"secret":        true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"credential":    true,
	"credentials":   true,
}

// sensitiveKeywords are substrings that mark a key as sensitive.
// The bare word "key" is excluded because it matches harmless keys such as
// "cache_key" or "keyword".
var sensitiveKeywords = []string{
	"password", "secret", "token", "auth", "credential", "apikey", "api_key",
}

// sensitivePatterns contains regex patterns that indicate sensitive values.
var sensitivePatterns = []*regexp.Regexp{
	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// Google API keys
	regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),

	// Long alphanumeric strings (vendor API keys)
	regexp.MustCompile(`^[a-zA-Z0-9]{32,64}$`),
}

// payloadKeys hold image payloads that are shortened rather than masked.
var payloadKeys = map[string]bool{
	"media":    true,
	"image":    true,
	"data_uri": true,
	"datauri":  true,
	"body":     true,
}

// publicKeys hold identifiers that look like API keys but are not secret.
var publicKeys = map[string]bool{
	"fingerprint": true,
	"request_id":  true,
	"analysis":    true,
	"id":          true,
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// payloadPreviewLen is how many leading characters of a payload are kept.
const payloadPreviewLen = 32

// payloadMinLen is the length above which a payload value is shortened.
const payloadMinLen = 128

// SecureHandler wraps an slog.Handler to sanitize attributes before they
// reach the underlying handler.
//
// Design decision: We use a handler wrapper rather than masking at each
// call site because:
//  1. Vendor clients log request details through plain slog calls
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Attributes added with Logger.With are sanitized once, up front
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it to the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if sensitiveKeys[keyLower] || containsSensitiveKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}

	strVal := a.Value.String()
	if isPayload(keyLower, strVal) {
		return slog.String(a.Key, ShortenPayload(strVal))
	}
	if !publicKeys[keyLower] && isSensitiveValue(strVal) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

// containsSensitiveKeyword checks if the key contains sensitive keywords.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches sensitive patterns.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// isPayload reports whether the value is an image payload worth shortening.
func isPayload(key, value string) bool {
	if len(value) <= payloadMinLen {
		return false
	}
	return payloadKeys[key] || strings.HasPrefix(value, "data:")
}

// ShortenPayload keeps the head of a large payload and records its length.
func ShortenPayload(value string) string {
	if len(value) <= payloadMinLen {
		return value
	}
	head := value[:payloadPreviewLen]
	if i := strings.IndexByte(value, ','); strings.HasPrefix(value, "data:") && i > 0 && i < payloadMinLen {
		head = value[:i+1]
	}
	return fmt.Sprintf("%s... (%d chars)", head, len(value))
}

// Options configures NewSecureLogger.
type Options struct {
	// Level is the minimum level written.
	Level slog.Level

	// JSON selects slog's JSON handler instead of the text handler.
	JSON bool
}

// NewSecureLogger creates a new slog.Logger that sanitizes all output.
func NewSecureLogger(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var base slog.Handler
	if opts.JSON {
		base = slog.NewJSONHandler(w, handlerOpts)
	} else {
		base = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewSecureHandler(base))
}

// LevelFor maps the CLI verbosity flag to a level. Long-running commands
// pass slog.LevelInfo as quiet so request logs stay visible.
func LevelFor(verbose bool, quiet slog.Level) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return quiet
}
