// Package media turns caller-supplied images into bytes the detection
// vendors accept.
//
// Callers send either a data URI ("data:image/png;base64,...") or a bare
// base64 string. Decode accepts both, sniffs the MIME type, enforces a size
// limit and computes a SHA3-256 fingerprint used as the history and cache key.
// ExtractMetadata reads EXIF tags, which often name the editing or
// generation software that produced an image.
package media
