package media

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/sha3"
)

// DefaultMaxSize is the size limit used when no option overrides it.
const DefaultMaxSize = 10 * 1024 * 1024

// dataURIPrefix starts every data URI (RFC 2397).
const dataURIPrefix = "data:"

// Image is a decoded image ready to be forwarded to a vendor.
type Image struct {
	// Data holds the raw image bytes.
	Data []byte

	// MIMEType is the declared or sniffed type, e.g. "image/jpeg".
	MIMEType string

	// Name is the original file name when known (CLI input).
	Name string
}

// Size returns the image size in bytes.
func (img *Image) Size() int {
	return len(img.Data)
}

// Fingerprint returns the hex-encoded SHA3-256 digest of the image bytes.
func (img *Image) Fingerprint() string {
	sum := sha3.Sum256(img.Data)
	return hex.EncodeToString(sum[:])
}

// DataURI re-encodes the image as a base64 data URI.
func (img *Image) DataURI() string {
	return dataURIPrefix + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// FileName returns a name suitable for a multipart upload.
// Vendors use the extension as a format hint, so it follows MIMEType.
func (img *Image) FileName() string {
	return "image" + extensionFor(img.MIMEType)
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
	"image/heic": ".heic",
	"image/avif": ".avif",
}

func extensionFor(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return ".jpg"
}

// Decoder turns caller input into Images.
type Decoder struct {
	maxSize int64
	strict  bool
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxSize sets the largest decoded image accepted.
// Non-positive values keep the default.
func WithMaxSize(n int64) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// WithStrict rejects payloads that are not recognizable images.
func WithStrict(strict bool) DecoderOption {
	return func(d *Decoder) {
		d.strict = strict
	}
}

// NewDecoder creates a Decoder with the given options.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaxSize returns the configured size limit.
func (d *Decoder) MaxSize() int64 {
	return d.maxSize
}

// Decode parses a data URI or a bare base64 string.
//
// For a data URI the payload after the first comma is decoded and the
// declared media type is kept. A bare string is decoded whole and its type
// is sniffed from the bytes.
func (d *Decoder) Decode(input string) (*Image, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrNoMedia
	}

	var (
		declared string
		data     []byte
		err      error
	)

	if strings.HasPrefix(input, dataURIPrefix) {
		declared, data, err = parseDataURI(input)
	} else {
		data, err = decodeBase64(input)
	}
	if err != nil {
		return nil, err
	}

	return d.build("", declared, data)
}

// FromFile reads an image from disk.
func (d *Decoder) FromFile(path string) (*Image, error) {
	f, err := os.Open(path) //nolint:gosec // CLI input path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	// Read one byte past the limit so oversize files are detected without
	// loading them entirely.
	data, err := io.ReadAll(io.LimitReader(f, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return d.build(filepath.Base(path), "", data)
}

func (d *Decoder) build(name, declared string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if int64(len(data)) > d.maxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), d.maxSize)
	}

	sniffed := sniff(data)
	mimeType := sniffed
	if strings.HasPrefix(declared, "image/") {
		mimeType = declared
	}

	if d.strict && !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, sniffed)
	}

	return &Image{Data: data, MIMEType: mimeType, Name: name}, nil
}

// sniff returns the detected content type without parameters.
func sniff(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// parseDataURI splits "data:<type>[;base64],<payload>".
func parseDataURI(uri string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, dataURIPrefix), ",")
	if !ok {
		return "", nil, ErrInvalidBase64
	}

	params := strings.Split(header, ";")
	mediaType := strings.ToLower(strings.TrimSpace(params[0]))

	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	if !isBase64 {
		raw, err := url.PathUnescape(payload)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
		return mediaType, []byte(raw), nil
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return "", nil, err
	}
	return mediaType, data, nil
}

// encodings are tried in order; browsers emit standard padded base64 but
// hand-built clients often send URL-safe or unpadded variants.
var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, ErrEmptyImage
	}

	for _, enc := range encodings {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, ErrInvalidBase64
}

// Decode parses input with a default Decoder.
func Decode(input string) (*Image, error) {
	return NewDecoder().Decode(input)
}
