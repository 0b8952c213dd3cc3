package media

import "errors"

var (
	// ErrNoMedia is returned when the caller supplied no media at all.
	ErrNoMedia = errors.New("no image provided")

	// ErrInvalidBase64 is returned when the payload is not valid base64.
	ErrInvalidBase64 = errors.New("image is not valid base64")

	// ErrEmptyImage is returned when the payload decodes to zero bytes.
	ErrEmptyImage = errors.New("image is empty")

	// ErrTooLarge is returned when the decoded image exceeds the size limit.
	ErrTooLarge = errors.New("image exceeds the maximum size")

	// ErrNotImage is returned in strict mode when the bytes are not an image.
	ErrNotImage = errors.New("payload is not an image")
)
