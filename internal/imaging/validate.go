package imaging

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxUploadBytes is the per-file size ceiling when the caller
// does not configure one.
const DefaultMaxUploadBytes = 10 << 20

// allowedTypes is the fixed set of accepted upload MIME types.
var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/bmp",
	"image/webp",
}

// ValidationError explains why a file was rejected before queueing.
type ValidationError struct {
	FileName string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.FileName, e.Reason)
}

// ValidateUpload sniffs the content type and checks the size ceiling.
// The detected type comes from the bytes, not the client-supplied
// name or header.
func ValidateUpload(name string, data []byte, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if int64(len(data)) > maxBytes {
		return &ValidationError{
			FileName: name,
			Reason: fmt.Sprintf("file is %s, limit is %s",
				humanize.Bytes(uint64(len(data))), humanize.Bytes(uint64(maxBytes))),
		}
	}

	mt := mimetype.Detect(data)
	for _, allowed := range allowedTypes {
		if mt.Is(allowed) {
			return nil
		}
	}
	return &ValidationError{
		FileName: name,
		Reason:   fmt.Sprintf("unsupported type %s", mt.String()),
	}
}
