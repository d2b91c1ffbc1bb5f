package imageprocessor

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	// Register Nikon and Canon maker notes
	exif.RegisterParsers(mknote.All...)
}

// ExtractCaptureDate reads the EXIF capture timestamp from raw image bytes.
// Photos without EXIF data (or without a date tag) return nil; that is not
// an error, label shots from messengers usually arrive stripped.
func ExtractCaptureDate(data []byte) *time.Time {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	if dt, err := x.DateTime(); err == nil {
		return &dt
	}

	return nil
}
