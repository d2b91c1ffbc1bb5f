package imageprocessor

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// ThumbnailWidth is the target width for label photo thumbnails;
	// height follows the aspect ratio.
	ThumbnailWidth = 320

	// ThumbnailQuality is the JPEG quality used for thumbnails.
	ThumbnailQuality = 82
)

// allowed image formats for label photos
var allowedFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// Photo is a decoded label photo ready for storage
type Photo struct {
	Image       image.Image
	Format      string
	ContentType string
	Width       int
	Height      int
}

// Decode decodes raw upload bytes and validates the image format
func Decode(data []byte) (*Photo, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	contentType, ok := allowedFormats[format]
	if !ok {
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}

	bounds := img.Bounds()
	return &Photo{
		Image:       img,
		Format:      format,
		ContentType: contentType,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}

// Thumbnail renders a JPEG thumbnail of the photo at ThumbnailWidth
func (p *Photo) Thumbnail() ([]byte, error) {
	thumb := p.Image
	if p.Width > ThumbnailWidth {
		thumb = imaging.Resize(p.Image, ThumbnailWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(ThumbnailQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}

// Extension returns the canonical file extension for the photo format
func (p *Photo) Extension() string {
	switch p.Format {
	case "jpeg":
		return ".jpg"
	case "tiff":
		return ".tif"
	default:
		return "." + strings.ToLower(p.Format)
	}
}
