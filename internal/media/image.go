// Package media provides image probing for attachment blobs.
package media

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	apperrors "github.com/kimhsiao/driftwood/internal/errors"
)

// ImageInfo describes a decoded image attachment.
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

// ProbeImage decodes just enough of the payload to report dimensions and
// format. Fails with ATTACHMENT_INVALID when the payload is not a
// supported image (gif, jpeg, png, webp).
func ProbeImage(data []byte) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAttachmentInvalid, "failed to decode image", err)
	}
	return &ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Thumbnail scales the image down to fit within maxW x maxH, preserving
// aspect ratio, and returns it JPEG-encoded. Images already within the
// bounds are re-encoded but not upscaled.
func Thumbnail(data []byte, maxW, maxH int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAttachmentInvalid, "failed to decode image", err)
	}

	thumb := imaging.Fit(img, maxW, maxH, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAttachmentInvalid, "failed to encode thumbnail", err)
	}
	return buf.Bytes(), nil
}
