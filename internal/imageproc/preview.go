// Package imageproc builds preview images: square thumbnails and width-bound resizes.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/UnendingLoop/ImageStore/internal/model"
	"github.com/disintegration/imaging"
)

// Preview builds the preview required by rule, encoded in format
func Preview(r io.Reader, rule model.TypeRule, format imaging.Format) (io.Reader, int64, error) {
	switch rule.Preview {
	case model.PreviewThumbnail:
		return Thumbnailer(r, rule.PreviewW, rule.PreviewH, format)
	case model.PreviewResize:
		return Resizer(r, rule.PreviewW, rule.PreviewH, format)
	default:
		return nil, 0, model.ErrPreviewNotNeeded
	}
}

func Thumbnailer(r io.Reader, x, y int, format imaging.Format) (io.Reader, int64, error) {
	if r == nil {
		return nil, 0, errors.New("nil-reader baseIMG provided to Thumbnailer")
	}
	if x <= 0 || y <= 0 {
		return nil, 0, fmt.Errorf("invalid thumbnail size %dx%d", x, y)
	}
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode baseIMG in Thumbnailer: %w", err)
	}
	return encode(imaging.Thumbnail(img, x, y, imaging.Lanczos), format)
}

// Resizer fits the image into x by y keeping its aspect ratio, zero means unbounded.
// Smaller images are not upscaled.
func Resizer(r io.Reader, x, y int, format imaging.Format) (io.Reader, int64, error) {
	if r == nil {
		return nil, 0, errors.New("nil-reader baseIMG provided to Resizer")
	}
	if x <= 0 && y <= 0 {
		return nil, 0, fmt.Errorf("invalid resize bounds %dx%d", x, y)
	}
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode baseIMG in Resizer: %w", err)
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if (x <= 0 || w <= x) && (y <= 0 || h <= y) {
		return encode(img, format)
	}

	switch {
	case x > 0 && y > 0:
		img = imaging.Fit(img, x, y, imaging.Lanczos)
	case x > 0:
		img = imaging.Resize(img, x, 0, imaging.Lanczos)
	default:
		img = imaging.Resize(img, 0, y, imaging.Lanczos)
	}
	return encode(img, format)
}

func encode(img image.Image, format imaging.Format) (io.Reader, int64, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, 0, fmt.Errorf("failed to encode resultIMG: %w", err)
	}
	return &buf, int64(buf.Len()), nil
}
