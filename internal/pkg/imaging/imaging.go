package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	imglib "github.com/disintegration/imaging"
)

const defaultQuality = 80

// CompressJPEG decodes a JPEG or PNG image and re-encodes it as JPEG at quality
// (1-100). EXIF orientation is applied to the pixels, and transparent areas are
// flattened onto white.
func CompressJPEG(data []byte, quality int) ([]byte, error) {
	src, err := imglib.Decode(bytes.NewReader(data), imglib.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if quality < 1 || quality > 100 {
		quality = defaultQuality
	}
	b := src.Bounds()
	flat := imglib.Overlay(imglib.New(b.Dx(), b.Dy(), color.White), src, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imglib.Encode(&buf, flat, imglib.JPEG, imglib.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
