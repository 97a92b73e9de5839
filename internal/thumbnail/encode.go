package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// EncodeJPEG масштабирует до width с сохранением пропорций и кодирует в JPEG.
func EncodeJPEG(img image.Image, width, quality int) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("bad width %d", width)
	}
	if img.Bounds().Dx() != width {
		img = resize.Resize(uint(width), 0, img, resize.Lanczos3)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
