// Package imaging converts uploaded photos into the single JPEG form sent upstream.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"banknote-reader/api/internal/ocr/types"
)

// ErrDecode is returned for empty, corrupt or unsupported input (HEIC included).
var ErrDecode = errors.New("imaging: cannot decode image")

const (
	DefaultQuality = 90
	DefaultMaxSide = 2048
	// DefaultMaxPixels keeps one decoded RGBA frame around 160 MiB.
	DefaultMaxPixels = 40_000_000
)

type Options struct {
	// MaxSide caps the longest edge in pixels; 0 keeps the original size.
	MaxSide int
	// Quality is the JPEG quality 1..100; 0 means DefaultQuality.
	Quality int
	// MaxPixels rejects images whose header declares more pixels; 0 means DefaultMaxPixels.
	MaxPixels int
}

func DefaultOptions() Options {
	return Options{MaxSide: DefaultMaxSide, Quality: DefaultQuality, MaxPixels: DefaultMaxPixels}
}

// Normalize decodes raw and re-encodes it as an RGB JPEG with base64 payload.
func Normalize(raw []byte, opt Options) (types.EncodedImage, error) {
	if len(raw) == 0 {
		return types.EncodedImage{}, fmt.Errorf("%w: empty input", ErrDecode)
	}
	// размеры из заголовка: декодер выделяет буфер целиком ещё до масштабирования
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return types.EncodedImage{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	limit := opt.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(limit) {
		return types.EncodedImage{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, limit)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return types.EncodedImage{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return types.EncodedImage{}, fmt.Errorf("%w: empty bounds", ErrDecode)
	}

	w, h := fitInside(b.Dx(), b.Dy(), opt.MaxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// белый фон: прозрачные PNG/WebP иначе станут чёрными
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	q := opt.Quality
	if q <= 0 || q > 100 {
		q = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
		return types.EncodedImage{}, fmt.Errorf("imaging: jpeg encode: %w", err)
	}

	return types.EncodedImage{
		MIMEType:     "image/jpeg",
		Data:         base64.StdEncoding.EncodeToString(buf.Bytes()),
		JPEG:         buf.Bytes(),
		Width:        w,
		Height:       h,
		SourceFormat: format,
	}, nil
}

// fitInside keeps the aspect ratio while bounding the long side by limit.
func fitInside(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}
