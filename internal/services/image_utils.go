package services

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	contextutils "siteworks/internal/utils"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register webp decoder
)

const jpegQuality = 90

// fitWithin scales w×h down to fit maxW×maxH keeping the aspect ratio. Smaller images are unchanged.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || (w <= maxW && h <= maxH) {
		return w, h
	}
	scale := float64(maxW) / float64(w)
	if hs := float64(maxH) / float64(h); hs < scale {
		scale = hs
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

func imageExt(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// downscaleImage returns data unchanged when it already fits maxW×maxH; otherwise
// the image is resampled with Catmull-Rom and re-encoded in its own format.
// WebP is never re-encoded.
func downscaleImage(data []byte, ext string, maxW, maxH int) ([]byte, error) {
	if ext == "webp" {
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "uploaded file is not a valid image")
		}
		return data, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "uploaded file is not a valid image")
	}
	b := src.Bounds()
	nw, nh := fitWithin(b.Dx(), b.Dy(), maxW, maxH)
	if nw == b.Dx() && nh == b.Dy() {
		return data, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	switch ext {
	case "png":
		err = png.Encode(&buf, dst)
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, storageError("failed to encode resized image", err)
	}
	return buf.Bytes(), nil
}
