// Package imaging normalizes caller-supplied images and masks into the binary
// payloads the remote providers accept.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"renderless/internal/domain"
)

// ColorMode selects the channel layout of a prepared asset. The diffusion
// provider rejects alpha, the edit endpoint requires it for masks.
type ColorMode int

const (
	ColorRGB ColorMode = iota
	ColorRGBA
)

const (
	// MaxSideEdit is the long-side cap for the image-edit provider.
	MaxSideEdit = 2048
	// MaxSideDiffusion is the long-side cap for the diffusion provider.
	MaxSideDiffusion = 1024
)

// Asset is a provider-ready image: lossless PNG bytes plus pixel dimensions.
type Asset struct {
	Data   []byte
	Width  int
	Height int
	Format string
}

// Prepare decodes arbitrary input bytes (png, jpeg, gif, webp), converts to
// the requested color mode, downsamples with Catmull-Rom resampling when the
// longer side exceeds maxSide, and re-encodes as PNG. Aspect ratio is always
// preserved.
func Prepare(data []byte, maxSide int, mode ColorMode) (*Asset, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if nw, nh, ok := fitWithin(w, h, maxSide); ok {
		w, h = nw, nh
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)

	if mode == ColorRGB {
		stripAlpha(dst)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode prepared image: %w", err)
	}
	return &Asset{Data: buf.Bytes(), Width: w, Height: h, Format: "png"}, nil
}

// fitWithin scales (w, h) so the longer side equals maxSide, rounding the
// short side. Returns ok=false when the image already fits.
func fitWithin(w, h, maxSide int) (int, int, bool) {
	long := w
	if h > long {
		long = h
	}
	if maxSide <= 0 || long <= maxSide {
		return w, h, false
	}
	ratio := float64(maxSide) / float64(long)
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh, true
}

func stripAlpha(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
}
