package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"renderless/internal/domain"
)

// PrepareMask converts a caller mask (white = region to edit, black = keep)
// into the edit provider's convention (transparent = edit, opaque = keep).
//
// Per-pixel brightness is thresholded at the midpoint: anything brighter than
// 50% of full scale becomes fully transparent, everything else fully opaque.
// featherRadius > 0 applies a Gaussian blur to the alpha channel so the edit
// boundary blends instead of seaming.
func PrepareMask(data []byte, targetWidth, targetHeight, featherRadius int) (*Asset, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if targetWidth < 1 || targetHeight < 1 {
		return nil, fmt.Errorf("%w: mask target size %dx%d", domain.ErrDecode, targetWidth, targetHeight)
	}

	scaled := image.NewNRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	alpha := make([]float64, targetWidth*targetHeight)
	for i := 0; i < len(alpha); i++ {
		r := scaled.Pix[i*4]
		g := scaled.Pix[i*4+1]
		b := scaled.Pix[i*4+2]
		brightness := (float64(r) + float64(g) + float64(b)) / 3
		// Bright pixels mark the editable region, which the provider wants
		// transparent. Getting this direction wrong silently inverts the edit.
		if brightness > 128 {
			alpha[i] = 0
		} else {
			alpha[i] = 255
		}
	}

	if featherRadius > 0 {
		alpha = gaussianBlur(alpha, targetWidth, targetHeight, float64(featherRadius))
	}

	out := image.NewNRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	for i := 0; i < len(alpha); i++ {
		out.Pix[i*4+3] = uint8(math.Round(alpha[i]))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode prepared mask: %w", err)
	}
	return &Asset{Data: buf.Bytes(), Width: targetWidth, Height: targetHeight, Format: "png"}, nil
}

// gaussianBlur applies a separable Gaussian kernel with the given standard
// deviation to a single-channel buffer.
func gaussianBlur(src []float64, w, h int, sigma float64) []float64 {
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	tmp := make([]float64, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, weight float64
			for k := -radius; k <= radius; k++ {
				xx := x + k
				if xx < 0 || xx >= w {
					continue
				}
				wk := kernel[k+radius]
				sum += src[y*w+xx] * wk
				weight += wk
			}
			tmp[y*w+x] = sum / weight
		}
	}

	dst := make([]float64, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, weight float64
			for k := -radius; k <= radius; k++ {
				yy := y + k
				if yy < 0 || yy >= h {
					continue
				}
				wk := kernel[k+radius]
				sum += tmp[yy*w+x] * wk
				weight += wk
			}
			dst[y*w+x] = sum / weight
		}
	}
	return dst
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(2 * sigma))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
	}
	return kernel
}
