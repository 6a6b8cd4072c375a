package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"renderless/internal/domain"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func decodeAsset(t *testing.T, a *Asset) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		t.Fatalf("decode prepared asset: %v", err)
	}
	return img
}

func TestPrepareDownscalesLandscape(t *testing.T) {
	src := solidPNG(t, 3000, 2000, color.NRGBA{R: 200, G: 180, B: 160, A: 255})

	asset, err := Prepare(src, 1024, ColorRGB)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if asset.Width != 1024 || asset.Height != 683 {
		t.Fatalf("size = %dx%d, want 1024x683", asset.Width, asset.Height)
	}
	if asset.Format != "png" {
		t.Fatalf("format = %q, want png", asset.Format)
	}

	img := decodeAsset(t, asset)
	b := img.Bounds()
	if b.Dx() != 1024 || b.Dy() != 683 {
		t.Fatalf("decoded size = %dx%d, want 1024x683", b.Dx(), b.Dy())
	}
	_, _, _, a := img.At(b.Dx()/2, b.Dy()/2).RGBA()
	if a != 0xFFFF {
		t.Fatalf("RGB asset has non-opaque alpha %d", a)
	}
}

func TestPrepareKeepsSmallImages(t *testing.T) {
	src := solidPNG(t, 640, 480, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	asset, err := Prepare(src, 1024, ColorRGBA)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if asset.Width != 640 || asset.Height != 480 {
		t.Fatalf("size = %dx%d, want 640x480 (no upscale)", asset.Width, asset.Height)
	}
}

func TestPreparePreservesAspectRatio(t *testing.T) {
	src := solidPNG(t, 1717, 911, color.NRGBA{A: 255})
	asset, err := Prepare(src, 1000, ColorRGB)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if asset.Width != 1000 {
		t.Fatalf("long side = %d, want 1000", asset.Width)
	}
	inRatio := float64(1717) / float64(911)
	outRatio := float64(asset.Width) / float64(asset.Height)
	if diff := inRatio - outRatio; diff < -0.01 || diff > 0.01 {
		t.Fatalf("aspect ratio drifted: in=%.4f out=%.4f", inRatio, outRatio)
	}
}

func TestPrepareRejectsGarbage(t *testing.T) {
	_, err := Prepare([]byte("definitely not an image"), 1024, ColorRGB)
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestPoolPrepare(t *testing.T) {
	pool := NewPool(2)
	src := solidPNG(t, 64, 64, color.NRGBA{R: 1, A: 255})
	asset, err := pool.Prepare(context.Background(), src, 32, ColorRGB)
	if err != nil {
		t.Fatalf("pool.Prepare returned error: %v", err)
	}
	if asset.Width != 32 || asset.Height != 32 {
		t.Fatalf("size = %dx%d, want 32x32", asset.Width, asset.Height)
	}
}
