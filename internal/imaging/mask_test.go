package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"renderless/internal/domain"
)

func decodeMask(t *testing.T, a *Asset) *image.NRGBA {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		t.Fatalf("decode prepared mask: %v", err)
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(img.Bounds())
		for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
			for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
				nrgba.Set(x, y, img.At(x, y))
			}
		}
	}
	return nrgba
}

func TestPrepareMaskWhiteBecomesTransparent(t *testing.T) {
	src := solidPNG(t, 64, 64, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	asset, err := PrepareMask(src, 64, 64, 0)
	if err != nil {
		t.Fatalf("PrepareMask returned error: %v", err)
	}
	mask := decodeMask(t, asset)
	for i := 3; i < len(mask.Pix); i += 4 {
		if mask.Pix[i] != 0 {
			t.Fatalf("white mask pixel produced alpha %d, want 0", mask.Pix[i])
		}
	}
}

func TestPrepareMaskBlackBecomesOpaque(t *testing.T) {
	src := solidPNG(t, 64, 64, color.NRGBA{A: 255})
	asset, err := PrepareMask(src, 64, 64, 0)
	if err != nil {
		t.Fatalf("PrepareMask returned error: %v", err)
	}
	mask := decodeMask(t, asset)
	for i := 3; i < len(mask.Pix); i += 4 {
		if mask.Pix[i] != 255 {
			t.Fatalf("black mask pixel produced alpha %d, want 255", mask.Pix[i])
		}
	}
}

func halfMask(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{A: 255}
			if x >= w/2 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func countIntermediate(mask *image.NRGBA) int {
	n := 0
	for i := 3; i < len(mask.Pix); i += 4 {
		if a := mask.Pix[i]; a > 0 && a < 255 {
			n++
		}
	}
	return n
}

func TestPrepareMaskFeatherSoftensBoundary(t *testing.T) {
	src := halfMask(t, 64, 64)

	hard, err := PrepareMask(src, 64, 64, 0)
	if err != nil {
		t.Fatalf("PrepareMask (hard) returned error: %v", err)
	}
	soft, err := PrepareMask(src, 64, 64, 3)
	if err != nil {
		t.Fatalf("PrepareMask (feathered) returned error: %v", err)
	}

	hardN := countIntermediate(decodeMask(t, hard))
	softN := countIntermediate(decodeMask(t, soft))
	if softN <= hardN {
		t.Fatalf("feathering produced %d intermediate alphas, hard edge had %d", softN, hardN)
	}
}

func TestPrepareMaskResizesToTarget(t *testing.T) {
	src := solidPNG(t, 200, 100, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	asset, err := PrepareMask(src, 64, 48, 0)
	if err != nil {
		t.Fatalf("PrepareMask returned error: %v", err)
	}
	if asset.Width != 64 || asset.Height != 48 {
		t.Fatalf("size = %dx%d, want 64x48", asset.Width, asset.Height)
	}
	mask := decodeMask(t, asset)
	if b := mask.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("decoded size = %dx%d, want 64x48", b.Dx(), b.Dy())
	}
}

func TestPrepareMaskRejectsGarbage(t *testing.T) {
	_, err := PrepareMask([]byte("not a mask"), 64, 64, 0)
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}
