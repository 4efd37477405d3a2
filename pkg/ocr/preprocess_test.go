package ocr

import (
	"bytes"
	"errors"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestCropRejectsUndersizedImages(t *testing.T) {
	cases := [][2]int{{1470, 360}, {1471, 359}, {800, 600}, {100, 100}}
	for _, c := range cases {
		img := imaging.New(c[0], c[1], color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		if _, err := CropRegion(img, ReportRegion); !errors.Is(err, ErrRegionOutOfBounds) {
			t.Fatalf("%dx%d: expected ErrRegionOutOfBounds got %v", c[0], c[1], err)
		}
	}
}

func TestCropExactFit(t *testing.T) {
	img := imaging.New(1471, 360, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	cropped, err := CropRegion(img, ReportRegion)
	if err != nil {
		t.Fatalf("exact-fit crop failed: %v", err)
	}
	if cropped.Bounds().Dx() != 1402 || cropped.Bounds().Dy() != 235 {
		t.Fatalf("unexpected crop size %v", cropped.Bounds())
	}
}

func TestNeutralAdjustmentsAreIdentity(t *testing.T) {
	img := imaging.New(32, 16, color.NRGBA{A: 255})
	// non-uniform content so a pipeline bug can't hide
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x + y), A: 255})
		}
	}
	out := Adjust(img, NeutralAdjustments())
	if !bytes.Equal(out.Pix, img.Pix) {
		t.Fatalf("neutral config must not change pixels")
	}
}

func TestGammaLUTMonotonic(t *testing.T) {
	for _, gamma := range []float64{0.01, 0.5, 1.5, 2.5} {
		lut := gammaLUT(gamma)
		for i := 1; i < 256; i++ {
			if lut[i] < lut[i-1] {
				t.Fatalf("gamma=%v: lut[%d]=%d < lut[%d]=%d", gamma, i, lut[i], i-1, lut[i-1])
			}
		}
		if lut[0] != 0 || lut[255] != 255 {
			t.Fatalf("gamma=%v: endpoints %d..%d", gamma, lut[0], lut[255])
		}
	}
}

func TestLinearRemapClamps(t *testing.T) {
	img := imaging.New(2, 1, color.NRGBA{R: 200, G: 10, B: 128, A: 255})
	out := Adjust(img, AdjustConfig{Contrast: 2.0, Brightness: 50, Gamma: 1.0, Saturation: 100})
	r := out.Pix[0]
	g := out.Pix[1]
	if r != 255 {
		t.Fatalf("expected red clamped to 255 got %d", r)
	}
	if g != 70 { // 10*2 + 50
		t.Fatalf("expected green 70 got %d", g)
	}
}

func TestThresholdingIsTwoLevel(t *testing.T) {
	img := imaging.New(16, 16, color.NRGBA{A: 255})
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 100, A: 255})
		}
	}
	cfg := NeutralAdjustments()
	cfg.Thresholding = true
	cfg.ThresholdValue = 128
	out := Adjust(img, cfg)
	for i := 0; i < len(out.Pix); i += 4 {
		v := out.Pix[i]
		if v != 0 && v != 255 {
			t.Fatalf("pixel %d not binary: %d", i/4, v)
		}
		if out.Pix[i+1] != v || out.Pix[i+2] != v {
			t.Fatalf("pixel %d channels disagree", i/4)
		}
	}
}

func TestSharpenPreservesFlatRegions(t *testing.T) {
	// Cross kernel weights sum to 1, so a uniform image is a fixed point.
	img := imaging.New(8, 8, color.NRGBA{R: 90, G: 90, B: 90, A: 255})
	cfg := NeutralAdjustments()
	cfg.Sharpen = 100
	out := Adjust(img, cfg)
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 90 || out.Pix[i+1] != 90 || out.Pix[i+2] != 90 {
			t.Fatalf("flat image changed at pixel %d: %v", i/4, out.Pix[i:i+3])
		}
	}
}

func TestGrayscaleFlagSkipsSaturation(t *testing.T) {
	img := imaging.New(4, 4, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	cfg := NeutralAdjustments()
	cfg.Grayscale = true
	cfg.Saturation = 300
	out := Adjust(img, cfg)
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != out.Pix[i+1] || out.Pix[i+1] != out.Pix[i+2] {
			t.Fatalf("expected grayscale output, got %v", out.Pix[i:i+3])
		}
	}
}

func TestSaturationBoostIncreasesSaturation(t *testing.T) {
	img := imaging.New(1, 1, color.NRGBA{R: 150, G: 100, B: 100, A: 255})
	cfg := NeutralAdjustments()
	cfg.Saturation = 300
	out := Adjust(img, cfg)
	_, s0, _ := rgbToHSV(150, 100, 100)
	_, s1, _ := rgbToHSV(out.Pix[0], out.Pix[1], out.Pix[2])
	if s1 <= s0 {
		t.Fatalf("saturation did not increase: %v -> %v", s0, s1)
	}
}
