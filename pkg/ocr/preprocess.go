package ocr

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ReportRegion is the fixed crop of the summary widget inside a full
// TradingView screenshot: x=69 y=125 w=1402 h=235.
var ReportRegion = image.Rect(69, 125, 69+1402, 125+235)

// AdjustConfig holds the pixel adjustments applied to the cropped report
// before OCR. It is passed explicitly per call; there is no process-wide
// adjustment state.
type AdjustConfig struct {
	Brightness     float64 // additive offset on each channel
	Contrast       float64 // multiplicative gain (1.0 = unchanged)
	Gamma          float64 // gamma correction exponent (1.0 = unchanged)
	Grayscale      bool    // convert to grayscale instead of scaling saturation
	Saturation     float64 // percentage, 100 = unchanged, 300 = 3x
	Sharpen        float64 // percentage, 0 = off, 100 = classic sharpen kernel
	Thresholding   bool
	ThresholdValue uint8
}

// NeutralAdjustments is the identity configuration: Adjust returns the input
// pixels unchanged.
func NeutralAdjustments() AdjustConfig {
	return AdjustConfig{Contrast: 1.0, Gamma: 1.0, Saturation: 100}
}

// ReportAdjustments is the tuned preset for TradingView deep-backtesting
// screenshots. Color is preserved and thresholding is off; both remain
// reachable through the Grayscale/Thresholding flags.
func ReportAdjustments() AdjustConfig {
	return AdjustConfig{
		Brightness:     0,
		Contrast:       1.0,
		Gamma:          0.01,
		Grayscale:      false,
		Saturation:     300,
		Sharpen:        100,
		Thresholding:   false,
		ThresholdValue: 235,
	}
}

// CropRegion extracts region from img. The source must fully contain the
// region; undersized images get ErrRegionOutOfBounds, never a truncated crop.
func CropRegion(img image.Image, region image.Rectangle) (*image.NRGBA, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w < region.Max.X || h < region.Max.Y {
		return nil, fmt.Errorf("image %dx%d smaller than crop region %dx%d: %w",
			w, h, region.Max.X, region.Max.Y, ErrRegionOutOfBounds)
	}
	return imaging.Crop(img, region), nil
}

// PrepareReport crops the fixed report region and applies cfg. This is the
// image handed to the OCR engine.
func PrepareReport(img image.Image, cfg AdjustConfig) (*image.NRGBA, error) {
	cropped, err := CropRegion(img, ReportRegion)
	if err != nil {
		return nil, err
	}
	return Adjust(cropped, cfg), nil
}

// Adjust applies the configured adjustments in a fixed order:
// linear brightness/contrast remap, gamma LUT, saturation scale (or grayscale
// conversion), cross-kernel sharpen, optional global threshold.
// The order is load-bearing for reproducible OCR output; do not reorder.
func Adjust(img image.Image, cfg AdjustConfig) *image.NRGBA {
	out := imaging.Clone(img)

	if cfg.Contrast != 1.0 || cfg.Brightness != 0 {
		linearRemap(out, cfg.Contrast, cfg.Brightness)
	}

	if cfg.Gamma != 1.0 && cfg.Gamma > 0 {
		lut := gammaLUT(cfg.Gamma)
		applyLUT(out, lut)
	}

	if cfg.Grayscale {
		out = imaging.Grayscale(out)
	} else if cfg.Saturation != 100 {
		scaleSaturation(out, cfg.Saturation/100.0)
	}

	if cfg.Sharpen != 0 {
		out = sharpenCross(out, cfg.Sharpen/100.0)
	}

	if cfg.Thresholding {
		out = binarize(imaging.Grayscale(out), cfg.ThresholdValue)
	}
	return out
}

// linearRemap applies out = in*contrast + brightness per channel, clamped.
func linearRemap(img *image.NRGBA, contrast, brightness float64) {
	for i := 0; i < len(img.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			img.Pix[i+c] = clampU8(float64(img.Pix[i+c])*contrast + brightness)
		}
	}
}

// gammaLUT builds the per-level lookup table for gamma correction using the
// inverse exponent. Monotonic non-decreasing for any gamma > 0.
func gammaLUT(gamma float64) [256]uint8 {
	inv := 1.0 / gamma
	var lut [256]uint8
	for i := 0; i < 256; i++ {
		lut[i] = uint8(math.Pow(float64(i)/255.0, inv) * 255.0)
	}
	return lut
}

func applyLUT(img *image.NRGBA, lut [256]uint8) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = lut[img.Pix[i]]
		img.Pix[i+1] = lut[img.Pix[i+1]]
		img.Pix[i+2] = lut[img.Pix[i+2]]
	}
}

// scaleSaturation multiplies the S channel in HSV space by factor, clamped.
func scaleSaturation(img *image.NRGBA, factor float64) {
	for i := 0; i < len(img.Pix); i += 4 {
		h, s, v := rgbToHSV(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		s *= factor
		if s > 1 {
			s = 1
		}
		r, g, b := hsvToRGB(h, s, v)
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
	}
}

func rgbToHSV(r, g, b uint8) (float64, float64, float64) {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0
	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	d := max - min
	v := max
	s := 0.0
	if max > 0 {
		s = d / max
	}
	h := 0.0
	if d > 0 {
		switch max {
		case rf:
			h = math.Mod((gf-bf)/d, 6)
		case gf:
			h = (bf-rf)/d + 2
		default:
			h = (rf-gf)/d + 4
		}
		h *= 60
		if h < 0 {
			h += 360
		}
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60.0, 2)-1))
	m := v - c
	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = c, x, 0
	case h < 120:
		rf, gf, bf = x, c, 0
	case h < 180:
		rf, gf, bf = 0, c, x
	case h < 240:
		rf, gf, bf = 0, x, c
	case h < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}
	return clampU8((rf + m) * 255), clampU8((gf + m) * 255), clampU8((bf + m) * 255)
}

// sharpenCross convolves with the 5-tap cross kernel: center 1+4*factor,
// four neighbors -factor, corners zero. Edge pixels replicate the border.
func sharpenCross(img *image.NRGBA, factor float64) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{A: 255})
	center := 1 + 4*factor
	at := func(x, y, c int) float64 {
		if x < 0 {
			x = 0
		}
		if y < 0 {
			y = 0
		}
		if x >= w {
			x = w - 1
		}
		if y >= h {
			y = h - 1
		}
		return float64(img.Pix[y*img.Stride+x*4+c])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			di := y*out.Stride + x*4
			for c := 0; c < 3; c++ {
				v := at(x, y, c)*center -
					factor*(at(x-1, y, c)+at(x+1, y, c)+at(x, y-1, c)+at(x, y+1, c))
				out.Pix[di+c] = clampU8(v)
			}
			out.Pix[di+3] = img.Pix[y*img.Stride+x*4+3]
		}
	}
	return out
}

// binarize performs a simple global threshold, producing a strictly two-level
// image (pixels above the cutoff go white, the rest black).
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			gray := uint8((r + g + bb) / 3 >> 8)
			var v uint8 = 255
			if gray <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
