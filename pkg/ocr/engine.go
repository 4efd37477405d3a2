package ocr

import (
	"fmt"
	"log"

	"github.com/otiai10/gosseract/v2"
)

// Engine is the OCR collaborator: image file in, plain text out. Any engine
// producing comparable line layout satisfies the contract; tests supply a
// canned implementation.
type Engine interface {
	Recognize(path string) (string, error)
}

// TokenBox is per-word OCR geometry. Accepted by callers that want it but not
// required for extraction correctness.
type TokenBox struct {
	Word       string
	X, Y, W, H int
	Confidence float64
}

// Tesseract runs gosseract with a page segmentation mode suited to the
// single-block report widget (the equivalent of `--oem 3 --psm 6`).
type Tesseract struct {
	Lang string
	PSM  gosseract.PageSegMode
}

func NewTesseract() *Tesseract {
	return &Tesseract{Lang: "eng", PSM: gosseract.PSM_SINGLE_BLOCK}
}

func (t *Tesseract) Recognize(path string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage(t.Lang)
	_ = client.SetPageSegMode(t.PSM)
	if err := client.SetImage(path); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr error: %w", err)
	}
	log.Printf("OCR RAW %s snippet=%q", path, snippet(text, 180))
	return text, nil
}

// RecognizeWithBoxes additionally returns word-level bounding boxes.
func (t *Tesseract) RecognizeWithBoxes(path string) (string, []TokenBox, error) {
	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage(t.Lang)
	_ = client.SetPageSegMode(t.PSM)
	if err := client.SetImage(path); err != nil {
		return "", nil, fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", nil, fmt.Errorf("ocr error: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Geometry is auxiliary; text alone is a valid result.
		return text, nil, nil
	}
	out := make([]TokenBox, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, TokenBox{
			Word:       b.Word,
			X:          b.Box.Min.X,
			Y:          b.Box.Min.Y,
			W:          b.Box.Dx(),
			H:          b.Box.Dy(),
			Confidence: b.Confidence,
		})
	}
	return text, out, nil
}
