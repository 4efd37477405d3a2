package ocr

import "errors"

// ErrRegionOutOfBounds is returned when the source image is smaller than the
// fixed report crop region. The image must be skipped, never padded to fit.
var ErrRegionOutOfBounds = errors.New("crop region out of bounds")

// ErrNoSummaryLine is returned when no OCR line matches the numeric summary
// pattern. Callers must not fabricate a partial record from the other fields.
var ErrNoSummaryLine = errors.New("no numeric summary line detected")
