package batch

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"bt03/pkg/ocr"
	"bt03/pkg/report"

	"github.com/disintegration/imaging"
)

// cannedEngine returns fixed OCR text regardless of the image.
type cannedEngine struct {
	text string
}

func (e cannedEngine) Recognize(string) (string, error) { return e.text, nil }

const cannedText = "My Strategy Deep Backtesting\n" +
	"2024-01-01 — 2025-01-01\n" +
	"-44,993.00 USDT -44.99% 2,498 49.40% 0.892 61,514.63 USDT 58.10% -18.01 USDT 0.04% 15\n"

func writeScreenshot(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 24, G: 26, B: 32, A: 255})
	if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
		t.Fatalf("save fixture %s: %v", name, err)
	}
}

func testOptions(t *testing.T, engine ocr.Engine) Options {
	t.Helper()
	base := t.TempDir()
	for _, d := range []string{"raw", "img", "data"} {
		if err := os.MkdirAll(filepath.Join(base, d), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return Options{
		RawDir:       filepath.Join(base, "raw"),
		ProcessedDir: filepath.Join(base, "img"),
		DataDir:      filepath.Join(base, "data"),
		Adjust:       ocr.NeutralAdjustments(),
		Parser:       ocr.DefaultParserConfig(),
		Engine:       engine,
		Workers:      2,
	}
}

func TestRunEndToEnd(t *testing.T) {
	opts := testOptions(t, cannedEngine{text: cannedText})
	writeScreenshot(t, opts.RawDir, "ethUSDT.png", 1600, 500)
	writeScreenshot(t, opts.RawDir, "btcUSDT.png", 1600, 500)

	rep, path, stats, err := Run(opts)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Loaded != 2 || stats.Extracted != 2 || stats.Skipped != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if rep.StrategyName != "My Strategy" {
		t.Fatalf("strategy name %q", rep.StrategyName)
	}
	if rep.TestPeriod.StartDate != "2024-01-01" || rep.TestPeriod.EndDate != "2025-01-01" {
		t.Fatalf("period %+v", rep.TestPeriod)
	}
	if len(rep.Results) != 2 {
		t.Fatalf("expected 2 results got %d", len(rep.Results))
	}
	// chart-sorted output
	if rep.Results[0].Chart != "BTCUSDT" || rep.Results[1].Chart != "ETHUSDT" {
		t.Fatalf("results not chart-sorted: %s, %s", rep.Results[0].Chart, rep.Results[1].Chart)
	}
	if rep.Results[0].NetProfit != "-44.99%" || rep.Results[0].AvgBarsInTrade != 15 {
		t.Fatalf("fields lost in assembly: %+v", rep.Results[0])
	}

	got, err := report.Load(path)
	if err != nil {
		t.Fatalf("load written report: %v", err)
	}
	if got.StrategyName != rep.StrategyName || len(got.Results) != 2 {
		t.Fatalf("written report differs: %+v", got)
	}

	// session cleared the raw dir and left one processed image per input
	raw, _ := os.ReadDir(opts.RawDir)
	if len(raw) != 0 {
		t.Fatalf("raw dir not cleared, %d entries left", len(raw))
	}
	processed, _ := os.ReadDir(opts.ProcessedDir)
	if len(processed) != 2 {
		t.Fatalf("expected 2 processed images got %d", len(processed))
	}
}

func TestRunSkipsUndersizedImages(t *testing.T) {
	opts := testOptions(t, cannedEngine{text: cannedText})
	writeScreenshot(t, opts.RawDir, "ethUSDT.png", 1600, 500)
	writeScreenshot(t, opts.RawDir, "solUSDT.png", 640, 480) // below crop extent

	rep, _, stats, err := Run(opts)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.Skipped != 1 || stats.Extracted != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(rep.Results) != 1 || rep.Results[0].Chart != "ETHUSDT" {
		t.Fatalf("unexpected results %+v", rep.Results)
	}
}

func TestRunFailsWhenNothingParses(t *testing.T) {
	opts := testOptions(t, cannedEngine{text: "no payload here\n"})
	writeScreenshot(t, opts.RawDir, "ethUSDT.png", 1600, 500)
	if _, _, _, err := Run(opts); err == nil {
		t.Fatalf("expected error when no image yields data")
	}
}
