package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"bt03/pkg/ocr"

	"github.com/disintegration/imaging"
)

// Debug CLI: run one screenshot through the full crop/adjust/OCR/parse
// pipeline and print every intermediate result.
func main() {
	grayscale := flag.Bool("grayscale", false, "grayscale instead of saturation boost")
	threshold := flag.Bool("threshold", false, "binarize before OCR")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("usage: go run ./tools/cmd/ocr_test [-grayscale] [-threshold] <image>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	img, err := imaging.Open(path)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	cfg := ocr.ReportAdjustments()
	cfg.Grayscale = *grayscale
	cfg.Thresholding = *threshold
	processed, err := ocr.PrepareReport(img, cfg)
	if err != nil {
		log.Fatalf("prepare: %v", err)
	}
	tmp := filepath.Join(os.TempDir(), "ocr_test_"+filepath.Base(path))
	if err := imaging.Save(processed, tmp); err != nil {
		log.Fatalf("save tmp: %v", err)
	}
	defer os.Remove(tmp)
	fmt.Printf("processed image: %s\n", tmp)

	engine := ocr.NewTesseract()
	text, boxes, err := engine.RecognizeWithBoxes(tmp)
	if err != nil {
		log.Fatalf("ocr: %v", err)
	}
	fmt.Printf("--- OCR text ---\n%s\n--- %d word box(es) ---\n", text, len(boxes))

	fields, err := ocr.ParseReportText(text, boxes, ocr.DefaultParserConfig())
	if err != nil {
		log.Fatalf("parse: %v", err)
	}
	fmt.Printf("strategy=%q period=%s..%s\n", fields.StrategyName, fields.StartDate, fields.EndDate)
	fmt.Printf("net_profit=%s trades=%d profitable=%s pf=%.3f dd=%s avg_trade=%s bars=%d\n",
		fields.NetProfit, fields.TotalClosedTrades, fields.PercentProfitable,
		fields.ProfitFactor, fields.MaxDrawdown, fields.AvgTrade, fields.AvgBarsInTrade)
}
