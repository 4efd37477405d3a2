package main

import (
	"flag"
	"log"
	"path/filepath"
	"strings"
	"time"

	"bt03/pkg/ocr"
	"bt03/process/batch"

	"github.com/fsnotify/fsnotify"
)

func main() {
	rawDir := flag.String("raw", "raw_image", "directory holding raw report screenshots")
	imgDir := flag.String("images", "images", "directory for processed (cropped/adjusted) images")
	dataDir := flag.String("data", "data", "directory for the aggregate JSON report")
	grayscale := flag.Bool("grayscale", false, "convert the crop to grayscale instead of boosting saturation")
	threshold := flag.Bool("threshold", false, "binarize the crop before OCR")
	workers := flag.Int("workers", 0, "worker count (0 = NumCPU)")
	watch := flag.Bool("watch", false, "keep running and re-extract when new screenshots arrive")
	simulate := flag.String("simulate-ocr", "", "skip Tesseract and feed this text to the extractor (testing)")
	flag.Parse()

	adjust := ocr.ReportAdjustments()
	adjust.Grayscale = *grayscale
	adjust.Thresholding = *threshold

	var engine ocr.Engine = ocr.NewTesseract()
	if *simulate != "" {
		engine = simulatedEngine(*simulate)
	}

	opts := batch.Options{
		RawDir:       *rawDir,
		ProcessedDir: *imgDir,
		DataDir:      *dataDir,
		Adjust:       adjust,
		Parser:       ocr.DefaultParserConfig(),
		Engine:       engine,
		Workers:      *workers,
	}

	if !*watch {
		if _, path, stats, err := batch.Run(opts); err != nil {
			log.Fatalf("extract failed: %v", err)
		} else {
			log.Printf("report written to %s (%d chart(s))", path, stats.Extracted)
		}
		return
	}

	if err := watchAndRun(opts); err != nil {
		log.Fatalf("watch failed: %v", err)
	}
}

type simulatedEngine string

func (e simulatedEngine) Recognize(string) (string, error) { return string(e), nil }

// watchAndRun re-runs the batch whenever new screenshots land in the raw dir.
// Events are debounced so one drop of many files triggers a single run.
func watchAndRun(opts batch.Options) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(opts.RawDir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", opts.RawDir)

	var lastEvent time.Time
	dirty := false
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == fsnotify.Create && isSupportedExt(ev.Name) {
				lastEvent = time.Now()
				dirty = true
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		case <-ticker.C:
			if dirty && time.Since(lastEvent) > 2*time.Second {
				dirty = false
				if _, path, stats, err := batch.Run(opts); err != nil {
					log.Printf("extract failed: %v", err)
				} else {
					log.Printf("report written to %s (%d chart(s))", path, stats.Extracted)
				}
			}
		}
	}
}

func isSupportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".bmp":
		return true
	}
	return false
}
