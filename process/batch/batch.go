package batch

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"bt03/pkg/ocr"
	"bt03/pkg/report"

	"github.com/disintegration/imaging"
)

// imageExts are the raw screenshot extensions picked up from the raw dir.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
}

// Options configures one extraction run. The batch session owns directory
// lifecycle (clearing previous raw/processed files); the normalizer and
// extractor stay side-effect free.
type Options struct {
	RawDir       string // incoming screenshots, cleared after loading
	ProcessedDir string // cropped/adjusted images handed to OCR, cleared first
	DataDir      string // aggregate JSON output
	Adjust       ocr.AdjustConfig
	Parser       ocr.ParserConfig
	Engine       ocr.Engine
	QuoteSuffix  string // chart-identifier suffix, e.g. "USDT"
	Workers      int    // 0 = NumCPU
}

// Stats summarizes a run for logging/API responses.
type Stats struct {
	Loaded     int // images decoded from the raw dir
	Unreadable int // decode failures
	Skipped    int // undersized crop or unparsed OCR
	Extracted  int
}

// Run executes one batch: load raw screenshots into memory, clear both image
// directories, process each image (crop, adjust, save, OCR, parse), aggregate
// results sorted by chart and write the JSON document. Per-image failures are
// logged and skipped; only the final report write is fatal.
func Run(opts Options) (*report.StrategyReport, string, Stats, error) {
	var stats Stats
	if opts.QuoteSuffix == "" {
		opts.QuoteSuffix = "USDT"
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if err := os.MkdirAll(opts.ProcessedDir, 0755); err != nil {
		return nil, "", stats, fmt.Errorf("ensure processed dir: %w", err)
	}
	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, "", stats, fmt.Errorf("ensure data dir: %w", err)
	}

	names, err := listImages(opts.RawDir)
	if err != nil {
		return nil, "", stats, err
	}
	if len(names) == 0 {
		return nil, "", stats, fmt.Errorf("no images found in %s", opts.RawDir)
	}

	// Decode everything up front so both directories can be cleared before
	// processing, matching the session lifecycle: raw in, artifacts out.
	type loaded struct {
		name string
		img  image.Image
	}
	var sources []loaded
	for _, name := range names {
		img, err := imaging.Open(filepath.Join(opts.RawDir, name))
		if err != nil {
			log.Printf("unreadable image %s: %v", name, err)
			stats.Unreadable++
			continue
		}
		sources = append(sources, loaded{name: name, img: img})
	}
	stats.Loaded = len(sources)

	clearImages(opts.RawDir)
	clearImages(opts.ProcessedDir)

	type outcome struct {
		index  int
		chart  string
		fields ocr.ReportFields
	}
	var (
		mu       sync.Mutex
		outcomes []outcome
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, opts.Workers)
	for i, src := range sources {
		wg.Add(1)
		go func(index int, name string, img image.Image) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			fields, ok := processOne(name, img, opts)
			if !ok {
				mu.Lock()
				stats.Skipped++
				mu.Unlock()
				return
			}
			chart := report.ChartFromFilename(name, opts.QuoteSuffix)
			mu.Lock()
			outcomes = append(outcomes, outcome{index: index, chart: chart, fields: fields})
			mu.Unlock()
		}(i, src.name, src.img)
	}
	wg.Wait()

	if len(outcomes) == 0 {
		return nil, "", stats, fmt.Errorf("no report data extracted from %d image(s)", stats.Loaded)
	}
	stats.Extracted = len(outcomes)

	// Strategy info comes from the first successfully parsed input; results
	// are then chart-sorted so output is deterministic regardless of worker
	// completion order.
	sort.Slice(outcomes, func(a, b int) bool { return outcomes[a].index < outcomes[b].index })
	first := outcomes[0].fields
	rep := &report.StrategyReport{
		StrategyName: first.StrategyName,
		TestPeriod:   report.TestPeriod{StartDate: first.StartDate, EndDate: first.EndDate},
	}
	sort.Slice(outcomes, func(a, b int) bool { return outcomes[a].chart < outcomes[b].chart })
	for _, o := range outcomes {
		rep.Results = append(rep.Results, report.AssetResult{
			Chart:             o.chart,
			NetProfit:         o.fields.NetProfit,
			TotalClosedTrades: o.fields.TotalClosedTrades,
			PercentProfitable: o.fields.PercentProfitable,
			ProfitFactor:      o.fields.ProfitFactor,
			MaxDrawdown:       o.fields.MaxDrawdown,
			AvgTrade:          o.fields.AvgTrade,
			AvgBarsInTrade:    o.fields.AvgBarsInTrade,
		})
	}

	path, err := report.Write(rep, opts.DataDir)
	if err != nil {
		return nil, "", stats, err
	}
	log.Printf("batch done: loaded=%d extracted=%d skipped=%d unreadable=%d out=%s",
		stats.Loaded, stats.Extracted, stats.Skipped, stats.Unreadable, path)
	return rep, path, stats, nil
}

// processOne runs a single image through crop/adjust/save/OCR/parse.
// Any failure is contained here: log, report not-ok, move on.
func processOne(name string, img image.Image, opts Options) (ocr.ReportFields, bool) {
	processed, err := ocr.PrepareReport(img, opts.Adjust)
	if err != nil {
		log.Printf("skipping %s: %v", name, err)
		return ocr.ReportFields{}, false
	}
	outPath := filepath.Join(opts.ProcessedDir, name)
	if err := imaging.Save(processed, outPath); err != nil {
		log.Printf("failed to write processed image %s: %v", outPath, err)
		return ocr.ReportFields{}, false
	}
	text, err := opts.Engine.Recognize(outPath)
	if err != nil {
		log.Printf("ocr failed for %s: %v", name, err)
		return ocr.ReportFields{}, false
	}
	fields, err := ocr.ParseReportText(text, nil, opts.Parser)
	if err != nil {
		log.Printf("skipping %s: %v", name, err)
		return ocr.ReportFields{}, false
	}
	return fields, true
}

// listImages returns raw image file names (not paths) in lexical order.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read raw dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// clearImages deletes prior image files from dir. Best effort; a leftover
// file only wastes space.
func clearImages(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			log.Printf("could not delete %s: %v", e.Name(), err)
		}
	}
}
