package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// StrategyReport aggregates one batch run of backtest screenshots.
// Created once per run, populated incrementally, then written out; it is not
// mutated afterwards.
type StrategyReport struct {
	StrategyName string        `json:"strategy_name"`
	TestPeriod   TestPeriod    `json:"test_period"`
	Results      []AssetResult `json:"results"`
}

type TestPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// AssetResult is one chart's performance figures. Percentage fields keep
// their literal OCR text so no reformatting loss creeps in.
type AssetResult struct {
	Chart             string  `json:"chart"`
	NetProfit         string  `json:"net_profit"`
	TotalClosedTrades int     `json:"total_closed_trades"`
	PercentProfitable string  `json:"percent_profitable"`
	ProfitFactor      float64 `json:"profit_factor"`
	MaxDrawdown       string  `json:"max_drawdown"`
	AvgTrade          string  `json:"avg_trade"`
	AvgBarsInTrade    int     `json:"avg_bars_in_trade"`
}

var unsafeFileChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SafeFileName derives the output file name from a strategy name: unsafe
// filesystem characters stripped, spaces replaced with underscores, fixed
// placeholder when nothing is left.
func SafeFileName(strategyName string) string {
	safe := unsafeFileChars.ReplaceAllString(strategyName, "")
	if strings.TrimSpace(safe) == "" {
		safe = "Unknown_Strategy"
	}
	return strings.ReplaceAll(safe, " ", "_") + ".json"
}

// ChartFromFilename derives a chart identifier from an image filename: an
// alphanumeric run ending in the quote-currency suffix, uppercased. Falls
// back to the base name without extension.
func ChartFromFilename(filename, quoteSuffix string) string {
	re := regexp.MustCompile(`(?i)([A-Z0-9]+` + regexp.QuoteMeta(quoteSuffix) + `)`)
	if m := re.FindStringSubmatch(filename); m != nil {
		return strings.ToUpper(m[1])
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Write serializes the report to dir using the strategy-derived file name and
// returns the path written. A write failure here is batch-fatal for callers.
func Write(r *StrategyReport, dir string) (string, error) {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(dir, SafeFileName(r.StrategyName))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}

// Load reads a previously written report back; round-trips preserve every
// field's literal value.
func Load(path string) (*StrategyReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	var r StrategyReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &r, nil
}
