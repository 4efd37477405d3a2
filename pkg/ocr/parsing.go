package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

// ReportFields is the result of extracting one report screenshot's OCR text.
// Percentage fields keep their literal textual form (e.g. "-44.99%") so no
// precision or formatting is lost downstream.
type ReportFields struct {
	StrategyName      string
	StartDate         string
	EndDate           string
	NetProfit         string
	TotalClosedTrades int
	PercentProfitable string
	ProfitFactor      float64
	MaxDrawdown       string
	AvgTrade          string
	AvgBarsInTrade    int
}

// FieldKind classifies a token on the numeric summary line.
type FieldKind int

const (
	FieldCurrency FieldKind = iota
	FieldPercent
	FieldInteger
	FieldDecimal
)

// FieldSpec describes one positional token on the summary line. Keep marks
// fields whose value is retained; the rest only anchor the pattern.
type FieldSpec struct {
	Name string
	Kind FieldKind
	Keep bool
}

// LineAnchor decides which OCR line carries the numeric summary payload.
// The data line is observed to be the last qualifying line in the OCR
// stream, hence FromBottom; other report templates can supply their own
// token set and direction.
type LineAnchor struct {
	Require    []string
	NeedDigit  bool
	FromBottom bool
}

var digitRE = regexp.MustCompile(`\d`)

// Find returns the first qualifying line in the configured scan direction.
func (a LineAnchor) Find(lines []string) (string, bool) {
	idx := make([]int, len(lines))
	for i := range lines {
		if a.FromBottom {
			idx[i] = len(lines) - 1 - i
		} else {
			idx[i] = i
		}
	}
	for _, i := range idx {
		line := lines[i]
		ok := true
		for _, tok := range a.Require {
			if !strings.Contains(line, tok) {
				ok = false
				break
			}
		}
		if ok && a.NeedDigit && !digitRE.MatchString(line) {
			ok = false
		}
		if ok {
			return line, true
		}
	}
	return "", false
}

// ParserConfig carries the template-specific knobs of the extractor.
type ParserConfig struct {
	NameAnchor  string // phrase marking the strategy-name line
	DefaultName string // used when no line contains NameAnchor
	Currency    string // quote-currency marker on the summary line
	Anchor      LineAnchor
	Fields      []FieldSpec
}

// DefaultParserConfig matches the TradingView deep-backtesting widget.
func DefaultParserConfig() ParserConfig {
	currency := "USDT"
	return ParserConfig{
		NameAnchor:  "Deep Backtesting",
		DefaultName: "Unknown Strategy",
		Currency:    currency,
		Anchor: LineAnchor{
			Require:    []string{currency, "%"},
			NeedDigit:  true,
			FromBottom: true,
		},
		Fields: []FieldSpec{
			{Name: "net_profit_amount", Kind: FieldCurrency},
			{Name: "net_profit", Kind: FieldPercent, Keep: true},
			{Name: "total_closed_trades", Kind: FieldInteger, Keep: true},
			{Name: "percent_profitable", Kind: FieldPercent, Keep: true},
			{Name: "profit_factor", Kind: FieldDecimal, Keep: true},
			{Name: "max_drawdown_amount", Kind: FieldCurrency},
			{Name: "max_drawdown", Kind: FieldPercent, Keep: true},
			{Name: "avg_trade_amount", Kind: FieldCurrency},
			{Name: "avg_trade", Kind: FieldPercent, Keep: true},
			{Name: "avg_bars_in_trade", Kind: FieldInteger, Keep: true},
		},
	}
}

var (
	nameNoiseRE = regexp.MustCompile(`[©)@]+$`)
	dateRangeRE = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*[-–—]+\s*(\d{4}-\d{2}-\d{2})`)
	// OCR noise seen on the data line: stray @/= glyphs, curly quotes,
	// em-dash instead of minus.
	lineNoise = strings.NewReplacer("@", "", "=", "", "‘", "", "’", "", "—", "-")
)

// ParseReportText extracts report fields from raw multi-line OCR text.
// Strategy name and test period degrade to defaults independently; absence of
// the numeric summary line is the single abort condition (ErrNoSummaryLine).
// Word boxes, when available, may be passed along but are not consulted.
func ParseReportText(text string, boxes []TokenBox, cfg ParserConfig) (ReportFields, error) {
	_ = boxes
	out := ReportFields{StrategyName: cfg.DefaultName}
	lines := splitLines(text)

	for _, line := range lines {
		if i := strings.Index(line, cfg.NameAnchor); i >= 0 {
			left := strings.TrimSpace(line[:i])
			left = strings.TrimSpace(nameNoiseRE.ReplaceAllString(left, ""))
			out.StrategyName = left
			break
		}
	}

	for _, line := range lines {
		if m := dateRangeRE.FindStringSubmatch(line); m != nil {
			out.StartDate = m[1]
			out.EndDate = m[2]
			break
		}
	}

	candidate, ok := cfg.Anchor.Find(lines)
	if !ok {
		return ReportFields{}, ErrNoSummaryLine
	}
	clean := strings.TrimSpace(lineNoise.Replace(candidate))

	m := compileSummaryPattern(cfg.Fields, cfg.Currency).FindStringSubmatch(clean)
	if m == nil {
		return ReportFields{}, ErrNoSummaryLine
	}

	groups := map[string]string{}
	for i, f := range cfg.Fields {
		groups[f.Name] = strings.TrimSpace(m[i+1])
	}

	netPct := groups["net_profit"]
	// The engine tends to drop the leading minus on the percentage token while
	// keeping it on the adjacent currency amount; the two always share sign in
	// the source report, so the currency token's sign is authoritative.
	if strings.HasPrefix(groups["net_profit_amount"], "-") && !strings.HasPrefix(netPct, "-") {
		netPct = "-" + netPct
	}
	out.NetProfit = netPct
	out.TotalClosedTrades = parseIntField(groups["total_closed_trades"])
	out.PercentProfitable = groups["percent_profitable"]
	out.ProfitFactor = parseFloatField(groups["profit_factor"])
	out.MaxDrawdown = groups["max_drawdown"]
	out.AvgTrade = groups["avg_trade"]
	out.AvgBarsInTrade = parseIntField(groups["avg_bars_in_trade"])
	return out, nil
}

// compileSummaryPattern builds the composite positional pattern from the
// ordered field list. Numeric tokens accept an optional leading minus;
// percents tolerate a stray trailing period.
func compileSummaryPattern(fields []FieldSpec, currency string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`^\s*`)
	for i, f := range fields {
		switch f.Kind {
		case FieldCurrency:
			b.WriteString(`(-?[0-9,.]+)\s*`)
			b.WriteString(regexp.QuoteMeta(currency))
			b.WriteString(`\s*`)
		case FieldPercent:
			b.WriteString(`(-?[0-9.]+%)\.?`)
		case FieldInteger:
			b.WriteString(`(-?[0-9,.]+)`)
		case FieldDecimal:
			b.WriteString(`(-?[0-9.]+)`)
		}
		if f.Kind != FieldCurrency && i < len(fields)-1 {
			b.WriteString(`\s+`)
		}
	}
	return regexp.MustCompile(b.String())
}

// splitLines returns the non-empty trimmed lines in OCR order.
func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseIntField strips grouping commas and a stray trailing period (OCR
// glues sentence punctuation onto the last token) and falls back to zero;
// field-level conversion failures never abort the extraction.
func parseIntField(s string) int {
	s = strings.TrimRight(s, ".")
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

func parseFloatField(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}
