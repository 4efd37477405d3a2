package models

import "time"

// BacktestReport is one stored extraction run (strategy + test period).
type BacktestReport struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UserID       uint   `gorm:"index;not null"`
	StrategyName string `gorm:"size:255;not null"`
	StartDate    string `gorm:"size:10"` // ISO date or empty
	EndDate      string `gorm:"size:10"`
	OutputFile   string `gorm:"size:512"` // JSON document written for this run
	Results      []AssetResultRow `gorm:"foreignKey:ReportID"`
}

// AssetResultRow is one chart's figures inside a stored report. Percentage
// columns keep the literal OCR strings, same as the JSON document.
type AssetResultRow struct {
	ID                uint `gorm:"primaryKey"`
	CreatedAt         time.Time
	ReportID          uint           `gorm:"index;not null;uniqueIndex:idx_report_chart"`
	Report            BacktestReport `gorm:"foreignKey:ReportID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Chart             string         `gorm:"size:64;not null;uniqueIndex:idx_report_chart"`
	NetProfit         string         `gorm:"size:32"`
	TotalClosedTrades int            `gorm:"not null"`
	PercentProfitable string         `gorm:"size:32"`
	ProfitFactor      float64        `gorm:"not null"`
	MaxDrawdown       string         `gorm:"size:32"`
	AvgTrade          string         `gorm:"size:32"`
	AvgBarsInTrade    int            `gorm:"not null"`
}
