package models

import (
	"time"
)

// Upload represents one raw backtest screenshot handed to the extraction
// pipeline. Failed uploads keep their record so the front-end/admin can review.
type Upload struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FileName    string `gorm:"size:255;not null"`
	StorePath   string `gorm:"column:store_path;size:512"` // raw-dir relative path
	UserID      uint   `gorm:"index;not null"`
	User        User   `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ContentType string `gorm:"size:128"`
	ReportID    *uint  `gorm:"index"` // FK to backtest_reports.id once extracted (nullable)
	// Mark upload as failed for extraction (decode error, undersized crop, unparsed OCR)
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
