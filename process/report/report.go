package report

import (
	"fmt"
	"log"
	"os"
	"time"

	"bt03/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// RunReport prints the stored extraction runs for username and optionally
// lists each run's per-chart rows.
func RunReport(username string, list bool) {
	gdb := mustDBFromEnv()

	var user models.User
	if err := gdb.Where("username = ?", username).First(&user).Error; err != nil {
		log.Fatalf("user not found: %v", err)
	}

	var runs []models.BacktestReport
	if err := gdb.Where("user_id = ?", user.ID).Order("id").Find(&runs).Error; err != nil {
		log.Fatalf("query failed: %v", err)
	}

	fmt.Printf("Stored reports for user=%s: %d run(s)\n", user.Username, len(runs))
	for _, r := range runs {
		period := r.StartDate + ".." + r.EndDate
		if r.StartDate == "" {
			period = "(no period)"
		}
		fmt.Printf("  #%d %s %s created=%s file=%s\n", r.ID, r.StrategyName, period, r.CreatedAt.Format(time.RFC3339), r.OutputFile)
		if !list {
			continue
		}
		var rows []models.AssetResultRow
		if err := gdb.Where("report_id = ?", r.ID).Order("chart").Find(&rows).Error; err != nil {
			log.Fatalf("fetch rows failed: %v", err)
		}
		for _, row := range rows {
			fmt.Printf("    %s|%s|%d|%s|%.3f|%s|%s|%d\n",
				row.Chart, row.NetProfit, row.TotalClosedTrades, row.PercentProfitable,
				row.ProfitFactor, row.MaxDrawdown, row.AvgTrade, row.AvgBarsInTrade)
		}
	}
}
