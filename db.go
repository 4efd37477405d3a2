package main

import (
	"log"
	"os"
	"strings"

	"bt03/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	// Ensure the roles master table exists first so the users FK can be applied
	// safely; seedDB seeds the rows afterwards.
	if shouldMigrate {
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			log.Printf("migration warning (roles): %v", err)
		}
	}

	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Printf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.BacktestReport{}); err != nil {
			log.Printf("migration warning (backtest_reports): %v", err)
		}
		if err := db.AutoMigrate(&models.AssetResultRow{}); err != nil {
			log.Printf("migration warning (asset_result_rows): %v", err)
		}
		if err := db.AutoMigrate(&models.Upload{}); err != nil {
			log.Printf("migration warning (uploads): %v", err)
		}
	}
	seedDB()
}

func seedRoles() {
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}
}

func seedDB() {
	seedRoles()

	// Check if admin user exists
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		// find administrator role id
		var role models.Role
		if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
			log.Printf("failed to find administrator role: %v", err)
		}
		// Seed admin user
		rid := role.ID
		admin := models.User{
			Username: "admin",
			RoleID:   &rid,
		}
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		db.Create(&admin)
		log.Println("Seeded admin user: username=admin, password=admin123")
	}
	// Ensure the pipeline directories exist
	ensurePipelineDirs()
}

// ensurePipelineDirs creates the raw/processed/data directories used by the
// extraction batch.
func ensurePipelineDirs() {
	for _, dir := range []string{rawDir(), processedDir(), dataDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("failed to create dir %s: %v", dir, err)
		}
	}
}

// rawDir returns the directory incoming screenshots land in (RAW_DIR env).
func rawDir() string {
	if v := os.Getenv("RAW_DIR"); v != "" {
		return v
	}
	return "raw_image"
}

// processedDir returns the directory processed crops are written to (IMAGES_DIR env).
func processedDir() string {
	if v := os.Getenv("IMAGES_DIR"); v != "" {
		return v
	}
	return "images"
}

// dataDir returns the directory aggregate JSON reports are written to (DATA_DIR env).
func dataDir() string {
	if v := os.Getenv("DATA_DIR"); v != "" {
		return v
	}
	return "data"
}
