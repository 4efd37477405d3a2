package main

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"bt03/models"
	"bt03/pkg/ocr"
	"bt03/process/batch"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// extractEngine is swappable so tests can stub Tesseract out.
var extractEngine ocr.Engine = ocr.NewTesseract()

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/uploads", uploadScreenshotHandler)
	authGroup.GET("/uploads", listUploadsHandler)
	authGroup.POST("/extract", extractHandler)
	authGroup.GET("/reports", listReportsHandler)
	authGroup.GET("/reports/:id", getReportHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "registered"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

// uploadScreenshotHandler copies one or more report screenshots into the raw
// directory for the next extraction run, recording an Upload row per file.
func uploadScreenshotHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	var ids []uint
	for _, file := range files {
		if file.Size > 10*1024*1024 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
			return
		}
		switch strings.ToLower(filepath.Ext(file.Filename)) {
		case ".png", ".jpg", ".jpeg", ".bmp":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type: " + file.Filename})
			return
		}
		dest := filepath.Join(rawDir(), filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, dest); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
			return
		}
		up := models.Upload{
			FileName:    filepath.Base(file.Filename),
			StorePath:   dest,
			UserID:      user.ID,
			ContentType: file.Header.Get("Content-Type"),
		}
		if err := db.Create(&up).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "record upload failed"})
			return
		}
		ids = append(ids, up.ID)
	}
	c.JSON(http.StatusOK, gin.H{"uploaded": len(ids), "ids": ids})
}

func listUploadsHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var uploads []models.Upload
	q := db.Order("id desc").Limit(100)
	if roleVal, _ := c.Get("role"); roleVal != "administrator" {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Find(&uploads).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, uploads)
}

// extractHandler runs the batch pipeline over the raw directory and persists
// the resulting report plus per-chart rows.
func extractHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Grayscale    bool `json:"grayscale"`
		Thresholding bool `json:"thresholding"`
	}
	_ = c.ShouldBindJSON(&req) // body optional

	adjust := ocr.ReportAdjustments()
	adjust.Grayscale = req.Grayscale
	adjust.Thresholding = req.Thresholding

	rep, outPath, stats, err := batch.Run(batch.Options{
		RawDir:       rawDir(),
		ProcessedDir: processedDir(),
		DataDir:      dataDir(),
		Adjust:       adjust,
		Parser:       ocr.DefaultParserConfig(),
		Engine:       extractEngine,
	})
	if err != nil {
		// Mark this run's pending uploads failed so they can be reviewed.
		db.Model(&models.Upload{}).Where("user_id = ? AND report_id IS NULL AND failed = false", user.ID).
			Updates(map[string]interface{}{"failed": true, "failed_reason": err.Error()})
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	stored := models.BacktestReport{
		UserID:       user.ID,
		StrategyName: rep.StrategyName,
		StartDate:    rep.TestPeriod.StartDate,
		EndDate:      rep.TestPeriod.EndDate,
		OutputFile:   outPath,
	}
	if err := db.Create(&stored).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store report failed"})
		return
	}
	for _, res := range rep.Results {
		row := models.AssetResultRow{
			ReportID:          stored.ID,
			Chart:             res.Chart,
			NetProfit:         res.NetProfit,
			TotalClosedTrades: res.TotalClosedTrades,
			PercentProfitable: res.PercentProfitable,
			ProfitFactor:      res.ProfitFactor,
			MaxDrawdown:       res.MaxDrawdown,
			AvgTrade:          res.AvgTrade,
			AvgBarsInTrade:    res.AvgBarsInTrade,
		}
		if err := db.Create(&row).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store result row failed"})
			return
		}
	}
	// Link this user's pending uploads to the stored report.
	db.Model(&models.Upload{}).Where("user_id = ? AND report_id IS NULL AND failed = false", user.ID).
		Update("report_id", stored.ID)

	c.JSON(http.StatusOK, gin.H{
		"id":     stored.ID,
		"report": rep,
		"file":   outPath,
		"stats":  gin.H{"loaded": stats.Loaded, "extracted": stats.Extracted, "skipped": stats.Skipped, "unreadable": stats.Unreadable},
	})
}

func listReportsHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var reports []models.BacktestReport
	q := db.Order("id desc").Limit(50)
	if roleVal, _ := c.Get("role"); roleVal != "administrator" {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

func getReportHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var rep models.BacktestReport
	q := db.Preload("Results")
	if roleVal, _ := c.Get("role"); roleVal != "administrator" {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.First(&rep, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, rep)
}
