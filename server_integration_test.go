package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) http.Handler {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	initDB()
	tmp := t.TempDir()
	_ = os.Setenv("RAW_DIR", filepath.Join(tmp, "raw"))
	_ = os.Setenv("IMAGES_DIR", filepath.Join(tmp, "images"))
	_ = os.Setenv("DATA_DIR", filepath.Join(tmp, "data"))
	ensurePipelineDirs()
	seedDB()
	r := gin.Default()
	setupRoutes(r)
	return r
}

const cannedOCRText = "My Strategy Deep Backtesting\n" +
	"2024-01-01 — 2025-01-01\n" +
	"-44,993.00 USDT -44.99% 2,498 49.40% 0.892 61,514.63 USDT 58.10% -18.01 USDT 0.04% 15\n"

type cannedEngine struct{}

func (cannedEngine) Recognize(string) (string, error) { return cannedOCRText, nil }

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)
	extractEngine = cannedEngine{} // no Tesseract in CI

	// 1. Register user
	regBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass123"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 400 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass123"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Upload a screenshot (multipart)
	img := imaging.New(1600, 500, color.NRGBA{R: 24, G: 26, B: 32, A: 255})
	tmpImg := filepath.Join(t.TempDir(), "ethUSDT.png")
	if err := imaging.Save(img, tmpImg); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	data, _ := os.ReadFile(tmpImg)
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, _ := mw.CreateFormFile("file", "ethUSDT.png")
	_, _ = w.Write(data)
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/uploads", buf, token, mw.FormDataContentType())
	if resp.Code != 200 {
		t.Fatalf("upload failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 4. Run extraction
	resp = performRequest(r, http.MethodPost, "/extract", bytes.NewBufferString("{}"), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("extract failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var exResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &exResp)
	if exResp["id"] == nil {
		t.Fatalf("extract response missing report id: %+v", exResp)
	}

	// 5. List reports
	resp = performRequest(r, http.MethodGet, "/reports", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("list reports failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 6. List uploads
	resp = performRequest(r, http.MethodGet, "/uploads", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("list uploads failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 7. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/reports", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list reports got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
