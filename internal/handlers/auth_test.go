package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/rrdigi/internal/config"
	"github.com/example/rrdigi/internal/metrics"
	"github.com/example/rrdigi/internal/models"
	"github.com/example/rrdigi/internal/services"
)

const testAdminEmail = "admin@rrdigi.test"

// newTestDB opens an in-memory database with the full schema so handlers can
// be exercised end to end without Postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Session{}, &models.OtpLogin{}, &models.Order{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		AppEnv:     "test",
		AdminEmail: testAdminEmail,
	}
}

func newAuthApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	h := NewAuthHandler(db, newTestConfig(), services.NewMailer("", "", "", "", ""), metrics.Registry("rrdigi"))

	app := fiber.New()
	app.Post("/api/auth/signup", h.Signup)
	app.Post("/api/auth/login", h.Login)
	app.Post("/api/auth/request-otp", h.RequestOtp)
	app.Post("/api/auth/verify-otp", h.VerifyOtp)
	return app, db
}

func postJSON(t *testing.T, app *fiber.App, path string, payload map[string]any) (int, string) {
	return authedPostJSON(t, app, path, "", payload)
}

func authedPostJSON(t *testing.T, app *fiber.App, path, token string, payload map[string]any) (int, string) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(raw)
}

func jsonBody(t *testing.T, raw string) map[string]any {
	t.Helper()

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return decoded
}

// signupFor registers an account and returns the dev-echoed OTP code.
func signupFor(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	status, raw := postJSON(t, app, "/api/auth/signup", map[string]any{
		"email":    email,
		"password": "pass1234",
		"name":     "Asha",
		"phone":    "+91 98765 43210",
		"address":  "12 MG Road, Chennai",
	})
	if status != fiber.StatusOK {
		t.Fatalf("signup status = %d, body: %s", status, raw)
	}
	code, _ := jsonBody(t, raw)["devOtp"].(string)
	if code == "" {
		t.Fatal("expected OTP echo outside production")
	}
	return code
}

func requestOtpFor(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	status, raw := postJSON(t, app, "/api/auth/request-otp", map[string]any{"email": email})
	if status != fiber.StatusOK {
		t.Fatalf("request-otp status = %d, body: %s", status, raw)
	}
	code, _ := jsonBody(t, raw)["devOtp"].(string)
	if code == "" {
		t.Fatal("expected OTP echo outside production")
	}
	return code
}

func verifyOtp(t *testing.T, app *fiber.App, email, code string) (int, string) {
	t.Helper()
	return postJSON(t, app, "/api/auth/verify-otp", map[string]any{"email": email, "code": code})
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	app, _ := newAuthApp(t)
	code := signupFor(t, app, "asha@example.com")

	login := map[string]any{"email": "asha@example.com", "password": "pass1234"}
	status, raw := postJSON(t, app, "/api/auth/login", login)
	if status != fiber.StatusForbidden {
		t.Fatalf("pre-verify login status = %d, body: %s", status, raw)
	}

	status, raw = verifyOtp(t, app, "asha@example.com", code)
	if status != fiber.StatusOK {
		t.Fatalf("verify status = %d, body: %s", status, raw)
	}
	body := jsonBody(t, raw)
	if token, _ := body["token"].(string); token == "" {
		t.Fatal("verify must return a session token")
	}

	status, raw = postJSON(t, app, "/api/auth/login", login)
	if status != fiber.StatusOK {
		t.Fatalf("post-verify login status = %d, body: %s", status, raw)
	}
}

func TestVerifyOtpConsumesChallenge(t *testing.T) {
	app, _ := newAuthApp(t)
	code := signupFor(t, app, "asha@example.com")

	if status, raw := verifyOtp(t, app, "asha@example.com", code); status != fiber.StatusOK {
		t.Fatalf("first verify status = %d, body: %s", status, raw)
	}

	// The challenge is consumed; the same code must never work twice.
	status, raw := verifyOtp(t, app, "asha@example.com", code)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("replayed verify status = %d, body: %s", status, raw)
	}
}

func TestVerifyOtpNewestChallengeWins(t *testing.T) {
	app, _ := newAuthApp(t)
	first := signupFor(t, app, "asha@example.com")
	second := requestOtpFor(t, app, "asha@example.com")
	if second == first {
		second = requestOtpFor(t, app, "asha@example.com")
	}

	// Requesting a new code invalidates the previous one even though its row
	// is still unconsumed.
	if status, raw := verifyOtp(t, app, "asha@example.com", first); status != fiber.StatusUnauthorized {
		t.Fatalf("stale code verify status = %d, body: %s", status, raw)
	}
	if status, raw := verifyOtp(t, app, "asha@example.com", second); status != fiber.StatusOK {
		t.Fatalf("fresh code verify status = %d, body: %s", status, raw)
	}
}

func TestVerifyOtpAttemptLockout(t *testing.T) {
	app, _ := newAuthApp(t)
	code := signupFor(t, app, "asha@example.com")

	for i := 0; i < models.MaxOtpAttempts; i++ {
		status, raw := verifyOtp(t, app, "asha@example.com", wrongCode(code))
		if status != fiber.StatusUnauthorized {
			t.Fatalf("wrong attempt %d status = %d, body: %s", i+1, status, raw)
		}
	}

	// Exhausted challenges reject even the correct code.
	status, raw := verifyOtp(t, app, "asha@example.com", code)
	if status != fiber.StatusTooManyRequests {
		t.Fatalf("blocked verify status = %d, body: %s", status, raw)
	}
	if !strings.Contains(raw, "Too many attempts") {
		t.Fatalf("unexpected blocked body: %s", raw)
	}

	// A fresh challenge starts with a clean attempt counter.
	fresh := requestOtpFor(t, app, "asha@example.com")
	if status, raw := verifyOtp(t, app, "asha@example.com", fresh); status != fiber.StatusOK {
		t.Fatalf("fresh challenge verify status = %d, body: %s", status, raw)
	}
}

func TestVerifyOtpLazyExpiry(t *testing.T) {
	app, db := newAuthApp(t)
	code := signupFor(t, app, "asha@example.com")

	res := db.Model(&models.OtpLogin{}).
		Where("email = ?", "asha@example.com").
		Update("expires_at", time.Now().Add(-time.Minute))
	if res.Error != nil || res.RowsAffected == 0 {
		t.Fatalf("backdate challenge: %v (rows %d)", res.Error, res.RowsAffected)
	}

	status, raw := verifyOtp(t, app, "asha@example.com", code)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expired verify status = %d, body: %s", status, raw)
	}
	if !strings.Contains(raw, "OTP expired") {
		t.Fatalf("unexpected expired body: %s", raw)
	}
}

func TestAdminPasswordLoginForbidden(t *testing.T) {
	app, db := newAuthApp(t)

	// First OTP request provisions the admin account.
	code := requestOtpFor(t, app, testAdminEmail)

	var admin models.User
	if err := db.Where("email = ?", testAdminEmail).First(&admin).Error; err != nil {
		t.Fatalf("admin not provisioned: %v", err)
	}
	if !admin.IsAdmin {
		t.Fatal("provisioned admin must carry the admin flag")
	}

	status, raw := postJSON(t, app, "/api/auth/login", map[string]any{
		"email": testAdminEmail, "password": "anything",
	})
	if status != fiber.StatusForbidden {
		t.Fatalf("admin password login status = %d, body: %s", status, raw)
	}

	status, raw = verifyOtp(t, app, testAdminEmail, code)
	if status != fiber.StatusOK {
		t.Fatalf("admin otp verify status = %d, body: %s", status, raw)
	}
	user, _ := jsonBody(t, raw)["user"].(map[string]any)
	if isAdmin, _ := user["is_admin"].(bool); !isAdmin {
		t.Fatalf("admin snapshot missing admin flag: %v", user)
	}
}

func TestRequestOtpUnknownAccount(t *testing.T) {
	app, _ := newAuthApp(t)

	status, raw := postJSON(t, app, "/api/auth/request-otp", map[string]any{"email": "nobody@example.com"})
	if status != fiber.StatusNotFound {
		t.Fatalf("unknown account status = %d, body: %s", status, raw)
	}
}
