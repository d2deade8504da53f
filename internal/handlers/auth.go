package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/rrdigi/internal/config"
	"github.com/example/rrdigi/internal/metrics"
	"github.com/example/rrdigi/internal/middleware"
	"github.com/example/rrdigi/internal/models"
	"github.com/example/rrdigi/internal/services"
	"github.com/example/rrdigi/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db      *gorm.DB
	cfg     *config.Config
	mailer  *services.Mailer
	metrics *metrics.Metrics
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, mailer *services.Mailer, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, mailer: mailer, metrics: m}
}

type isAdminEmailRequest struct {
	Email string `json:"email"`
}

// IsAdminEmail reports whether a typed email is the configured admin email.
// A boolean check so the frontend never learns ADMIN_EMAIL unless the user
// typed it.
func (h *AuthHandler) IsAdminEmail(c *fiber.Ctx) error {
	var req isAdminEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	emailNorm := utils.NormalizeEmail(req.Email)
	isAdmin := emailNorm != "" && h.cfg.AdminEmail != "" && emailNorm == h.cfg.AdminEmail
	return c.JSON(fiber.Map{"isAdmin": isAdmin})
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Signup creates a new unverified account and issues an email OTP. No
// session is created until the OTP is verified.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email and password are required")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Name is required")
	}
	if req.Phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Mobile number is required")
	}
	if req.Address == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Address is required")
	}

	emailNorm := utils.NormalizeEmail(req.Email)

	var existing models.User
	if err := h.db.Where("email = ?", emailNorm).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "Email already registered")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Email:         emailNorm,
		Name:          req.Name,
		PasswordHash:  passwordHash,
		Phone:         utils.NormalizePhone(req.Phone),
		Address:       req.Address,
		IsAdmin:       h.cfg.AdminEmail != "" && h.cfg.AdminEmail == emailNorm,
		EmailVerified: false,
		PhoneVerified: false,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	otp, err := h.issueEmailOtp(&user)
	if err != nil {
		return err
	}

	h.metrics.Signups.Inc()

	resp := fiber.Map{"ok": true, "requiresOtp": true}
	if !h.cfg.IsProduction() {
		resp["devOtp"] = otp
	}
	return c.JSON(resp)
}

type checkUserRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CheckUser is a UX-driven existence pre-check by email + phone. It
// deliberately reveals account existence.
func (h *AuthHandler) CheckUser(c *fiber.Ctx) error {
	var req checkUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	emailNorm := utils.NormalizeEmail(req.Email)
	phoneNorm := utils.NormalizePhone(req.Phone)
	if emailNorm == "" || phoneNorm == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email and phone are required")
	}

	var user models.User
	if err := h.db.Where("email = ?", emailNorm).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(fiber.Map{"exists": false})
		}
		return err
	}

	storedPhone := utils.NormalizePhone(user.Phone)
	if storedPhone == "" || storedPhone != phoneNorm {
		return c.JSON(fiber.Map{"exists": false})
	}

	return c.JSON(fiber.Map{"exists": true, "email_verified": user.EmailVerified})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email + password. The admin account and
// unverified accounts must use the OTP flow instead.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email and password are required")
	}

	emailNorm := utils.NormalizeEmail(req.Email)

	if h.cfg.AdminEmail != "" && emailNorm == h.cfg.AdminEmail {
		h.metrics.Logins.WithLabelValues("forbidden").Inc()
		return fiber.NewError(fiber.StatusForbidden, "Admin login requires OTP. Please request an OTP and verify to continue.")
	}

	// Missing account and wrong password must be indistinguishable.
	var user models.User
	if err := h.db.Where("email = ?", emailNorm).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			h.metrics.Logins.WithLabelValues("invalid").Inc()
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		h.metrics.Logins.WithLabelValues("invalid").Inc()
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	if !user.EmailVerified {
		h.metrics.Logins.WithLabelValues("forbidden").Inc()
		return fiber.NewError(fiber.StatusForbidden, "Please verify your email using OTP to continue.")
	}

	if err := models.SyncAdminFlag(h.db, &user, h.cfg.AdminEmail); err != nil {
		return err
	}

	token, err := h.createSession(user.ID)
	if err != nil {
		return err
	}

	h.metrics.Logins.WithLabelValues("ok").Inc()
	return c.JSON(fiber.Map{
		"ok":    true,
		"user":  models.MaterializeSessionSnapshot(&user),
		"token": token,
	})
}

type requestOtpRequest struct {
	Email string `json:"email"`
}

// RequestOtp issues a fresh OTP challenge for the account. The configured
// admin account is auto-provisioned on first request so the admin can log
// in before any signup; this branch is intentional, not incidental.
func (h *AuthHandler) RequestOtp(c *fiber.Ctx) error {
	var req requestOtpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	emailNorm := utils.NormalizeEmail(req.Email)
	if emailNorm == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email is required")
	}

	var user models.User
	err := h.db.Where("email = ?", emailNorm).First(&user).Error
	if err == gorm.ErrRecordNotFound && h.cfg.AdminEmail != "" && emailNorm == h.cfg.AdminEmail {
		user, err = h.provisionAdminAccount(emailNorm)
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Account not found. Please sign up first.")
		}
		return err
	}

	otp, err := h.issueEmailOtp(&user)
	if err != nil {
		return err
	}

	resp := fiber.Map{"ok": true}
	if !h.cfg.IsProduction() {
		resp["devOtp"] = otp
	}
	return c.JSON(resp)
}

type verifyOtpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyOtp checks the submitted code against the newest unconsumed
// challenge for the email. Success consumes the challenge, marks the email
// verified, and materializes a session.
func (h *AuthHandler) VerifyOtp(c *fiber.Ctx) error {
	var req verifyOtpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	emailNorm := utils.NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)
	if emailNorm == "" || code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email and code are required")
	}

	var user models.User
	if err := h.db.Where("email = ?", emailNorm).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			h.metrics.OtpVerifications.WithLabelValues("invalid").Inc()
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid code")
		}
		return err
	}

	// Only the newest unconsumed challenge is authoritative; older rows are
	// never consulted even if their codes would still match.
	var otp models.OtpLogin
	err := h.db.Where("email = ? AND consumed_at IS NULL", emailNorm).
		Order("created_at desc").
		First(&otp).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			h.metrics.OtpVerifications.WithLabelValues("invalid").Inc()
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid code")
		}
		return err
	}

	if otp.Blocked() {
		h.metrics.OtpVerifications.WithLabelValues("blocked").Inc()
		return fiber.NewError(fiber.StatusTooManyRequests, "Too many attempts. Request a new OTP.")
	}

	if otp.Expired(time.Now()) {
		h.metrics.OtpVerifications.WithLabelValues("expired").Inc()
		return fiber.NewError(fiber.StatusUnauthorized, "OTP expired. Request a new one.")
	}

	if !utils.CheckOTPCode(otp.CodeHash, code) {
		if err := h.db.Model(&models.OtpLogin{}).Where("id = ?", otp.ID).
			Update("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return err
		}
		h.metrics.OtpVerifications.WithLabelValues("invalid").Inc()
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid code")
	}

	now := time.Now()
	if err := h.db.Model(&models.OtpLogin{}).Where("id = ?", otp.ID).
		Update("consumed_at", &now).Error; err != nil {
		return err
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("email_verified", true).Error; err != nil {
		return err
	}
	user.EmailVerified = true

	if err := models.SyncAdminFlag(h.db, &user, h.cfg.AdminEmail); err != nil {
		return err
	}

	token, err := h.createSession(user.ID)
	if err != nil {
		return err
	}

	h.metrics.OtpVerifications.WithLabelValues("ok").Inc()
	return c.JSON(fiber.Map{
		"ok":    true,
		"user":  models.MaterializeSessionSnapshot(&user),
		"token": token,
	})
}

// Logout destroys the server-side session row.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}

	token := c.Get("Authorization")
	if parts := strings.SplitN(token, " ", 2); len(parts) == 2 {
		token = parts[1]
	}

	if err := h.db.Where("token = ? AND user_id = ?", token, user.ID).
		Delete(&models.Session{}).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"ok": true})
}

// Me reloads the authenticated user and returns a fresh snapshot. The auth
// middleware already re-synced the admin flag.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}

	return c.JSON(fiber.Map{"user": models.MaterializeSessionSnapshot(user)})
}

type updateProfileRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// UpdateProfile updates name/phone/address. Changing the phone resets
// phone_verified.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" || req.Phone == "" || req.Address == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Name, phone, and address are required")
	}

	phoneNorm := utils.NormalizePhone(req.Phone)
	if err := h.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"name":           req.Name,
		"phone":          phoneNorm,
		"address":        req.Address,
		"phone_verified": false,
	}).Error; err != nil {
		return err
	}

	user.Name = req.Name
	user.Phone = phoneNorm
	user.Address = req.Address
	user.PhoneVerified = false

	return c.JSON(fiber.Map{"ok": true, "user": models.MaterializeSessionSnapshot(user)})
}

// issueEmailOtp generates a 6-digit code, stores its bcrypt hash with a
// 5-minute expiry, and emails the code. Prior unconsumed challenges are left
// alone; verification only ever consults the newest one. Returns the clear
// code for the dev echo.
func (h *AuthHandler) issueEmailOtp(user *models.User) (string, error) {
	code, err := utils.GenerateOTPCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	codeHash, err := utils.HashOTPCode(code)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}

	otp := models.OtpLogin{
		UserID:    user.ID,
		Email:     user.Email,
		CodeHash:  codeHash,
		Attempts:  0,
		ExpiresAt: time.Now().Add(models.OtpTTL),
	}

	if err := h.db.Create(&otp).Error; err != nil {
		return "", err
	}

	subject := "Your RR Digi Media verification OTP"
	html := fmt.Sprintf(`
      <div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif">
        <h2 style="margin:0 0 10px">Verification code</h2>
        <p>Your one-time password (OTP) is:</p>
        <div style="font-size:28px;font-weight:800;letter-spacing:2px">%s</div>
        <p style="color:#6b7280">This code expires in 5 minutes. If you didn't request this, you can ignore this email.</p>
      </div>`, code)

	go h.mailer.SendEmail(user.Email, subject, html, nil)

	h.metrics.OtpIssued.Inc()
	return code, nil
}

// provisionAdminAccount creates the admin user with a random unusable
// password. The admin only ever authenticates via OTP.
func (h *AuthHandler) provisionAdminAccount(emailNorm string) (models.User, error) {
	passwordHash, err := utils.HashPassword(uuid.NewString())
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:         emailNorm,
		Name:          "Admin",
		PasswordHash:  passwordHash,
		IsAdmin:       true,
		EmailVerified: false,
		PhoneVerified: false,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (h *AuthHandler) createSession(userID uuid.UUID) (string, error) {
	token, err := utils.NewSessionToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	session := models.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(models.SessionTTL),
	}

	if err := h.db.Create(&session).Error; err != nil {
		return "", err
	}

	return token, nil
}
