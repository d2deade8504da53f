package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"
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
)

const paymentCurrency = "INR"

// PaymentHandler reconciles orders against the Razorpay gateway.
type PaymentHandler struct {
	db       *gorm.DB
	cfg      *config.Config
	razorpay *services.RazorpayClient
	metrics  *metrics.Metrics
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(db *gorm.DB, cfg *config.Config, razorpay *services.RazorpayClient, m *metrics.Metrics) *PaymentHandler {
	return &PaymentHandler{db: db, cfg: cfg, razorpay: razorpay, metrics: m}
}

type createPaymentRequest struct {
	OrderID string `json:"orderId"`
}

// CreatePaymentIntent creates (or idempotently reuses) a provider-side order
// for the caller's order. The returned amount reflects the provider's
// confirmed amount when a remote order is created.
func (h *PaymentHandler) CreatePaymentIntent(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}

	// Checked before any DB lookup; the feature may be disabled entirely.
	if !h.cfg.PaymentsConfigured() {
		return fiber.NewError(fiber.StatusNotImplemented, "Payments are not configured yet.")
	}

	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.OrderID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "orderId is required")
	}

	orderID, err := uuid.Parse(strings.TrimSpace(req.OrderID))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid orderId")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ? AND user_id = ?", orderID, user.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}
		return err
	}

	if order.Total <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "This order does not require payment.")
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return fiber.NewError(fiber.StatusBadRequest, "Order is already paid.")
	}

	amount := int64(math.Round(order.Total * 100))
	providerOrderID := order.PaymentOrderID

	// Reuse an existing provider order id if present so re-entry never
	// creates a duplicate remote order.
	if providerOrderID == "" {
		remote, err := h.razorpay.CreateOrder(amount, paymentCurrency, "order_"+order.ID.String())
		if err != nil {
			h.metrics.Payments.WithLabelValues("create", "error").Inc()
			return err
		}

		providerOrderID = remote.ID
		amount = remote.Amount

		if err := h.db.Model(&models.Order{}).
			Where("id = ? AND user_id = ?", order.ID, user.ID).
			Updates(map[string]any{
				"payment_provider": "razorpay",
				"payment_order_id": providerOrderID,
				"payment_status":   models.PaymentStatusCreated,
			}).Error; err != nil {
			return err
		}
	}

	h.metrics.Payments.WithLabelValues("create", "ok").Inc()
	return c.JSON(fiber.Map{
		"keyId":           h.cfg.RazorpayKeyID,
		"razorpayOrderId": providerOrderID,
		"amount":          amount,
		"currency":        paymentCurrency,
		"orderId":         order.ID,
	})
}

type verifyPaymentRequest struct {
	OrderID           string `json:"orderId"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// VerifyPayment checks the client-submitted provider signature and, on
// success, atomically transitions the order to paid.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}

	if !h.cfg.PaymentsConfigured() {
		return fiber.NewError(fiber.StatusNotImplemented, "Payments are not configured yet.")
	}

	var req verifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	rawOrderID := strings.TrimSpace(req.OrderID)
	providerOrderID := strings.TrimSpace(req.RazorpayOrderID)
	providerPaymentID := strings.TrimSpace(req.RazorpayPaymentID)
	signature := strings.TrimSpace(req.RazorpaySignature)

	if rawOrderID == "" || providerOrderID == "" || providerPaymentID == "" || signature == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing payment verification fields")
	}

	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid orderId")
	}

	if !verifyRazorpaySignature(h.cfg.RazorpayKeySecret, providerOrderID, providerPaymentID, signature) {
		h.metrics.Payments.WithLabelValues("verify", "invalid_signature").Inc()
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid payment signature")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ? AND user_id = ?", orderID, user.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}
		return err
	}

	// A signature for some other provider order must not pay for this one.
	if order.PaymentOrderID != "" && order.PaymentOrderID != providerOrderID {
		h.metrics.Payments.WithLabelValues("verify", "mismatch").Inc()
		return fiber.NewError(fiber.StatusConflict, "Payment order mismatch")
	}

	// Once paid, provider fields only change through the admin override.
	// Replaying the recorded capture is acknowledged; anything else is
	// rejected.
	if order.PaymentStatus == models.PaymentStatusPaid {
		if order.PaymentPaymentID == providerPaymentID {
			return c.JSON(fiber.Map{"ok": true})
		}
		h.metrics.Payments.WithLabelValues("verify", "already_paid").Inc()
		return fiber.NewError(fiber.StatusConflict, "Order is already paid.")
	}

	now := time.Now()
	if err := h.db.Model(&models.Order{}).
		Where("id = ? AND user_id = ?", order.ID, user.ID).
		Updates(map[string]any{
			"payment_provider":   "razorpay",
			"payment_order_id":   providerOrderID,
			"payment_payment_id": providerPaymentID,
			"payment_signature":  signature,
			"payment_status":     models.PaymentStatusPaid,
			"paid_at":            &now,
		}).Error; err != nil {
		return err
	}

	h.metrics.Payments.WithLabelValues("verify", "ok").Inc()
	return c.JSON(fiber.Map{"ok": true})
}

// computeRazorpaySignature returns the hex HMAC-SHA256 over
// "<orderID>|<paymentID>" keyed by the merchant secret.
func computeRazorpaySignature(secret, providerOrderID, providerPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(providerOrderID + "|" + providerPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyRazorpaySignature(secret, providerOrderID, providerPaymentID, signature string) bool {
	expected := computeRazorpaySignature(secret, providerOrderID, providerPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
