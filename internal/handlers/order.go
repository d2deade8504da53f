package handlers

import (
	"encoding/json"
	"fmt"
	"html"
	"log"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/rrdigi/internal/config"
	"github.com/example/rrdigi/internal/metrics"
	"github.com/example/rrdigi/internal/middleware"
	"github.com/example/rrdigi/internal/models"
	"github.com/example/rrdigi/internal/services"
)

// Upload limits for order attachments.
const (
	maxOrderFiles    = 8
	maxOrderFileSize = 10 * 1024 * 1024
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	db      *gorm.DB
	cfg     *config.Config
	mailer  *services.Mailer
	metrics *metrics.Metrics
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, cfg *config.Config, mailer *services.Mailer, m *metrics.Metrics) *OrderHandler {
	return &OrderHandler{db: db, cfg: cfg, mailer: mailer, metrics: m}
}

// CreateOrder places a print order with up to 8 attached files (images or
// PDFs, 10 MB each). The business email notification is best-effort and
// never fails the request.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
	}

	uploads := form.File["images"]
	if err := validateOrderFiles(uploads); err != nil {
		return err
	}

	files := make([]models.OrderFile, 0, len(uploads))
	for _, upload := range uploads {
		storedName := fmt.Sprintf("%d-%s", time.Now().UnixNano(), sanitizeFilename(upload.Filename))
		absPath := filepath.Join(h.cfg.UploadDir, storedName)
		if err := c.SaveFile(upload, absPath); err != nil {
			return fmt.Errorf("save upload: %w", err)
		}

		files = append(files, models.OrderFile{
			Filename:     storedName,
			Path:         "/uploads/" + storedName,
			OriginalName: upload.Filename,
			MimeType:     upload.Header.Get("Content-Type"),
			Size:         upload.Size,
			AbsolutePath: absPath,
		})
	}

	filesJSON, err := json.Marshal(files)
	if err != nil {
		return err
	}

	size := formValue(form, "size")
	if size == "" {
		size = formValue(form, "sizeSelect")
	}

	order := models.Order{
		UserID:        user.ID,
		ServiceType:   formValueDefault(form, "serviceType", "print"),
		Size:          size,
		CustomW:       formFloat(form, "customW"),
		CustomH:       formFloat(form, "customH"),
		Finish:        formValueDefault(form, "finish", "vinyl"),
		Quantity:      formIntDefault(form, "quantity", 1),
		Delivery:      formValueDefault(form, "delivery", "deliver"),
		Instructions:  formValue(form, "instructions"),
		Price:         formFloat(form, "price"),
		DeliveryFee:   formFloat(form, "deliveryFee"),
		Total:         formFloat(form, "total"),
		Files:         filesJSON,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
	}

	if err := h.db.Create(&order).Error; err != nil {
		return err
	}

	go h.notifyNewOrder(order, user, files)

	h.metrics.OrdersCreated.Inc()
	return c.JSON(fiber.Map{"ok": true, "orderId": order.ID})
}

// MyOrders returns the caller's orders, newest first, with file descriptors
// decoded.
func (h *OrderHandler) MyOrders(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}

	var orders []models.Order
	if err := h.db.Where("user_id = ?", user.ID).
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"orders": orderResponses(orders)})
}

func validateOrderFiles(uploads []*multipart.FileHeader) error {
	if len(uploads) > maxOrderFiles {
		return fiber.NewError(fiber.StatusBadRequest, "Too many files. Max 8 files.")
	}

	for _, upload := range uploads {
		if upload.Size > maxOrderFileSize {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "File too large. Max 10MB per file.")
		}
		if !allowedUploadType(upload.Header.Get("Content-Type")) {
			return fiber.NewError(fiber.StatusBadRequest, "Only image files and PDF are allowed.")
		}
	}

	return nil
}

func allowedUploadType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func sanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(filepath.Base(name), "_")
}

// orderResponses decodes the jsonb files blob for client consumption.
func orderResponses(orders []models.Order) []fiber.Map {
	out := make([]fiber.Map, 0, len(orders))
	for i := range orders {
		out = append(out, orderResponse(&orders[i]))
	}
	return out
}

func orderResponse(o *models.Order) fiber.Map {
	var files []models.OrderFile
	if len(o.Files) > 0 {
		if err := json.Unmarshal(o.Files, &files); err != nil {
			log.Printf("[orders] decode files for order %s: %v", o.ID, err)
		}
	}
	if files == nil {
		files = []models.OrderFile{}
	}

	return fiber.Map{
		"id":                 o.ID,
		"user_id":            o.UserID,
		"service_type":       o.ServiceType,
		"size":               o.Size,
		"custom_w":           o.CustomW,
		"custom_h":           o.CustomH,
		"finish":             o.Finish,
		"quantity":           o.Quantity,
		"delivery":           o.Delivery,
		"instructions":       o.Instructions,
		"price":              o.Price,
		"delivery_fee":       o.DeliveryFee,
		"total":              o.Total,
		"files":              files,
		"status":             o.Status,
		"payment_status":     o.PaymentStatus,
		"payment_provider":   o.PaymentProvider,
		"payment_order_id":   o.PaymentOrderID,
		"payment_payment_id": o.PaymentPaymentID,
		"paid_at":            o.PaidAt,
		"created_at":         o.CreatedAt,
	}
}

func (h *OrderHandler) notifyNewOrder(order models.Order, user *models.User, files []models.OrderFile) {
	esc := html.EscapeString

	sizeLine := esc(order.Size)
	if order.Size == "custom" {
		sizeLine = fmt.Sprintf("%s (%gx%g ft)", sizeLine, order.CustomW, order.CustomH)
	}

	filesLine := "No files attached."
	if len(files) > 0 {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, esc(f.OriginalName))
		}
		filesLine = fmt.Sprintf("Files (%d): %s", len(files), strings.Join(names, ", "))
	}

	body := fmt.Sprintf(`
      <div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif">
        <h2 style="margin:0 0 10px;color:#d7261b">New Order %s</h2>
        <table style="width:100%%;border-collapse:collapse" cellpadding="6">
          <tr><td style="border:1px solid #eee"><strong>Customer</strong></td><td style="border:1px solid #eee">%s &lt;%s&gt;<br>%s</td></tr>
          <tr><td style="border:1px solid #eee"><strong>Address</strong></td><td style="border:1px solid #eee">%s</td></tr>
          <tr><td style="border:1px solid #eee"><strong>Service</strong></td><td style="border:1px solid #eee">%s</td></tr>
          <tr><td style="border:1px solid #eee"><strong>Size</strong></td><td style="border:1px solid #eee">%s</td></tr>
          <tr><td style="border:1px solid #eee"><strong>Finish / Qty</strong></td><td style="border:1px solid #eee">%s / %d</td></tr>
          <tr><td style="border:1px solid #eee"><strong>Delivery</strong></td><td style="border:1px solid #eee">%s</td></tr>
          <tr><td style="border:1px solid #eee"><strong>Totals</strong></td><td style="border:1px solid #eee">Price: %.2f + Delivery: %.2f = <strong>Total: %.2f</strong></td></tr>
        </table>
        <div style="margin-top:14px;padding:12px;border-radius:8px;background:#fff3cd;border:1px solid #ffeeba">
          <div style="font-weight:700;color:#856404;margin-bottom:6px">Design Instructions</div>
          <div style="white-space:pre-wrap;color:#343a40">%s</div>
        </div>
        <div style="margin-top:10px;color:#6b7280;font-size:14px">%s</div>
      </div>`,
		esc(order.ID.String()),
		esc(user.Name), esc(user.Email), esc(user.Phone),
		esc(user.Address),
		esc(order.ServiceType),
		sizeLine,
		esc(order.Finish), order.Quantity,
		esc(order.Delivery),
		order.Price, order.DeliveryFee, order.Total,
		esc(order.Instructions),
		filesLine,
	)

	attachments := make([]services.Attachment, 0, len(files))
	for _, f := range files {
		attachments = append(attachments, services.Attachment{
			Filename:    f.OriginalName,
			Path:        f.AbsolutePath,
			ContentType: f.MimeType,
		})
	}

	subject := fmt.Sprintf("New Order #%s from %s", order.ID, user.Email)
	h.mailer.SendEmail(h.cfg.BusinessEmail, subject, body, attachments)
}

func formValue(form *multipart.Form, key string) string {
	if values, ok := form.Value[key]; ok && len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func formValueDefault(form *multipart.Form, key, fallback string) string {
	if v := formValue(form, key); v != "" {
		return v
	}
	return fallback
}

func formFloat(form *multipart.Form, key string) float64 {
	if parsed, err := strconv.ParseFloat(formValue(form, key), 64); err == nil {
		return parsed
	}
	return 0
}

func formIntDefault(form *multipart.Form, key string, fallback int) int {
	if parsed, err := strconv.Atoi(formValue(form, key)); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}
