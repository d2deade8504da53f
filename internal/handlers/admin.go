package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/rrdigi/internal/models"
	"github.com/example/rrdigi/internal/utils"
)

// AdminHandler manages admin-only order endpoints.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// ListOrders returns all orders with customer info, optional status/search
// filters, sorting, and pagination.
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{}).
		Select("orders.*").
		Joins("JOIN users ON users.id = orders.user_id")

	if status := c.Query("status"); status != "" {
		query = query.Where("orders.status = ?", status)
	}

	if q := c.Query("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where(
			"users.email ILIKE ? OR users.name ILIKE ? OR orders.id::text ILIKE ?",
			pattern, pattern, pattern,
		)
	}

	query = query.Order(adminOrderSort(c.Query("sort")))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("User").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	out := make([]fiber.Map, 0, len(orders))
	for i := range orders {
		resp := orderResponse(&orders[i])
		if u := orders[i].User; u != nil {
			resp["user_email"] = u.Email
			resp["user_name"] = u.Name
			resp["user_phone"] = u.Phone
		}
		out = append(out, resp)
	}

	return c.JSON(fiber.Map{
		"orders": out,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

func adminOrderSort(sort string) string {
	switch sort {
	case "total_asc":
		return "orders.total asc"
	case "total_desc":
		return "orders.total desc"
	case "status":
		return "orders.status asc"
	default:
		return "orders.created_at desc"
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves an order through its lifecycle.
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if !allowedOrderStatus(req.Status) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid status")
	}

	if err := h.db.Model(&models.Order{}).Where("id = ?", id).
		Update("status", req.Status).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"ok": true})
}

type updatePaymentStatusRequest struct {
	Status string `json:"status"`
}

// UpdatePaymentStatus overrides the payment sub-state, e.g. for offline
// payments. Reverting to unpaid clears all provider fields in one statement.
func (h *AdminHandler) UpdatePaymentStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updatePaymentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))

	switch status {
	case models.PaymentStatusPaid:
		now := time.Now()
		if err := h.db.Model(&models.Order{}).Where("id = ?", id).
			Updates(map[string]any{
				"payment_status":   models.PaymentStatusPaid,
				"payment_provider": "offline",
				"paid_at":          &now,
			}).Error; err != nil {
			return err
		}
	case models.PaymentStatusUnpaid:
		if err := h.db.Model(&models.Order{}).Where("id = ?", id).
			Updates(map[string]any{
				"payment_status":     models.PaymentStatusUnpaid,
				"payment_provider":   "",
				"payment_order_id":   "",
				"payment_payment_id": "",
				"payment_signature":  "",
				"paid_at":            nil,
			}).Error; err != nil {
			return err
		}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payment status")
	}

	return c.JSON(fiber.Map{"ok": true})
}

func allowedOrderStatus(status string) bool {
	for _, allowed := range models.AllowedOrderStatuses {
		if status == allowed {
			return true
		}
	}
	return false
}
