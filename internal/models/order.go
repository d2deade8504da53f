package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses an admin may set.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusDesigning = "designing"
	OrderStatusPrinting  = "printing"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Payment sub-states.
const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusCreated = "created"
	PaymentStatusPaid    = "paid"
)

// AllowedOrderStatuses is the full admin-settable lifecycle set.
var AllowedOrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusDesigning,
	OrderStatusPrinting,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// Order is a single print order together with its payment sub-state.
// Attached file descriptors are stored as a jsonb blob in upload order.
type Order struct {
	BaseModel
	UserID       uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User         *User     `json:"user,omitempty"`
	ServiceType  string    `json:"service_type"`
	Size         string    `json:"size"`
	CustomW      float64   `json:"custom_w"`
	CustomH      float64   `json:"custom_h"`
	Finish       string    `json:"finish"`
	Quantity     int       `json:"quantity"`
	Delivery     string    `json:"delivery"`
	Instructions string    `json:"instructions"`
	Price        float64   `json:"price"`
	DeliveryFee  float64   `json:"delivery_fee"`
	Total        float64   `json:"total"`
	Files        []byte    `gorm:"type:jsonb" json:"-"`
	Status       string    `json:"status"`

	PaymentStatus    string     `json:"payment_status"`
	PaymentProvider  string     `json:"payment_provider"`
	PaymentOrderID   string     `json:"payment_order_id"`
	PaymentPaymentID string     `json:"payment_payment_id"`
	PaymentSignature string     `json:"payment_signature"`
	PaidAt           *time.Time `json:"paid_at"`
}

// OrderFile describes one uploaded attachment.
type OrderFile struct {
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
	AbsolutePath string `json:"absolutePath"`
}
