package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionTTL bounds how long an issued session token stays valid.
const SessionTTL = 7 * 24 * time.Hour

// Session is a server-side session row keyed by an opaque bearer token.
// Expired rows are rejected lazily by the auth middleware.
type Session struct {
	BaseModel
	Token     string    `gorm:"uniqueIndex" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
