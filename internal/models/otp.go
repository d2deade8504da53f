package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxOtpAttempts permanently blocks a challenge once reached.
const MaxOtpAttempts = 5

// OtpTTL is how long an issued code stays valid.
const OtpTTL = 5 * time.Minute

// OtpLogin is a single one-time-code challenge. Codes are bcrypt-hashed,
// never stored in clear. Old rows accumulate; only the newest unconsumed row
// per email is ever trusted during verification.
type OtpLogin struct {
	BaseModel
	UserID     uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	Email      string     `gorm:"index" json:"email"`
	CodeHash   string     `json:"-"`
	Attempts   int        `json:"attempts"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
}

// Expired reports whether the challenge is past its expiry, checked lazily
// at verification time.
func (o *OtpLogin) Expired(now time.Time) bool {
	return o.ExpiresAt.Before(now)
}

// Blocked reports whether the attempt counter exhausted the challenge.
func (o *OtpLogin) Blocked() bool {
	return o.Attempts >= MaxOtpAttempts
}
