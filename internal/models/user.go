package models

import (
	"gorm.io/gorm"
)

// User represents a customer account. Email is the login identity and is
// stored normalized (trimmed, lowercased).
type User struct {
	BaseModel
	Email         string  `gorm:"uniqueIndex" json:"email"`
	Name          string  `json:"name"`
	PasswordHash  string  `json:"-"`
	Phone         string  `json:"phone"`
	Address       string  `json:"address"`
	IsAdmin       bool    `json:"is_admin"`
	EmailVerified bool    `json:"email_verified"`
	PhoneVerified bool    `json:"phone_verified"`
	Orders        []Order `json:"orders,omitempty"`
}

// SessionSnapshot is the subset of user fields exposed to the client after
// authentication.
type SessionSnapshot struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	IsAdmin       bool   `json:"is_admin"`
	EmailVerified bool   `json:"email_verified"`
	PhoneVerified bool   `json:"phone_verified"`
}

// MaterializeSessionSnapshot builds the client-visible view of a user.
func MaterializeSessionSnapshot(u *User) SessionSnapshot {
	return SessionSnapshot{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          u.Name,
		Phone:         u.Phone,
		Address:       u.Address,
		IsAdmin:       u.IsAdmin,
		EmailVerified: u.EmailVerified,
		PhoneVerified: u.PhoneVerified,
	}
}

// SyncAdminFlag recomputes whether the user should be admin from the
// configured admin email and persists a correction when the stored flag
// disagrees. It runs on every path that loads a full user record, so stale
// configuration self-heals on the next interaction.
func SyncAdminFlag(db *gorm.DB, user *User, adminEmail string) error {
	shouldBeAdmin := adminEmail != "" && adminEmail == user.Email
	if user.IsAdmin == shouldBeAdmin {
		return nil
	}

	if err := db.Model(&User{}).Where("id = ?", user.ID).
		Update("is_admin", shouldBeAdmin).Error; err != nil {
		return err
	}
	user.IsAdmin = shouldBeAdmin
	return nil
}
