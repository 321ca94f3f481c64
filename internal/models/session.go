package models

import "time"

// SessionRecord is the durable client session: one row per browser, keyed by the
// opaque client-key cookie. It mirrors what the web app previously persisted in
// local storage under a fixed storage name.
type SessionRecord struct {
	Base
	ClientKey       string    `json:"client_key"    gorm:"uniqueIndex;not null"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	IsEmailVerified bool      `json:"is_email_verified"`
	IsLoggedIn      bool      `json:"is_logged_in"`
	LastVerified    time.Time `json:"last_verified"`
}

func (SessionRecord) TableName() string { return "session_records" }
