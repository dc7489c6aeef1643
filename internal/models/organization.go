package models

import (
	"time"
)

// Organization represents a tenant organization
type Organization struct {
	BaseModel

	Slug string `json:"slug" db:"slug"`
	Name string `json:"name" db:"name"`

	Description string `json:"description,omitempty" db:"description"`

	// Defaults applied to new events and public pages
	DefaultLocale   string `json:"defaultLocale" db:"default_locale"`
	DefaultCurrency string `json:"defaultCurrency" db:"default_currency"`
	Timezone        string `json:"timezone" db:"timezone"`

	// Status
	IsActive    bool       `json:"isActive" db:"is_active"`
	IsVerified  bool       `json:"isVerified" db:"is_verified"`
	SuspendedAt *time.Time `json:"suspendedAt,omitempty" db:"suspended_at"`
}
