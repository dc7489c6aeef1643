package models

import (
	"github.com/google/uuid"
)

// RegistrationStatus represents the status of a registration
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// Registration represents a participant registration for an event. The
// owning organization is not stored here; it is derived through the event,
// and authorization checks must perform that derivation explicitly.
type Registration struct {
	BaseModel

	EventID uuid.UUID `json:"eventId" db:"event_id"`

	// Nil for guest registrations
	UserID *uuid.UUID `json:"userId,omitempty" db:"user_id"`

	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`

	Status RegistrationStatus `json:"status" db:"status"`

	TotalAmount    int64  `json:"totalAmount" db:"total_amount"`
	DiscountAmount int64  `json:"discountAmount" db:"discount_amount"`
	DiscountReason string `json:"discountReason,omitempty" db:"discount_reason"`

	RequiresApproval bool `json:"requiresApproval" db:"requires_approval"`

	// Free-form answers to the registration form
	FormData Variables `json:"formData,omitempty" db:"form_data"`
}

// OwnedBy reports whether the registration belongs to the given user
func (r *Registration) OwnedBy(userID uuid.UUID) bool {
	return r.UserID != nil && *r.UserID == userID
}
