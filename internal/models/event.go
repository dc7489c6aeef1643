package models

import (
	"time"
)

// EventStatus represents the lifecycle status of an event
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// EventVisibility represents event visibility
type EventVisibility string

const (
	VisibilityPublic  EventVisibility = "public"
	VisibilityPrivate EventVisibility = "private"
)

// Event represents an event owned by an organization.
// The slug is unique within the owning organization, not globally.
type Event struct {
	OrgModel

	Slug  string `json:"slug" db:"slug"`
	Title string `json:"title" db:"title"`

	Description string `json:"description,omitempty" db:"description"`

	Status     EventStatus     `json:"status" db:"status"`
	Visibility EventVisibility `json:"visibility" db:"visibility"`

	DefaultLocale    string      `json:"defaultLocale" db:"default_locale"`
	SupportedLocales StringArray `json:"supportedLocales" db:"supported_locales"`

	// Registration window
	RegistrationStart time.Time  `json:"registrationStart" db:"registration_start"`
	RegistrationEnd   time.Time  `json:"registrationEnd" db:"registration_end"`
	EarlyBirdEnd      *time.Time `json:"earlyBirdEnd,omitempty" db:"early_bird_end"`

	// Event dates
	StartDate time.Time `json:"startDate" db:"start_date"`
	EndDate   time.Time `json:"endDate" db:"end_date"`

	Capacity int `json:"capacity" db:"capacity"`

	// Pricing tiers in the organization's currency
	RegularPrice   int64 `json:"regularPrice" db:"regular_price"`
	EarlyBirdPrice int64 `json:"earlyBirdPrice" db:"early_bird_price"`

	RequiresApproval bool `json:"requiresApproval" db:"requires_approval"`
}

// CanTransitionTo reports whether the event status may change to next
func (e *Event) CanTransitionTo(next EventStatus) bool {
	switch e.Status {
	case EventDraft:
		return next == EventPublished || next == EventCancelled
	case EventPublished:
		return next == EventCancelled || next == EventCompleted
	default:
		// cancelled and completed are terminal
		return false
	}
}

// IsPubliclyResolvable reports whether the event may be served on
// public routes and custom domains
func (e *Event) IsPubliclyResolvable() bool {
	return e.Status == EventPublished && e.Visibility == VisibilityPublic
}

// RegistrationOpenAt reports whether registrations are accepted at t
func (e *Event) RegistrationOpenAt(t time.Time) bool {
	if e.Status != EventPublished {
		return false
	}
	return !t.Before(e.RegistrationStart) && !t.After(e.RegistrationEnd)
}

// PriceAt returns the applicable price for a registration made at t
func (e *Event) PriceAt(t time.Time) int64 {
	if e.EarlyBirdEnd != nil && !t.After(*e.EarlyBirdEnd) {
		return e.EarlyBirdPrice
	}
	return e.RegularPrice
}
