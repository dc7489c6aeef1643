package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainStatus represents the verification status of a custom domain
type DomainStatus string

const (
	DomainPending   DomainStatus = "PENDING"
	DomainVerifying DomainStatus = "VERIFYING"
	DomainVerified  DomainStatus = "VERIFIED"
	DomainFailed    DomainStatus = "FAILED"
)

// DomainType represents what a custom domain points at
type DomainType string

const (
	DomainTypeOrganization DomainType = "ORGANIZATION"
	DomainTypeEvent        DomainType = "EVENT"
)

// TLSStatus represents certificate provisioning state
type TLSStatus string

const (
	TLSPending TLSStatus = "PENDING"
	TLSIssued  TLSStatus = "ISSUED"
	TLSFailed  TLSStatus = "FAILED"
)

// CustomDomain maps a fully-qualified domain to an organization, and
// optionally to a single event within that organization. Only a VERIFIED
// domain participates in live tenant resolution.
type CustomDomain struct {
	BaseModel

	Domain string     `json:"domain" db:"domain"`
	Type   DomainType `json:"type" db:"type"`

	OrgID   uuid.UUID  `json:"orgId" db:"org_id"`
	EventID *uuid.UUID `json:"eventId,omitempty" db:"event_id"`

	IsPrimary bool `json:"isPrimary" db:"is_primary"`

	Status    DomainStatus `json:"status" db:"status"`
	TLSStatus TLSStatus    `json:"tlsStatus" db:"tls_status"`

	VerificationToken string     `json:"-" db:"verification_token"`
	VerifyAttempts    int        `json:"verifyAttempts" db:"verify_attempts"`
	LastCheckedAt     *time.Time `json:"lastCheckedAt,omitempty" db:"last_checked_at"`
	LastCheckError    string     `json:"lastCheckError,omitempty" db:"last_check_error"`
	VerifiedAt        *time.Time `json:"verifiedAt,omitempty" db:"verified_at"`

	CustomBranding Variables `json:"customBranding,omitempty" db:"custom_branding"`
}

// ErrInvalidTransition is returned for disallowed domain status changes
type ErrInvalidTransition struct {
	From DomainStatus
	To   DomainStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid domain status transition %s -> %s", e.From, e.To)
}

// CanSubmitForVerification reports whether the domain may be (re)submitted
// for a verification run. Only PENDING or FAILED domains qualify; a
// VERIFIED domain stays verified until explicit revocation.
func (d *CustomDomain) CanSubmitForVerification() bool {
	return d.Status == DomainPending || d.Status == DomainFailed
}

// SubmitForVerification moves the domain into VERIFYING
func (d *CustomDomain) SubmitForVerification() error {
	if !d.CanSubmitForVerification() {
		return &ErrInvalidTransition{From: d.Status, To: DomainVerifying}
	}
	d.Status = DomainVerifying
	d.VerifyAttempts = 0
	d.LastCheckError = ""
	return nil
}

// MarkVerified completes a verification run. Only a VERIFYING domain may
// become VERIFIED.
func (d *CustomDomain) MarkVerified(at time.Time) error {
	if d.Status != DomainVerifying {
		return &ErrInvalidTransition{From: d.Status, To: DomainVerified}
	}
	d.Status = DomainVerified
	d.VerifiedAt = &at
	d.LastCheckError = ""
	return nil
}

// MarkFailed terminates a verification run with an error
func (d *CustomDomain) MarkFailed(reason string) error {
	if d.Status != DomainVerifying {
		return &ErrInvalidTransition{From: d.Status, To: DomainFailed}
	}
	d.Status = DomainFailed
	d.LastCheckError = reason
	return nil
}

// Revoke explicitly withdraws a verified domain, e.g. after an ownership
// dispute. The domain must be re-verified before it resolves again.
func (d *CustomDomain) Revoke() error {
	if d.Status != DomainVerified {
		return &ErrInvalidTransition{From: d.Status, To: DomainPending}
	}
	d.Status = DomainPending
	d.VerifiedAt = nil
	d.IsPrimary = false
	return nil
}
