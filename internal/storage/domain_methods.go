package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventreg/eventreg-server/internal/models"
)

// ========== Custom domain methods ==========

const domainSelect = `
        SELECT id, created_at, updated_at, domain, type, org_id, event_id,
               is_primary, status, tls_status, verification_token,
               verify_attempts, last_checked_at, last_check_error,
               verified_at, custom_branding
        FROM custom_domains`

// CreateCustomDomain creates a new custom domain
func (s *PostgresStore) CreateCustomDomain(ctx context.Context, domain *models.CustomDomain) error {
	if domain.ID == uuid.Nil {
		domain.ID = uuid.New()
	}

	now := time.Now()
	domain.CreatedAt = now
	domain.UpdatedAt = now

	if domain.Status == "" {
		domain.Status = models.DomainPending
	}
	if domain.TLSStatus == "" {
		domain.TLSStatus = models.TLSPending
	}

	query := `
        INSERT INTO custom_domains (
            id, created_at, updated_at, domain, type, org_id, event_id,
            is_primary, status, tls_status, verification_token,
            verify_attempts, last_checked_at, last_check_error,
            verified_at, custom_branding
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
            $15, $16
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		domain.ID, domain.CreatedAt, domain.UpdatedAt, domain.Domain,
		domain.Type, domain.OrgID, domain.EventID, domain.IsPrimary,
		domain.Status, domain.TLSStatus, domain.VerificationToken,
		domain.VerifyAttempts, domain.LastCheckedAt, domain.LastCheckError,
		domain.VerifiedAt, domain.CustomBranding,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

func (s *PostgresStore) scanCustomDomain(row *sql.Row) (*models.CustomDomain, error) {
	d := &models.CustomDomain{}
	err := row.Scan(
		&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.Domain, &d.Type, &d.OrgID,
		&d.EventID, &d.IsPrimary, &d.Status, &d.TLSStatus,
		&d.VerificationToken, &d.VerifyAttempts, &d.LastCheckedAt,
		&d.LastCheckError, &d.VerifiedAt, &d.CustomBranding,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return d, err
}

// GetCustomDomain gets a custom domain by ID
func (s *PostgresStore) GetCustomDomain(ctx context.Context, id uuid.UUID) (*models.CustomDomain, error) {
	return s.scanCustomDomain(s.getDB().QueryRowContext(ctx, domainSelect+` WHERE id = $1`, id))
}

// GetCustomDomainByName gets a custom domain by its domain name
func (s *PostgresStore) GetCustomDomainByName(ctx context.Context, domain string) (*models.CustomDomain, error) {
	return s.scanCustomDomain(s.getDB().QueryRowContext(ctx, domainSelect+` WHERE domain = $1`, domain))
}

// UpdateCustomDomain updates a custom domain
func (s *PostgresStore) UpdateCustomDomain(ctx context.Context, domain *models.CustomDomain) error {
	domain.UpdatedAt = time.Now()

	query := `
        UPDATE custom_domains
        SET updated_at = $2, domain = $3, type = $4, event_id = $5,
            is_primary = $6, status = $7, tls_status = $8,
            verification_token = $9, verify_attempts = $10,
            last_checked_at = $11, last_check_error = $12, verified_at = $13,
            custom_branding = $14
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		domain.ID, domain.UpdatedAt, domain.Domain, domain.Type,
		domain.EventID, domain.IsPrimary, domain.Status, domain.TLSStatus,
		domain.VerificationToken, domain.VerifyAttempts, domain.LastCheckedAt,
		domain.LastCheckError, domain.VerifiedAt, domain.CustomBranding,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteCustomDomain deletes a custom domain
func (s *PostgresStore) DeleteCustomDomain(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, `DELETE FROM custom_domains WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListCustomDomains lists custom domains of an organization with pagination
func (s *PostgresStore) ListCustomDomains(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.CustomDomain, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM custom_domains WHERE org_id = $1`, orgID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := domainSelect + `
        WHERE org_id = $1
        ORDER BY created_at
        LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var domains []*models.CustomDomain
	for rows.Next() {
		d := &models.CustomDomain{}
		if err := rows.Scan(
			&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.Domain, &d.Type, &d.OrgID,
			&d.EventID, &d.IsPrimary, &d.Status, &d.TLSStatus,
			&d.VerificationToken, &d.VerifyAttempts, &d.LastCheckedAt,
			&d.LastCheckError, &d.VerifiedAt, &d.CustomBranding,
		); err != nil {
			return nil, 0, err
		}
		domains = append(domains, d)
	}

	return domains, total, rows.Err()
}

// SetPrimaryDomain marks the domain as primary for its target, clearing the
// previous primary for the same target in one transaction. Every row of the
// target is locked up front: locking only the submitted row would let two
// concurrent calls for different domains of the same target interleave their
// clear and set and commit two primaries.
func (s *PostgresStore) SetPrimaryDomain(ctx context.Context, id uuid.UUID) error {
	txStore, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	tx := txStore.(*PostgresStore)
	defer tx.Rollback()

	var orgID uuid.UUID
	var eventID *uuid.UUID
	err = tx.getDB().QueryRowContext(ctx,
		`SELECT org_id, event_id FROM custom_domains WHERE id = $1`, id,
	).Scan(&orgID, &eventID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.getDB().ExecContext(ctx,
		`SELECT id FROM custom_domains
         WHERE org_id = $1 AND event_id IS NOT DISTINCT FROM $2
         FOR UPDATE`,
		orgID, eventID,
	); err != nil {
		return err
	}

	// Re-read under the lock; the row may have changed while the lock was
	// being granted.
	d, err := tx.scanCustomDomain(tx.getDB().QueryRowContext(ctx,
		domainSelect+` WHERE id = $1`, id))
	if err != nil {
		return err
	}

	if d.Status != models.DomainVerified {
		return fmt.Errorf("%w: domain must be verified to become primary", ErrInvalidData)
	}

	if _, err := tx.getDB().ExecContext(ctx,
		`UPDATE custom_domains SET is_primary = false, updated_at = $3
         WHERE org_id = $1 AND event_id IS NOT DISTINCT FROM $2 AND is_primary = true`,
		d.OrgID, d.EventID, time.Now(),
	); err != nil {
		return err
	}

	if _, err := tx.getDB().ExecContext(ctx,
		`UPDATE custom_domains SET is_primary = true, updated_at = $2 WHERE id = $1`,
		d.ID, time.Now(),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetPrimaryDomain returns the primary verified domain for an organization
// (eventID nil) or an event. Two primaries for one target should be
// prevented at write time; if it happens anyway the most recently verified
// wins and the condition is logged.
func (s *PostgresStore) GetPrimaryDomain(ctx context.Context, orgID uuid.UUID, eventID *uuid.UUID) (*models.CustomDomain, error) {
	where := ` WHERE org_id = $1 AND event_id IS NULL AND is_primary = true AND status = 'VERIFIED'`
	args := []interface{}{orgID}
	if eventID != nil {
		where = ` WHERE org_id = $1 AND event_id = $2 AND is_primary = true AND status = 'VERIFIED'`
		args = append(args, *eventID)
	}

	var count int64
	if err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM custom_domains`+where, args...,
	).Scan(&count); err != nil {
		return nil, err
	}

	if count > 1 {
		log.Warn().
			Str("org_id", orgID.String()).
			Int64("count", count).
			Msg("Multiple primary domains for one target, picking most recently verified")
	}

	return s.scanCustomDomain(s.getDB().QueryRowContext(ctx,
		domainSelect+where+` ORDER BY verified_at DESC, domain LIMIT 1`, args...))
}
