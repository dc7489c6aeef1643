package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventreg/eventreg-server/internal/models"
)

// ========== Organization methods ==========

// CreateOrganization creates a new organization
func (s *PostgresStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}

	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now

	query := `
        INSERT INTO organizations (
            id, created_at, updated_at, slug, name, description,
            default_locale, default_currency, timezone,
            is_active, is_verified, suspended_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		org.ID, org.CreatedAt, org.UpdatedAt, org.Slug, org.Name,
		org.Description, org.DefaultLocale, org.DefaultCurrency, org.Timezone,
		org.IsActive, org.IsVerified, org.SuspendedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetOrganization gets an organization by ID
func (s *PostgresStore) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return s.scanOrganization(s.getDB().QueryRowContext(ctx, orgSelect+` WHERE id = $1`, id))
}

// GetOrganizationBySlug gets an organization by slug
func (s *PostgresStore) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return s.scanOrganization(s.getDB().QueryRowContext(ctx, orgSelect+` WHERE slug = $1`, slug))
}

const orgSelect = `
        SELECT id, created_at, updated_at, slug, name, description,
               default_locale, default_currency, timezone,
               is_active, is_verified, suspended_at
        FROM organizations`

func (s *PostgresStore) scanOrganization(row *sql.Row) (*models.Organization, error) {
	org := &models.Organization{}
	err := row.Scan(
		&org.ID, &org.CreatedAt, &org.UpdatedAt, &org.Slug, &org.Name,
		&org.Description, &org.DefaultLocale, &org.DefaultCurrency,
		&org.Timezone, &org.IsActive, &org.IsVerified, &org.SuspendedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return org, err
}

// UpdateOrganization updates an organization
func (s *PostgresStore) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now()

	query := `
        UPDATE organizations
        SET updated_at = $2, slug = $3, name = $4, description = $5,
            default_locale = $6, default_currency = $7, timezone = $8,
            is_active = $9, is_verified = $10, suspended_at = $11
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		org.ID, org.UpdatedAt, org.Slug, org.Name, org.Description,
		org.DefaultLocale, org.DefaultCurrency, org.Timezone,
		org.IsActive, org.IsVerified, org.SuspendedAt,
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

// DeleteOrganization deletes an organization. Organizations that still own
// events are protected by a foreign key and return ErrInvalidData.
func (s *PostgresStore) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return ErrInvalidData
		}
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListOrganizations lists organizations with pagination
func (s *PostgresStore) ListOrganizations(ctx context.Context, limit, offset int) ([]*models.Organization, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := orgSelect + `
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org := &models.Organization{}
		if err := rows.Scan(
			&org.ID, &org.CreatedAt, &org.UpdatedAt, &org.Slug, &org.Name,
			&org.Description, &org.DefaultLocale, &org.DefaultCurrency,
			&org.Timezone, &org.IsActive, &org.IsVerified, &org.SuspendedAt,
		); err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, org)
	}

	return orgs, total, rows.Err()
}
