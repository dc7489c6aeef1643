package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventreg/eventreg-server/internal/models"
)

// ========== Registration methods ==========

const registrationSelect = `
        SELECT id, created_at, updated_at, event_id, user_id, email, name,
               status, total_amount, discount_amount, discount_reason,
               requires_approval, form_data
        FROM registrations`

// CreateRegistration creates a new registration
func (s *PostgresStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}

	now := time.Now()
	reg.CreatedAt = now
	reg.UpdatedAt = now

	if reg.Status == "" {
		reg.Status = models.RegistrationPending
	}

	query := `
        INSERT INTO registrations (
            id, created_at, updated_at, event_id, user_id, email, name,
            status, total_amount, discount_amount, discount_reason,
            requires_approval, form_data
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		reg.ID, reg.CreatedAt, reg.UpdatedAt, reg.EventID, reg.UserID,
		reg.Email, reg.Name, reg.Status, reg.TotalAmount, reg.DiscountAmount,
		reg.DiscountReason, reg.RequiresApproval, reg.FormData,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetRegistration gets a registration by ID
func (s *PostgresStore) GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	reg := &models.Registration{}
	err := s.getDB().QueryRowContext(ctx, registrationSelect+` WHERE id = $1`, id).Scan(
		&reg.ID, &reg.CreatedAt, &reg.UpdatedAt, &reg.EventID, &reg.UserID,
		&reg.Email, &reg.Name, &reg.Status, &reg.TotalAmount,
		&reg.DiscountAmount, &reg.DiscountReason, &reg.RequiresApproval,
		&reg.FormData,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return reg, err
}

// UpdateRegistration updates a registration
func (s *PostgresStore) UpdateRegistration(ctx context.Context, reg *models.Registration) error {
	reg.UpdatedAt = time.Now()

	query := `
        UPDATE registrations
        SET updated_at = $2, status = $3, total_amount = $4,
            discount_amount = $5, discount_reason = $6,
            requires_approval = $7, form_data = $8, email = $9, name = $10
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		reg.ID, reg.UpdatedAt, reg.Status, reg.TotalAmount,
		reg.DiscountAmount, reg.DiscountReason, reg.RequiresApproval,
		reg.FormData, reg.Email, reg.Name,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListRegistrations lists registrations of an event with pagination
func (s *PostgresStore) ListRegistrations(ctx context.Context, eventID uuid.UUID, limit, offset int) ([]*models.Registration, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := registrationSelect + `
        WHERE event_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, eventID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var regs []*models.Registration
	for rows.Next() {
		reg := &models.Registration{}
		if err := rows.Scan(
			&reg.ID, &reg.CreatedAt, &reg.UpdatedAt, &reg.EventID,
			&reg.UserID, &reg.Email, &reg.Name, &reg.Status,
			&reg.TotalAmount, &reg.DiscountAmount, &reg.DiscountReason,
			&reg.RequiresApproval, &reg.FormData,
		); err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}

	return regs, total, rows.Err()
}

// CountActiveRegistrations counts non-cancelled registrations of an event,
// used against the event capacity
func (s *PostgresStore) CountActiveRegistrations(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status != 'cancelled'`,
		eventID,
	).Scan(&count)
	return count, err
}
