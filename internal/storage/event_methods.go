package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventreg/eventreg-server/internal/models"
)

// ========== Event methods ==========

const eventSelect = `
        SELECT id, created_at, updated_at, org_id, slug, title, description,
               status, visibility, default_locale, supported_locales,
               registration_start, registration_end, early_bird_end,
               start_date, end_date, capacity, regular_price,
               early_bird_price, requires_approval
        FROM events`

// CreateEvent creates a new event
func (s *PostgresStore) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	if event.Status == "" {
		event.Status = models.EventDraft
	}
	if event.Visibility == "" {
		event.Visibility = models.VisibilityPublic
	}

	query := `
        INSERT INTO events (
            id, created_at, updated_at, org_id, slug, title, description,
            status, visibility, default_locale, supported_locales,
            registration_start, registration_end, early_bird_end,
            start_date, end_date, capacity, regular_price,
            early_bird_price, requires_approval
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
            $15, $16, $17, $18, $19, $20
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		event.ID, event.CreatedAt, event.UpdatedAt, event.OrgID, event.Slug,
		event.Title, event.Description, event.Status, event.Visibility,
		event.DefaultLocale, event.SupportedLocales,
		event.RegistrationStart, event.RegistrationEnd, event.EarlyBirdEnd,
		event.StartDate, event.EndDate, event.Capacity, event.RegularPrice,
		event.EarlyBirdPrice, event.RequiresApproval,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

func (s *PostgresStore) scanEvent(row *sql.Row) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(
		&event.ID, &event.CreatedAt, &event.UpdatedAt, &event.OrgID,
		&event.Slug, &event.Title, &event.Description, &event.Status,
		&event.Visibility, &event.DefaultLocale, &event.SupportedLocales,
		&event.RegistrationStart, &event.RegistrationEnd, &event.EarlyBirdEnd,
		&event.StartDate, &event.EndDate, &event.Capacity,
		&event.RegularPrice, &event.EarlyBirdPrice, &event.RequiresApproval,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return event, err
}

// GetEvent gets an event by ID
func (s *PostgresStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return s.scanEvent(s.getDB().QueryRowContext(ctx, eventSelect+` WHERE id = $1`, id))
}

// GetEventBySlug gets an event by slug within an organization
func (s *PostgresStore) GetEventBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Event, error) {
	return s.scanEvent(s.getDB().QueryRowContext(ctx,
		eventSelect+` WHERE org_id = $1 AND slug = $2`, orgID, slug))
}

// UpdateEvent updates an event
func (s *PostgresStore) UpdateEvent(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now()

	query := `
        UPDATE events
        SET updated_at = $2, slug = $3, title = $4, description = $5,
            status = $6, visibility = $7, default_locale = $8,
            supported_locales = $9, registration_start = $10,
            registration_end = $11, early_bird_end = $12, start_date = $13,
            end_date = $14, capacity = $15, regular_price = $16,
            early_bird_price = $17, requires_approval = $18
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		event.ID, event.UpdatedAt, event.Slug, event.Title, event.Description,
		event.Status, event.Visibility, event.DefaultLocale,
		event.SupportedLocales, event.RegistrationStart, event.RegistrationEnd,
		event.EarlyBirdEnd, event.StartDate, event.EndDate, event.Capacity,
		event.RegularPrice, event.EarlyBirdPrice, event.RequiresApproval,
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

// DeleteEvent deletes an event
func (s *PostgresStore) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListEvents lists events of an organization with pagination
func (s *PostgresStore) ListEvents(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Event, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE org_id = $1`, orgID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := eventSelect + `
        WHERE org_id = $1
        ORDER BY start_date
        LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		if err := rows.Scan(
			&event.ID, &event.CreatedAt, &event.UpdatedAt, &event.OrgID,
			&event.Slug, &event.Title, &event.Description, &event.Status,
			&event.Visibility, &event.DefaultLocale, &event.SupportedLocales,
			&event.RegistrationStart, &event.RegistrationEnd,
			&event.EarlyBirdEnd, &event.StartDate, &event.EndDate,
			&event.Capacity, &event.RegularPrice, &event.EarlyBirdPrice,
			&event.RequiresApproval,
		); err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}

	return events, total, rows.Err()
}
