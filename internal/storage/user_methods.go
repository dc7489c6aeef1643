package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventreg/eventreg-server/internal/models"
	"github.com/eventreg/eventreg-server/pkg/crypto"
)

// ========== User methods ==========

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}

	// Hash password if provided in settings
	if pwd, ok := user.Settings["password"].(string); ok && pwd != "" {
		hash, err := crypto.HashPassword(pwd)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		delete(user.Settings, "password")
	}

	query := `
        INSERT INTO users (
            id, created_at, updated_at, email, name, password_hash,
            role, is_active, email_verified, settings
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.Email, user.Name,
		user.PasswordHash, user.Role, user.IsActive, user.EmailVerified,
		user.Settings,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetUser gets a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
        SELECT id, created_at, updated_at, email, name, password_hash,
               role, is_active, email_verified, email_verified_at,
               last_login_at, settings
        FROM users
        WHERE id = $1`

	user := &models.User{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.Name,
		&user.PasswordHash, &user.Role, &user.IsActive, &user.EmailVerified,
		&user.EmailVerifiedAt, &user.LastLoginAt, &user.Settings,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// GetUserByEmail gets a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
        SELECT id, created_at, updated_at, email, name, password_hash,
               role, is_active, email_verified, email_verified_at,
               last_login_at, settings
        FROM users
        WHERE email = $1`

	user := &models.User{}
	err := s.getDB().QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.Name,
		&user.PasswordHash, &user.Role, &user.IsActive, &user.EmailVerified,
		&user.EmailVerifiedAt, &user.LastLoginAt, &user.Settings,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// UpdateUser updates a user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
        UPDATE users
        SET updated_at = $2, email = $3, name = $4, password_hash = $5,
            role = $6, is_active = $7, email_verified = $8,
            email_verified_at = $9, last_login_at = $10, settings = $11
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.Name, user.PasswordHash,
		user.Role, user.IsActive, user.EmailVerified, user.EmailVerifiedAt,
		user.LastLoginAt, user.Settings,
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

// DeleteUser deletes a user
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListUsers lists users with pagination
func (s *PostgresStore) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, created_at, updated_at, email, name, password_hash,
               role, is_active, email_verified, email_verified_at,
               last_login_at, settings
        FROM users
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(
			&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.Name,
			&user.PasswordHash, &user.Role, &user.IsActive, &user.EmailVerified,
			&user.EmailVerifiedAt, &user.LastLoginAt, &user.Settings,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, total, rows.Err()
}

// ========== Membership methods ==========

// CreateMembership creates an organization membership
func (s *PostgresStore) CreateMembership(ctx context.Context, m *models.OrganizationMembership) error {
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	query := `
        INSERT INTO organization_memberships (
            user_id, org_id, role, permissions, is_active, accepted_at,
            created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.getDB().ExecContext(ctx, query,
		m.UserID, m.OrgID, m.Role, m.Permissions, m.IsActive, m.AcceptedAt,
		m.CreatedAt, m.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetMembership gets a membership by user and organization
func (s *PostgresStore) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.OrganizationMembership, error) {
	query := `
        SELECT user_id, org_id, role, permissions, is_active, accepted_at,
               created_at, updated_at
        FROM organization_memberships
        WHERE user_id = $1 AND org_id = $2`

	m := &models.OrganizationMembership{}
	err := s.getDB().QueryRowContext(ctx, query, userID, orgID).Scan(
		&m.UserID, &m.OrgID, &m.Role, &m.Permissions, &m.IsActive,
		&m.AcceptedAt, &m.CreatedAt, &m.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return m, err
}

// UpdateMembership updates a membership
func (s *PostgresStore) UpdateMembership(ctx context.Context, m *models.OrganizationMembership) error {
	m.UpdatedAt = time.Now()

	query := `
        UPDATE organization_memberships
        SET role = $3, permissions = $4, is_active = $5, accepted_at = $6,
            updated_at = $7
        WHERE user_id = $1 AND org_id = $2`

	result, err := s.getDB().ExecContext(ctx, query,
		m.UserID, m.OrgID, m.Role, m.Permissions, m.IsActive, m.AcceptedAt,
		m.UpdatedAt,
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

// DeleteMembership deletes a membership
func (s *PostgresStore) DeleteMembership(ctx context.Context, userID, orgID uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM organization_memberships WHERE user_id = $1 AND org_id = $2`,
		userID, orgID,
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

// ListMembershipsByUser lists all memberships of a user
func (s *PostgresStore) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]*models.OrganizationMembership, error) {
	query := `
        SELECT user_id, org_id, role, permissions, is_active, accepted_at,
               created_at, updated_at
        FROM organization_memberships
        WHERE user_id = $1
        ORDER BY created_at`

	rows, err := s.getDB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.OrganizationMembership
	for rows.Next() {
		m := &models.OrganizationMembership{}
		if err := rows.Scan(
			&m.UserID, &m.OrgID, &m.Role, &m.Permissions, &m.IsActive,
			&m.AcceptedAt, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

// ListMembershipsByOrg lists memberships of an organization with pagination
func (s *PostgresStore) ListMembershipsByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.OrganizationMembership, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM organization_memberships WHERE org_id = $1`, orgID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT user_id, org_id, role, permissions, is_active, accepted_at,
               created_at, updated_at
        FROM organization_memberships
        WHERE org_id = $1
        ORDER BY created_at
        LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var memberships []*models.OrganizationMembership
	for rows.Next() {
		m := &models.OrganizationMembership{}
		if err := rows.Scan(
			&m.UserID, &m.OrgID, &m.Role, &m.Permissions, &m.IsActive,
			&m.AcceptedAt, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		memberships = append(memberships, m)
	}

	return memberships, total, rows.Err()
}
