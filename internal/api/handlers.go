package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventreg/eventreg-server/internal/auth"
	"github.com/eventreg/eventreg-server/internal/models"
	"github.com/eventreg/eventreg-server/internal/storage"
)

// ========== Auth handlers ==========

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	memberships, err := s.membershipClaims(r, user.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load memberships")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user, memberships)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to record login time")
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := s.auth.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	// Re-fetch the user so refreshed tokens carry current roles
	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil || !user.IsActive {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	memberships, err := s.membershipClaims(r, user.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load memberships")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user, memberships)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// membershipClaims loads a user's active memberships in claim form
func (s *RESTServer) membershipClaims(r *http.Request, userID uuid.UUID) ([]auth.Membership, error) {
	records, err := s.store.ListMembershipsByUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}

	memberships := make([]auth.Membership, 0, len(records))
	for _, m := range records {
		memberships = append(memberships, auth.Membership{
			OrgID:       m.OrgID,
			Role:        m.Role,
			IsActive:    m.IsActive,
			Permissions: m.Permissions,
		})
	}
	return memberships, nil
}

// HandleGetCurrentUser gets the current user
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":        user,
		"memberships": claims.Memberships,
	})
}

// ========== User handlers ==========

// HandleListUsers lists users (super admin)
func (s *RESTServer) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, auth.ActionManagePlatform, auth.PlatformTarget()) {
		return
	}

	limit, offset := s.pagination(r)

	users, total, err := s.store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// HandleCreateUser creates a user (super admin)
func (s *RESTServer) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, auth.ActionManagePlatform, auth.PlatformTarget()) {
		return
	}

	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Name     string `json:"name" validate:"required,max=100"`
		Password string `json:"password" validate:"required,min=8"`
		Role     string `json:"role"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	role := models.RoleUser
	if req.Role == string(models.RoleSuperAdmin) {
		role = models.RoleSuperAdmin
	}

	user := &models.User{
		Email:    req.Email,
		Name:     req.Name,
		Role:     role,
		IsActive: true,
		Settings: models.Variables{"password": req.Password},
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "user already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, user)
}

// HandleGetUser gets a user
func (s *RESTServer) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	claims, _ := claimsFrom(r.Context())
	if claims == nil {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	// Users may read themselves; everything else is platform scope
	if claims.UserID != id {
		if !s.authorize(w, r, auth.ActionManagePlatform, auth.PlatformTarget()) {
			return
		}
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleUpdateUser updates a user
func (s *RESTServer) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	claims, _ := claimsFrom(r.Context())
	if claims == nil {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if claims.UserID != id {
		if !s.authorize(w, r, auth.ActionManagePlatform, auth.PlatformTarget()) {
			return
		}
	}

	var req struct {
		Name     string `json:"name" validate:"max=100"`
		IsActive *bool  `json:"is_active"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	// Only platform admins may flip the active flag
	if req.IsActive != nil && claims.Role == models.RoleSuperAdmin {
		user.IsActive = *req.IsActive
	}

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleDeleteUser deletes a user (super admin)
func (s *RESTServer) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, auth.ActionManagePlatform, auth.PlatformTarget()) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Helper methods ==========

// authorize runs the authorization engine for an API request and writes
// the failure response when denied. Returns true when the request may
// proceed.
func (s *RESTServer) authorize(w http.ResponseWriter, r *http.Request, action auth.Action, target auth.Target) bool {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return false
	}

	decision := auth.Authorize(claims.Principal(), action, target)
	if !decision.Allowed {
		log.Debug().
			Str("user_id", claims.UserID.String()).
			Str("action", string(action)).
			Str("reason", decision.Reason).
			Msg("API request denied")
		s.respondError(w, http.StatusForbidden, "forbidden")
		return false
	}

	return true
}

// pagination reads limit/offset query parameters
func (s *RESTServer) pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// HandleHealth health check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/v1/health",
	})
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
