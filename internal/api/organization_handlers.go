package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eventreg/eventreg-server/internal/auth"
	"github.com/eventreg/eventreg-server/internal/models"
	"github.com/eventreg/eventreg-server/internal/storage"
	"github.com/eventreg/eventreg-server/internal/tenant"
)

// ========== Organization handlers ==========

// HandleListOrganizations lists organizations. Super admins see all;
// other users see the organizations they belong to.
func (s *RESTServer) HandleListOrganizations(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if claims.Role == models.RoleSuperAdmin {
		limit, offset := s.pagination(r)
		orgs, total, err := s.store.ListOrganizations(r.Context(), limit, offset)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"organizations": orgs,
			"total":         total,
		})
		return
	}

	var orgs []*models.Organization
	for _, m := range claims.Memberships {
		if !m.IsActive {
			continue
		}
		org, err := s.store.GetOrganization(r.Context(), m.OrgID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		orgs = append(orgs, org)
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"organizations": orgs,
		"total":         int64(len(orgs)),
	})
}

// HandleCreateOrganization creates an organization. Platform signup: any
// authenticated user may create one and becomes its owner.
func (s *RESTServer) HandleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Slug          string `json:"slug" validate:"required,min=3,max=63,slug"`
		Name          string `json:"name" validate:"required,min=2,max=100"`
		Description   string `json:"description"`
		DefaultLocale string `json:"default_locale"`
		Timezone      string `json:"timezone"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	locale := req.DefaultLocale
	if !tenant.IsSupportedLocale(locale) {
		locale = tenant.DefaultLocale
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = tenant.LocaleTimezones[locale]
	}

	org := &models.Organization{
		Slug:            req.Slug,
		Name:            req.Name,
		Description:     req.Description,
		DefaultLocale:   locale,
		DefaultCurrency: tenant.LocaleCurrencies[locale],
		Timezone:        timezone,
		IsActive:        true,
	}

	// Creating the organization and the owner membership is one logical
	// write
	tx, err := s.store.BeginTx(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer tx.Rollback()

	if err := tx.CreateOrganization(r.Context(), org); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "organization slug already taken")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now()
	membership := &models.OrganizationMembership{
		UserID:     claims.UserID,
		OrgID:      org.ID,
		Role:       models.OrgRoleOwner,
		IsActive:   true,
		AcceptedAt: &now,
	}
	if err := tx.CreateMembership(r.Context(), membership); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := tx.Commit(); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, org)
}

// HandleGetOrganization gets an organization
func (s *RESTServer) HandleGetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if !s.authorize(w, r, auth.ActionViewOrganization, auth.OrgTarget(id)) {
		return
	}

	org, err := s.store.GetOrganization(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "organization not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, org)
}

// HandleUpdateOrganization updates an organization
func (s *RESTServer) HandleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if !s.authorize(w, r, auth.ActionUpdateOrganization, auth.OrgTarget(id)) {
		return
	}

	var req struct {
		Name          string `json:"name" validate:"min=2,max=100"`
		Description   string `json:"description"`
		DefaultLocale string `json:"default_locale"`
		Timezone      string `json:"timezone"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	org, err := s.store.GetOrganization(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "organization not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Name != "" {
		org.Name = req.Name
	}
	if req.Description != "" {
		org.Description = req.Description
	}
	if tenant.IsSupportedLocale(req.DefaultLocale) {
		org.DefaultLocale = req.DefaultLocale
		org.DefaultCurrency = tenant.LocaleCurrencies[req.DefaultLocale]
	}
	if req.Timezone != "" {
		org.Timezone = req.Timezone
	}

	if err := s.store.UpdateOrganization(r.Context(), org); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, org)
}

// HandleDeactivateOrganization soft-deactivates an organization (super
// admin). Tenant resolution for the organization and all its verified
// domains stops with the next request.
func (s *RESTServer) HandleDeactivateOrganization(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, auth.ActionManagePlatform, auth.PlatformTarget()) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	org, err := s.store.GetOrganization(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "organization not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now()
	org.IsActive = false
	org.SuspendedAt = &now

	if err := s.store.UpdateOrganization(r.Context(), org); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, org)
}

// HandleDeleteOrganization deletes an organization. Only owners (or super
// admins) may, and only when no events reference it.
func (s *RESTServer) HandleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if !s.authorize(w, r, auth.ActionDeleteOrganization, auth.OrgTarget(id)) {
		return
	}

	if err := s.store.DeleteOrganization(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "organization not found")
		case errors.Is(err, storage.ErrInvalidData):
			s.respondError(w, http.StatusConflict, "organization still owns events")
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Membership handlers ==========

// HandleListMembers lists members of an organization
func (s *RESTServer) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if !s.authorize(w, r, auth.ActionViewOrganization, auth.OrgTarget(orgID)) {
		return
	}

	limit, offset := s.pagination(r)

	members, total, err := s.store.ListMembershipsByOrg(r.Context(), orgID, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"members": members,
		"total":   total,
	})
}

// HandleAddMember adds a member to an organization
func (s *RESTServer) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if !s.authorize(w, r, auth.ActionManageMembers, auth.OrgTarget(orgID)) {
		return
	}

	var req struct {
		UserID string `json:"user_id" validate:"required"`
		Role   string `json:"role" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	role, ok := parseOrgRole(req.Role)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid role")
		return
	}

	if _, err := s.store.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	membership := &models.OrganizationMembership{
		UserID:   userID,
		OrgID:    orgID,
		Role:     role,
		IsActive: true,
	}

	if err := s.store.CreateMembership(r.Context(), membership); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "user is already a member")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, membership)
}

// HandleUpdateMember updates a member's role or active flag
func (s *RESTServer) HandleUpdateMember(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if !s.authorize(w, r, auth.ActionManageMembers, auth.OrgTarget(orgID)) {
		return
	}

	var req struct {
		Role     string `json:"role"`
		IsActive *bool  `json:"is_active"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	membership, err := s.store.GetMembership(r.Context(), userID, orgID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "membership not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Role != "" {
		role, ok := parseOrgRole(req.Role)
		if !ok {
			s.respondError(w, http.StatusBadRequest, "invalid role")
			return
		}
		membership.Role = role
	}
	if req.IsActive != nil {
		membership.IsActive = *req.IsActive
	}

	if err := s.store.UpdateMembership(r.Context(), membership); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, membership)
}

// HandleRemoveMember removes a member from an organization
func (s *RESTServer) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if !s.authorize(w, r, auth.ActionManageMembers, auth.OrgTarget(orgID)) {
		return
	}

	if err := s.store.DeleteMembership(r.Context(), userID, orgID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "membership not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseOrgRole maps a request role string onto the closed enum
func parseOrgRole(s string) (models.OrgRole, bool) {
	switch models.OrgRole(s) {
	case models.OrgRoleOwner:
		return models.OrgRoleOwner, true
	case models.OrgRoleAdmin:
		return models.OrgRoleAdmin, true
	case models.OrgRoleStaff:
		return models.OrgRoleStaff, true
	default:
		return "", false
	}
}
