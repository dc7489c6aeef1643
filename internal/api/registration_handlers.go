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
)

// ========== Registration handlers ==========

// HandleCreateRegistration creates a registration on a published event.
// No authentication required: guest registrations carry no user.
func (s *RESTServer) HandleCreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID  string           `json:"event_id" validate:"required"`
		Email    string           `json:"email" validate:"required,email"`
		Name     string           `json:"name" validate:"required,max=100"`
		FormData models.Variables `json:"form_data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	event, err := s.store.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "event not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now()
	if !event.RegistrationOpenAt(now) {
		s.respondError(w, http.StatusConflict, "registration is closed")
		return
	}

	if event.Capacity > 0 {
		count, err := s.store.CountActiveRegistrations(r.Context(), eventID)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if count >= int64(event.Capacity) {
			s.respondError(w, http.StatusConflict, "event is full")
			return
		}
	}

	price := event.PriceAt(now)
	reg := &models.Registration{
		EventID:     eventID,
		Email:       req.Email,
		Name:        req.Name,
		TotalAmount: price,
		FormData:    req.FormData,
	}

	// Early-bird pricing is recorded as a discount off the regular tier
	if price < event.RegularPrice {
		reg.DiscountAmount = event.RegularPrice - price
		reg.DiscountReason = "early-bird"
	}

	// Attach the user when the caller is signed in
	if token := bearerToken(r); token != "" {
		if claims, err := s.auth.ValidateToken(token); err == nil {
			reg.UserID = &claims.UserID
		}
	}

	if event.RequiresApproval {
		reg.RequiresApproval = true
		reg.Status = models.RegistrationPending
	} else {
		reg.Status = models.RegistrationConfirmed
	}

	if err := s.store.CreateRegistration(r.Context(), reg); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, reg)
}

// registrationTarget derives the authorization target for a registration.
// The owning organization comes transitively through the event; this
// derivation is mandatory and never replaced by caller-supplied ids.
func (s *RESTServer) registrationTarget(r *http.Request, reg *models.Registration) (auth.Target, error) {
	event, err := s.store.GetEvent(r.Context(), reg.EventID)
	if err != nil {
		return auth.Target{}, err
	}
	return auth.ResourceTarget(event.OrgID, reg.UserID), nil
}

// getAuthorizedRegistration loads a registration and authorizes action
// against it
func (s *RESTServer) getAuthorizedRegistration(w http.ResponseWriter, r *http.Request, action auth.Action) *models.Registration {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid registration id")
		return nil
	}

	reg, err := s.store.GetRegistration(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "registration not found")
			return nil
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil
	}

	target, err := s.registrationTarget(r, reg)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil
	}

	if !s.authorize(w, r, action, target) {
		return nil
	}

	return reg
}

// HandleGetRegistration gets a registration
func (s *RESTServer) HandleGetRegistration(w http.ResponseWriter, r *http.Request) {
	reg := s.getAuthorizedRegistration(w, r, auth.ActionViewRegistration)
	if reg == nil {
		return
	}

	s.respondJSON(w, http.StatusOK, reg)
}

// HandleUpdateRegistration updates a registration
func (s *RESTServer) HandleUpdateRegistration(w http.ResponseWriter, r *http.Request) {
	reg := s.getAuthorizedRegistration(w, r, auth.ActionModifyRegistration)
	if reg == nil {
		return
	}

	event, err := s.store.GetEvent(r.Context(), reg.EventID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Registrations freeze once the event is over
	if time.Now().After(event.EndDate) {
		s.respondError(w, http.StatusConflict, "event has ended")
		return
	}

	var req struct {
		Name     string           `json:"name" validate:"max=100"`
		Email    string           `json:"email" validate:"email"`
		Status   string           `json:"status"`
		FormData models.Variables `json:"form_data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Name != "" {
		reg.Name = req.Name
	}
	if req.Email != "" {
		reg.Email = req.Email
	}
	if req.FormData != nil {
		reg.FormData = req.FormData
	}

	// Status changes (e.g. approving a pending registration) need the
	// organization-level capability, not just self-service rights
	if req.Status != "" {
		next := models.RegistrationStatus(req.Status)
		switch next {
		case models.RegistrationPending, models.RegistrationConfirmed, models.RegistrationCancelled:
		default:
			s.respondError(w, http.StatusBadRequest, "invalid status")
			return
		}

		if !s.authorize(w, r, auth.ActionManageRegistrations, auth.OrgTarget(event.OrgID)) {
			return
		}
		reg.Status = next
	}

	if err := s.store.UpdateRegistration(r.Context(), reg); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, reg)
}

// HandleCancelRegistration cancels a registration. Participants may
// cancel their own; staff may cancel any in their organization.
func (s *RESTServer) HandleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	reg := s.getAuthorizedRegistration(w, r, auth.ActionModifyRegistration)
	if reg == nil {
		return
	}

	if reg.Status == models.RegistrationCancelled {
		s.respondError(w, http.StatusConflict, "registration already cancelled")
		return
	}

	reg.Status = models.RegistrationCancelled
	if err := s.store.UpdateRegistration(r.Context(), reg); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, reg)
}

// HandleListRegistrations lists registrations of an event (staff)
func (s *RESTServer) HandleListRegistrations(w http.ResponseWriter, r *http.Request) {
	event := s.getAuthorizedEvent(w, r, auth.ActionViewRegistrations)
	if event == nil {
		return
	}

	limit, offset := s.pagination(r)

	regs, total, err := s.store.ListRegistrations(r.Context(), event.ID, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"registrations": regs,
		"total":         total,
	})
}

// bearerToken extracts a bearer token from the Authorization header
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && h[:7] == "Bearer " {
		return h[7:]
	}
	return ""
}
