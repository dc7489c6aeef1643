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

// ========== Event handlers ==========

// HandleListEvents lists events of an organization
func (s *RESTServer) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if !s.authorize(w, r, auth.ActionViewOrganization, auth.OrgTarget(orgID)) {
		return
	}

	limit, offset := s.pagination(r)

	events, total, err := s.store.ListEvents(r.Context(), orgID, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
	})
}

type eventRequest struct {
	Slug              string     `json:"slug" validate:"required,min=3,max=63,slug"`
	Title             string     `json:"title" validate:"required,min=2,max=200"`
	Description       string     `json:"description"`
	Visibility        string     `json:"visibility"`
	DefaultLocale     string     `json:"default_locale"`
	SupportedLocales  []string   `json:"supported_locales"`
	RegistrationStart time.Time  `json:"registration_start" validate:"required"`
	RegistrationEnd   time.Time  `json:"registration_end" validate:"required"`
	EarlyBirdEnd      *time.Time `json:"early_bird_end"`
	StartDate         time.Time  `json:"start_date" validate:"required"`
	EndDate           time.Time  `json:"end_date" validate:"required"`
	Capacity          int        `json:"capacity"`
	RegularPrice      int64      `json:"regular_price"`
	EarlyBirdPrice    int64      `json:"early_bird_price"`
	RequiresApproval  bool       `json:"requires_approval"`
}

func (req *eventRequest) apply(event *models.Event, org *models.Organization) error {
	if req.RegistrationEnd.Before(req.RegistrationStart) {
		return errors.New("registration window ends before it starts")
	}
	if req.EndDate.Before(req.StartDate) {
		return errors.New("event ends before it starts")
	}
	if req.EarlyBirdEnd != nil && req.EarlyBirdEnd.After(req.RegistrationEnd) {
		return errors.New("early-bird deadline after registration end")
	}

	event.Slug = req.Slug
	event.Title = req.Title
	event.Description = req.Description

	event.Visibility = models.VisibilityPublic
	if req.Visibility == string(models.VisibilityPrivate) {
		event.Visibility = models.VisibilityPrivate
	}

	event.DefaultLocale = org.DefaultLocale
	if tenant.IsSupportedLocale(req.DefaultLocale) {
		event.DefaultLocale = req.DefaultLocale
	}

	event.SupportedLocales = nil
	for _, l := range req.SupportedLocales {
		if tenant.IsSupportedLocale(l) {
			event.SupportedLocales = append(event.SupportedLocales, l)
		}
	}

	event.RegistrationStart = req.RegistrationStart
	event.RegistrationEnd = req.RegistrationEnd
	event.EarlyBirdEnd = req.EarlyBirdEnd
	event.StartDate = req.StartDate
	event.EndDate = req.EndDate
	event.Capacity = req.Capacity
	event.RegularPrice = req.RegularPrice
	event.EarlyBirdPrice = req.EarlyBirdPrice
	event.RequiresApproval = req.RequiresApproval

	return nil
}

// HandleCreateEvent creates an event in draft status
func (s *RESTServer) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if !s.authorize(w, r, auth.ActionManageEvent, auth.OrgTarget(orgID)) {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	org, err := s.store.GetOrganization(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "organization not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	event := &models.Event{Status: models.EventDraft}
	event.OrgID = orgID

	if err := req.apply(event, org); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateEvent(r.Context(), event); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "event slug already taken in this organization")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, event)
}

// getAuthorizedEvent loads an event and authorizes action against its
// owning organization. The organization is derived through the event;
// that derivation is never skipped.
func (s *RESTServer) getAuthorizedEvent(w http.ResponseWriter, r *http.Request, action auth.Action) *models.Event {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid event id")
		return nil
	}

	event, err := s.store.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "event not found")
			return nil
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil
	}

	if !s.authorize(w, r, action, auth.OrgTarget(event.OrgID)) {
		return nil
	}

	return event
}

// HandleGetEvent gets an event
func (s *RESTServer) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	event := s.getAuthorizedEvent(w, r, auth.ActionViewOrganization)
	if event == nil {
		return
	}

	s.respondJSON(w, http.StatusOK, event)
}

// HandleUpdateEvent updates an event
func (s *RESTServer) HandleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	event := s.getAuthorizedEvent(w, r, auth.ActionManageEvent)
	if event == nil {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	org, err := s.store.GetOrganization(r.Context(), event.OrgID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := req.apply(event, org); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateEvent(r.Context(), event); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "event slug already taken in this organization")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, event)
}

// HandleChangeEventStatus transitions the event lifecycle status
func (s *RESTServer) HandleChangeEventStatus(w http.ResponseWriter, r *http.Request) {
	event := s.getAuthorizedEvent(w, r, auth.ActionManageEvent)
	if event == nil {
		return
	}

	var req struct {
		Status string `json:"status" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	next := models.EventStatus(req.Status)
	switch next {
	case models.EventPublished, models.EventCancelled, models.EventCompleted:
	default:
		s.respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if !event.CanTransitionTo(next) {
		s.respondError(w, http.StatusConflict, "invalid status transition")
		return
	}

	event.Status = next
	if err := s.store.UpdateEvent(r.Context(), event); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, event)
}

// HandleDeleteEvent deletes an event
func (s *RESTServer) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	event := s.getAuthorizedEvent(w, r, auth.ActionManageEvent)
	if event == nil {
		return
	}

	if err := s.store.DeleteEvent(r.Context(), event.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "event not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
