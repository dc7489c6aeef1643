package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventreg/eventreg-server/internal/auth"
	"github.com/eventreg/eventreg-server/internal/models"
	"github.com/eventreg/eventreg-server/internal/storage"
	"github.com/eventreg/eventreg-server/internal/tenant"
	"github.com/eventreg/eventreg-server/internal/verifier"
	"github.com/eventreg/eventreg-server/pkg/crypto"
)

// ========== Custom domain handlers ==========

// HandleListDomains lists custom domains of an organization
func (s *RESTServer) HandleListDomains(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if !s.authorize(w, r, auth.ActionManageDomains, auth.OrgTarget(orgID)) {
		return
	}

	limit, offset := s.pagination(r)

	domains, total, err := s.store.ListCustomDomains(r.Context(), orgID, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"domains": domains,
		"total":   total,
	})
}

// HandleRegisterDomain registers a custom domain for an organization or
// one of its events. The domain starts PENDING with a fresh verification
// token; it resolves nothing until verified.
func (s *RESTServer) HandleRegisterDomain(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if !s.authorize(w, r, auth.ActionManageDomains, auth.OrgTarget(orgID)) {
		return
	}

	var req struct {
		Domain         string           `json:"domain" validate:"required,hostname"`
		EventID        string           `json:"event_id"`
		CustomBranding models.Variables `json:"custom_branding"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	host := tenant.NormalizeHost(req.Domain)

	domain := &models.CustomDomain{
		Domain:         host,
		Type:           models.DomainTypeOrganization,
		OrgID:          orgID,
		Status:         models.DomainPending,
		CustomBranding: req.CustomBranding,
	}

	if req.EventID != "" {
		eventID, err := uuid.Parse(req.EventID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid event id")
			return
		}

		// The event must belong to the same organization
		event, err := s.store.GetEvent(r.Context(), eventID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.respondError(w, http.StatusNotFound, "event not found")
				return
			}
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if event.OrgID != orgID {
			s.respondError(w, http.StatusForbidden, "event belongs to another organization")
			return
		}

		domain.Type = models.DomainTypeEvent
		domain.EventID = &eventID
	}

	token, err := crypto.GenerateVerificationToken()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate verification token")
		return
	}
	domain.VerificationToken = token

	if err := s.store.CreateCustomDomain(r.Context(), domain); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "domain already registered")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"domain": domain,
		"dns_record": map[string]string{
			"type":  "TXT",
			"name":  s.config.Verifier.RecordPrefix + "." + domain.Domain,
			"value": domain.VerificationToken,
		},
	})
}

// getAuthorizedDomain loads a domain and authorizes against its owning
// organization
func (s *RESTServer) getAuthorizedDomain(w http.ResponseWriter, r *http.Request) *models.CustomDomain {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid domain id")
		return nil
	}

	domain, err := s.store.GetCustomDomain(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "domain not found")
			return nil
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil
	}

	if !s.authorize(w, r, auth.ActionManageDomains, auth.OrgTarget(domain.OrgID)) {
		return nil
	}

	return domain
}

// HandleGetDomain gets a custom domain
func (s *RESTServer) HandleGetDomain(w http.ResponseWriter, r *http.Request) {
	domain := s.getAuthorizedDomain(w, r)
	if domain == nil {
		return
	}

	s.respondJSON(w, http.StatusOK, domain)
}

// HandleRequestVerification submits a domain for DNS verification. The
// check itself runs out of band in the verifier worker; this handler only
// records the transition and publishes the job.
func (s *RESTServer) HandleRequestVerification(w http.ResponseWriter, r *http.Request) {
	domain := s.getAuthorizedDomain(w, r)
	if domain == nil {
		return
	}

	if s.nc == nil {
		s.respondError(w, http.StatusServiceUnavailable, "verification queue unavailable")
		return
	}

	if err := domain.SubmitForVerification(); err != nil {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}

	if err := s.store.UpdateCustomDomain(r.Context(), domain); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job := verifier.Job{DomainID: domain.ID, Domain: domain.Domain}
	payload, err := json.Marshal(job)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.nc.Publish(verifier.SubjectVerifyRequest, payload); err != nil {
		log.Error().Err(err).Str("domain", domain.Domain).Msg("Failed to publish verification job")
		s.respondError(w, http.StatusInternalServerError, "failed to queue verification")
		return
	}

	s.respondJSON(w, http.StatusAccepted, domain)
}

// HandleSetPrimaryDomain makes the domain primary for its target. The
// previous primary is cleared in the same transaction.
func (s *RESTServer) HandleSetPrimaryDomain(w http.ResponseWriter, r *http.Request) {
	domain := s.getAuthorizedDomain(w, r)
	if domain == nil {
		return
	}

	if err := s.store.SetPrimaryDomain(r.Context(), domain.ID); err != nil {
		if errors.Is(err, storage.ErrInvalidData) {
			s.respondError(w, http.StatusConflict, "domain must be verified to become primary")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	updated, err := s.store.GetCustomDomain(r.Context(), domain.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

// HandleRevokeDomain explicitly withdraws a verified domain
func (s *RESTServer) HandleRevokeDomain(w http.ResponseWriter, r *http.Request) {
	domain := s.getAuthorizedDomain(w, r)
	if domain == nil {
		return
	}

	if err := domain.Revoke(); err != nil {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}

	if err := s.store.UpdateCustomDomain(r.Context(), domain); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("domain", domain.Domain).Msg("Custom domain revoked")

	s.respondJSON(w, http.StatusOK, domain)
}

// HandleDeleteDomain deletes a custom domain
func (s *RESTServer) HandleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	domain := s.getAuthorizedDomain(w, r)
	if domain == nil {
		return
	}

	if err := s.store.DeleteCustomDomain(r.Context(), domain.ID); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleCheckDomain is the public domain-check API. It mirrors the
// directory's live-resolution rules: only verified domains of active
// organizations are valid.
func (s *RESTServer) HandleCheckDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Domain == "" {
		s.respondError(w, http.StatusBadRequest, "domain is required")
		return
	}

	ref, err := s.directory.ResolveByHost(r.Context(), req.Domain)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if ref == nil || ref.CustomDomain == nil {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"isValid": false,
			"message": "Domain not found or not verified",
		})
		return
	}

	resp := map[string]interface{}{
		"isValid":   true,
		"orgId":     ref.Org.ID,
		"orgSlug":   ref.Org.Slug,
		"isPrimary": ref.CustomDomain.IsPrimary,
	}
	if ref.CustomDomain.CustomBranding != nil {
		resp["customBranding"] = ref.CustomDomain.CustomBranding
	}
	if ref.Event != nil {
		resp["eventId"] = ref.Event.ID
		resp["eventSlug"] = ref.Event.Slug
	}

	s.respondJSON(w, http.StatusOK, resp)
}
