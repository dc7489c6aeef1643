package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eventreg/eventreg-server/internal/config"
	"github.com/eventreg/eventreg-server/internal/models"
	"github.com/eventreg/eventreg-server/internal/storage"
)

// NATS subjects for the domain verification lifecycle
const (
	SubjectVerifyRequest = "domains.verify.request"
	SubjectVerified      = "domains.verified"
	SubjectFailed        = "domains.failed"
)

// Job is a verification request published by the API
type Job struct {
	DomainID uuid.UUID `json:"domainId"`
	Domain   string    `json:"domain"`
}

// lifecycleEvent is published when a verification run finishes
type lifecycleEvent struct {
	DomainID uuid.UUID `json:"domainId"`
	Domain   string    `json:"domain"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

// Resolver is the DNS lookup the worker depends on
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Worker consumes verification jobs and drives the domain state machine.
// DNS lookups happen only here, never in the request path.
type Worker struct {
	nc       *nats.Conn
	store    storage.Store
	config   *config.VerifierConfig
	resolver Resolver
	subs     []*nats.Subscription
}

// NewWorker creates a verification worker
func NewWorker(nc *nats.Conn, store storage.Store, cfg *config.VerifierConfig) *Worker {
	return &Worker{
		nc:       nc,
		store:    store,
		config:   cfg,
		resolver: net.DefaultResolver,
		subs:     make([]*nats.Subscription, 0),
	}
}

// Start starts subscriptions and blocks until ctx is cancelled
func (w *Worker) Start(ctx context.Context) error {
	sub, err := w.nc.QueueSubscribe(SubjectVerifyRequest, "domain-verifier", func(msg *nats.Msg) {
		w.handleVerifyRequest(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe verify request: %w", err)
	}
	w.subs = append(w.subs, sub)

	log.Info().
		Int("subscriptions", len(w.subs)).
		Msg("Domain verifier started")

	<-ctx.Done()

	for _, sub := range w.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// handleVerifyRequest runs one verification job
func (w *Worker) handleVerifyRequest(ctx context.Context, msg *nats.Msg) {
	var job Job
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		log.Error().Err(err).Msg("Invalid verification job payload")
		return
	}

	logger := log.With().Str("domain", job.Domain).Logger()

	domain, err := w.store.GetCustomDomain(ctx, job.DomainID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load domain for verification")
		return
	}

	// The API moves the domain to VERIFYING before publishing the job;
	// anything else is a stale or duplicate message.
	if domain.Status != models.DomainVerifying {
		logger.Warn().Str("status", string(domain.Status)).Msg("Skipping job for domain not in VERIFYING")
		return
	}

	record := w.config.RecordPrefix + "." + domain.Domain

	var lastErr error
	for attempt := 1; attempt <= w.config.MaxAttempts; attempt++ {
		domain.VerifyAttempts = attempt
		now := time.Now()
		domain.LastCheckedAt = &now

		ok, err := w.checkRecord(ctx, record, domain.VerificationToken)
		if ok {
			if err := domain.MarkVerified(now); err != nil {
				logger.Error().Err(err).Msg("Verification transition rejected")
				return
			}
			if err := w.store.UpdateCustomDomain(ctx, domain); err != nil {
				logger.Error().Err(err).Msg("Failed to persist verified domain")
				return
			}
			logger.Info().Int("attempts", attempt).Msg("Domain verified")
			w.publishLifecycle(SubjectVerified, domain, "")
			return
		}

		lastErr = err
		if err == nil {
			lastErr = fmt.Errorf("TXT record does not match expected token")
		}

		logger.Debug().
			Err(lastErr).
			Int("attempt", attempt).
			Msg("Verification attempt failed")

		select {
		case <-ctx.Done():
			w.abortVerification(domain, logger)
			return
		case <-time.After(w.config.RetryInterval):
		}
	}

	if err := domain.MarkFailed(lastErr.Error()); err != nil {
		logger.Error().Err(err).Msg("Failure transition rejected")
		return
	}
	if err := w.store.UpdateCustomDomain(ctx, domain); err != nil {
		logger.Error().Err(err).Msg("Failed to persist failed domain")
		return
	}

	logger.Warn().Err(lastErr).Msg("Domain verification failed")
	w.publishLifecycle(SubjectFailed, domain, lastErr.Error())
}

// abortVerification persists an interrupted run as FAILED so the domain
// can be resubmitted after a restart. The message is already consumed, so
// leaving the domain in VERIFYING would strand it there forever. A detached
// context is used because the worker's own context is already cancelled.
func (w *Worker) abortVerification(domain *models.CustomDomain, logger zerolog.Logger) {
	if err := domain.MarkFailed("verification interrupted"); err != nil {
		logger.Error().Err(err).Msg("Abort transition rejected")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.store.UpdateCustomDomain(ctx, domain); err != nil {
		logger.Error().Err(err).Msg("Failed to persist interrupted domain")
		return
	}

	logger.Warn().Msg("Domain verification interrupted")
	w.publishLifecycle(SubjectFailed, domain, domain.LastCheckError)
}

// checkRecord looks up the TXT record and compares it against the token
func (w *Worker) checkRecord(ctx context.Context, record, token string) (bool, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, w.config.LookupTimeout)
	defer cancel()

	records, err := w.resolver.LookupTXT(lookupCtx, record)
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", record, err)
	}

	for _, r := range records {
		if r == token {
			return true, nil
		}
	}

	return false, nil
}

// publishLifecycle publishes a lifecycle event; failures are logged only
func (w *Worker) publishLifecycle(subject string, domain *models.CustomDomain, errMsg string) {
	if w.nc == nil {
		return
	}

	event := lifecycleEvent{
		DomainID: domain.ID,
		Domain:   domain.Domain,
		Status:   string(domain.Status),
		Error:    errMsg,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal lifecycle event")
		return
	}

	if err := w.nc.Publish(subject, payload); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish lifecycle event")
	}
}
