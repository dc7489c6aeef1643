package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventreg/eventreg-server/internal/models"
)

const domainTestSchema = `
CREATE TABLE IF NOT EXISTS custom_domains (
    id UUID PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    domain TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    org_id UUID NOT NULL,
    event_id UUID,
    is_primary BOOLEAN NOT NULL DEFAULT false,
    status TEXT NOT NULL,
    tls_status TEXT NOT NULL,
    verification_token TEXT NOT NULL DEFAULT '',
    verify_attempts INT NOT NULL DEFAULT 0,
    last_checked_at TIMESTAMPTZ,
    last_check_error TEXT NOT NULL DEFAULT '',
    verified_at TIMESTAMPTZ,
    custom_branding JSONB
)`

// testStore connects to the database named by TEST_DATABASE_URL and resets
// the custom_domains table. Tests that need it are skipped when the
// variable is unset.
func testStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	_, err = db.Exec(domainTestSchema)
	require.NoError(t, err)
	_, err = db.Exec(`TRUNCATE custom_domains`)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return &PostgresStore{db: db}
}

func createVerifiedDomain(t *testing.T, store *PostgresStore, orgID uuid.UUID, eventID *uuid.UUID, name string, primary bool) *models.CustomDomain {
	t.Helper()

	verifiedAt := time.Now()
	d := &models.CustomDomain{
		Domain:     name,
		Type:       models.DomainTypeOrganization,
		OrgID:      orgID,
		EventID:    eventID,
		IsPrimary:  primary,
		Status:     models.DomainVerified,
		VerifiedAt: &verifiedAt,
	}
	if eventID != nil {
		d.Type = models.DomainTypeEvent
	}
	require.NoError(t, store.CreateCustomDomain(context.Background(), d))
	return d
}

func countPrimaries(t *testing.T, store *PostgresStore, orgID uuid.UUID, eventID *uuid.UUID) int {
	t.Helper()

	var n int
	err := store.db.QueryRow(
		`SELECT COUNT(*) FROM custom_domains
         WHERE org_id = $1 AND event_id IS NOT DISTINCT FROM $2 AND is_primary = true`,
		orgID, eventID,
	).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestSetPrimaryDomainClearsPrevious(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	orgID := uuid.New()

	previous := createVerifiedDomain(t, store, orgID, nil, "old.example.com", true)
	next := createVerifiedDomain(t, store, orgID, nil, "new.example.com", false)

	require.NoError(t, store.SetPrimaryDomain(ctx, next.ID))

	assert.Equal(t, 1, countPrimaries(t, store, orgID, nil))

	got, err := store.GetPrimaryDomain(ctx, orgID, nil)
	require.NoError(t, err)
	assert.Equal(t, next.ID, got.ID)

	old, err := store.GetCustomDomain(ctx, previous.ID)
	require.NoError(t, err)
	assert.False(t, old.IsPrimary)
}

func TestSetPrimaryDomainRequiresVerified(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	d := &models.CustomDomain{
		Domain: "pending.example.com",
		Type:   models.DomainTypeOrganization,
		OrgID:  uuid.New(),
	}
	require.NoError(t, store.CreateCustomDomain(ctx, d))

	err := store.SetPrimaryDomain(ctx, d.ID)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestSetPrimaryDomainNotFound(t *testing.T) {
	store := testStore(t)

	err := store.SetPrimaryDomain(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

// Concurrent calls for different domains of the same target must serialize
// on the target, leaving exactly one primary whichever call wins.
func TestSetPrimaryDomainConcurrent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	orgID := uuid.New()

	createVerifiedDomain(t, store, orgID, nil, "seed.example.com", true)

	const contenders = 4
	domains := make([]*models.CustomDomain, contenders)
	for i := range domains {
		name := fmt.Sprintf("d%d.example.com", i)
		domains[i] = createVerifiedDomain(t, store, orgID, nil, name, false)
	}

	var wg sync.WaitGroup
	for _, d := range domains {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, store.SetPrimaryDomain(ctx, id))
		}(d.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, countPrimaries(t, store, orgID, nil))
}

// An event-scoped primary and the organization-level primary are separate
// targets and must not clear each other.
func TestSetPrimaryDomainEventScope(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	orgID := uuid.New()
	eventID := uuid.New()

	orgDomain := createVerifiedDomain(t, store, orgID, nil, "org.example.com", true)
	eventDomain := createVerifiedDomain(t, store, orgID, &eventID, "event.example.com", false)

	require.NoError(t, store.SetPrimaryDomain(ctx, eventDomain.ID))

	assert.Equal(t, 1, countPrimaries(t, store, orgID, nil))
	assert.Equal(t, 1, countPrimaries(t, store, orgID, &eventID))

	got, err := store.GetCustomDomain(ctx, orgDomain.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPrimary)
}
