package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainSubmitForVerification(t *testing.T) {
	tests := []struct {
		name    string
		status  DomainStatus
		allowed bool
	}{
		{"pending", DomainPending, true},
		{"failed retries", DomainFailed, true},
		{"verifying cannot resubmit", DomainVerifying, false},
		{"verified stays verified", DomainVerified, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &CustomDomain{Status: tt.status, VerifyAttempts: 3, LastCheckError: "timeout"}
			err := d.SubmitForVerification()
			if !tt.allowed {
				var transErr *ErrInvalidTransition
				require.ErrorAs(t, err, &transErr)
				assert.Equal(t, tt.status, d.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DomainVerifying, d.Status)
			assert.Zero(t, d.VerifyAttempts)
			assert.Empty(t, d.LastCheckError)
		})
	}
}

func TestDomainMarkVerified(t *testing.T) {
	now := time.Now()

	d := &CustomDomain{Status: DomainVerifying}
	require.NoError(t, d.MarkVerified(now))
	assert.Equal(t, DomainVerified, d.Status)
	require.NotNil(t, d.VerifiedAt)
	assert.Equal(t, now, *d.VerifiedAt)

	// Repeat verification of an already verified domain is rejected
	assert.Error(t, d.MarkVerified(now))

	// And verification never starts from pending
	d = &CustomDomain{Status: DomainPending}
	assert.Error(t, d.MarkVerified(now))
}

func TestDomainMarkFailed(t *testing.T) {
	d := &CustomDomain{Status: DomainVerifying}
	require.NoError(t, d.MarkFailed("no TXT record"))
	assert.Equal(t, DomainFailed, d.Status)
	assert.Equal(t, "no TXT record", d.LastCheckError)

	// A verified domain never degrades to failed
	d = &CustomDomain{Status: DomainVerified}
	assert.Error(t, d.MarkFailed("late failure"))
	assert.Equal(t, DomainVerified, d.Status)
}

func TestDomainRevoke(t *testing.T) {
	at := time.Now()
	d := &CustomDomain{Status: DomainVerified, VerifiedAt: &at, IsPrimary: true}

	require.NoError(t, d.Revoke())
	assert.Equal(t, DomainPending, d.Status)
	assert.Nil(t, d.VerifiedAt)
	assert.False(t, d.IsPrimary)

	// Revocation of anything but a verified domain is invalid
	assert.Error(t, d.Revoke())
}

func TestDomainFullLifecycle(t *testing.T) {
	d := &CustomDomain{Status: DomainPending}

	require.NoError(t, d.SubmitForVerification())
	require.NoError(t, d.MarkFailed("lookup timeout"))
	require.NoError(t, d.SubmitForVerification())
	require.NoError(t, d.MarkVerified(time.Now()))
	require.NoError(t, d.Revoke())
	require.NoError(t, d.SubmitForVerification())
	assert.Equal(t, DomainVerifying, d.Status)
}
