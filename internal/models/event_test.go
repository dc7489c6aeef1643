package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    EventStatus
		to      EventStatus
		allowed bool
	}{
		{EventDraft, EventPublished, true},
		{EventDraft, EventCancelled, true},
		{EventDraft, EventCompleted, false},
		{EventPublished, EventCancelled, true},
		{EventPublished, EventCompleted, true},
		{EventPublished, EventDraft, false},
		{EventCancelled, EventPublished, false},
		{EventCompleted, EventPublished, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+" to "+string(tt.to), func(t *testing.T) {
			e := &Event{Status: tt.from}
			assert.Equal(t, tt.allowed, e.CanTransitionTo(tt.to))
		})
	}
}

func TestEventIsPubliclyResolvable(t *testing.T) {
	assert.True(t, (&Event{Status: EventPublished, Visibility: VisibilityPublic}).IsPubliclyResolvable())
	assert.False(t, (&Event{Status: EventPublished, Visibility: VisibilityPrivate}).IsPubliclyResolvable())
	assert.False(t, (&Event{Status: EventDraft, Visibility: VisibilityPublic}).IsPubliclyResolvable())
	assert.False(t, (&Event{Status: EventCancelled, Visibility: VisibilityPublic}).IsPubliclyResolvable())
}

func TestEventRegistrationOpenAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	e := &Event{Status: EventPublished, RegistrationStart: start, RegistrationEnd: end}

	assert.False(t, e.RegistrationOpenAt(start.Add(-time.Hour)))
	assert.True(t, e.RegistrationOpenAt(start))
	assert.True(t, e.RegistrationOpenAt(start.AddDate(0, 0, 10)))
	assert.True(t, e.RegistrationOpenAt(end))
	assert.False(t, e.RegistrationOpenAt(end.Add(time.Hour)))

	// A closed window in a draft event is never open
	e.Status = EventDraft
	assert.False(t, e.RegistrationOpenAt(start.AddDate(0, 0, 10)))
}

func TestEventPriceAt(t *testing.T) {
	earlyEnd := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	e := &Event{RegularPrice: 10000, EarlyBirdPrice: 7500, EarlyBirdEnd: &earlyEnd}

	assert.Equal(t, int64(7500), e.PriceAt(earlyEnd.Add(-time.Hour)))
	assert.Equal(t, int64(7500), e.PriceAt(earlyEnd))
	assert.Equal(t, int64(10000), e.PriceAt(earlyEnd.Add(time.Hour)))

	// No early-bird tier configured
	e.EarlyBirdEnd = nil
	assert.Equal(t, int64(10000), e.PriceAt(earlyEnd.Add(-time.Hour)))
}
