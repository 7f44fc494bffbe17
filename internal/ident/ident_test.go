package ident

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierFormats(t *testing.T) {
	now := time.Date(2026, 7, 14, 12, 0, 0, 0, time.UTC)

	ref, err := BookingReference(now)
	require.NoError(t, err)
	assert.Regexp(t, `^KK20260714[0-9A-F]{8}$`, ref)

	pay, err := PaymentReference(now)
	require.NoError(t, err)
	assert.Regexp(t, `^PAY20260714[0-9A-F]{8}$`, pay)

	tkt, err := TicketNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, `^TKT20260714[0-9A-F]{12}$`, tkt)
}

func TestIdentifiersAreUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref, err := BookingReference(now)
		require.NoError(t, err)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}
