package internal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAccumulates(t *testing.T) {
	state := NewDonationState()

	state.Apply(CanonicalPayment{ID: "1", Status: StatusApproved, Amount: 5.00, PayerName: "Ana"})
	snap := state.Apply(CanonicalPayment{ID: "2", Status: StatusApproved, Amount: 2.50, PayerName: "Bruno"})

	assert.InDelta(t, 7.50, snap.TotalAmount, 1e-9)
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, "Bruno", snap.Last.Donor)
	assert.InDelta(t, 2.50, snap.Last.Amount, 1e-9)
	assert.False(t, snap.Last.Date.IsZero())
}

func TestApplyReflectsLastDonation(t *testing.T) {
	state := NewDonationState()

	state.Apply(CanonicalPayment{ID: "1", Status: StatusApproved, Amount: 3.25, PayerName: "Ana"})
	snap := state.Read()

	assert.InDelta(t, 3.25, snap.Last.Amount, 1e-9)
	assert.Equal(t, "Ana", snap.Last.Donor)
}

func TestApplyDefaultsAnonymousDonor(t *testing.T) {
	state := NewDonationState()

	snap := state.Apply(CanonicalPayment{ID: "1", Status: StatusApproved, Amount: 1.00})

	assert.Equal(t, AnonymousDonor, snap.Last.Donor)
}

// Concurrent applies must all land: total == sum of amounts, count == number
// of applies, regardless of interleaving.
func TestApplyConcurrent(t *testing.T) {
	state := NewDonationState()

	const goroutines = 100
	const amount = 0.50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			state.Apply(CanonicalPayment{ID: "1", Status: StatusApproved, Amount: amount, PayerName: "Ana"})
		}()
	}
	wg.Wait()

	snap := state.Read()
	require.Equal(t, goroutines, snap.Count)
	require.InDelta(t, goroutines*amount, snap.TotalAmount, 1e-6)
}

func TestResetClearsState(t *testing.T) {
	state := NewDonationState()
	state.Apply(CanonicalPayment{ID: "1", Status: StatusApproved, Amount: 5.00, PayerName: "Ana"})

	snap := state.Reset()

	assert.Zero(t, snap.TotalAmount)
	assert.Zero(t, snap.Count)
	assert.Zero(t, snap.Last.Amount)
	assert.True(t, snap.Last.Date.IsZero())
	assert.Equal(t, AnonymousDonor, snap.Last.Donor)

	assert.Equal(t, snap, state.Read())
}

func TestReadOnFreshState(t *testing.T) {
	snap := NewDonationState().Read()

	assert.Zero(t, snap.TotalAmount)
	assert.Zero(t, snap.Count)
	assert.Equal(t, AnonymousDonor, snap.Last.Donor)
}
