package internal

import (
	"sync"
	"time"
)

// DonationState is the process-wide donation aggregate polled by the coffee
// machine. It is owned by the entry point and injected into whatever needs
// it; all mutation goes through Apply and Reset under the write lock, so
// readers never observe a partially applied donation.
type DonationState struct {
	mu   sync.RWMutex
	snap DonationSnapshot
}

func NewDonationState() *DonationState {
	return &DonationState{snap: initialSnapshot()}
}

func initialSnapshot() DonationSnapshot {
	return DonationSnapshot{
		Last: LastDonation{Donor: AnonymousDonor},
	}
}

// Apply folds an approved payment into the aggregate and returns the new
// snapshot. The caller must have confirmed the payment is approved.
func (s *DonationState) Apply(p CanonicalPayment) DonationSnapshot {
	donor := p.PayerName
	if donor == "" {
		donor = AnonymousDonor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.TotalAmount += p.Amount
	s.snap.Count++
	s.snap.Last = LastDonation{
		Amount: p.Amount,
		Date:   time.Now().UTC(),
		Donor:  donor,
	}

	return s.snap
}

// Reset clears the aggregate back to its initial zero values.
func (s *DonationState) Reset() DonationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = initialSnapshot()
	return s.snap
}

// Read returns a consistent copy of the aggregate.
func (s *DonationState) Read() DonationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap
}
