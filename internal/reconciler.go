package internal

import (
	"context"
	"log/slog"
	"sync"
)

// Outcome is the terminal state of one notification's reconciliation.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeApplied
	OutcomeNotApproved
	OutcomeLookupFailed
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNotApproved:
		return "not_approved"
	case OutcomeLookupFailed:
		return "lookup_failed"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "ignored"
	}
}

// PaymentLookup fetches the authoritative payment record for an id.
type PaymentLookup interface {
	GetPayment(id string) (CanonicalPayment, error)
}

// Reconciler turns untrusted webhook notifications into verified state
// mutations: normalize the body, re-fetch the payment from the provider, and
// apply it to the aggregate only when the canonical status is approved.
//
// Ingestion is detached from the webhook handler through a buffered queue so
// the provider always gets its ack before any provider round trip happens.
type Reconciler struct {
	lookup PaymentLookup
	state  *DonationState
	queue  chan []byte

	// dedup is an opt-in extension; the provider re-applies redelivered
	// approved payments when it is off, matching the original bridge.
	dedup   bool
	mu      sync.Mutex
	applied map[string]struct{}
}

func NewReconciler(lookup PaymentLookup, state *DonationState, queueSize int, dedup bool) *Reconciler {
	return &Reconciler{
		lookup:  lookup,
		state:   state,
		queue:   make(chan []byte, queueSize),
		dedup:   dedup,
		applied: make(map[string]struct{}),
	}
}

// Enqueue hands a raw notification body to the worker pool. raw must not be
// reused by the caller afterwards.
func (r *Reconciler) Enqueue(raw []byte) {
	r.queue <- raw
}

// StartWorkers launches the reconciliation workers. They drain the queue
// until ctx is cancelled; failures are logged and never reach the handler
// that already acknowledged the webhook.
func (r *Reconciler) StartWorkers(ctx context.Context, workers int) {
	for range workers {
		go r.run(ctx)
	}
}

func (r *Reconciler) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-r.queue:
			outcome, err := r.Reconcile(raw)
			if err != nil {
				slog.Error("notification dropped", "outcome", outcome.String(), "err", err)
				continue
			}
			slog.Debug("notification reconciled", "outcome", outcome.String())
		}
	}
}

// Reconcile runs a single notification through the full pipeline.
func (r *Reconciler) Reconcile(raw []byte) (Outcome, error) {
	notification := Normalize(raw)
	if !notification.Actionable() {
		slog.Debug("notification not actionable", "body", string(raw))
		return OutcomeIgnored, nil
	}

	return r.ReconcilePayment(notification.PaymentID)
}

// ReconcilePayment looks up a payment id and applies it when approved. It is
// also the synchronous path behind the webhook simulation endpoint.
func (r *Reconciler) ReconcilePayment(paymentId string) (Outcome, error) {
	payment, err := r.lookup.GetPayment(paymentId)
	if err != nil {
		return OutcomeLookupFailed, err
	}

	if payment.Status != StatusApproved {
		slog.Debug("payment not approved", "id", payment.ID, "status", payment.Status)
		return OutcomeNotApproved, nil
	}

	if r.dedup && !r.markApplied(payment.ID) {
		slog.Info("duplicate delivery ignored", "id", payment.ID)
		return OutcomeDuplicate, nil
	}

	snap := r.state.Apply(payment)
	slog.Info("payment approved",
		"id", payment.ID,
		"amount", payment.Amount,
		"payer", payment.PayerName,
		"total", snap.TotalAmount,
		"count", snap.Count,
	)

	return OutcomeApplied, nil
}

// markApplied records the id and reports whether it was new.
func (r *Reconciler) markApplied(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.applied[id]; ok {
		return false
	}
	r.applied[id] = struct{}{}
	return true
}
