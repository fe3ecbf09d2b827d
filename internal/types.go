package internal

import (
	"encoding/json"
	"time"
)

// AnonymousDonor labels donations whose payer did not share a name.
const AnonymousDonor = "Anonymous"

type ActionKind int

const (
	ActionUnrecognized ActionKind = iota
	ActionPaymentCreated
	ActionPaymentUpdated
)

func (a ActionKind) String() string {
	switch a {
	case ActionPaymentCreated:
		return "payment.created"
	case ActionPaymentUpdated:
		return "payment.updated"
	default:
		return "unrecognized"
	}
}

// NormalizedNotification is what remains of a raw webhook body after
// normalization: a payment id hint and the claimed action. The body is never
// trusted for amounts or status.
type NormalizedNotification struct {
	PaymentID string
	Action    ActionKind
}

// Actionable reports whether the notification warrants a provider lookup.
func (n NormalizedNotification) Actionable() bool {
	return n.Action != ActionUnrecognized && n.PaymentID != ""
}

type PaymentStatus string

const (
	StatusApproved PaymentStatus = "approved"
	StatusPending  PaymentStatus = "pending"
	StatusRejected PaymentStatus = "rejected"
)

// CanonicalPayment is the authoritative payment record fetched from Mercado
// Pago. It overrides anything the webhook body claimed.
type CanonicalPayment struct {
	ID        string
	Status    PaymentStatus
	Amount    float64
	PayerName string
}

type paymentDetailsResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	TransactionAmount float64     `json:"transaction_amount"`
	Payer             struct {
		FirstName string `json:"first_name"`
	} `json:"payer"`
}

// LastDonation is the advisory display snapshot of the most recent donation.
// A zero Date means no donation has been applied since the last reset.
type LastDonation struct {
	Amount float64
	Date   time.Time
	Donor  string
}

// DonationSnapshot is a consistent copy of the aggregate state.
type DonationSnapshot struct {
	TotalAmount float64
	Count       int
	Last        LastDonation
}

type StatusResponse struct {
	Total        string               `json:"total"`
	LastDonation LastDonationResponse `json:"lastDonation"`
	Count        int                  `json:"count"`
	LastUpdate   string               `json:"lastUpdate"`
}

type LastDonationResponse struct {
	Amount string  `json:"amount"`
	Date   *string `json:"date"`
	Donor  string  `json:"donor"`
}
