package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/bytedance/sonic"
	"resty.dev/v3"
)

var (
	ErrLookupTimeout   = errors.New("payment lookup timed out")
	ErrPaymentNotFound = errors.New("payment not found")
)

// HTTPStatusError is returned when the provider answers with a non-2xx
// status other than 404.
type HTTPStatusError struct {
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.Status)
}

// MercadoPagoAdapter talks to the Mercado Pago payments API. The injected
// client carries the hard request timeout; the adapter never retries — on a
// dropped notification the provider is expected to redeliver.
type MercadoPagoAdapter struct {
	client      *resty.Client
	baseUrl     string
	accessToken string
}

func NewMercadoPagoAdapter(client *resty.Client, baseUrl string, accessToken string) *MercadoPagoAdapter {
	return &MercadoPagoAdapter{
		client:      client,
		baseUrl:     baseUrl,
		accessToken: accessToken,
	}
}

// TokenConfigured reports whether the provider credential is present. Its
// absence is not fatal until a provider call is attempted.
func (a *MercadoPagoAdapter) TokenConfigured() bool {
	return a.accessToken != ""
}

// GetPayment fetches the canonical payment record for the given id.
func (a *MercadoPagoAdapter) GetPayment(id string) (CanonicalPayment, error) {
	res, err := a.client.R().
		SetAuthToken(a.accessToken).
		SetDoNotParseResponse(true).
		Get(a.baseUrl + "/v1/payments/" + id)
	if err != nil {
		return CanonicalPayment{}, classifyTransportError(err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode() == 404:
		return CanonicalPayment{}, ErrPaymentNotFound
	case res.StatusCode() >= 300:
		return CanonicalPayment{}, &HTTPStatusError{Status: res.StatusCode()}
	}

	var parsed paymentDetailsResponse
	if err := sonic.ConfigFastest.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return CanonicalPayment{}, fmt.Errorf("failed to decode payment %s: %w", id, err)
	}

	payerName := parsed.Payer.FirstName
	if payerName == "" {
		payerName = AnonymousDonor
	}

	return CanonicalPayment{
		ID:        parsed.ID.String(),
		Status:    PaymentStatus(parsed.Status),
		Amount:    parsed.TransactionAmount,
		PayerName: payerName,
	}, nil
}

type PaymentPayer struct {
	Email string `json:"email"`
}

type PaymentCreateRequest struct {
	TransactionAmount float64      `json:"transaction_amount"`
	Description       string       `json:"description"`
	ExternalReference string       `json:"external_reference"`
	NotificationURL   string       `json:"notification_url"`
	PaymentMethodID   string       `json:"payment_method_id"`
	Payer             PaymentPayer `json:"payer"`
}

type paymentCreateResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	Description        string      `json:"description"`
	TransactionAmount  float64     `json:"transaction_amount"`
	DateOfExpiration   string      `json:"date_of_expiration"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// QRPayment is the subset of a created PIX payment the donation endpoints
// expose.
type QRPayment struct {
	ID           string
	Status       string
	Description  string
	Amount       float64
	QRCode       string
	QRCodeBase64 string
	TicketURL    string
	ExpiresAt    string
}

// CreatePayment creates a PIX payment and returns its QR code material.
func (a *MercadoPagoAdapter) CreatePayment(req PaymentCreateRequest) (QRPayment, error) {
	res, err := a.client.R().
		SetAuthToken(a.accessToken).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetDoNotParseResponse(true).
		Post(a.baseUrl + "/v1/payments")
	if err != nil {
		return QRPayment{}, classifyTransportError(err)
	}
	defer res.Body.Close()

	if res.StatusCode() >= 300 {
		return QRPayment{}, &HTTPStatusError{Status: res.StatusCode()}
	}

	var parsed paymentCreateResponse
	if err := sonic.ConfigFastest.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return QRPayment{}, fmt.Errorf("failed to decode created payment: %w", err)
	}

	return QRPayment{
		ID:           parsed.ID.String(),
		Status:       parsed.Status,
		Description:  parsed.Description,
		Amount:       parsed.TransactionAmount,
		QRCode:       parsed.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: parsed.PointOfInteraction.TransactionData.QRCodeBase64,
		TicketURL:    parsed.PointOfInteraction.TransactionData.TicketURL,
		ExpiresAt:    parsed.DateOfExpiration,
	}, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrLookupTimeout
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrLookupTimeout
	}

	return fmt.Errorf("provider request failed: %w", err)
}
