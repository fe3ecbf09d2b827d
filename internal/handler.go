package internal

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"coffee-bridge/pkg/parser"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	// Minimum amount Mercado Pago accepts for a PIX payment. The editable
	// QR is created with this value and the payer overrides it in their
	// banking app.
	minDonationAmount = 0.01

	defaultFixedAmount = 5.00
	defaultDescription = "IoT coffee machine donation"
	defaultPayerEmail  = "cafe@example.com"

	hookSecretHeader = "x-hook-secret"
)

type CoffeeHandler struct {
	state      *DonationState
	reconciler *Reconciler
	payments   *MercadoPagoAdapter
}

func NewCoffeeHandler(state *DonationState, reconciler *Reconciler, payments *MercadoPagoAdapter) *CoffeeHandler {
	return &CoffeeHandler{
		state:      state,
		reconciler: reconciler,
		payments:   payments,
	}
}

func (h *CoffeeHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/", h.Root)
	app.Get("/webhook", h.WebhookHandshake)
	app.Post("/webhook", h.Webhook)
	app.Get("/coffee-status", h.CoffeeStatus)
	app.Post("/reset", h.Reset)
	app.Post("/simulate-webhook", h.SimulateWebhook)
	app.Post("/generate-qr", h.GenerateQR)
	app.Post("/generate-qr-fixed", h.GenerateQRFixed)
	app.Get("/qr-page", h.QRPage)

	// Catch-all must come after every route.
	app.Use(h.NotFound)
}

func (h *CoffeeHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":         "coffee bridge server running",
		"status":          "online",
		"timestamp":       parser.FormatRFC3339(time.Now().UTC()),
		"tokenConfigured": h.payments.TokenConfigured(),
	})
}

/*
GET /webhook

Provider handshake: the subscription setup sends an x-hook-secret header and
expects it echoed back unchanged.
*/
func (h *CoffeeHandler) WebhookHandshake(c *fiber.Ctx) error {
	if secret := c.Get(hookSecretHeader); secret != "" {
		c.Set(hookSecretHeader, secret)
	}
	// 200 with an empty body; SendStatus would write the status text.
	return c.SendString("")
}

/*
POST /webhook

	{
	    "action": "payment.updated",
	    "data": { "id": "12345678901" }
	}

Acks 200 before reconciliation runs so the provider never sees this endpoint
as slow and starts a redelivery storm.
*/
func (h *CoffeeHandler) Webhook(c *fiber.Ctx) error {
	if secret := c.Get(hookSecretHeader); secret != "" {
		c.Set(hookSecretHeader, secret)
		return c.SendString("")
	}

	// Fiber reuses the request buffer after the handler returns, so the
	// body is copied before it crosses into the worker pool.
	h.reconciler.Enqueue(utils.CopyBytes(c.Body()))

	return c.SendString("OK")
}

/*
GET /coffee-status

HTTP 200 - Ok

	{
	    "total": "12.50",
	    "lastDonation": { "amount": "5.00", "date": "2025-01-01T12:00:00Z", "donor": "Ana" },
	    "count": 3,
	    "lastUpdate": "2025-01-01T12:34:56Z"
	}
*/
func (h *CoffeeHandler) CoffeeStatus(c *fiber.Ctx) error {
	return c.JSON(statusPayload(h.state.Read()))
}

func (h *CoffeeHandler) Reset(c *fiber.Ctx) error {
	snap := h.state.Reset()
	slog.Info("donation data reset")

	return c.JSON(fiber.Map{
		"message": "donation data reset",
		"data":    statusPayload(snap),
	})
}

/*
POST /simulate-webhook

	{ "paymentId": "12345678901" }

Runs the reconciliation pipeline synchronously for a known payment id.
Test/debug aid.
*/
func (h *CoffeeHandler) SimulateWebhook(c *fiber.Ctx) error {
	var req struct {
		PaymentID string `json:"paymentId"`
	}
	if err := c.BodyParser(&req); err != nil || req.PaymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "paymentId is required"})
	}

	outcome, err := h.reconciler.ReconcilePayment(req.PaymentID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payment not found"})
		}
		slog.Error("simulated reconciliation failed", "paymentId", req.PaymentID, "err", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment lookup failed"})
	}

	return c.JSON(fiber.Map{
		"outcome": outcome.String(),
		"data":    statusPayload(h.state.Read()),
	})
}

/*
POST /generate-qr

Creates an editable-amount PIX payment; the payer types the value in their
banking app.
*/
func (h *CoffeeHandler) GenerateQR(c *fiber.Ctx) error {
	var req struct {
		Description       string `json:"description"`
		ExternalReference string `json:"externalReference"`
	}
	// The body is optional; every field has a default.
	_ = c.BodyParser(&req)

	if req.Description == "" {
		req.Description = defaultDescription
	}
	if req.ExternalReference == "" {
		req.ExternalReference = "coffee-" + uuid.NewString()
	}

	payment, err := h.payments.CreatePayment(PaymentCreateRequest{
		TransactionAmount: minDonationAmount,
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
		NotificationURL:   c.BaseURL() + "/webhook",
		PaymentMethodID:   "pix",
		Payer:             PaymentPayer{Email: defaultPayerEmail},
	})
	if err != nil {
		slog.Error("failed to create editable payment", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to generate QR code",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"payment": fiber.Map{
			"id":             payment.ID,
			"qr_code":        payment.QRCode,
			"qr_code_base64": payment.QRCodeBase64,
			"ticket_url":     payment.TicketURL,
			"status":         payment.Status,
			"description":    payment.Description,
		},
	})
}

/*
POST /generate-qr-fixed

	{ "amount": 5.00, "description": "...", "payerEmail": "...", "externalReference": "..." }
*/
func (h *CoffeeHandler) GenerateQRFixed(c *fiber.Ctx) error {
	var req struct {
		Amount            *float64 `json:"amount"`
		Description       string   `json:"description"`
		PayerEmail        string   `json:"payerEmail"`
		ExternalReference string   `json:"externalReference"`
	}
	_ = c.BodyParser(&req)

	amount := defaultFixedAmount
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount < minDonationAmount {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "minimum amount is 0.01",
		})
	}

	if req.Description == "" {
		req.Description = defaultDescription
	}
	if req.PayerEmail == "" {
		req.PayerEmail = defaultPayerEmail
	}
	if req.ExternalReference == "" {
		req.ExternalReference = "coffee-fixed-" + uuid.NewString()
	}

	payment, err := h.payments.CreatePayment(PaymentCreateRequest{
		TransactionAmount: amount,
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
		NotificationURL:   c.BaseURL() + "/webhook",
		PaymentMethodID:   "pix",
		Payer:             PaymentPayer{Email: req.PayerEmail},
	})
	if err != nil {
		slog.Error("failed to create fixed payment", "amount", amount, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to generate QR code",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"payment": fiber.Map{
			"id":             payment.ID,
			"amount":         payment.Amount,
			"qr_code":        payment.QRCode,
			"qr_code_base64": payment.QRCodeBase64,
			"ticket_url":     payment.TicketURL,
			"status":         payment.Status,
			"description":    payment.Description,
			"expires_at":     payment.ExpiresAt,
		},
	})
}

// GET /qr-page serves a donation page embedding the QR code and polling
// /coffee-status.
func (h *CoffeeHandler) QRPage(c *fiber.Ctx) error {
	payment, err := h.payments.CreatePayment(PaymentCreateRequest{
		TransactionAmount: minDonationAmount,
		Description:       defaultDescription,
		ExternalReference: "coffee-web-" + uuid.NewString(),
		NotificationURL:   c.BaseURL() + "/webhook",
		PaymentMethodID:   "pix",
		Payer:             PaymentPayer{Email: defaultPayerEmail},
	})
	if err != nil {
		slog.Error("failed to create payment for donation page", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build donation page"})
	}

	page, err := renderQRPage(payment.QRCodeBase64)
	if err != nil {
		return err
	}

	c.Type("html", "utf-8")
	return c.SendString(page)
}

func (h *CoffeeHandler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "endpoint not found",
		"availableEndpoints": []string{
			"GET /",
			"GET /webhook",
			"POST /webhook",
			"GET /coffee-status",
			"POST /reset",
			"POST /simulate-webhook",
			"POST /generate-qr",
			"POST /generate-qr-fixed",
			"GET /qr-page",
		},
	})
}

func statusPayload(snap DonationSnapshot) StatusResponse {
	var date *string
	if !snap.Last.Date.IsZero() {
		d := parser.FormatRFC3339(snap.Last.Date)
		date = &d
	}

	return StatusResponse{
		Total: formatAmount(snap.TotalAmount),
		LastDonation: LastDonationResponse{
			Amount: formatAmount(snap.Last.Amount),
			Date:   date,
			Donor:  snap.Last.Donor,
		},
		Count:      snap.Count,
		LastUpdate: parser.FormatRFC3339(time.Now().UTC()),
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
