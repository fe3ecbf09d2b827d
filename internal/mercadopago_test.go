package internal

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"resty.dev/v3"
)

func newAdapter(t *testing.T, url string, timeout time.Duration) *MercadoPagoAdapter {
	t.Helper()

	client := resty.New().SetTimeout(timeout)
	t.Cleanup(func() { client.Close() })
	return NewMercadoPagoAdapter(client, url, "test-token")
}

func TestGetPaymentParsesDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/123", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		io.WriteString(w, `{"id":123,"status":"approved","transaction_amount":7.25,"payer":{"first_name":"Ana"}}`)
	}))
	t.Cleanup(srv.Close)

	payment, err := newAdapter(t, srv.URL, time.Second).GetPayment("123")

	require.NoError(t, err)
	assert.Equal(t, "123", payment.ID)
	assert.Equal(t, StatusApproved, payment.Status)
	assert.InDelta(t, 7.25, payment.Amount, 1e-9)
	assert.Equal(t, "Ana", payment.PayerName)
}

func TestGetPaymentDefaultsPayerName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":123,"status":"approved","transaction_amount":1.00,"payer":{}}`)
	}))
	t.Cleanup(srv.Close)

	payment, err := newAdapter(t, srv.URL, time.Second).GetPayment("123")

	require.NoError(t, err)
	assert.Equal(t, AnonymousDonor, payment.PayerName)
}

func TestGetPaymentNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := newAdapter(t, srv.URL, time.Second).GetPayment("999")

	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestGetPaymentHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := newAdapter(t, srv.URL, time.Second).GetPayment("123")

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
}

func TestGetPaymentTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	_, err := newAdapter(t, srv.URL, 50*time.Millisecond).GetPayment("123")

	require.ErrorIs(t, err, ErrLookupTimeout)
}

func TestGetPaymentNetworkError(t *testing.T) {
	// Nothing listens here; the dial fails.
	_, err := newAdapter(t, "http://127.0.0.1:1", time.Second).GetPayment("123")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaymentNotFound)
}

func TestCreatePaymentParsesQRMaterial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"payment_method_id":"pix"`)

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{
			"id": 555,
			"status": "pending",
			"description": "IoT coffee machine donation",
			"transaction_amount": 5.00,
			"date_of_expiration": "2025-01-02T00:00:00Z",
			"point_of_interaction": {
				"transaction_data": {
					"qr_code": "00020126pixcode",
					"qr_code_base64": "aGVsbG8=",
					"ticket_url": "https://provider.test/ticket/555"
				}
			}
		}`)
	}))
	t.Cleanup(srv.Close)

	payment, err := newAdapter(t, srv.URL, time.Second).CreatePayment(PaymentCreateRequest{
		TransactionAmount: 5.00,
		Description:       "IoT coffee machine donation",
		ExternalReference: "coffee-test",
		NotificationURL:   "https://bridge.test/webhook",
		PaymentMethodID:   "pix",
		Payer:             PaymentPayer{Email: "cafe@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, "555", payment.ID)
	assert.Equal(t, "pending", payment.Status)
	assert.Equal(t, "00020126pixcode", payment.QRCode)
	assert.Equal(t, "aGVsbG8=", payment.QRCodeBase64)
	assert.Equal(t, "https://provider.test/ticket/555", payment.TicketURL)
	assert.Equal(t, "2025-01-02T00:00:00Z", payment.ExpiresAt)
}
