package payments

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
)

// fakePayPal mimics the orders API: a token endpoint, order creation and capture.
type fakePayPal struct {
	tokenCalls   atomic.Int32
	captureState string
	lastCreate   map[string]any
	requestIDs   []string
}

func (f *fakePayPal) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.tokenCalls.Add(1)
		_, _ = io.WriteString(w, `{"access_token":"tok-1","expires_in":3600}`)
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.requestIDs = append(f.requestIDs, r.Header.Get("PayPal-Request-Id"))
		f.lastCreate = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastCreate)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"ORDER-1","status":"CREATED"}`)
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER-1/capture", func(w http.ResponseWriter, r *http.Request) {
		state := f.captureState
		if state == "" {
			state = "COMPLETED"
		}
		_, _ = io.WriteString(w, `{"id":"ORDER-1","status":"`+state+`","purchase_units":[{"reference_id":"b","custom_id":"","payments":{"captures":[{"id":"CAP-9","status":"COMPLETED","amount":{"currency_code":"CAD","value":"294.93"}}]}}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPayPalClientCreateOrderCachesToken(t *testing.T) {
	fake := &fakePayPal{}
	srv := fake.server(t)
	client := NewPayPalClient("client", "secret", srv.URL, quietLogger())

	svc, _, _ := newTestService(t)
	p, b, err := svc.Begin(t.Context(), testBookingID, quote.PaymentDeposit, ProviderPayPal)
	require.NoError(t, err)

	params := CheckoutParams{PaymentID: p.ID, BookingID: b.ID, Amount: p.Amount, Description: "Deposit"}
	order, err := client.CreateOrder(t.Context(), params)
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", order.ID)

	_, err = client.CreateOrder(t.Context(), params)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
	assert.Equal(t, []string{p.ID.String(), p.ID.String()}, fake.requestIDs)

	assert.Equal(t, "CAPTURE", fake.lastCreate["intent"])
	units := fake.lastCreate["purchase_units"].([]any)
	unit := units[0].(map[string]any)
	assert.Equal(t, testBookingID, unit["reference_id"])
	assert.Equal(t, p.ID.String(), unit["custom_id"])
	amount := unit["amount"].(map[string]any)
	assert.Equal(t, "CAD", amount["currency_code"])
	assert.Equal(t, "294.93", amount["value"])
	_, hasPayments := unit["payments"]
	assert.False(t, hasPayments)
}

func TestPayPalClientBadCredentials(t *testing.T) {
	srv := (&fakePayPal{}).server(t)
	client := NewPayPalClient("client", "wrong", srv.URL, quietLogger())
	_, err := client.CaptureOrder(t.Context(), "ORDER-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token status 401")
}

func TestPayPalOrderHelpers(t *testing.T) {
	var order PayPalOrder
	require.NoError(t, json.Unmarshal([]byte(`{"id":"O","status":"COMPLETED","purchase_units":[
		{"custom_id":"pay-1","payments":{"captures":[
			{"id":"C1","status":"COMPLETED","amount":{"value":"100.00"}},
			{"id":"C2","status":"DECLINED","amount":{"value":"50.00"}}
		]}}]}`), &order))
	assert.Equal(t, "C1", order.CaptureID())
	assert.Equal(t, "pay-1", order.CustomID())
	assert.Equal(t, money.MustParse("100.00"), order.CapturedAmount())

	assert.Equal(t, PayPalLiveURL, PayPalBaseURL("LIVE"))
	assert.Equal(t, PayPalSandboxURL, PayPalBaseURL(""))
}

func newPayPalRouter(t *testing.T, fake *fakePayPal) (http.Handler, *stubLedger, *stubProcessedTracker) {
	t.Helper()
	srv := fake.server(t)
	svc, ledger, _ := newTestService(t)
	processed := &stubProcessedTracker{}
	r := chi.NewRouter()
	NewPayPalHandler(svc, NewPayPalClient("client", "secret", srv.URL, quietLogger()), processed, quietLogger()).Routes(r)
	return r, ledger, processed
}

func TestPayPalHandlerCreateAndCapture(t *testing.T) {
	h, ledger, processed := newPayPalRouter(t, &fakePayPal{})

	rec := postJSON(t, h, "/paypal/create-order", `{"bookingId":"`+testBookingID+`","paymentType":"deposit"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		ID          string       `json:"id"`
		PaymentType string       `json:"payment_type"`
		Amount      money.Amount `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "ORDER-1", created.ID)
	assert.Equal(t, "deposit", created.PaymentType)
	assert.Equal(t, money.MustParse("294.93"), created.Amount)

	rec = postJSON(t, h, "/paypal/capture-order/ORDER-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var captured struct {
		Success          bool         `json:"success"`
		CaptureID        string       `json:"captureId"`
		PaymentStatus    string       `json:"payment_status"`
		RemainingBalance money.Amount `json:"remaining_balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &captured))
	assert.True(t, captured.Success)
	assert.Equal(t, "CAP-9", captured.CaptureID)
	assert.Equal(t, "deposit_paid", captured.PaymentStatus)
	assert.Equal(t, money.MustParse("688.17"), captured.RemainingBalance)
	assert.True(t, processed.seen["paypal:ORDER-1"])

	// A replayed capture is acknowledged without touching the booking again.
	rec = postJSON(t, h, "/paypal/capture-order/ORDER-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ledger.confirmed, 1)
	assert.Equal(t, ProviderPayPal, ledger.confirmed[0].Provider)
	assert.Equal(t, money.MustParse("294.93"), ledger.confirmed[0].Amount)
	assert.Equal(t, quote.StatusDepositPaid, ledger.status(t))
}

func TestPayPalHandlerCaptureNotCompleted(t *testing.T) {
	h, ledger, _ := newPayPalRouter(t, &fakePayPal{captureState: "PAYER_ACTION_REQUIRED"})

	rec := postJSON(t, h, "/paypal/create-order", `{"bookingId":"`+testBookingID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, h, "/paypal/capture-order/ORDER-1", "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Empty(t, ledger.confirmed)
	assert.Equal(t, quote.StatusUnpaid, ledger.status(t))
}

func TestPayPalHandlerUnknownOrder(t *testing.T) {
	h, _, _ := newPayPalRouter(t, &fakePayPal{})
	rec := postJSON(t, h, "/paypal/capture-order/ORDER-404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, h, "/paypal/create-order", `{"bookingId":"`+testBookingID+`","paymentType":"refund"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "payment_type"))
}
