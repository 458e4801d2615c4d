package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/bridal-quote-platform/internal/availability"
	"github.com/wolfman30/bridal-quote-platform/internal/bookings"
	"github.com/wolfman30/bridal-quote-platform/internal/http/handlers"
	"github.com/wolfman30/bridal-quote-platform/internal/payments"
	"github.com/wolfman30/bridal-quote-platform/internal/pricing"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

type testRouter struct {
	http.Handler
	bookings *bookings.Service
}

func newTestRouter(t *testing.T, mutate func(*Config)) *testRouter {
	t.Helper()
	logger := logging.NewWithWriter("error", io.Discard)

	table, err := pricing.DefaultRateTable()
	if err != nil {
		t.Fatalf("rate table: %v", err)
	}
	svc := bookings.NewService(bookings.NewInMemoryRepository(), pricing.NewCalculator(table),
		availability.NewGate(2, 0, time.UTC), logger)

	paymentSvc := payments.NewService(svc, payments.NewInMemoryStore(), logger)
	fake := payments.NewFakeCheckoutService("https://api.studio.example", logger)

	reg := prometheus.NewRegistry()
	cfg := &Config{
		Logger:          logger,
		Bookings:        bookings.NewHandler(svc, logger),
		Checkout:        payments.NewCheckoutHandler(paymentSvc, fake, payments.ProviderFake, logger),
		FakePayments:    payments.NewFakePaymentsHandler(paymentSvc, nil, "", logger),
		AdminAuthSecret: "admin-secret",
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if mutate != nil {
		mutate(cfg)
	}
	return &testRouter{Handler: New(cfg), bookings: svc}
}

func (tr *testRouter) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := router.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterHealthReportsFailingDependency(t *testing.T) {
	router := newTestRouter(t, func(cfg *Config) {
		cfg.HealthChecks = map[string]HealthCheck{
			"postgres": func(ctx context.Context) error { return nil },
			"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
		}
	})

	rr := router.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "degraded" || resp["redis"] != "connection refused" || resp["postgres"] != "ok" {
		t.Fatalf("unexpected health body %v", resp)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	rr := router.do(t, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", rr.Code)
	}
}

func TestRouterAdminRoutesRequireToken(t *testing.T) {
	logger := logging.NewWithWriter("error", io.Discard)
	router := newTestRouter(t, func(cfg *Config) {
		table, _ := pricing.DefaultRateTable()
		svc := bookings.NewService(bookings.NewInMemoryRepository(), pricing.NewCalculator(table),
			availability.NewGate(2, 0, time.UTC), logger)
		paymentSvc := payments.NewService(svc, payments.NewInMemoryStore(), logger)
		interac := payments.NewInteracService(paymentSvc, payments.NewInMemoryStore(), nil,
			payments.InteracConfig{RecipientEmail: "pay@studio.example"}, logger)
		cfg.Interac = payments.NewInteracHandler(interac, logger)
	})

	rr := router.do(t, http.MethodPost, "/admin/interac/screenshots/6f1c2d9e-8a47-4b52-9d1e-0c3b7a5e2f10/verify", `{"approved":true}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	rr = router.do(t, http.MethodGet, "/interac/payment-info/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected public interac route mounted, got %d", rr.Code)
	}
}

func TestRouterUnmountedRoutes(t *testing.T) {
	router := newTestRouter(t, nil)
	for _, path := range []string{"/paypal/create-order", "/webhooks/stripe", "/drafts/sess-12345678/booking_draft"} {
		rr := router.do(t, http.MethodPost, path, "{}")
		if rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected route absent, got %d", path, rr.Code)
		}
	}
}

// TestRouterDepositFlow walks a booking from creation through a fake card
// deposit and checks the frozen snapshot.
func TestRouterDepositFlow(t *testing.T) {
	router := newTestRouter(t, nil)
	eventDate := time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02")

	rr := router.do(t, http.MethodPost, "/bookings", `{
		"service_type": "Bridal",
		"event_date": "`+eventDate+`",
		"party_counts": {"both": 2, "dupatta": 1},
		"client": {"name": "Sara Khan", "email": "sara@example.com"}
	}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create booking: %d %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Booking struct {
			ID string `json:"booking_id"`
		} `json:"booking"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	id := created.Booking.ID

	rr = router.do(t, http.MethodPut, "/bookings/"+id+"/quote-selections",
		`{"selectedArtist":"lead","agreedToTerms":true,"signature":"Sara Khan"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("save selections: %d %s", rr.Code, rr.Body.String())
	}

	rr = router.do(t, http.MethodPost, "/stripe/create-checkout-session", `{"bookingId":"`+id+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("checkout: %d %s", rr.Code, rr.Body.String())
	}
	var session struct {
		URL       string `json:"url"`
		PaymentID string `json:"payment_id"`
		Provider  string `json:"provider"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Provider != payments.ProviderFake {
		t.Fatalf("expected fake provider, got %s", session.Provider)
	}
	if !strings.HasPrefix(session.URL, "https://api.studio.example/payments/fake/") {
		t.Fatalf("unexpected checkout url %s", session.URL)
	}

	rr = router.do(t, http.MethodPost, "/payments/fake/"+session.PaymentID+"/complete", "")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("complete: %d %s", rr.Code, rr.Body.String())
	}

	b, err := router.bookings.Lookup(context.Background(), id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := string(b.PaymentStatus()); got != "deposit_paid" {
		t.Fatalf("expected deposit_paid, got %s", got)
	}
	if b.Pricing.AmountPaid != b.Pricing.Deposit {
		t.Fatalf("expected amount paid %s to equal deposit %s", b.Pricing.AmountPaid, b.Pricing.Deposit)
	}

	rr = router.do(t, http.MethodPut, "/bookings/"+id+"/quote-selections",
		`{"selectedArtist":"team","agreedToTerms":true,"signature":"Sara Khan"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected snapshot locked after deposit, got %d", rr.Code)
	}
}

func TestRouterAdminDepositsWithToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	router := newTestRouter(t, func(cfg *Config) {
		cfg.AdminDeposits = handlers.NewAdminDepositsHandler(db, time.UTC, logging.NewWithWriter("error", io.Discard))
	})

	rr := router.do(t, http.MethodGet, "/admin/deposits", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments p`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY p.created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "booking_id", "client_name", "client_email", "service_type", "event_date",
			"payment_type", "amount_cents", "status", "provider", "provider_ref", "created_at",
		}))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "studio-owner",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	})
	signed, err := token.SignedString([]byte("admin-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/deposits", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
