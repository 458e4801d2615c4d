package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
)

func TestServiceBeginUsesSnapshotAmount(t *testing.T) {
	svc, _, store := newTestService(t)

	p, b, err := svc.Begin(context.Background(), testBookingID, quote.PaymentDeposit, ProviderStripe)
	require.NoError(t, err)
	assert.Equal(t, testBookingID, b.ID)
	assert.Equal(t, money.MustParse("294.93"), p.Amount)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, fixedNow, p.CreatedAt)

	stored, err := store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Amount, stored.Amount)

	p, _, err = svc.Begin(context.Background(), testBookingID, quote.PaymentFinal, ProviderPayPal)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("983.10"), p.Amount)
}

func TestServiceBeginErrors(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Begin(ctx, "  ", quote.PaymentDeposit, ProviderStripe)
	assert.ErrorIs(t, err, booking.ErrInvalidDraft)

	_, _, err = svc.Begin(ctx, "missing", quote.PaymentDeposit, ProviderStripe)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	ledger.bookings[testBookingID].Pricing = nil
	_, _, err = svc.Begin(ctx, testBookingID, quote.PaymentDeposit, ProviderStripe)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestServiceBeginAfterDeposit(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	ctx := context.Background()
	ledger.bookings[testBookingID].Pricing.PaymentStatus = quote.StatusDepositPaid
	ledger.bookings[testBookingID].Pricing.AmountPaid = money.MustParse("294.93")

	_, _, err := svc.Begin(ctx, testBookingID, quote.PaymentDeposit, ProviderStripe)
	assert.ErrorIs(t, err, booking.ErrSnapshotLocked)

	p, _, err := svc.Begin(ctx, testBookingID, quote.PaymentRemainingBalance, ProviderStripe)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("688.17"), p.Amount)
}

func TestServiceCheckout(t *testing.T) {
	svc, _, store := newTestService(t)
	checkout := &stubCheckout{}

	p, link, err := svc.Checkout(context.Background(), ProviderStripe, checkout, testBookingID, quote.PaymentDeposit,
		"https://book.example.com/success", "")
	require.NoError(t, err)
	require.Len(t, checkout.params, 1)

	params := checkout.params[0]
	assert.Equal(t, p.ID, params.PaymentID)
	assert.Equal(t, money.MustParse("294.93"), params.Amount)
	assert.Equal(t, "sara@example.com", params.CustomerEmail)
	assert.Equal(t, "Deposit - Bridal booking", params.Description)
	assert.Equal(t, "https://book.example.com/success", params.SuccessURL)

	stored, err := store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, link.ProviderID, stored.ProviderRef)
}

func TestServiceCheckoutProviderFailure(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, _, err := svc.Checkout(context.Background(), ProviderStripe, &stubCheckout{err: errors.New("boom")},
		testBookingID, quote.PaymentDeposit, "", "")
	assert.ErrorIs(t, err, booking.ErrPaymentProvider)

	_, _, err = svc.Checkout(context.Background(), ProviderStripe, nil, testBookingID, quote.PaymentDeposit, "", "")
	assert.ErrorIs(t, err, booking.ErrConfiguration)
}

func TestServiceCompleteIsIdempotent(t *testing.T) {
	svc, ledger, store := newTestService(t)
	ctx := context.Background()

	p, _, err := svc.Begin(ctx, testBookingID, quote.PaymentDeposit, ProviderStripe)
	require.NoError(t, err)

	b, err := svc.Complete(ctx, p, "pi_123", 0, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusDepositPaid, b.PaymentStatus())
	assert.Equal(t, money.MustParse("688.17"), b.RemainingBalance())

	_, err = svc.Complete(ctx, p, "pi_123", 0, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusDepositPaid, ledger.status(t))

	stored, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, stored.Status)
	assert.Equal(t, "pi_123", stored.ProviderRef)

	require.Len(t, ledger.confirmed, 2)
	assert.Equal(t, p.ID.String(), ledger.confirmed[0].PaymentID)
	assert.Equal(t, money.MustParse("294.93"), ledger.confirmed[0].Amount)
}

func TestServiceCheckoutVelocity(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := DefaultVelocityConfig()
	cfg.MaxCheckoutsPerBooking = 2
	svc, _, _ := newTestService(t)
	svc.WithVelocity(NewVelocityChecker(client, cfg, quietLogger()))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _, err := svc.Begin(ctx, testBookingID, quote.PaymentDeposit, ProviderStripe)
		require.NoError(t, err)
	}
	_, _, err := svc.Begin(ctx, testBookingID, quote.PaymentDeposit, ProviderStripe)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}
