// Package quote presents calculator output and freezes it into the pricing
// snapshot stored with a booking.
package quote

import (
	"fmt"
	"strings"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/pricing"
)

// PaymentStatus tracks how much of a snapshot has been paid.
type PaymentStatus string

const (
	StatusUnpaid      PaymentStatus = "unpaid"
	StatusDepositPaid PaymentStatus = "deposit_paid"
	StatusFullyPaid   PaymentStatus = "fully_paid"
)

func (s PaymentStatus) rank() int {
	switch s {
	case StatusDepositPaid:
		return 1
	case StatusFullyPaid:
		return 2
	default:
		return 0
	}
}

// PaymentType is what a checkout session collects.
type PaymentType string

const (
	PaymentDeposit          PaymentType = "deposit"
	PaymentRemainingBalance PaymentType = "remaining_balance"
	PaymentFinal            PaymentType = "final"
)

// ParsePaymentType accepts the three wire values; blank means deposit.
func ParsePaymentType(raw string) (PaymentType, error) {
	switch PaymentType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PaymentDeposit:
		return PaymentDeposit, nil
	case PaymentRemainingBalance, "remaining":
		return PaymentRemainingBalance, nil
	case PaymentFinal:
		return PaymentFinal, nil
	default:
		return "", booking.NewFieldError(booking.ErrInvalidDraft, "payment_type", fmt.Sprintf("unrecognized %q", raw))
	}
}

func (t PaymentType) target() PaymentStatus {
	if t == PaymentDeposit {
		return StatusDepositPaid
	}
	return StatusFullyPaid
}

// Snapshot is a frozen quote plus payment progress. Only ApplyPayment changes
// AmountPaid and PaymentStatus; the monetary quote fields never change.
type Snapshot struct {
	ServiceType       booking.ServiceType `json:"service_type"`
	Artist            booking.Artist      `json:"artist"`
	Services          []string            `json:"services"`
	Subtotal          money.Amount        `json:"subtotal"`
	HST               money.Amount        `json:"hst"`
	Total             money.Amount        `json:"total"`
	Deposit           money.Amount        `json:"deposit_amount"`
	Remaining         money.Amount        `json:"remaining_amount"`
	DepositPercentage money.BasisPoints   `json:"deposit_percentage_bps"`
	AmountPaid        money.Amount        `json:"amount_paid"`
	PaymentStatus     PaymentStatus       `json:"payment_status"`
}

// BuildSnapshot freezes q with nothing paid yet.
func BuildSnapshot(q pricing.Quote, depositPercentage money.BasisPoints) Snapshot {
	services := make([]string, len(q.Services))
	copy(services, q.Services)
	return Snapshot{
		ServiceType:       q.ServiceType,
		Artist:            q.Artist,
		Services:          services,
		Subtotal:          q.Subtotal,
		HST:               q.HST,
		Total:             q.Total,
		Deposit:           q.Deposit,
		Remaining:         q.Remaining,
		DepositPercentage: depositPercentage,
		AmountPaid:        0,
		PaymentStatus:     StatusUnpaid,
	}
}

// ApplyPayment records a confirmed payment. Repeating the current state is a
// no-op; moving backwards (e.g. a late deposit event after full payment) is
// rejected with booking.ErrSnapshotLocked.
func ApplyPayment(s Snapshot, t PaymentType) (Snapshot, error) {
	target := t.target()
	current := s.PaymentStatus
	if current == "" {
		current = StatusUnpaid
	}
	switch {
	case target == current:
		return s, nil
	case target.rank() < current.rank():
		return s, fmt.Errorf("%w: cannot record %s payment on %s booking", booking.ErrSnapshotLocked, t, current)
	}

	s.Services = append([]string(nil), s.Services...)
	s.PaymentStatus = target
	if target == StatusDepositPaid {
		s.AmountPaid = s.Deposit
	} else {
		s.AmountPaid = s.Total
	}
	return s, nil
}

// Balance is what the client still owes.
func (s Snapshot) Balance() money.Amount {
	b := s.Total - s.AmountPaid
	if b < 0 {
		return 0
	}
	return b
}

// Locked reports whether any payment has been recorded.
func (s Snapshot) Locked() bool {
	return s.PaymentStatus != "" && s.PaymentStatus != StatusUnpaid
}

// AmountDue returns the charge for a checkout of the given type.
func (s Snapshot) AmountDue(t PaymentType) (money.Amount, error) {
	switch {
	case s.PaymentStatus == StatusFullyPaid:
		return 0, fmt.Errorf("%w: booking already paid in full", booking.ErrSnapshotLocked)
	case t == PaymentDeposit && s.Locked():
		return 0, fmt.Errorf("%w: deposit already paid", booking.ErrSnapshotLocked)
	case t == PaymentDeposit:
		return s.Deposit, nil
	default:
		return s.Balance(), nil
	}
}

// Itemized returns the service rows without the summary rows.
func (s Snapshot) Itemized() []string {
	items, _ := SplitServices(s.Services)
	return items
}
