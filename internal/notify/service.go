package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// PaymentNotice describes a confirmed payment for client and studio emails.
type PaymentNotice struct {
	BookingID   string
	ClientName  string
	ClientEmail string
	ServiceType string
	EventDate   string
	Provider    string
	PaymentType string
	Amount      money.Amount
	Total       money.Amount
	Balance     money.Amount
	Services    []string
	OccurredAt  time.Time
	QuoteURL    string
}

// Service sends booking emails to clients and the studio inbox.
type Service struct {
	email      EmailSender
	adminEmail string
	location   *time.Location
	logger     *logging.Logger
}

// NewService creates a notification service. A nil sender disables email.
func NewService(email EmailSender, adminEmail string, loc *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		email:      email,
		adminEmail: strings.TrimSpace(adminEmail),
		location:   loc,
		logger:     logger,
	}
}

// NotifyPaymentRecorded emails a receipt to the client and an alert to the
// studio. Both sends are attempted; failures are reported together.
func (s *Service) NotifyPaymentRecorded(ctx context.Context, n PaymentNotice) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping payment emails", "booking_id", n.BookingID)
		return nil
	}
	name := strings.TrimSpace(n.ClientName)
	if name == "" {
		name = "there"
	}
	paidAt := n.OccurredAt.In(s.location).Format("January 2, 2006 at 3:04 PM")

	var failed int
	if strings.TrimSpace(n.ClientEmail) != "" {
		subject := "Your booking is confirmed"
		if n.Balance == 0 {
			subject = "Payment received - thank you!"
		}
		msg := EmailMessage{
			To:      n.ClientEmail,
			ToName:  n.ClientName,
			Subject: subject,
			Body:    s.clientBody(name, n, paidAt),
			HTML:    s.clientHTML(name, n, paidAt),
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send client receipt", "error", err, "booking_id", n.BookingID)
			failed++
		} else {
			s.logger.Info("notify: client receipt sent", "booking_id", n.BookingID)
		}
	}

	if s.adminEmail != "" {
		msg := EmailMessage{
			To:      s.adminEmail,
			Subject: fmt.Sprintf("%s received - %s (%s)", paymentLabel(n.PaymentType), displayName(n.ClientName), n.Amount.FormatCAD()),
			Body:    s.adminBody(n, paidAt),
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send studio alert", "error", err, "booking_id", n.BookingID)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", failed)
	}
	return nil
}

func (s *Service) clientBody(name string, n PaymentNotice, paidAt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nWe received your %s of %s on %s.\n\n", name, strings.ToLower(paymentLabel(n.PaymentType)), n.Amount.FormatCAD(), paidAt)
	fmt.Fprintf(&b, "Booking ID: %s\n", n.BookingID)
	if n.ServiceType != "" {
		fmt.Fprintf(&b, "Service: %s\n", n.ServiceType)
	}
	if n.EventDate != "" {
		fmt.Fprintf(&b, "Event date: %s\n", n.EventDate)
	}
	if len(n.Services) > 0 {
		b.WriteString("\n")
		for _, row := range n.Services {
			fmt.Fprintf(&b, "  %s\n", row)
		}
	}
	fmt.Fprintf(&b, "\nTotal: %s\nRemaining balance: %s\n", n.Total.FormatCAD(), n.Balance.FormatCAD())
	if n.Balance > 0 && n.QuoteURL != "" {
		fmt.Fprintf(&b, "\nYou can pay the remaining balance any time at %s\n", n.QuoteURL)
	}
	return b.String()
}

func (s *Service) clientHTML(name string, n PaymentNotice, paidAt string) string {
	var rows strings.Builder
	for _, row := range n.Services {
		fmt.Fprintf(&rows, `<tr><td style="padding: 6px 8px; border-bottom: 1px solid #f3e8ee;">%s</td></tr>`, html.EscapeString(row))
	}
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #be185d;">Thank you, %s!</h2>
<p>We received your <strong>%s</strong> of <strong>%s</strong> on %s.</p>
<p>Booking ID: <code>%s</code></p>
<table style="border-collapse: collapse; margin: 16px 0; width: 100%%;">%s</table>
<p><strong>Remaining balance:</strong> %s</p>
</div>`,
		html.EscapeString(name), strings.ToLower(paymentLabel(n.PaymentType)), n.Amount.FormatCAD(), paidAt,
		html.EscapeString(n.BookingID), rows.String(), n.Balance.FormatCAD())
}

func (s *Service) adminBody(n PaymentNotice, paidAt string) string {
	return fmt.Sprintf(`%s paid %s via %s.

Booking: %s
Client: %s <%s>
Service: %s
Event date: %s
Paid: %s
Remaining balance: %s`,
		displayName(n.ClientName), n.Amount.FormatCAD(), n.Provider,
		n.BookingID, displayName(n.ClientName), n.ClientEmail, n.ServiceType, orDash(n.EventDate), paidAt, n.Balance.FormatCAD())
}

func paymentLabel(paymentType string) string {
	switch paymentType {
	case "remaining_balance":
		return "Remaining balance payment"
	case "final":
		return "Full payment"
	default:
		return "Deposit"
	}
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "A client"
	}
	return strings.TrimSpace(name)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
