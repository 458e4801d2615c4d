package bookings

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
)

// FormatBookingSummary renders a plain-text booking summary for the studio inbox.
func FormatBookingSummary(b *Booking, quoteLink string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Client: %s\n", valueOrNA(b.Client.Name)))
	sb.WriteString(fmt.Sprintf("Email: %s\n", valueOrNA(b.Client.Email)))
	if b.Client.Phone != "" {
		sb.WriteString(fmt.Sprintf("Phone: %s\n", b.Client.Phone))
	}
	sb.WriteString(fmt.Sprintf("Service: %s\n", serviceLine(b)))
	sb.WriteString(fmt.Sprintf("Event: %s\n", dateLine(b)))
	if b.ReadyTime != "" {
		sb.WriteString(fmt.Sprintf("Ready by: %s\n", booking.FormatReadyTime(b.ReadyTime)))
	}
	if b.Region != "" {
		sb.WriteString(fmt.Sprintf("Region: %s\n", b.Region))
	}
	if b.Address != nil {
		sb.WriteString(fmt.Sprintf("Address: %s\n", b.Address.OneLine()))
	}
	if party := partyLine(b.PartyCounts); party != "" {
		sb.WriteString(fmt.Sprintf("Bridal party: %s\n", party))
	}
	if quoteLink != "" {
		sb.WriteString(fmt.Sprintf("Quote: %s\n", quoteLink))
	}
	sb.WriteString(fmt.Sprintf("Received: %s\n", b.CreatedAt.Format(time.RFC1123)))

	return sb.String()
}

// FormatBookingSummaryHTML renders the same summary as an HTML table.
func FormatBookingSummaryHTML(b *Booking, quoteLink string) string {
	row := func(label, value string) string {
		if value == "" {
			return ""
		}
		return fmt.Sprintf(`<tr><td style="padding:6px 12px;font-weight:bold;">%s</td><td style="padding:6px 12px;">%s</td></tr>`,
			label, html.EscapeString(value))
	}
	var address, ready, link string
	if b.Address != nil {
		address = b.Address.OneLine()
	}
	if b.ReadyTime != "" {
		ready = booking.FormatReadyTime(b.ReadyTime)
	}
	if quoteLink != "" {
		link = fmt.Sprintf(`<p><a href="%s">Open quote</a></p>`, html.EscapeString(quoteLink))
	}

	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:600px;">
<h2 style="color:#333;">New Booking Request</h2>
<table style="border-collapse:collapse;width:100%%;">
%s%s%s%s%s%s%s%s%s
</table>
%s</div>`,
		row("Client", valueOrNA(b.Client.Name)),
		row("Email", valueOrNA(b.Client.Email)),
		row("Phone", b.Client.Phone),
		row("Service", serviceLine(b)),
		row("Event", dateLine(b)),
		row("Ready by", ready),
		row("Region", b.Region),
		row("Address", address),
		row("Bridal party", partyLine(b.PartyCounts)),
		link,
	)
}

func serviceLine(b *Booking) string {
	s := string(b.ServiceType)
	if b.BrideService != "" && b.BrideService != booking.BrideBoth {
		s += " (" + string(b.BrideService) + " only)"
	}
	if b.Artist != "" {
		s += ", " + string(b.Artist) + " artist"
	}
	return valueOrNA(s)
}

func dateLine(b *Booking) string {
	if b.EventDate.IsZero() {
		return "N/A"
	}
	if !b.EventEndDate.IsZero() && b.EventEndDate.After(b.EventDate) {
		return fmt.Sprintf("%s to %s (%d days)", b.EventDate, b.EventEndDate, b.EventDays())
	}
	return b.EventDate.String()
}

func partyLine(counts booking.PartyCounts) string {
	keys := make([]string, 0, len(counts))
	for k, n := range counts {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s x%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func valueOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func displayClient(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Unknown client"
	}
	return strings.TrimSpace(name)
}
