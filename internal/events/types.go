package events

import "time"

// Event type names written to the outbox.
const (
	TypeBookingCreated     = "booking.created.v1"
	TypeQuoteFinalized     = "quote.finalized.v1"
	TypePaymentRecorded    = "payment.recorded.v1"
	TypeScreenshotUploaded = "interac.screenshot_uploaded.v1"
	TypeScreenshotVerified = "interac.screenshot_verified.v1"
)

// BookingCreatedV1 is emitted when a client submits a booking request.
type BookingCreatedV1 struct {
	BookingID   string    `json:"booking_id"`
	ServiceType string    `json:"service_type"`
	EventDate   string    `json:"event_date,omitempty"`
	ClientEmail string    `json:"client_email"`
	CreatedAt   time.Time `json:"created_at"`
}

func (BookingCreatedV1) EventType() string { return TypeBookingCreated }

// QuoteFinalizedV1 is emitted each time a pricing snapshot is saved.
type QuoteFinalizedV1 struct {
	BookingID    string    `json:"booking_id"`
	Artist       string    `json:"artist"`
	TotalCents   int64     `json:"total_cents"`
	DepositCents int64     `json:"deposit_cents"`
	Clamped      bool      `json:"clamped"`
	FinalizedAt  time.Time `json:"finalized_at"`
}

func (QuoteFinalizedV1) EventType() string { return TypeQuoteFinalized }

// PaymentRecordedV1 is emitted once a provider confirms a payment.
type PaymentRecordedV1 struct {
	BookingID     string    `json:"booking_id"`
	PaymentID     string    `json:"payment_id,omitempty"`
	Provider      string    `json:"provider"`
	ProviderRef   string    `json:"provider_ref"`
	PaymentType   string    `json:"payment_type"`
	AmountCents   int64     `json:"amount_cents"`
	PaymentStatus string    `json:"payment_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (PaymentRecordedV1) EventType() string { return TypePaymentRecorded }

// ScreenshotUploadedV1 is emitted when an Interac e-transfer screenshot lands in storage.
type ScreenshotUploadedV1 struct {
	ScreenshotID string    `json:"screenshot_id"`
	BookingID    string    `json:"booking_id"`
	ObjectKey    string    `json:"object_key"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

func (ScreenshotUploadedV1) EventType() string { return TypeScreenshotUploaded }

// ScreenshotVerifiedV1 is emitted when an admin approves or rejects a screenshot.
type ScreenshotVerifiedV1 struct {
	ScreenshotID string    `json:"screenshot_id"`
	BookingID    string    `json:"booking_id"`
	Approved     bool      `json:"approved"`
	VerifiedBy   string    `json:"verified_by,omitempty"`
	VerifiedAt   time.Time `json:"verified_at"`
}

func (ScreenshotVerifiedV1) EventType() string { return TypeScreenshotVerified }
