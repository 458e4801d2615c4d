package payments

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/bookings"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

const defaultMaxUploadBytes = 10 << 20

// InteracConfig configures e-transfer payments.
type InteracConfig struct {
	RecipientEmail string
	Bucket         string
	MaxUploadBytes int64
	URLExpiry      time.Duration

	// Identity verification redirect.
	AuthBaseURL string
	ClientID    string
	RedirectURL string
}

// objectStore is the subset of the S3 client uploads need.
type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// InteracService handles e-transfers: the client sends money by email,
// uploads a screenshot of the receipt, and an admin verifies it.
type InteracService struct {
	payments  *Service
	store     ScreenshotStore
	objects   objectStore
	presigner objectPresigner
	velocity  *VelocityChecker
	cfg       InteracConfig
	logger    *logging.Logger
	now       func() time.Time
}

// PaymentInfo is what the wizard shows before an e-transfer.
type PaymentInfo struct {
	BookingID     string              `json:"booking_id"`
	InteracEmail  string              `json:"interacEmail"`
	PaymentStatus quote.PaymentStatus `json:"payment_status"`
	AmountDue     money.Amount        `json:"amount_due"`
	PaymentType   quote.PaymentType   `json:"payment_type,omitempty"`
	Screenshots   []Screenshot        `json:"screenshots"`
}

// UploadInput is one screenshot upload.
type UploadInput struct {
	BookingID   string
	PaymentType quote.PaymentType
	Filename    string
	ContentType string
	Body        io.Reader
}

func NewInteracService(payments *Service, store ScreenshotStore, objects objectStore, cfg InteracConfig, logger *logging.Logger) *InteracService {
	if payments == nil {
		panic("payments: service required")
	}
	if store == nil {
		panic("payments: screenshot store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 15 * time.Minute
	}
	return &InteracService{
		payments: payments,
		store:    store,
		objects:  objects,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithPresigner lets payment info include short-lived screenshot links.
func (s *InteracService) WithPresigner(p objectPresigner) *InteracService {
	s.presigner = p
	return s
}

// WithVelocity limits uploads per booking.
func (s *InteracService) WithVelocity(v *VelocityChecker) *InteracService {
	s.velocity = v
	return s
}

// PaymentInfo reports where to send the e-transfer and how much is owed next.
func (s *InteracService) PaymentInfo(ctx context.Context, bookingID string) (*PaymentInfo, error) {
	if strings.TrimSpace(s.cfg.RecipientEmail) == "" {
		return nil, fmt.Errorf("payments: interac recipient not configured: %w", booking.ErrConfiguration)
	}
	b, err := s.payments.Lookup(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	info := &PaymentInfo{
		BookingID:     b.ID,
		InteracEmail:  s.cfg.RecipientEmail,
		PaymentStatus: b.PaymentStatus(),
		Screenshots:   []Screenshot{},
	}
	if b.Pricing != nil {
		info.PaymentType = nextPaymentType(b.Pricing.PaymentStatus)
		if info.PaymentType != "" {
			info.AmountDue, _ = b.Pricing.AmountDue(info.PaymentType)
		}
	}

	shots, err := s.store.ListScreenshots(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	for _, shot := range shots {
		shot.URL = s.screenshotURL(ctx, shot.ObjectKey)
		info.Screenshots = append(info.Screenshots, shot)
	}
	return info, nil
}

func nextPaymentType(status quote.PaymentStatus) quote.PaymentType {
	switch status {
	case quote.StatusUnpaid, "":
		return quote.PaymentDeposit
	case quote.StatusDepositPaid:
		return quote.PaymentRemainingBalance
	default:
		return ""
	}
}

func (s *InteracService) screenshotURL(ctx context.Context, key string) string {
	if s.presigner == nil || s.cfg.Bucket == "" || key == "" {
		return ""
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.URLExpiry))
	if err != nil {
		s.logger.Warn("presign screenshot failed", "error", err, "key", key)
		return ""
	}
	return req.URL
}

// AuthURL builds the identity verification redirect for bookingID.
func (s *InteracService) AuthURL(bookingID string) (string, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return "", booking.NewFieldError(booking.ErrInvalidDraft, "bookingId", "required")
	}
	if s.cfg.AuthBaseURL == "" || s.cfg.ClientID == "" || s.cfg.RedirectURL == "" {
		return "", fmt.Errorf("payments: interac verification not configured: %w", booking.ErrConfiguration)
	}
	u, err := url.Parse(s.cfg.AuthBaseURL)
	if err != nil {
		return "", fmt.Errorf("payments: interac auth url: %w: %w", booking.ErrConfiguration, err)
	}
	q := u.Query()
	q.Set("client_id", s.cfg.ClientID)
	q.Set("redirect_uri", s.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid")
	q.Set("state", bookingID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Upload stores a receipt screenshot for admin review.
func (s *InteracService) Upload(ctx context.Context, in UploadInput) (*Screenshot, error) {
	ctx, span := paymentsTracer.Start(ctx, "interac.upload")
	defer span.End()
	span.SetAttributes(attribute.String("bridal.booking_id", in.BookingID))

	if s.objects == nil || s.cfg.Bucket == "" {
		return nil, fmt.Errorf("payments: screenshot storage not configured: %w", booking.ErrConfiguration)
	}
	contentType, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil || !strings.HasPrefix(contentType, "image/") {
		return nil, booking.NewFieldError(booking.ErrInvalidDraft, "screenshot", "must be an image")
	}

	b, err := s.payments.Lookup(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Pricing == nil {
		return nil, fmt.Errorf("payments: booking %s has no saved quote: %w", b.ID, booking.ErrNotFound)
	}
	if due, err := b.Pricing.AmountDue(in.PaymentType); err != nil {
		return nil, err
	} else if due <= 0 {
		return nil, fmt.Errorf("payments: nothing due on %s: %w", b.ID, booking.ErrSnapshotLocked)
	}
	if s.velocity != nil {
		res, err := s.velocity.CheckUploadVelocity(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if !res.Allowed {
			return nil, fmt.Errorf("%w: %s", ErrTooManyAttempts, res.Message)
		}
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, booking.NewFieldError(booking.ErrInvalidDraft, "screenshot", "unreadable")
	}
	if len(data) == 0 {
		return nil, booking.NewFieldError(booking.ErrInvalidDraft, "screenshot", "empty file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, booking.NewFieldError(booking.ErrInvalidDraft, "screenshot",
			fmt.Sprintf("larger than %d bytes", s.cfg.MaxUploadBytes))
	}

	id := uuid.New()
	key := fmt.Sprintf("interac/%s/%s%s", b.ID, id, strings.ToLower(path.Ext(in.Filename)))
	if _, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("payments: s3 put %s: %w: %w", key, booking.ErrPersistence, err)
	}

	now := s.now().UTC()
	shot := &Screenshot{
		ID:          id,
		BookingID:   b.ID,
		PaymentType: in.PaymentType,
		ObjectKey:   key,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		UploadedAt:  now,
	}
	if err := s.store.CreateScreenshot(ctx, shot, events.ScreenshotUploadedV1{
		ScreenshotID: id.String(),
		BookingID:    b.ID,
		ObjectKey:    key,
		UploadedAt:   now,
	}); err != nil {
		return nil, err
	}
	s.logger.Info("interac screenshot uploaded", "booking_id", b.ID, "screenshot_id", id, "size", shot.SizeBytes)
	return shot, nil
}

// Verify records an admin decision. Approval applies the payment to the booking.
func (s *InteracService) Verify(ctx context.Context, screenshotID uuid.UUID, approved bool, by string) (*Screenshot, *bookings.Booking, error) {
	ctx, span := paymentsTracer.Start(ctx, "interac.verify")
	defer span.End()
	span.SetAttributes(
		attribute.String("bridal.screenshot_id", screenshotID.String()),
		attribute.Bool("bridal.approved", approved),
	)

	current, err := s.store.GetScreenshot(ctx, screenshotID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	shot, err := s.store.ReviewScreenshot(ctx, screenshotID, approved, by, now, events.ScreenshotVerifiedV1{
		ScreenshotID: screenshotID.String(),
		BookingID:    current.BookingID,
		Approved:     approved,
		VerifiedBy:   by,
		VerifiedAt:   now,
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("interac screenshot reviewed", "screenshot_id", screenshotID, "booking_id", shot.BookingID,
		"approved", approved, "reviewed_by", by)
	if !approved {
		return shot, nil, nil
	}

	b, err := s.payments.Record(ctx, bookings.PaymentConfirmation{
		BookingID:   shot.BookingID,
		PaymentID:   shot.ID.String(),
		Provider:    ProviderInterac,
		ProviderRef: shot.ID.String(),
		Type:        shot.PaymentType,
		OccurredAt:  now,
	})
	if err != nil {
		span.RecordError(err)
		return shot, nil, err
	}
	return shot, b, nil
}
