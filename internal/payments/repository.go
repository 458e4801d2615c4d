package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository persists payments and Interac screenshots in Postgres.
type Repository struct {
	db pgxQuerier
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithQuerier(q pgxQuerier) *Repository {
	if q == nil {
		panic("payments: querier required")
	}
	return &Repository{db: q}
}

const paymentColumns = `id::text, booking_id::text, provider, COALESCE(provider_ref, ''), payment_type, amount_cents, status, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, provider, payment_type, amount_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.Exec(ctx, query, p.ID, p.BookingID, p.Provider, string(p.Type), p.Amount.Cents(),
		string(p.Status), p.CreatedAt, p.UpdatedAt); err != nil {
		return persistErr("insert payment", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payments: payment %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("load payment", err)
	}
	return p, nil
}

func (r *Repository) GetByProviderRef(ctx context.Context, provider, ref string) (*Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider = $1 AND provider_ref = $2`, provider, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payments: %s ref %s: %w", provider, ref, booking.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("load payment by ref", err)
	}
	return p, nil
}

func (r *Repository) SetProviderRef(ctx context.Context, id uuid.UUID, ref string) error {
	ct, err := r.db.Exec(ctx, `UPDATE payments SET provider_ref = $2, updated_at = now() WHERE id = $1`, id, ref)
	if err != nil {
		return persistErr("set provider ref", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("payments: payment %s: %w", id, booking.ErrNotFound)
	}
	return nil
}

// MarkSucceeded is idempotent; a blank ref keeps the stored one.
func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID, ref string) (*Payment, error) {
	query := `
		UPDATE payments
		SET status = 'succeeded', provider_ref = COALESCE(NULLIF($2, ''), provider_ref), updated_at = now()
		WHERE id = $1
		RETURNING ` + paymentColumns
	p, err := scanPayment(r.db.QueryRow(ctx, query, id, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payments: payment %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("mark succeeded", err)
	}
	return p, nil
}

const screenshotColumns = `id::text, booking_id::text, payment_type, object_key, content_type, size_bytes, uploaded_at,
	reviewed_at IS NOT NULL, COALESCE(reviewed_at, uploaded_at), COALESCE(reviewed_by, ''), approved`

func (r *Repository) CreateScreenshot(ctx context.Context, s *Screenshot, evts ...events.CanonicalEvent) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO interac_screenshots (id, booking_id, payment_type, object_key, content_type, size_bytes, uploaded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.Exec(ctx, query, s.ID, s.BookingID, string(s.PaymentType), s.ObjectKey, s.ContentType,
			s.SizeBytes, s.UploadedAt); err != nil {
			return persistErr("insert screenshot", err)
		}
		return appendEvents(ctx, tx, s.BookingID, evts)
	})
}

func (r *Repository) GetScreenshot(ctx context.Context, id uuid.UUID) (*Screenshot, error) {
	s, err := scanScreenshot(r.db.QueryRow(ctx, `SELECT `+screenshotColumns+` FROM interac_screenshots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payments: screenshot %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("load screenshot", err)
	}
	return s, nil
}

func (r *Repository) ListScreenshots(ctx context.Context, bookingID string) ([]Screenshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+screenshotColumns+` FROM interac_screenshots WHERE booking_id = $1 ORDER BY uploaded_at`, bookingID)
	if err != nil {
		return nil, persistErr("list screenshots", err)
	}
	defer rows.Close()

	var out []Screenshot
	for rows.Next() {
		s, err := scanScreenshot(rows)
		if err != nil {
			return nil, persistErr("scan screenshot", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list screenshots", err)
	}
	return out, nil
}

// ReviewScreenshot records an admin decision once; later attempts return
// ErrAlreadyReviewed.
func (r *Repository) ReviewScreenshot(ctx context.Context, id uuid.UUID, approved bool, by string, at time.Time, evts ...events.CanonicalEvent) (*Screenshot, error) {
	var out *Screenshot
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE interac_screenshots
			SET reviewed_at = $2, reviewed_by = $3, approved = $4
			WHERE id = $1 AND reviewed_at IS NULL
			RETURNING ` + screenshotColumns
		s, err := scanScreenshot(tx.QueryRow(ctx, query, id, at, by, approved))
		if errors.Is(err, pgx.ErrNoRows) {
			return errNotReviewable
		}
		if err != nil {
			return persistErr("review screenshot", err)
		}
		out = s
		return appendEvents(ctx, tx, s.BookingID, evts)
	})
	if errors.Is(err, errNotReviewable) {
		if _, getErr := r.GetScreenshot(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrAlreadyReviewed
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

var errNotReviewable = errors.New("payments: screenshot not reviewable")

func (r *Repository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return persistErr("begin tx", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return persistErr("commit", err)
	}
	return nil
}

func appendEvents(ctx context.Context, tx pgx.Tx, bookingID string, evts []events.CanonicalEvent) error {
	for _, evt := range evts {
		if _, err := events.AppendCanonicalEvent(ctx, tx, events.BookingAggregate(bookingID), "", evt); err != nil {
			return persistErr("append event", err)
		}
	}
	return nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var (
		p           Payment
		id          string
		paymentType string
		cents       int64
		status      string
	)
	if err := row.Scan(&id, &p.BookingID, &p.Provider, &p.ProviderRef, &paymentType, &cents, &status,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("decode payment id: %w", err)
	}
	p.ID = parsed
	p.Type = quote.PaymentType(paymentType)
	p.Amount = money.FromCents(cents)
	p.Status = Status(status)
	return &p, nil
}

func scanScreenshot(row pgx.Row) (*Screenshot, error) {
	var (
		s           Screenshot
		id          string
		paymentType string
		reviewed    bool
		reviewedAt  time.Time
	)
	if err := row.Scan(&id, &s.BookingID, &paymentType, &s.ObjectKey, &s.ContentType, &s.SizeBytes,
		&s.UploadedAt, &reviewed, &reviewedAt, &s.ReviewedBy, &s.Approved); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot id: %w", err)
	}
	s.ID = parsed
	s.PaymentType = quote.PaymentType(paymentType)
	if reviewed {
		s.ReviewedAt = &reviewedAt
	}
	return &s, nil
}

func persistErr(op string, err error) error {
	return fmt.Errorf("payments: %s: %w: %w", op, booking.ErrPersistence, err)
}

var (
	_ Store           = (*Repository)(nil)
	_ ScreenshotStore = (*Repository)(nil)
)
