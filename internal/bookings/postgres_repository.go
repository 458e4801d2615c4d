package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/events"
	"github.com/wolfman30/bridal-quote-platform/internal/quote"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores bookings in the bookings and pricing_snapshots
// tables. Domain events are written to the outbox in the same transaction.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository creates a repository backed by pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(q pgxQuerier) *PostgresRepository {
	if q == nil {
		panic("bookings: querier required")
	}
	return &PostgresRepository{db: q}
}

const selectBooking = `
	SELECT b.id::text, b.status, b.draft, b.agreement, b.created_at, b.updated_at, s.snapshot
	FROM bookings b
	LEFT JOIN pricing_snapshots s ON s.booking_id = b.id
`

func (r *PostgresRepository) Create(ctx context.Context, b *Booking, evts ...events.CanonicalEvent) error {
	id, err := uuid.Parse(b.ID)
	if err != nil {
		return fmt.Errorf("bookings: invalid id %q: %w", b.ID, booking.ErrInvalidDraft)
	}
	draft, err := json.Marshal(b.Draft)
	if err != nil {
		return fmt.Errorf("bookings: marshal draft: %w", err)
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	return r.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO bookings (id, status, client_email, service_type, event_date, draft, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.Exec(ctx, query, id, string(b.Status), normalizeEmail(b.Client.Email),
			string(b.ServiceType), eventDateArg(b.Draft), draft, b.CreatedAt, b.UpdatedAt); err != nil {
			return persistErr("insert booking", err)
		}
		return appendEvents(ctx, tx, b.ID, evts)
	})
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("bookings: %s: %w", id, booking.ErrNotFound)
	}
	b, err := scanBooking(r.db.QueryRow(ctx, selectBooking+` WHERE b.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bookings: %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("load booking", err)
	}
	return b, nil
}

func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]*Booking, error) {
	rows, err := r.db.Query(ctx, selectBooking+` WHERE b.client_email = $1 ORDER BY b.created_at DESC`, normalizeEmail(email))
	if err != nil {
		return nil, persistErr("list by email", err)
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, persistErr("scan booking", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list by email", err)
	}
	return out, nil
}

// SaveSelections replaces the snapshot only while it is unpaid; concurrent
// finalizations before payment resolve as last write wins.
func (r *PostgresRepository) SaveSelections(ctx context.Context, u SelectionUpdate) (*Booking, error) {
	if _, err := uuid.Parse(u.BookingID); err != nil {
		return nil, fmt.Errorf("bookings: %s: %w", u.BookingID, booking.ErrNotFound)
	}
	draft, err := json.Marshal(u.Draft)
	if err != nil {
		return nil, fmt.Errorf("bookings: marshal draft: %w", err)
	}
	agreement, err := json.Marshal(u.Agreement)
	if err != nil {
		return nil, fmt.Errorf("bookings: marshal agreement: %w", err)
	}
	snapshot, err := json.Marshal(u.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("bookings: marshal snapshot: %w", err)
	}

	err = r.withTx(ctx, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE bookings
			SET status = $2, client_email = $3, service_type = $4, event_date = $5, draft = $6, agreement = $7, updated_at = now()
			WHERE id = $1
		`, u.BookingID, string(StatusQuoted), normalizeEmail(u.Draft.Client.Email), string(u.Draft.ServiceType),
			eventDateArg(u.Draft), draft, agreement)
		if err != nil {
			return persistErr("update booking", err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("bookings: %s: %w", u.BookingID, booking.ErrNotFound)
		}

		ct, err = tx.Exec(ctx, `
			INSERT INTO pricing_snapshots (booking_id, payment_status, amount_paid_cents, total_cents, snapshot)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (booking_id) DO UPDATE
			SET payment_status = EXCLUDED.payment_status,
				amount_paid_cents = EXCLUDED.amount_paid_cents,
				total_cents = EXCLUDED.total_cents,
				snapshot = EXCLUDED.snapshot,
				updated_at = now()
			WHERE pricing_snapshots.payment_status = 'unpaid'
		`, u.BookingID, string(u.Snapshot.PaymentStatus), u.Snapshot.AmountPaid.Cents(), u.Snapshot.Total.Cents(), snapshot)
		if err != nil {
			return persistErr("upsert snapshot", err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("bookings: %s already has a payment: %w", u.BookingID, booking.ErrSnapshotLocked)
		}
		return appendEvents(ctx, tx, u.BookingID, u.Events)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, u.BookingID)
}

// UpdatePayment only applies when the stored status still equals u.From.
func (r *PostgresRepository) UpdatePayment(ctx context.Context, u PaymentUpdate) (*Booking, error) {
	if _, err := uuid.Parse(u.BookingID); err != nil {
		return nil, fmt.Errorf("bookings: %s: %w", u.BookingID, booking.ErrNotFound)
	}
	snapshot, err := json.Marshal(u.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("bookings: marshal snapshot: %w", err)
	}

	err = r.withTx(ctx, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE pricing_snapshots
			SET payment_status = $2, amount_paid_cents = $3, snapshot = $4, updated_at = now()
			WHERE booking_id = $1 AND payment_status = $5
		`, u.BookingID, string(u.Snapshot.PaymentStatus), u.Snapshot.AmountPaid.Cents(), snapshot, string(u.From))
		if err != nil {
			return persistErr("update snapshot payment", err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("bookings: %s payment status changed: %w", u.BookingID, booking.ErrSnapshotLocked)
		}
		if _, err := tx.Exec(ctx, `UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`,
			u.BookingID, string(statusForPayment(u.Snapshot.PaymentStatus))); err != nil {
			return persistErr("update booking status", err)
		}
		return appendEvents(ctx, tx, u.BookingID, u.Events)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, u.BookingID)
}

func (r *PostgresRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
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

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b         Booking
		status    string
		draft     []byte
		agreement []byte
		snapshot  []byte
	)
	if err := row.Scan(&b.ID, &status, &draft, &agreement, &b.CreatedAt, &b.UpdatedAt, &snapshot); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	if len(draft) > 0 {
		if err := json.Unmarshal(draft, &b.Draft); err != nil {
			return nil, fmt.Errorf("decode draft: %w", err)
		}
	}
	if len(agreement) > 0 {
		var a Agreement
		if err := json.Unmarshal(agreement, &a); err != nil {
			return nil, fmt.Errorf("decode agreement: %w", err)
		}
		b.Agreement = &a
	}
	if len(snapshot) > 0 {
		var s quote.Snapshot
		if err := json.Unmarshal(snapshot, &s); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		b.Pricing = &s
	}
	return &b, nil
}

func eventDateArg(d booking.Draft) any {
	if d.EventDate.IsZero() {
		return nil
	}
	return d.EventDate.In(time.UTC)
}

func persistErr(op string, err error) error {
	return fmt.Errorf("bookings: %s: %w: %w", op, booking.ErrPersistence, err)
}

var _ Repository = (*PostgresRepository)(nil)
