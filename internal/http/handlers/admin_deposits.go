package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/bridal-quote-platform/internal/http/respond"
	"github.com/wolfman30/bridal-quote-platform/internal/money"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// AdminDepositsHandler serves the studio's read-only payment views.
type AdminDepositsHandler struct {
	db     *sql.DB
	loc    *time.Location
	logger *logging.Logger
	now    func() time.Time
}

// NewAdminDepositsHandler creates a new admin deposits handler. loc is the
// studio timezone used for the "today" bucket in stats.
func NewAdminDepositsHandler(db *sql.DB, loc *time.Location, logger *logging.Logger) *AdminDepositsHandler {
	if db == nil {
		panic("handlers: db required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminDepositsHandler{
		db:     db,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// Routes mounts the views; callers wrap r with admin auth.
func (h *AdminDepositsHandler) Routes(r chi.Router) {
	r.Get("/deposits", h.ListDeposits)
	r.Get("/deposits/stats", h.GetDepositStats)
	r.Get("/deposits/{paymentID}", h.GetDeposit)
}

// DepositListItem represents a payment in list responses.
type DepositListItem struct {
	ID          string       `json:"id"`
	BookingID   string       `json:"booking_id"`
	ClientName  *string      `json:"client_name,omitempty"`
	ClientEmail string       `json:"client_email"`
	ServiceType string       `json:"service_type"`
	EventDate   *string      `json:"event_date,omitempty"`
	PaymentType string       `json:"payment_type"`
	AmountCents int64        `json:"amount_cents"`
	Amount      money.Amount `json:"amount"`
	Status      string       `json:"status"`
	Provider    string       `json:"provider"`
	ProviderRef *string      `json:"provider_ref,omitempty"`
	CreatedAt   string       `json:"created_at"`
}

// DepositsListResponse represents a paginated list of payments.
type DepositsListResponse struct {
	Deposits   []DepositListItem `json:"deposits"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// DepositDetailResponse adds the booking's snapshot state to a list item.
type DepositDetailResponse struct {
	DepositListItem
	SnapshotStatus  *string `json:"snapshot_payment_status,omitempty"`
	TotalCents      *int64  `json:"total_cents,omitempty"`
	AmountPaidCents *int64  `json:"amount_paid_cents,omitempty"`
	UpdatedAt       string  `json:"updated_at"`
}

// DepositStatsResponse contains aggregated figures for succeeded payments.
type DepositStatsResponse struct {
	TotalDeposits      int              `json:"total_deposits"`
	TotalAmountCents   int64            `json:"total_amount_cents"`
	ByStatus           map[string]int   `json:"by_status"`
	ByProvider         map[string]int64 `json:"by_provider_cents"`
	TodayCount         int              `json:"today_count"`
	TodayAmountCents   int64            `json:"today_amount_cents"`
	WeekCount          int              `json:"week_count"`
	WeekAmountCents    int64            `json:"week_amount_cents"`
	MonthCount         int              `json:"month_count"`
	MonthAmountCents   int64            `json:"month_amount_cents"`
	AverageAmountCents int64            `json:"average_amount_cents"`
}

const depositColumns = `
		SELECT p.id::text, p.booking_id::text, b.draft->'client'->>'name', b.client_email, b.service_type,
		       b.event_date, p.payment_type, p.amount_cents, p.status, p.provider, p.provider_ref, p.created_at`

// depositFilter builds the shared WHERE clause for list and count queries.
type depositFilter struct {
	clauses []string
	args    []any
}

func (f *depositFilter) add(clause string, arg any) {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, strings.Replace(clause, "?", "$"+strconv.Itoa(len(f.args)), 1))
}

func (f *depositFilter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// ListDeposits returns a paginated list of payments, newest first.
// GET /admin/deposits?status=&provider=&payment_type=&booking_id=&date_from=&date_to=
func (h *AdminDepositsHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var f depositFilter
	for _, field := range []string{"status", "provider", "payment_type"} {
		if v := strings.TrimSpace(q.Get(field)); v != "" {
			f.add("p."+field+" = ?", v)
		}
	}
	if v := strings.TrimSpace(q.Get("booking_id")); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			respond.BadRequest(w, "invalid booking_id")
			return
		}
		f.add("p.booking_id = ?", v)
	}
	if v := q.Get("date_from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			respond.BadRequest(w, "invalid date_from")
			return
		}
		f.add("p.created_at >= ?", t)
	}
	if v := q.Get("date_to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			respond.BadRequest(w, "invalid date_to")
			return
		}
		f.add("p.created_at < ?", t.AddDate(0, 0, 1))
	}

	var total int
	if err := h.db.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM payments p"+f.where(), f.args...).Scan(&total); err != nil {
		h.logger.Error("failed to count deposits", "error", err)
		respond.JSON(w, http.StatusInternalServerError, respond.ErrorBody{Error: "internal error"})
		return
	}

	n := len(f.args)
	query := depositColumns + `
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id` + f.where() + `
		ORDER BY p.created_at DESC
		LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args := append(f.args, pageSize, (page-1)*pageSize)

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		h.logger.Error("failed to query deposits", "error", err)
		respond.JSON(w, http.StatusInternalServerError, respond.ErrorBody{Error: "internal error"})
		return
	}
	defer rows.Close()

	deposits := []DepositListItem{}
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			h.logger.Error("failed to scan deposit", "error", err)
			continue
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("deposit rows failed", "error", err)
	}

	respond.JSON(w, http.StatusOK, DepositsListResponse{
		Deposits:   deposits,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	})
}

// GetDeposit returns one payment with its booking's snapshot state.
// GET /admin/deposits/{paymentID}
func (h *AdminDepositsHandler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")
	if _, err := uuid.Parse(paymentID); err != nil {
		respond.BadRequest(w, "invalid paymentID")
		return
	}

	query := depositColumns + `,
		       s.payment_status, s.total_cents, s.amount_paid_cents, p.updated_at
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		LEFT JOIN pricing_snapshots s ON s.booking_id = p.booking_id
		WHERE p.id = $1`

	var (
		d               DepositDetailResponse
		snapshotStatus  sql.NullString
		totalCents      sql.NullInt64
		amountPaidCents sql.NullInt64
		updatedAt       time.Time
	)
	item, err := scanDeposit(h.db.QueryRowContext(r.Context(), query, paymentID), &snapshotStatus, &totalCents, &amountPaidCents, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		respond.JSON(w, http.StatusNotFound, respond.ErrorBody{Error: "deposit not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to get deposit", "error", err, "payment_id", paymentID)
		respond.JSON(w, http.StatusInternalServerError, respond.ErrorBody{Error: "internal error"})
		return
	}

	d.DepositListItem = item
	d.UpdatedAt = updatedAt.Format(time.RFC3339)
	if snapshotStatus.Valid {
		d.SnapshotStatus = &snapshotStatus.String
	}
	if totalCents.Valid {
		d.TotalCents = &totalCents.Int64
	}
	if amountPaidCents.Valid {
		d.AmountPaidCents = &amountPaidCents.Int64
	}
	respond.JSON(w, http.StatusOK, d)
}

// GetDepositStats returns aggregated payment statistics. Amount buckets count
// succeeded payments only; by_status counts every attempt.
// GET /admin/deposits/stats
func (h *AdminDepositsHandler) GetDepositStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := DepositStatsResponse{
		ByStatus:   make(map[string]int),
		ByProvider: make(map[string]int64),
	}

	now := h.now().In(h.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, -1, 0)

	const succeeded = `SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = 'succeeded'`
	buckets := []struct {
		since  *time.Time
		count  *int
		amount *int64
	}{
		{nil, &stats.TotalDeposits, &stats.TotalAmountCents},
		{&today, &stats.TodayCount, &stats.TodayAmountCents},
		{&weekAgo, &stats.WeekCount, &stats.WeekAmountCents},
		{&monthAgo, &stats.MonthCount, &stats.MonthAmountCents},
	}
	for _, b := range buckets {
		query, args := succeeded, []any(nil)
		if b.since != nil {
			query, args = succeeded+` AND created_at >= $1`, []any{*b.since}
		}
		if err := h.db.QueryRowContext(ctx, query, args...).Scan(b.count, b.amount); err != nil {
			h.logger.Error("failed to load deposit stats", "error", err)
			respond.JSON(w, http.StatusInternalServerError, respond.ErrorBody{Error: "internal error"})
			return
		}
	}
	if stats.TotalDeposits > 0 {
		stats.AverageAmountCents = stats.TotalAmountCents / int64(stats.TotalDeposits)
	}

	rows, err := h.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM payments GROUP BY status`)
	if err == nil {
		for rows.Next() {
			var (
				status string
				count  int
			)
			if rows.Scan(&status, &count) == nil {
				stats.ByStatus[status] = count
			}
		}
		_ = rows.Close()
	}

	rows, err = h.db.QueryContext(ctx, `SELECT provider, COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = 'succeeded' GROUP BY provider`)
	if err == nil {
		for rows.Next() {
			var (
				provider string
				cents    int64
			)
			if rows.Scan(&provider, &cents) == nil {
				stats.ByProvider[provider] = cents
			}
		}
		_ = rows.Close()
	}

	respond.JSON(w, http.StatusOK, stats)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeposit(row scanner, extra ...any) (DepositListItem, error) {
	var (
		d           DepositListItem
		clientName  sql.NullString
		eventDate   sql.NullTime
		providerRef sql.NullString
		createdAt   time.Time
	)
	dest := []any{
		&d.ID, &d.BookingID, &clientName, &d.ClientEmail, &d.ServiceType,
		&eventDate, &d.PaymentType, &d.AmountCents, &d.Status, &d.Provider, &providerRef, &createdAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return DepositListItem{}, err
	}
	d.Amount = money.FromCents(d.AmountCents)
	d.CreatedAt = createdAt.Format(time.RFC3339)
	if clientName.Valid && clientName.String != "" {
		d.ClientName = &clientName.String
	}
	if eventDate.Valid {
		formatted := eventDate.Time.Format("2006-01-02")
		d.EventDate = &formatted
	}
	if providerRef.Valid {
		d.ProviderRef = &providerRef.String
	}
	return d, nil
}
