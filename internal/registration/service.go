package registration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ashworth-collective/backend-club/internal/common"
	"github.com/ashworth-collective/backend-club/internal/event"
	"github.com/ashworth-collective/backend-club/internal/events"
	"github.com/ashworth-collective/backend-club/internal/member"
	"github.com/ashworth-collective/backend-club/internal/obs"
	"github.com/ashworth-collective/backend-club/internal/pricing"
)

// Registration is a member's priced signup for one event.
type Registration struct {
	ID              string                `json:"id"`
	EventID         string                `json:"event_id"`
	MemberID        string                `json:"member_id"`
	Currency        string                `json:"currency"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	DiscountTotal   decimal.Decimal       `json:"discount_total"`
	Total           decimal.Decimal       `json:"total"`
	AmountPaid      decimal.Decimal       `json:"amount_paid"`
	DepositRequired decimal.Decimal       `json:"deposit_required"`
	DepositDue      decimal.Decimal       `json:"deposit_due"`
	BalanceDue      decimal.Decimal       `json:"balance_due"`
	DepositPaid     bool                  `json:"deposit_paid"`
	FullyPaid       bool                  `json:"fully_paid"`
	Status          pricing.PaymentStatus `json:"status"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`

	Items     []SnapshotItem    `json:"items,omitempty"`
	Discounts []AppliedDiscount `json:"discounts,omitempty"`
}

// SnapshotItem is the immutable per-registration copy of a priced line item.
// Later edits to the event's definitions never change it.
type SnapshotItem struct {
	LineItemID string          `json:"line_item_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	UserAge    *int            `json:"user_age,omitempty"`
}

// AppliedDiscount records a discount resolved at registration time.
type AppliedDiscount struct {
	Name           string               `json:"name"`
	Type           pricing.DiscountType `json:"type"`
	Amount         decimal.Decimal      `json:"amount"`
	ResolvedAmount decimal.Decimal      `json:"resolved_amount"`
}

// Payment is one recorded payment against a registration.
type Payment struct {
	ID             string          `json:"id"`
	RegistrationID string          `json:"registration_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CreateInput captures payload for creating a registration.
type CreateInput struct {
	EventID       string   `json:"event_id"`
	DiscountCodes []string `json:"discount_codes"`
}

// PaymentInput captures payload for recording a payment.
type PaymentInput struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

// EventSource supplies event metadata and line item definitions.
type EventSource interface {
	GetEvent(ctx context.Context, id string) (event.Event, error)
	ListLineItems(ctx context.Context, eventID string) ([]event.LineItem, error)
}

// MemberSource supplies member records for age lookup.
type MemberSource interface {
	Get(ctx context.Context, id string) (member.Member, error)
}

// DiscountResolver maps requested codes to engine discounts.
type DiscountResolver interface {
	Resolve(ctx context.Context, eventID string, codes []string) ([]pricing.Discount, error)
}

// ReceiptEnqueuer schedules asynchronous receipt delivery.
type ReceiptEnqueuer interface {
	EnqueueReceipt(ctx context.Context, registrationID string) error
}

// Service runs the registration lifecycle: pricing, persistence, payments.
type Service struct {
	Pool      *pgxpool.Pool
	Events    EventSource
	Members   MemberSource
	Discounts DiscountResolver
	Bus       *events.Bus
	Receipts  ReceiptEnqueuer
	Logger    zerolog.Logger
	Currency  string
}

const registrationColumns = `id, event_id, member_id, currency, subtotal, discount_total, total,
	amount_paid, deposit_required, deposit_due, balance_due, deposit_paid, fully_paid, status, created_at, updated_at`

// Create prices and persists a new registration for the given member.
func (s *Service) Create(ctx context.Context, memberID string, in CreateInput) (Registration, error) {
	if s == nil || s.Pool == nil {
		return Registration{}, errors.New("registration service not configured")
	}
	if strings.TrimSpace(in.EventID) == "" {
		return Registration{}, common.NewAppError("VALIDATION_ERROR", "event_id is required", http.StatusBadRequest, nil)
	}

	ev, err := s.Events.GetEvent(ctx, in.EventID)
	if err != nil {
		return Registration{}, err
	}
	defs, err := s.Events.ListLineItems(ctx, in.EventID)
	if err != nil {
		return Registration{}, err
	}
	if len(defs) == 0 {
		return Registration{}, common.NewAppError("UNPROCESSABLE", "event has no line items", http.StatusUnprocessableEntity, nil)
	}
	m, err := s.Members.Get(ctx, memberID)
	if err != nil {
		return Registration{}, err
	}
	discounts, err := s.Discounts.Resolve(ctx, in.EventID, in.DiscountCodes)
	if err != nil {
		return Registration{}, err
	}

	quote, err := BuildQuote(defs, m.DateOfBirth, ev.StartsAt, discounts, ev.DepositAmount)
	if err != nil {
		if errors.Is(err, ErrRequiredItem) {
			if counter := obs.LineItemPricingFailures; counter != nil {
				counter.WithLabelValues("required").Inc()
			}
			if counter := obs.RegistrationsPricedTotal; counter != nil {
				counter.WithLabelValues("rejected").Inc()
			}
			return Registration{}, common.NewAppError("UNPROCESSABLE", err.Error(), http.StatusUnprocessableEntity, err)
		}
		return Registration{}, err
	}
	if quote.AgeNote != "" {
		s.Logger.Warn().Str("member_id", memberID).Str("event_id", in.EventID).
			Str("reason", quote.AgeNote).Msg("member age unavailable for pricing")
	}
	for _, sk := range quote.Skipped {
		s.Logger.Warn().Str("line_item", sk.Name).Str("reason", sk.Reason).
			Str("event_id", in.EventID).Msg("optional line item skipped")
		if counter := obs.LineItemPricingFailures; counter != nil {
			counter.WithLabelValues("optional_skipped").Inc()
		}
	}

	currency := ev.Currency
	if currency == "" {
		currency = s.Currency
	}

	eid, err := toUUID(in.EventID)
	if err != nil {
		return Registration{}, notFound("event")
	}
	mid, err := toUUID(memberID)
	if err != nil {
		return Registration{}, notFound("member")
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Registration{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `INSERT INTO registrations
		(event_id, member_id, currency, subtotal, discount_total, total, amount_paid,
		 deposit_required, deposit_due, balance_due, deposit_paid, fully_paid, status)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10, $11, $12)
		RETURNING `+registrationColumns,
		eid, mid, currency, quote.Totals.Subtotal, quote.Totals.DiscountTotal, quote.Totals.Total,
		ev.DepositAmount, quote.Balance.DepositDue, quote.Balance.BalanceDue, quote.Balance.DepositPaid, quote.Balance.FullyPaid,
		string(quote.Status))
	reg, err := scanRegistration(row)
	if err != nil {
		return Registration{}, fmt.Errorf("insert registration: %w", err)
	}
	rid, err := toUUID(reg.ID)
	if err != nil {
		return Registration{}, fmt.Errorf("registration id: %w", err)
	}

	for _, it := range quote.Items {
		var liID any
		if it.LineItemID != uuid.Nil {
			liID = it.LineItemID.String()
		}
		if _, err := tx.Exec(ctx, `INSERT INTO registration_line_items
			(registration_id, line_item_id, name, amount, user_age)
			VALUES ($1, $2, $3, $4, $5)`,
			rid, liID, it.Name, it.Amount, it.UserAge); err != nil {
			return Registration{}, fmt.Errorf("snapshot line item: %w", err)
		}
	}
	resolved := discountAmounts(quote.Totals, len(quote.Items))
	for i, d := range discounts {
		if _, err := tx.Exec(ctx, `INSERT INTO registration_discounts
			(registration_id, name, discount_type, amount, resolved_amount)
			VALUES ($1, $2, $3, $4, $5)`,
			rid, d.Name, string(d.Type), d.Amount, resolved[i]); err != nil {
			return Registration{}, fmt.Errorf("snapshot discount: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Registration{}, err
	}

	if counter := obs.RegistrationsPricedTotal; counter != nil {
		counter.WithLabelValues("created").Inc()
	}
	if hist := obs.RegistrationTotalAmount; hist != nil {
		total, _ := reg.Total.Float64()
		hist.WithLabelValues(reg.Currency).Observe(total)
	}

	s.afterCreate(ctx, reg, m.Email)

	reg.Items = snapshotFromQuote(quote)
	reg.Discounts = appliedFromQuote(discounts, resolved)
	return reg, nil
}

func (s *Service) afterCreate(ctx context.Context, reg Registration, email string) {
	if s.Bus != nil {
		rid, err := toUUID(reg.ID)
		if err == nil {
			payload := map[string]any{
				"registrationId": reg.ID,
				"eventId":        reg.EventID,
				"memberId":       reg.MemberID,
				"total":          reg.Total,
				"status":         string(reg.Status),
				"email":          email,
			}
			if _, err := s.Bus.Emit(ctx, events.TopicRegistrationCreated, rid, payload); err != nil {
				s.Logger.Warn().Err(err).Str("registration_id", reg.ID).Msg("emit registration.created failed")
			}
		}
	}
	if s.Receipts != nil {
		if err := s.Receipts.EnqueueReceipt(ctx, reg.ID); err != nil {
			s.Logger.Warn().Err(err).Str("registration_id", reg.ID).Msg("enqueue receipt failed")
		}
	}
}

// RecordPayment applies a payment to a registration under a row lock and
// recomputes its balance and status.
func (s *Service) RecordPayment(ctx context.Context, registrationID string, in PaymentInput) (Registration, error) {
	if s == nil || s.Pool == nil {
		return Registration{}, errors.New("registration service not configured")
	}
	if !in.Amount.IsPositive() {
		return Registration{}, common.NewAppError("VALIDATION_ERROR", "amount must be positive", http.StatusBadRequest, nil)
	}
	method := strings.TrimSpace(in.Method)
	if method == "" {
		method = "manual"
	}
	rid, err := toUUID(registrationID)
	if err != nil {
		return Registration{}, notFound("registration")
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Registration{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, rid)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Registration{}, notFound("registration")
		}
		return Registration{}, fmt.Errorf("lock registration: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO payments (registration_id, amount, method)
		VALUES ($1, $2, $3)`, rid, in.Amount, method); err != nil {
		return Registration{}, fmt.Errorf("insert payment: %w", err)
	}

	newPaid := reg.AmountPaid.Add(in.Amount)
	balance := pricing.DepositBalance(reg.Total, s.depositRequired(ctx, reg), newPaid)
	status := pricing.Status(reg.Total, newPaid)

	row = tx.QueryRow(ctx, `UPDATE registrations
		SET amount_paid = $2, deposit_due = $3, balance_due = $4, deposit_paid = $5, fully_paid = $6,
			status = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+registrationColumns,
		rid, newPaid, balance.DepositDue, balance.BalanceDue, balance.DepositPaid, balance.FullyPaid, string(status))
	updated, err := scanRegistration(row)
	if err != nil {
		return Registration{}, fmt.Errorf("update registration: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Registration{}, err
	}

	if counter := obs.PaymentsRecordedTotal; counter != nil {
		counter.WithLabelValues(string(updated.Status)).Inc()
	}
	if s.Bus != nil {
		payload := map[string]any{
			"registrationId": updated.ID,
			"amount":         in.Amount,
			"method":         method,
			"amountPaid":     updated.AmountPaid,
			"status":         string(updated.Status),
		}
		if _, err := s.Bus.Emit(ctx, events.TopicRegistrationPaymentRecorded, rid, payload); err != nil {
			s.Logger.Warn().Err(err).Str("registration_id", updated.ID).Msg("emit payment_recorded failed")
		}
	}
	return updated, nil
}

// depositRequired reads the event's current deposit requirement. Missing
// events fall back to the requirement snapshotted at registration time so
// an archived event never blocks payment recording.
func (s *Service) depositRequired(ctx context.Context, reg Registration) decimal.Decimal {
	if s.Events == nil {
		return reg.DepositRequired
	}
	ev, err := s.Events.GetEvent(ctx, reg.EventID)
	if err != nil {
		return reg.DepositRequired
	}
	return ev.DepositAmount
}

// Get returns one registration with its line item and discount snapshots.
func (s *Service) Get(ctx context.Context, registrationID string) (Registration, error) {
	rid, err := toUUID(registrationID)
	if err != nil {
		return Registration{}, notFound("registration")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, rid)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Registration{}, notFound("registration")
		}
		return Registration{}, fmt.Errorf("get registration: %w", err)
	}
	if reg.Items, err = s.listItems(ctx, rid); err != nil {
		return Registration{}, err
	}
	if reg.Discounts, err = s.listDiscounts(ctx, rid); err != nil {
		return Registration{}, err
	}
	return reg, nil
}

// ListByMember returns a member's registrations, newest first.
func (s *Service) ListByMember(ctx context.Context, memberID string, page, perPage int) ([]Registration, int64, error) {
	mid, err := toUUID(memberID)
	if err != nil {
		return nil, 0, notFound("member")
	}
	return s.list(ctx, `WHERE member_id = $3`, page, perPage, mid)
}

// List returns all registrations for admin views.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Registration, int64, error) {
	return s.list(ctx, "", page, perPage)
}

func (s *Service) list(ctx context.Context, where string, page, perPage int, extra ...any) ([]Registration, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	offset := (page - 1) * perPage
	args := append([]any{perPage, offset}, extra...)
	rows, err := s.Pool.Query(ctx, `SELECT `+registrationColumns+` FROM registrations `+where+`
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	regs := make([]Registration, 0, perPage)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	countQuery := `SELECT count(*) FROM registrations ` + strings.ReplaceAll(where, "$3", "$1")
	if err := s.Pool.QueryRow(ctx, countQuery, extra...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

// ListPayments returns a registration's recorded payments, oldest first.
func (s *Service) ListPayments(ctx context.Context, registrationID string, limit int) ([]Payment, error) {
	rid, err := toUUID(registrationID)
	if err != nil {
		return nil, notFound("registration")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, registration_id, amount, method, created_at
		FROM payments WHERE registration_id = $1 ORDER BY created_at, id LIMIT $2`, rid, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0, 4)
	for rows.Next() {
		var (
			id        pgtype.UUID
			regID     pgtype.UUID
			createdAt pgtype.Timestamptz
			p         Payment
		)
		if err := rows.Scan(&id, &regID, &p.Amount, &p.Method, &createdAt); err != nil {
			return nil, err
		}
		p.ID = uuidString(id)
		p.RegistrationID = uuidString(regID)
		p.CreatedAt = createdAt.Time
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Service) listItems(ctx context.Context, rid pgtype.UUID) ([]SnapshotItem, error) {
	rows, err := s.Pool.Query(ctx, `SELECT line_item_id, name, amount, user_age
		FROM registration_line_items WHERE registration_id = $1 ORDER BY id`, rid)
	if err != nil {
		return nil, fmt.Errorf("list snapshot items: %w", err)
	}
	defer rows.Close()

	items := make([]SnapshotItem, 0, 8)
	for rows.Next() {
		var (
			liID pgtype.UUID
			it   SnapshotItem
		)
		if err := rows.Scan(&liID, &it.Name, &it.Amount, &it.UserAge); err != nil {
			return nil, err
		}
		it.LineItemID = uuidString(liID)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Service) listDiscounts(ctx context.Context, rid pgtype.UUID) ([]AppliedDiscount, error) {
	rows, err := s.Pool.Query(ctx, `SELECT name, discount_type, amount, resolved_amount
		FROM registration_discounts WHERE registration_id = $1 ORDER BY id`, rid)
	if err != nil {
		return nil, fmt.Errorf("list snapshot discounts: %w", err)
	}
	defer rows.Close()

	applied := make([]AppliedDiscount, 0, 2)
	for rows.Next() {
		var (
			dtype string
			d     AppliedDiscount
		)
		if err := rows.Scan(&d.Name, &dtype, &d.Amount, &d.ResolvedAmount); err != nil {
			return nil, err
		}
		d.Type = pricing.DiscountType(dtype)
		applied = append(applied, d)
	}
	return applied, rows.Err()
}

func snapshotFromQuote(q Quote) []SnapshotItem {
	items := make([]SnapshotItem, 0, len(q.Items))
	for _, it := range q.Items {
		id := ""
		if it.LineItemID != uuid.Nil {
			id = it.LineItemID.String()
		}
		items = append(items, SnapshotItem{LineItemID: id, Name: it.Name, Amount: it.Amount, UserAge: it.UserAge})
	}
	return items
}

func appliedFromQuote(discounts []pricing.Discount, resolved []decimal.Decimal) []AppliedDiscount {
	applied := make([]AppliedDiscount, 0, len(discounts))
	for i, d := range discounts {
		applied = append(applied, AppliedDiscount{Name: d.Name, Type: d.Type, Amount: d.Amount, ResolvedAmount: resolved[i]})
	}
	return applied
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (Registration, error) {
	var (
		id        pgtype.UUID
		eventID   pgtype.UUID
		memberID  pgtype.UUID
		status    string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		reg       Registration
	)
	if err := row.Scan(&id, &eventID, &memberID, &reg.Currency, &reg.Subtotal, &reg.DiscountTotal, &reg.Total,
		&reg.AmountPaid, &reg.DepositRequired, &reg.DepositDue, &reg.BalanceDue, &reg.DepositPaid, &reg.FullyPaid, &status,
		&createdAt, &updatedAt); err != nil {
		return Registration{}, err
	}
	reg.ID = uuidString(id)
	reg.EventID = uuidString(eventID)
	reg.MemberID = uuidString(memberID)
	reg.Status = pricing.PaymentStatus(status)
	reg.CreatedAt = createdAt.Time
	reg.UpdatedAt = updatedAt.Time
	return reg, nil
}

func notFound(what string) error {
	return common.NewAppError("NOT_FOUND", what+" not found", http.StatusNotFound, nil)
}

func toUUID(value string) (pgtype.UUID, error) {
	var id pgtype.UUID
	if err := id.Scan(strings.TrimSpace(value)); err != nil {
		return pgtype.UUID{}, err
	}
	return id, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	u, err := uuid.FromBytes(id.Bytes[:])
	if err != nil {
		return ""
	}
	return u.String()
}
