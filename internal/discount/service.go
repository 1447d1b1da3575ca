package discount

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ashworth-collective/backend-club/internal/common"
	"github.com/ashworth-collective/backend-club/internal/pricing"
)

// ErrUnknownCode is returned when a requested discount code does not exist
// for the event.
var ErrUnknownCode = errors.New("discount: unknown code")

// Discount is an event-scoped reduction a member may apply at registration.
type Discount struct {
	ID        string               `json:"id"`
	EventID   string               `json:"event_id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Type      pricing.DiscountType `json:"type"`
	Amount    decimal.Decimal      `json:"amount"`
	CreatedAt time.Time            `json:"created_at"`
}

// Input captures payload for creating or updating a discount.
type Input struct {
	Code   string          `json:"code" validate:"required,min=2,max=64"`
	Name   string          `json:"name" validate:"required"`
	Type   string          `json:"type" validate:"required,oneof=fixed_amount percentage"`
	Amount decimal.Decimal `json:"amount"`
}

// Store captures the persistence methods the discount service needs.
// Split out so registration and tests can substitute their own lookups.
type Store interface {
	Insert(ctx context.Context, eventID string, input Input) (Discount, error)
	Update(ctx context.Context, eventID, id string, input Input) (Discount, error)
	Delete(ctx context.Context, eventID, id string) error
	ListByEvent(ctx context.Context, eventID string) ([]Discount, error)
	FindByCodes(ctx context.Context, eventID string, codes []string) ([]Discount, error)
}

// Service manages the per-event discount catalog and previews discount
// application through the pricing engine.
type Service struct {
	Store    Store
	Validate *validator.Validate
}

// NewService constructs a discount service backed by the given store.
func NewService(store Store, validate *validator.Validate) *Service {
	if validate == nil {
		validate = validator.New()
	}
	return &Service{Store: store, Validate: validate}
}

// Create adds a discount code to an event.
func (s *Service) Create(ctx context.Context, eventID string, input Input) (Discount, error) {
	if err := s.validate(&input); err != nil {
		return Discount{}, err
	}
	return s.Store.Insert(ctx, eventID, input)
}

// Update replaces a discount definition.
func (s *Service) Update(ctx context.Context, eventID, id string, input Input) (Discount, error) {
	if err := s.validate(&input); err != nil {
		return Discount{}, err
	}
	return s.Store.Update(ctx, eventID, id, input)
}

// Delete removes a discount code from an event.
func (s *Service) Delete(ctx context.Context, eventID, id string) error {
	return s.Store.Delete(ctx, eventID, id)
}

// List returns all discounts configured for an event.
func (s *Service) List(ctx context.Context, eventID string) ([]Discount, error) {
	return s.Store.ListByEvent(ctx, eventID)
}

// Resolve maps requested codes to engine discounts, preserving request
// order. Every code must exist for the event; an unknown code fails the
// whole resolution so a member never silently loses a discount they
// believed they applied.
func (s *Service) Resolve(ctx context.Context, eventID string, codes []string) ([]pricing.Discount, error) {
	normalized := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		c := strings.ToUpper(strings.TrimSpace(code))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		normalized = append(normalized, c)
	}
	if len(normalized) == 0 {
		return nil, nil
	}

	found, err := s.Store.FindByCodes(ctx, eventID, normalized)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]Discount, len(found))
	for _, d := range found {
		byCode[d.Code] = d
	}

	resolved := make([]pricing.Discount, 0, len(normalized))
	for _, code := range normalized {
		d, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCode, code)
		}
		resolved = append(resolved, pricing.Discount{Name: d.Name, Type: d.Type, Amount: d.Amount})
	}
	return resolved, nil
}

// PreviewResult describes discount application against a hypothetical subtotal.
type PreviewResult struct {
	Subtotal      decimal.Decimal          `json:"subtotal"`
	DiscountTotal decimal.Decimal          `json:"discount_total"`
	Total         decimal.Decimal          `json:"total"`
	Breakdown     []pricing.BreakdownEntry `json:"breakdown"`
}

// Preview resolves codes for the event and runs them through the totals
// engine against the supplied subtotal without touching any registration.
func (s *Service) Preview(ctx context.Context, eventID string, subtotal decimal.Decimal, codes []string) (PreviewResult, error) {
	discounts, err := s.Resolve(ctx, eventID, codes)
	if err != nil {
		return PreviewResult{}, err
	}
	items := []pricing.CalculatedItem{{Name: "Subtotal", Amount: subtotal}}
	totals := pricing.RegistrationTotal(items, discounts)
	return PreviewResult{
		Subtotal:      totals.Subtotal,
		DiscountTotal: totals.DiscountTotal,
		Total:         totals.Total,
		Breakdown:     totals.Breakdown,
	}, nil
}

func (s *Service) validate(input *Input) error {
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	input.Name = strings.TrimSpace(input.Name)
	if err := s.Validate.Struct(input); err != nil {
		return common.NewAppError("VALIDATION_ERROR", "invalid discount payload", http.StatusBadRequest, err)
	}
	if input.Amount.IsNegative() {
		return common.NewAppError("VALIDATION_ERROR", "amount must not be negative", http.StatusBadRequest, nil)
	}
	if pricing.DiscountType(input.Type) == pricing.DiscountPercentage && input.Amount.GreaterThan(decimal.NewFromInt(100)) {
		return common.NewAppError("VALIDATION_ERROR", "percentage discounts cannot exceed 100", http.StatusBadRequest, nil)
	}
	return nil
}

// PgStore is the pgx-backed Store implementation.
type PgStore struct {
	Pool *pgxpool.Pool
}

const discountColumns = `id, event_id, code, name, discount_type, amount, created_at`

// Insert adds a discount row, enforcing per-event code uniqueness.
func (p *PgStore) Insert(ctx context.Context, eventID string, input Input) (Discount, error) {
	eid, err := toUUID(eventID)
	if err != nil {
		return Discount{}, notFound("event")
	}
	row := p.Pool.QueryRow(ctx, `INSERT INTO event_discounts (event_id, code, name, discount_type, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+discountColumns,
		eid, input.Code, input.Name, input.Type, input.Amount)
	d, err := scanDiscount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Discount{}, common.NewAppError("CONFLICT", "discount code already exists for event", http.StatusConflict, err)
		}
		return Discount{}, fmt.Errorf("insert discount: %w", err)
	}
	return d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Update replaces a discount row's mutable fields.
func (p *PgStore) Update(ctx context.Context, eventID, id string, input Input) (Discount, error) {
	eid, err := toUUID(eventID)
	if err != nil {
		return Discount{}, notFound("event")
	}
	did, err := toUUID(id)
	if err != nil {
		return Discount{}, notFound("discount")
	}
	row := p.Pool.QueryRow(ctx, `UPDATE event_discounts
		SET code = $3, name = $4, discount_type = $5, amount = $6
		WHERE id = $2 AND event_id = $1
		RETURNING `+discountColumns,
		eid, did, input.Code, input.Name, input.Type, input.Amount)
	d, err := scanDiscount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Discount{}, notFound("discount")
		}
		return Discount{}, fmt.Errorf("update discount: %w", err)
	}
	return d, nil
}

// Delete removes a discount row.
func (p *PgStore) Delete(ctx context.Context, eventID, id string) error {
	eid, err := toUUID(eventID)
	if err != nil {
		return notFound("event")
	}
	did, err := toUUID(id)
	if err != nil {
		return notFound("discount")
	}
	tag, err := p.Pool.Exec(ctx, `DELETE FROM event_discounts WHERE id = $2 AND event_id = $1`, eid, did)
	if err != nil {
		return fmt.Errorf("delete discount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("discount")
	}
	return nil
}

// ListByEvent returns all discounts for an event ordered by code.
func (p *PgStore) ListByEvent(ctx context.Context, eventID string) ([]Discount, error) {
	eid, err := toUUID(eventID)
	if err != nil {
		return nil, notFound("event")
	}
	rows, err := p.Pool.Query(ctx, `SELECT `+discountColumns+` FROM event_discounts
		WHERE event_id = $1 ORDER BY code`, eid)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()
	return collectDiscounts(rows)
}

// FindByCodes returns the subset of an event's discounts matching codes.
func (p *PgStore) FindByCodes(ctx context.Context, eventID string, codes []string) ([]Discount, error) {
	eid, err := toUUID(eventID)
	if err != nil {
		return nil, notFound("event")
	}
	rows, err := p.Pool.Query(ctx, `SELECT `+discountColumns+` FROM event_discounts
		WHERE event_id = $1 AND code = ANY($2)`, eid, codes)
	if err != nil {
		return nil, fmt.Errorf("find discounts: %w", err)
	}
	defer rows.Close()
	return collectDiscounts(rows)
}

func collectDiscounts(rows pgx.Rows) ([]Discount, error) {
	discounts := make([]Discount, 0, 4)
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return discounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiscount(row rowScanner) (Discount, error) {
	var (
		id        pgtype.UUID
		eventID   pgtype.UUID
		dtype     string
		createdAt pgtype.Timestamptz
		d         Discount
	)
	if err := row.Scan(&id, &eventID, &d.Code, &d.Name, &dtype, &d.Amount, &createdAt); err != nil {
		return Discount{}, err
	}
	d.ID = uuidString(id)
	d.EventID = uuidString(eventID)
	d.Type = pricing.DiscountType(dtype)
	d.CreatedAt = createdAt.Time
	return d, nil
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
