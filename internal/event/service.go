package event

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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ashworth-collective/backend-club/internal/common"
	"github.com/ashworth-collective/backend-club/internal/pricing"
)

// Event describes a club event that members can register for.
type Event struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	StartsAt      time.Time       `json:"starts_at"`
	EndsAt        time.Time       `json:"ends_at"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Input captures payload for creating or updating an event.
type Input struct {
	Title         string          `json:"title" validate:"required,min=2"`
	Description   string          `json:"description"`
	StartsAt      time.Time       `json:"starts_at" validate:"required"`
	EndsAt        time.Time       `json:"ends_at" validate:"required,gtefield=StartsAt"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
}

// LineItem is the API shape of an organizer-defined line item.
type LineItem struct {
	ID         string           `json:"id"`
	EventID    string           `json:"event_id"`
	Name       string           `json:"name"`
	Method     pricing.Method   `json:"method"`
	BaseAmount *decimal.Decimal `json:"base_amount,omitempty"`
	MinAmount  *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount  *decimal.Decimal `json:"max_amount,omitempty"`
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
	Required   bool             `json:"required"`
	Position   int              `json:"position"`
}

// LineItemInput captures payload for creating or updating a line item.
type LineItemInput struct {
	Name       string           `json:"name" validate:"required"`
	Method     string           `json:"method" validate:"required,oneof=fixed_amount age_multiplier percentage"`
	BaseAmount *decimal.Decimal `json:"base_amount"`
	MinAmount  *decimal.Decimal `json:"min_amount"`
	MaxAmount  *decimal.Decimal `json:"max_amount"`
	Multiplier *decimal.Decimal `json:"multiplier"`
	Required   bool             `json:"required"`
	Position   int              `json:"position"`
}

// Service orchestrates event and line item management.
type Service struct {
	pool     *pgxpool.Pool
	cache    *Cache
	validate *validator.Validate
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Pool      *pgxpool.Pool
	Cache     *Cache
	Validator *validator.Validate
	Logger    zerolog.Logger
}

// NewService constructs an event service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Pool == nil {
		return nil, errors.New("event: pool is required")
	}
	validate := cfg.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &Service{pool: cfg.Pool, cache: cfg.Cache, validate: validate, logger: cfg.Logger}, nil
}

const eventColumns = `id, title, description, starts_at, ends_at, deposit_amount, currency, created_at, updated_at`

// CreateEvent inserts a new event.
func (s *Service) CreateEvent(ctx context.Context, input Input) (Event, error) {
	if err := s.validateEvent(&input); err != nil {
		return Event{}, err
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO events (title, description, starts_at, ends_at, deposit_amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+eventColumns,
		input.Title, input.Description, input.StartsAt, input.EndsAt, input.DepositAmount, input.Currency)
	ev, err := scanEvent(row)
	if err != nil {
		return Event{}, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

// UpdateEvent replaces an event's mutable fields.
func (s *Service) UpdateEvent(ctx context.Context, id string, input Input) (Event, error) {
	eid, err := toUUID(id)
	if err != nil {
		return Event{}, notFound("event")
	}
	if err := s.validateEvent(&input); err != nil {
		return Event{}, err
	}
	row := s.pool.QueryRow(ctx, `UPDATE events
		SET title = $2, description = $3, starts_at = $4, ends_at = $5, deposit_amount = $6, currency = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+eventColumns,
		eid, input.Title, input.Description, input.StartsAt, input.EndsAt, input.DepositAmount, input.Currency)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, notFound("event")
		}
		return Event{}, fmt.Errorf("update event: %w", err)
	}
	return ev, nil
}

// GetEvent returns one event by identifier.
func (s *Service) GetEvent(ctx context.Context, id string) (Event, error) {
	eid, err := toUUID(id)
	if err != nil {
		return Event{}, notFound("event")
	}
	row := s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, eid)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, notFound("event")
		}
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// ListEvents returns a paginated slice of events ordered by start date.
func (s *Service) ListEvents(ctx context.Context, page, perPage int) ([]Event, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	offset := (page - 1) * perPage
	rows, err := s.pool.Query(ctx, `SELECT `+eventColumns+` FROM events
		ORDER BY starts_at DESC, id LIMIT $1 OFFSET $2`, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, perPage)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// DeleteEvent removes an event and its line items.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	eid, err := toUUID(id)
	if err != nil {
		return notFound("event")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eid)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("event")
	}
	s.invalidateLineItems(ctx, id)
	return nil
}

const lineItemColumns = `id, event_id, name, method, base_amount, min_amount, max_amount, multiplier, required, position`

// AddLineItem appends a line item definition to an event.
func (s *Service) AddLineItem(ctx context.Context, eventID string, input LineItemInput) (LineItem, error) {
	eid, err := toUUID(eventID)
	if err != nil {
		return LineItem{}, notFound("event")
	}
	if err := s.validateLineItem(&input); err != nil {
		return LineItem{}, err
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO event_line_items
		(event_id, name, method, base_amount, min_amount, max_amount, multiplier, required, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+lineItemColumns,
		eid, input.Name, input.Method, input.BaseAmount, input.MinAmount, input.MaxAmount, input.Multiplier,
		input.Required, input.Position)
	item, err := scanLineItem(row)
	if err != nil {
		return LineItem{}, fmt.Errorf("add line item: %w", err)
	}
	s.invalidateLineItems(ctx, eventID)
	return item, nil
}

// UpdateLineItem replaces a line item definition. Registrations created
// before the change keep their snapshotted amounts.
func (s *Service) UpdateLineItem(ctx context.Context, eventID, itemID string, input LineItemInput) (LineItem, error) {
	eid, err := toUUID(eventID)
	if err != nil {
		return LineItem{}, notFound("event")
	}
	lid, err := toUUID(itemID)
	if err != nil {
		return LineItem{}, notFound("line item")
	}
	if err := s.validateLineItem(&input); err != nil {
		return LineItem{}, err
	}
	row := s.pool.QueryRow(ctx, `UPDATE event_line_items
		SET name = $3, method = $4, base_amount = $5, min_amount = $6, max_amount = $7, multiplier = $8,
			required = $9, position = $10
		WHERE id = $2 AND event_id = $1
		RETURNING `+lineItemColumns,
		eid, lid, input.Name, input.Method, input.BaseAmount, input.MinAmount, input.MaxAmount, input.Multiplier,
		input.Required, input.Position)
	item, err := scanLineItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LineItem{}, notFound("line item")
		}
		return LineItem{}, fmt.Errorf("update line item: %w", err)
	}
	s.invalidateLineItems(ctx, eventID)
	return item, nil
}

// DeleteLineItem removes a line item definition.
func (s *Service) DeleteLineItem(ctx context.Context, eventID, itemID string) error {
	eid, err := toUUID(eventID)
	if err != nil {
		return notFound("event")
	}
	lid, err := toUUID(itemID)
	if err != nil {
		return notFound("line item")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM event_line_items WHERE id = $2 AND event_id = $1`, eid, lid)
	if err != nil {
		return fmt.Errorf("delete line item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("line item")
	}
	s.invalidateLineItems(ctx, eventID)
	return nil
}

// ListLineItems returns an event's line item definitions, cached between edits.
func (s *Service) ListLineItems(ctx context.Context, eventID string) ([]LineItem, error) {
	key := lineItemsKey(eventID)
	var cached []LineItem
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Str("event_id", eventID).Msg("line item cache read failed")
	}

	eid, err := toUUID(eventID)
	if err != nil {
		return nil, notFound("event")
	}
	rows, err := s.pool.Query(ctx, `SELECT `+lineItemColumns+` FROM event_line_items
		WHERE event_id = $1 ORDER BY position, name`, eid)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	items := make([]LineItem, 0, 8)
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, items); err != nil {
		s.logger.Warn().Err(err).Str("event_id", eventID).Msg("line item cache write failed")
	}
	return items, nil
}

// ToPricing converts an API line item into the engine's definition type.
func (li LineItem) ToPricing() pricing.LineItem {
	id, _ := uuid.Parse(li.ID)
	return pricing.LineItem{
		ID:         id,
		Name:       li.Name,
		Method:     li.Method,
		BaseAmount: li.BaseAmount,
		MinAmount:  li.MinAmount,
		MaxAmount:  li.MaxAmount,
		Multiplier: li.Multiplier,
		Required:   li.Required,
	}
}

func (s *Service) validateEvent(input *Input) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = "USD"
	}
	if err := s.validate.Struct(input); err != nil {
		return common.NewAppError("VALIDATION_ERROR", "invalid event payload", http.StatusBadRequest, err)
	}
	if input.DepositAmount.IsNegative() {
		return common.NewAppError("VALIDATION_ERROR", "deposit_amount must not be negative", http.StatusBadRequest, nil)
	}
	return nil
}

func (s *Service) validateLineItem(input *LineItemInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Method = strings.TrimSpace(input.Method)
	if err := s.validate.Struct(input); err != nil {
		return common.NewAppError("VALIDATION_ERROR", "invalid line item payload", http.StatusBadRequest, err)
	}
	if pricing.Method(input.Method) == pricing.MethodAgeMultiplier && input.Multiplier == nil {
		return common.NewAppError("VALIDATION_ERROR", "age_multiplier items require a multiplier", http.StatusBadRequest, nil)
	}
	return nil
}

func (s *Service) invalidateLineItems(ctx context.Context, eventID string) {
	if err := s.cache.Invalidate(ctx, lineItemsKey(eventID)); err != nil {
		s.logger.Warn().Err(err).Str("event_id", eventID).Msg("line item cache invalidation failed")
	}
}

func notFound(what string) error {
	return common.NewAppError("NOT_FOUND", what+" not found", http.StatusNotFound, nil)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		ev        Event
	)
	if err := row.Scan(&id, &ev.Title, &ev.Description, &ev.StartsAt, &ev.EndsAt, &ev.DepositAmount, &ev.Currency, &createdAt, &updatedAt); err != nil {
		return Event{}, err
	}
	ev.ID = uuidString(id)
	ev.CreatedAt = createdAt.Time
	ev.UpdatedAt = updatedAt.Time
	return ev, nil
}

func scanLineItem(row rowScanner) (LineItem, error) {
	var (
		id      pgtype.UUID
		eventID pgtype.UUID
		method  string
		item    LineItem
	)
	if err := row.Scan(&id, &eventID, &item.Name, &method, &item.BaseAmount, &item.MinAmount, &item.MaxAmount,
		&item.Multiplier, &item.Required, &item.Position); err != nil {
		return LineItem{}, err
	}
	item.ID = uuidString(id)
	item.EventID = uuidString(eventID)
	item.Method = pricing.Method(method)
	return item, nil
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
