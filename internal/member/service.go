package member

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

	"github.com/ashworth-collective/backend-club/internal/common"
	"github.com/ashworth-collective/backend-club/internal/pricing"
)

// Member represents a club member in API-friendly format.
type Member struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	DateOfBirth string    `json:"date_of_birth"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input captures payload for creating or updating a member.
type Input struct {
	Subject     string   `json:"subject" validate:"required"`
	FullName    string   `json:"full_name" validate:"required,min=2"`
	Email       string   `json:"email" validate:"required,email"`
	DateOfBirth string   `json:"date_of_birth" validate:"required"`
	Roles       []string `json:"roles" validate:"dive,oneof=member organizer admin"`
}

// Directory is the subset of member lookups needed by authentication.
type Directory interface {
	GetBySubject(ctx context.Context, subject string) (Member, error)
}

// Service orchestrates member CRUD against PostgreSQL.
type Service struct {
	pool     *pgxpool.Pool
	validate *validator.Validate
}

// NewService constructs a member service.
func NewService(pool *pgxpool.Pool, validate *validator.Validate) *Service {
	if validate == nil {
		validate = validator.New()
	}
	return &Service{pool: pool, validate: validate}
}

const memberColumns = `id, subject, full_name, email, date_of_birth, roles, created_at, updated_at`

// Create inserts a new member record.
func (s *Service) Create(ctx context.Context, input Input) (Member, error) {
	dob, err := s.validateInput(&input)
	if err != nil {
		return Member{}, err
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO members (subject, full_name, email, date_of_birth, roles)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+memberColumns,
		input.Subject, input.FullName, strings.ToLower(input.Email), dob, rolesOrDefault(input.Roles))
	member, err := scanMember(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Member{}, common.NewAppError("CONFLICT", "member already exists", http.StatusConflict, err)
		}
		return Member{}, fmt.Errorf("create member: %w", err)
	}
	return member, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Get returns one member by identifier.
func (s *Service) Get(ctx context.Context, id string) (Member, error) {
	mid, err := toUUID(id)
	if err != nil {
		return Member{}, common.NewAppError("NOT_FOUND", "member not found", http.StatusNotFound, nil)
	}
	row := s.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, mid)
	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, common.NewAppError("NOT_FOUND", "member not found", http.StatusNotFound, nil)
		}
		return Member{}, fmt.Errorf("get member: %w", err)
	}
	return member, nil
}

// GetBySubject returns the member provisioned for an identity provider subject.
func (s *Service) GetBySubject(ctx context.Context, subject string) (Member, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Member{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, nil)
	}
	row := s.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE subject = $1`, subject)
	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, common.NewAppError("NOT_FOUND", "member not found", http.StatusNotFound, nil)
		}
		return Member{}, fmt.Errorf("get member by subject: %w", err)
	}
	return member, nil
}

// List returns a paginated slice of members together with the total count.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Member, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	rows, err := s.pool.Query(ctx, `SELECT `+memberColumns+` FROM members
		ORDER BY full_name, id LIMIT $1 OFFSET $2`, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]Member, 0, perPage)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM members`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// Update replaces a member's mutable fields.
func (s *Service) Update(ctx context.Context, id string, input Input) (Member, error) {
	mid, err := toUUID(id)
	if err != nil {
		return Member{}, common.NewAppError("NOT_FOUND", "member not found", http.StatusNotFound, nil)
	}
	dob, err := s.validateInput(&input)
	if err != nil {
		return Member{}, err
	}
	row := s.pool.QueryRow(ctx, `UPDATE members
		SET subject = $2, full_name = $3, email = $4, date_of_birth = $5, roles = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+memberColumns,
		mid, input.Subject, input.FullName, strings.ToLower(input.Email), dob, rolesOrDefault(input.Roles))
	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, common.NewAppError("NOT_FOUND", "member not found", http.StatusNotFound, nil)
		}
		return Member{}, fmt.Errorf("update member: %w", err)
	}
	return member, nil
}

// Delete removes a member. Registrations keep their snapshots.
func (s *Service) Delete(ctx context.Context, id string) error {
	mid, err := toUUID(id)
	if err != nil {
		return common.NewAppError("NOT_FOUND", "member not found", http.StatusNotFound, nil)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, mid)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError("NOT_FOUND", "member not found", http.StatusNotFound, nil)
	}
	return nil
}

func (s *Service) validateInput(input *Input) (time.Time, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.TrimSpace(input.Email)
	if err := s.validate.Struct(input); err != nil {
		return time.Time{}, common.NewAppError("VALIDATION_ERROR", "invalid member payload", http.StatusBadRequest, err)
	}
	dob, err := pricing.ParseDate(input.DateOfBirth)
	if err != nil {
		return time.Time{}, common.NewAppError("VALIDATION_ERROR", "date_of_birth must be YYYY-MM-DD", http.StatusBadRequest, err)
	}
	return dob, nil
}

func rolesOrDefault(roles []string) []string {
	if len(roles) == 0 {
		return []string{"member"}
	}
	return roles
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (Member, error) {
	var (
		id        pgtype.UUID
		dob       time.Time
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		m         Member
	)
	if err := row.Scan(&id, &m.Subject, &m.FullName, &m.Email, &dob, &m.Roles, &createdAt, &updatedAt); err != nil {
		return Member{}, err
	}
	m.ID = uuidString(id)
	m.DateOfBirth = dob.Format(pricing.DateLayout)
	m.CreatedAt = createdAt.Time
	m.UpdatedAt = updatedAt.Time
	return m, nil
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
