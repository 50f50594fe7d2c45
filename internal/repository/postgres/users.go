package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
	"github.com/arklim/authgate/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements port.UserRepository over the users and users_address tables.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var userColumns = []string{
	"u.id",
	"u.username",
	"u.email",
	"u.first_name",
	"u.middle_name",
	"u.last_name",
	"u.password",
	"u.gender",
	"u.birthdate",
	"u.phone_number",
	"u.is_active",
	"u.is_superuser",
	"u.created_at",
	"u.updated_at",
	"a.street_address",
	"a.locality",
	"a.region",
	"a.country",
	"a.postal_code",
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.id": id.String()})
}

// GetByUsername retrieves a user by its unique username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.username": username})
}

// GetByEmail retrieves a user by its unique email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.email": email})
}

// UpdatePassword replaces the stored hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.
		Update("users").
		Set("password", passwordHash).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("users u").
		LeftJoin("users_address a ON a.id = u.address_id").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var (
		user       domain.User
		middleName pgtype.Text
		gender     pgtype.Text
		birthdate  pgtype.Date
		phone      pgtype.Text
		updatedAt  pgtype.Timestamptz
		street     pgtype.Text
		locality   pgtype.Text
		region     pgtype.Text
		country    pgtype.Text
		postalCode pgtype.Text
	)

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.GivenName,
		&middleName,
		&user.FamilyName,
		&user.PasswordHash,
		&gender,
		&birthdate,
		&phone,
		&user.Active,
		&user.Superuser,
		&user.CreatedAt,
		&updatedAt,
		&street,
		&locality,
		&region,
		&country,
		&postalCode,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.MiddleName = middleName.String
	user.Gender = domain.Gender(gender.String)
	user.PhoneNumber = phone.String
	if birthdate.Valid {
		bd := birthdate.Time
		user.Birthdate = &bd
	}
	if updatedAt.Valid {
		ts := updatedAt.Time
		user.UpdatedAt = &ts
	}
	if country.Valid {
		user.Address = &domain.Address{
			StreetAddress: street.String,
			Locality:      locality.String,
			Region:        region.String,
			Country:       country.String,
			PostalCode:    postalCode.String,
		}
	}

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
