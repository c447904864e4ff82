package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/protrack-gov/protrack/internal/authz"
	"github.com/protrack-gov/protrack/internal/shared"
)

// ErrDuplicateEmail indicates the email is already taken.
var ErrDuplicateEmail = errors.New("users: email already in use")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, role, is_active, created_at, updated_at`

// ListUsers returns all users ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetUser fetches one user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// CreateUser inserts a new account with an empty override map.
func (r *Repository) CreateUser(ctx context.Context, email, name, passwordHash string, role authz.Role) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role, is_active, permission_overrides, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, '{}', NOW(), NOW())
		RETURNING `+userColumns,
		email, name, passwordHash, string(role))
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return user, nil
}

// UpdateUser updates name, role and active flag.
func (r *Repository) UpdateUser(ctx context.Context, id int64, name string, role authz.Role, isActive bool) (User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET name = $2, role = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, name, string(role), isActive)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// DeleteUser removes the account. The override map lives on the row and
// dies with it.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Identity implements the directory contract used by the override editor.
func (r *Repository) Identity(ctx context.Context, userID int64) (authz.Identity, error) {
	user, err := r.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return authz.Identity{}, authz.ErrUnknownUser
		}
		return authz.Identity{}, err
	}
	return authz.Identity{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var role string
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.IsActive, &createdAt, &updatedAt); err != nil {
		return User{}, err
	}
	user.Role = authz.Role(role)
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return user, nil
}
