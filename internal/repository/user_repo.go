package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agriconnect/internal/ids"
	"agriconnect/internal/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicatePhone = errors.New("phone number already registered")
	ErrUserNotFound   = errors.New("user not found")
)

// UserRepository defines operations for user data.
// Lookups return (nil, nil) when no user matches.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	FindByPhoneAndRole(ctx context.Context, phone string, role model.Role) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, filters model.UserFilters) ([]*model.User, error)
	// SetVerification updates verified and verified_at in a single statement
	SetVerification(ctx context.Context, id string, verified bool, verifiedAt *time.Time) error
	Ping(ctx context.Context) error
}

// PgxIface is satisfied by *pgxpool.Pool and by pgxmock pools in tests
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, name, phone, password_hash, role, verified, verified_at, created_at`

type userRepository struct {
	db PgxIface
}

// NewUserRepository creates a PostgreSQL-backed UserRepository
func NewUserRepository(db PgxIface) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user, assigning an ID if the caller did not
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = ids.New()
	}
	sql := `INSERT INTO users (` + userColumns + `)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, sql, user.ID, user.Name, user.Phone, user.PasswordHash,
		string(user.Role), user.Verified, user.VerifiedAt, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByPhone retrieves a user by their phone number
func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	user, err := scanPgUser(r.db.QueryRow(ctx, sql, phone))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by phone: %w", err)
	}
	return user, nil
}

// FindByPhoneAndRole retrieves a user only if both phone and role match
func (r *userRepository) FindByPhoneAndRole(ctx context.Context, phone string, role model.Role) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE phone = $1 AND role = $2`
	user, err := scanPgUser(r.db.QueryRow(ctx, sql, phone, string(role)))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by phone and role: %w", err)
	}
	return user, nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanPgUser(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// List returns users matching filters, newest first
func (r *userRepository) List(ctx context.Context, filters model.UserFilters) ([]*model.User, error) {
	where, args := buildUserFilter(filters, func(n int) string { return fmt.Sprintf("$%d", n) })
	sql := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// SetVerification sets the verification flag and timestamp of one user
func (r *userRepository) SetVerification(ctx context.Context, id string, verified bool, verifiedAt *time.Time) error {
	sql := `UPDATE users SET verified = $2, verified_at = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, sql, id, verified, verifiedAt)
	if err != nil {
		return fmt.Errorf("failed to update user verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanPgUser(row pgx.Row) (*model.User, error) {
	user, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func scanUserRow(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var role string
	err := row.Scan(&user.ID, &user.Name, &user.Phone, &user.PasswordHash, &role,
		&user.Verified, &user.VerifiedAt, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = model.Role(role)
	return user, nil
}

// buildUserFilter renders filters as a WHERE clause using the dialect's placeholder style
func buildUserFilter(filters model.UserFilters, placeholder func(n int) string) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Role != nil {
		conditions = append(conditions, "role = "+placeholder(argCount))
		args = append(args, string(*filters.Role))
		argCount++
	}
	if filters.Verified != nil {
		conditions = append(conditions, "verified = "+placeholder(argCount))
		args = append(args, *filters.Verified)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
