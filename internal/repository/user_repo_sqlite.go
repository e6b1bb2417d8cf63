package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"agriconnect/internal/ids"
	"agriconnect/internal/model"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeFormat is fixed width so lexical order equals chronological order
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

type sqliteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a UserRepository over a database opened with config.OpenSQLite
func NewSQLiteUserRepository(db *sql.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

func (r *sqliteUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = ids.New()
	}
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Phone, user.PasswordHash,
		string(user.Role), user.Verified, formatSQLiteTime(user.VerifiedAt), user.CreatedAt.UTC().Format(sqliteTimeFormat))
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = ?`
	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, phone))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by phone: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepository) FindByPhoneAndRole(ctx context.Context, phone string, role model.Role) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = ? AND role = ?`
	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, phone, string(role)))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by phone and role: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepository) List(ctx context.Context, filters model.UserFilters) ([]*model.User, error) {
	where, args := buildUserFilter(filters, func(int) string { return "?" })
	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanSQLiteRow(rows)
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

func (r *sqliteUserRepository) SetVerification(ctx context.Context, id string, verified bool, verifiedAt *time.Time) error {
	query := `UPDATE users SET verified = ?, verified_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, verified, formatSQLiteTime(verifiedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update user verification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *sqliteUserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanSQLiteUser(row *sql.Row) (*model.User, error) {
	user, err := scanSQLiteRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func scanSQLiteRow(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var (
		role       string
		verifiedAt sql.NullString
		createdAt  string
	)
	err := row.Scan(&user.ID, &user.Name, &user.Phone, &user.PasswordHash, &role,
		&user.Verified, &verifiedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	user.Role = model.Role(role)

	if user.CreatedAt, err = time.Parse(sqliteTimeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if verifiedAt.Valid {
		t, err := time.Parse(sqliteTimeFormat, verifiedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse verified_at: %w", err)
		}
		user.VerifiedAt = &t
	}
	return user, nil
}

func formatSQLiteTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sqliteTimeFormat)
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
