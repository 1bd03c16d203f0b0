package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tieubaoca/research-assistant/types"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// Dialect holds the statements that differ between SQL backends.
type Dialect struct {
	Name       string
	InsertUser string
	SelectUser string
}

var (
	PostgresDialect = Dialect{
		Name: "postgres",
		InsertUser: `INSERT INTO users (username, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		SelectUser: `SELECT id, username, email, password_hash, created_at FROM users
		 WHERE username = $1`,
	}
	SQLiteDialect = Dialect{
		Name: "sqlite",
		InsertUser: `INSERT INTO users (username, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`,
		SelectUser: `SELECT id, username, email, password_hash, created_at FROM users
		 WHERE username = ?`,
	}
)

type sqlUserRepo struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLUserRepo(db *sql.DB, dialect Dialect) UserRepo {
	return &sqlUserRepo{db: db, dialect: dialect}
}

func (r *sqlUserRepo) CreateUser(ctx context.Context, user *types.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.InsertUser,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("%s db error: %w", r.dialect.Name, err)
	}
	user.ID = strconv.FormatInt(id, 10)
	return nil
}

func (r *sqlUserRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	var (
		id   int64
		user types.User
	)
	err := r.db.QueryRowContext(ctx, r.dialect.SelectUser, username).
		Scan(&id, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s db error: %w", r.dialect.Name, err)
	}
	user.ID = strconv.FormatInt(id, 10)
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		// extended result codes may be off for this connection
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
