package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace_api/internal/config"
	"marketplace_api/internal/models"
	"marketplace_api/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// pool is the subset of *pgxpool.Pool the repository queries through.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type PostgresRepo struct {
	pool pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	p, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: p}, nil
}

// EnsureSchema creates the users table when it is missing.
// Mirrors migrations/000001_users.up.sql.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	const op = "storage.postgres.EnsureSchema"

	query := `
		CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY,
			email         VARCHAR(100) NOT NULL UNIQUE,
			password_hash BYTEA NOT NULL,
			name          VARCHAR(100) NOT NULL DEFAULT '',
			role          VARCHAR(50) NOT NULL DEFAULT 'user'
		);
	`

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) SaveUser(
	ctx context.Context,
	email, name string,
	role models.Role,
	passHash []byte,
) (string, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (id, email, name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id;
	`

	var id string

	err := r.pool.QueryRow(ctx, query, uuid.NewString(), email, name, string(role), passHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", storage.ErrUserExists
		}

		return "", fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.User"

	query := `
		SELECT id, email, name, role, password_hash
		FROM users
		WHERE email = $1;
	`

	var (
		u    models.User
		role string
	)

	err := r.pool.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&role,
		&u.PassHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	u.Role = models.Role(role)

	return u, nil
}

func (r *PostgresRepo) UpdateUser(ctx context.Context, u models.User) error {
	const op = "storage.postgres.UpdateUser"

	query := `UPDATE users SET email = $1, name = $2 WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, u.Email, u.Name, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
