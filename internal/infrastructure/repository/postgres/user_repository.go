package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

const uniqueViolation = "23505"

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, email, created_at
FROM users
WHERE username = $1
`, username)

	var user domain.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrUserNotFound, "get user by username", fmt.Errorf("username=%s", username))
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

// CreateWithCatalog creates the account and its single catalog atomically.
func (r *UserRepository) CreateWithCatalog(ctx context.Context, username, email string) (*domain.User, *domain.Catalog, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "create user", errors.New("username is required"))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin user tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	user := domain.User{Username: username, Email: email}
	err = tx.QueryRowContext(ctx, `
INSERT INTO users (username, email) VALUES ($1, $2)
RETURNING id, created_at
`, username, email).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, nil, domain.WrapError(domain.ErrUserExists, "create user", fmt.Errorf("username=%s", username))
		}
		return nil, nil, fmt.Errorf("insert user: %w", err)
	}

	catalog := domain.Catalog{OwnerID: user.ID}
	err = tx.QueryRowContext(ctx, `
INSERT INTO catalogs (owner_id) VALUES ($1)
RETURNING id, created_at
`, user.ID).Scan(&catalog.ID, &catalog.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert catalog: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit user tx: %w", err)
	}
	return &user, &catalog, nil
}

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetByOwnerID(ctx context.Context, ownerID int64) (*domain.Catalog, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_id, created_at
FROM catalogs
WHERE owner_id = $1
`, ownerID)

	var catalog domain.Catalog
	if err := row.Scan(&catalog.ID, &catalog.OwnerID, &catalog.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCatalogNotFound, "get catalog by owner", fmt.Errorf("owner_id=%d", ownerID))
		}
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	return &catalog, nil
}
