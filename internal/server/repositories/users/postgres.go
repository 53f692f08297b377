package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, nickname, profile_image_url, role, is_active, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, password_hash, nickname, profile_image_url, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, is_active, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Nickname, user.ProfileImageURL, user.Role).
		Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// FindByEmail matches the stored email exactly and returns inactive
// accounts too; callers decide what an inactive account means.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// FindByID returns active accounts only.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id int64, nickname, profileImageURL string) error {
	query :=
		`UPDATE users SET nickname = $2, profile_image_url = $3, updated_at = NOW()
		 WHERE id = $1 AND is_active
		 `
	return dbx.ExecOne(ctx, r.db, query, id, nickname, profileImageURL)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2, updated_at = NOW()
		 WHERE id = $1 AND is_active
		 `
	return dbx.ExecOne(ctx, r.db, query, id, passwordHash)
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id int64) error {
	query :=
		`UPDATE users SET is_active = FALSE, updated_at = NOW()
		 WHERE id = $1 AND is_active
		 `
	return dbx.ExecOne(ctx, r.db, query, id)
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) CountByNickname(ctx context.Context, nickname string) (int64, error) {
	query := `SELECT COUNT(*) FROM users WHERE nickname = $1 AND is_active`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, nickname).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// SearchByNickname matches keyword case-insensitively anywhere in the
// nickname, newest accounts first.
func (r *PostgresRepository) SearchByNickname(ctx context.Context, keyword string) ([]*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE is_active AND nickname ILIKE '%' || $1 || '%'
		 ORDER BY created_at DESC, id DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, keyword)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.ProfileImageURL,
			&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.ProfileImageURL,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}
