// Package comments provides the PostgreSQL-backed comment repository.
package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListByPost returns the visible comments of a post, oldest first.
func (r *PostgresRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	query := `
		SELECT c.id, c.post_id, c.author_id, u.nickname, c.content, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1 AND NOT c.is_deleted
		ORDER BY c.created_at, c.id
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Comment{}
	for rows.Next() {
		c := &models.Comment{}
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	query := `
		INSERT INTO comments (post_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, c.PostID, c.AuthorID, c.Content).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id, postID, authorID int64, content string) (*models.Comment, error) {
	query := `
		UPDATE comments SET content = $4, updated_at = NOW()
		WHERE id = $1 AND post_id = $2 AND author_id = $3 AND NOT is_deleted
		RETURNING id, post_id, author_id, content, created_at, updated_at
	`
	c := &models.Comment{}
	err := r.db.QueryRowContext(ctx, query, id, postID, authorID, content).
		Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id, postID, authorID int64) error {
	query := `
		UPDATE comments SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND post_id = $2 AND author_id = $3 AND NOT is_deleted
	`
	return dbx.ExecOne(ctx, r.db, query, id, postID, authorID)
}
