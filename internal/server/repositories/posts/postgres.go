// Package posts provides the PostgreSQL-backed post repository.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
)

const postSelect = `
	SELECT p.id, p.author_id, u.nickname, p.title, p.content,
	       p.likes_count, p.comments_count, p.views, p.created_at, p.updated_at
	FROM posts p
	JOIN users u ON u.id = p.author_id
	WHERE NOT p.is_deleted`

// PostgresRepository implements post storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts post and fills in its generated fields. Images are stored
// separately by the images repository.
func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		INSERT INTO posts (author_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, post.AuthorID, post.Title, post.Content).
		Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return post, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	query := postSelect + ` AND p.id = $1`

	p := &models.Post{}
	err := scanPost(r.db.QueryRowContext(ctx, query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// List returns page (zero-based) of size posts, newest first, with the
// total number of visible posts.
func (r *PostgresRepository) List(ctx context.Context, page, size int) (*models.PostPage, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE NOT is_deleted`).Scan(&total); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	query := postSelect + ` ORDER BY p.created_at DESC, p.id DESC LIMIT $1 OFFSET $2`
	posts, err := r.queryPosts(ctx, query, size, page*size)
	if err != nil {
		return nil, err
	}

	return &models.PostPage{Posts: posts, Page: page, Size: size, TotalElements: total}, nil
}

// Update changes title and content of a post owned by authorID. A missing
// post and a post owned by someone else are both common.ErrorNotFound.
func (r *PostgresRepository) Update(ctx context.Context, id, authorID int64, title, content string) error {
	query := `
		UPDATE posts SET title = $3, content = $4, updated_at = NOW()
		WHERE id = $1 AND author_id = $2 AND NOT is_deleted
	`
	return dbx.ExecOne(ctx, r.db, query, id, authorID, title, content)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id, authorID int64) error {
	query := `
		UPDATE posts SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND author_id = $2 AND NOT is_deleted
	`
	return dbx.ExecOne(ctx, r.db, query, id, authorID)
}

// AddLike records a like and reports whether it was new.
func (r *PostgresRepository) AddLike(ctx context.Context, postID, userID int64) (bool, error) {
	query := `
		INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`
	return r.execChanged(ctx, query, postID, userID)
}

// RemoveLike deletes a like and reports whether one existed.
func (r *PostgresRepository) RemoveLike(ctx context.Context, postID, userID int64) (bool, error) {
	query := `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`
	return r.execChanged(ctx, query, postID, userID)
}

// AdjustLikes adds delta to the like counter and returns the new value.
func (r *PostgresRepository) AdjustLikes(ctx context.Context, postID int64, delta int) (int, error) {
	query := `
		UPDATE posts SET likes_count = GREATEST(likes_count + $2, 0)
		WHERE id = $1 AND NOT is_deleted
		RETURNING likes_count
	`
	return r.returnCounter(ctx, query, postID, delta)
}

func (r *PostgresRepository) AdjustComments(ctx context.Context, postID int64, delta int) error {
	query := `
		UPDATE posts SET comments_count = GREATEST(comments_count + $2, 0)
		WHERE id = $1 AND NOT is_deleted
	`
	return dbx.ExecOne(ctx, r.db, query, postID, delta)
}

func (r *PostgresRepository) IncrementViews(ctx context.Context, postID int64) (int, error) {
	query := `
		UPDATE posts SET views = views + 1
		WHERE id = $1 AND NOT is_deleted
		RETURNING views
	`
	return r.returnCounter(ctx, query, postID)
}

// SearchByTitle matches keyword case-insensitively anywhere in the title.
func (r *PostgresRepository) SearchByTitle(ctx context.Context, keyword string) ([]*models.Post, error) {
	query := postSelect + ` AND p.title ILIKE '%' || $1 || '%' ORDER BY p.created_at DESC, p.id DESC`
	return r.queryPosts(ctx, query, keyword)
}

// SearchByAuthor matches keyword case-insensitively anywhere in the
// author's nickname.
func (r *PostgresRepository) SearchByAuthor(ctx context.Context, nickname string) ([]*models.Post, error) {
	query := postSelect + ` AND u.nickname ILIKE '%' || $1 || '%' ORDER BY p.created_at DESC, p.id DESC`
	return r.queryPosts(ctx, query, nickname)
}

func (r *PostgresRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Post{}
	for rows.Next() {
		p := &models.Post{}
		if err := scanPost(rows, p); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) execChanged(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) returnCounter(ctx context.Context, query string, args ...any) (int, error) {
	var v int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner, p *models.Post) error {
	return s.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Title, &p.Content,
		&p.LikesCount, &p.CommentsCount, &p.Views, &p.CreatedAt, &p.UpdatedAt)
}
