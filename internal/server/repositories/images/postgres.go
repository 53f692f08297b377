// Package images provides the PostgreSQL-backed repository for post image
// references. The image bytes live in object storage; only URLs are kept here.
package images

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/postboard/internal/dbx"
)

// PostgresRepository implements image storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Add appends urls to the post, keeping their order.
func (r *PostgresRepository) Add(ctx context.Context, postID int64, urls []string) error {
	var start int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM post_images WHERE post_id = $1`, postID).Scan(&start); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query := `INSERT INTO post_images (post_id, image_url, position) VALUES ($1, $2, $3)`
	for i, u := range urls {
		if _, err := r.db.ExecContext(ctx, query, postID, u, start+i); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) ListByPost(ctx context.Context, postID int64) ([]string, error) {
	query := `SELECT image_url FROM post_images WHERE post_id = $1 ORDER BY position, id`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to select images: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Replace drops every image of the post and stores urls instead. Run it in
// a transaction.
func (r *PostgresRepository) Replace(ctx context.Context, postID int64, urls []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM post_images WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.Add(ctx, postID, urls)
}
