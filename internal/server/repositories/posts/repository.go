package posts

import (
	"context"

	"github.com/dmitrijs2005/postboard/internal/server/models"
)

// Repository persists posts together with their like and view counters.
// Soft-deleted posts behave as missing.
type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	FindByID(ctx context.Context, id int64) (*models.Post, error)
	List(ctx context.Context, page, size int) (*models.PostPage, error)
	Update(ctx context.Context, id, authorID int64, title, content string) error
	SoftDelete(ctx context.Context, id, authorID int64) error
	AddLike(ctx context.Context, postID, userID int64) (bool, error)
	RemoveLike(ctx context.Context, postID, userID int64) (bool, error)
	AdjustLikes(ctx context.Context, postID int64, delta int) (int, error)
	AdjustComments(ctx context.Context, postID int64, delta int) error
	IncrementViews(ctx context.Context, postID int64) (int, error)
	SearchByTitle(ctx context.Context, keyword string) ([]*models.Post, error)
	SearchByAuthor(ctx context.Context, nickname string) ([]*models.Post, error)
}
