package comments

import (
	"context"

	"github.com/dmitrijs2005/postboard/internal/server/models"
)

// Repository persists comments. Update and SoftDelete only touch comments
// owned by authorID and report anything else as common.ErrorNotFound.
type Repository interface {
	ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error)
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	Update(ctx context.Context, id, postID, authorID int64, content string) (*models.Comment, error)
	SoftDelete(ctx context.Context, id, postID, authorID int64) error
}
