package images

import "context"

// Repository stores the ordered image URLs attached to a post.
type Repository interface {
	Add(ctx context.Context, postID int64, urls []string) error
	ListByPost(ctx context.Context, postID int64) ([]string, error)
	Replace(ctx context.Context, postID int64, urls []string) error
}
