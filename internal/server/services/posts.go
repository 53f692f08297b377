package services

import (
	"context"
	"database/sql"
	"math"
	"strings"

	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	titleMaxLen     = 26
)

// PostInput is the editable part of a post. Images nil on update keeps the
// stored images; an empty non-nil slice removes them.
type PostInput struct {
	Title   string
	Content string
	Images  []string
}

// PostDetail is a post as seen by a particular viewer.
type PostDetail struct {
	Post     *models.Post
	IsAuthor bool
}

// PostService implements posts, likes, views and comments. Ownership is
// enforced here: operations on someone else's post or comment report
// common.ErrorNotFound, the same as a missing one.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager) *PostService {
	return &PostService{db: db, repomanager: m}
}

// NormalizePage clamps paging input: negative pages become 0,
// non-positive sizes become the default and pages past the largest
// representable offset are pulled back to it.
func NormalizePage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	// page*size is the query offset and must not overflow.
	if page > math.MaxInt/size {
		page = math.MaxInt / size
	}
	return page, size
}

func (s *PostService) List(ctx context.Context, page, size int) (*models.PostPage, error) {
	page, size = NormalizePage(page, size)
	return s.repomanager.Posts(s.db).List(ctx, page, size)
}

// Get returns the post with its images. viewerID is 0 for anonymous callers.
func (s *PostService) Get(ctx context.Context, id, viewerID int64) (*PostDetail, error) {
	p, err := s.repomanager.Posts(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Images, err = s.repomanager.Images(s.db).ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: p, IsAuthor: viewerID != 0 && viewerID == p.AuthorID}, nil
}

func validatePost(in PostInput) error {
	v := &validator{}
	v.length("title", in.Title, 1, titleMaxLen)
	if strings.TrimSpace(in.Content) == "" {
		v.add("content", "blank")
	}
	return v.err()
}

// Create stores a post and its images in one transaction.
func (s *PostService) Create(ctx context.Context, authorID int64, authorName string, in PostInput) (*models.Post, error) {
	if err := validatePost(in); err != nil {
		return nil, err
	}

	post := &models.Post{AuthorID: authorID, AuthorName: authorName, Title: in.Title, Content: in.Content}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Posts(tx).Create(ctx, post); err != nil {
			return err
		}
		if len(in.Images) > 0 {
			if err := s.repomanager.Images(tx).Add(ctx, post.ID, in.Images); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	post.Images = append([]string{}, in.Images...)
	return post, nil
}

// Update edits a post owned by authorID.
func (s *PostService) Update(ctx context.Context, id, authorID int64, in PostInput) (*models.Post, error) {
	if err := validatePost(in); err != nil {
		return nil, err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Posts(tx).Update(ctx, id, authorID, in.Title, in.Content); err != nil {
			return err
		}
		if in.Images != nil {
			return s.repomanager.Images(tx).Replace(ctx, id, in.Images)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d, err := s.Get(ctx, id, authorID)
	if err != nil {
		return nil, err
	}
	return d.Post, nil
}

// Delete soft-deletes a post owned by authorID.
func (s *PostService) Delete(ctx context.Context, id, authorID int64) error {
	return s.repomanager.Posts(s.db).SoftDelete(ctx, id, authorID)
}

// Like records userID's like and returns the like count. Liking twice is
// not an error and does not change the count.
func (s *PostService) Like(ctx context.Context, postID, userID int64) (int, error) {
	return s.toggleLike(ctx, postID, userID, true)
}

// Unlike removes userID's like and returns the like count.
func (s *PostService) Unlike(ctx context.Context, postID, userID int64) (int, error) {
	return s.toggleLike(ctx, postID, userID, false)
}

func (s *PostService) toggleLike(ctx context.Context, postID, userID int64, like bool) (int, error) {
	var likes int
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		p, err := repo.FindByID(ctx, postID)
		if err != nil {
			return err
		}

		var changed bool
		delta := 1
		if like {
			changed, err = repo.AddLike(ctx, postID, userID)
		} else {
			changed, err = repo.RemoveLike(ctx, postID, userID)
			delta = -1
		}
		if err != nil {
			return err
		}

		if !changed {
			likes = p.LikesCount
			return nil
		}
		likes, err = repo.AdjustLikes(ctx, postID, delta)
		return err
	})
	if err != nil {
		return 0, err
	}
	return likes, nil
}

// IncrementViews bumps the view counter and returns the new value.
func (s *PostService) IncrementViews(ctx context.Context, postID int64) (int, error) {
	return s.repomanager.Posts(s.db).IncrementViews(ctx, postID)
}

func (s *PostService) SearchByTitle(ctx context.Context, keyword string) ([]*models.Post, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []*models.Post{}, nil
	}
	return s.repomanager.Posts(s.db).SearchByTitle(ctx, keyword)
}

func (s *PostService) SearchByAuthor(ctx context.Context, nickname string) ([]*models.Post, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return []*models.Post{}, nil
	}
	return s.repomanager.Posts(s.db).SearchByAuthor(ctx, nickname)
}

// ListComments returns the comments of an existing post.
func (s *PostService) ListComments(ctx context.Context, postID int64) ([]*models.Comment, error) {
	if _, err := s.repomanager.Posts(s.db).FindByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.repomanager.Comments(s.db).ListByPost(ctx, postID)
}

func validateComment(content string) error {
	v := &validator{}
	if strings.TrimSpace(content) == "" {
		v.add("content", "blank")
	}
	return v.err()
}

// CreateComment adds a comment and bumps the post's comment counter.
func (s *PostService) CreateComment(ctx context.Context, postID, authorID int64, authorName, content string) (*models.Comment, error) {
	if err := validateComment(content); err != nil {
		return nil, err
	}

	c := &models.Comment{PostID: postID, AuthorID: authorID, AuthorName: authorName, Content: content}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Posts(tx).FindByID(ctx, postID); err != nil {
			return err
		}
		if _, err := s.repomanager.Comments(tx).Create(ctx, c); err != nil {
			return err
		}
		return s.repomanager.Posts(tx).AdjustComments(ctx, postID, 1)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateComment edits a comment owned by authorID.
func (s *PostService) UpdateComment(ctx context.Context, postID, commentID, authorID int64, authorName, content string) (*models.Comment, error) {
	if err := validateComment(content); err != nil {
		return nil, err
	}

	c, err := s.repomanager.Comments(s.db).Update(ctx, commentID, postID, authorID, content)
	if err != nil {
		return nil, err
	}
	c.AuthorName = authorName
	return c, nil
}

// DeleteComment soft-deletes a comment owned by authorID and decrements
// the post's comment counter.
func (s *PostService) DeleteComment(ctx context.Context, postID, commentID, authorID int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Comments(tx).SoftDelete(ctx, commentID, postID, authorID); err != nil {
			return err
		}
		return s.repomanager.Posts(tx).AdjustComments(ctx, postID, -1)
	})
}
