package models

import "time"

type Post struct {
	ID            int64
	AuthorID      int64
	AuthorName    string
	Title         string
	Content       string
	Images        []string
	LikesCount    int
	CommentsCount int
	Views         int
	IsDeleted     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PostPage is one page of posts ordered newest first.
type PostPage struct {
	Posts         []*Post
	Page          int
	Size          int
	TotalElements int64
}

// TotalPages rounds up; an empty result has zero pages.
func (p PostPage) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
}

type Comment struct {
	ID         int64
	PostID     int64
	AuthorID   int64
	AuthorName string
	Content    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
