package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/comments"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/images"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/posts"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- users ---

type fakeUsersRepo struct {
	byID   map[int64]*models.User
	nextID int64
	err    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[int64]*models.User{}, nextID: 1}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = f.nextID
	u.IsActive = true
	f.nextID++
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) FindByID(_ context.Context, id int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok || !u.IsActive {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) active(id int64) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok || !u.IsActive {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) UpdateProfile(_ context.Context, id int64, nickname, img string) error {
	u, err := f.active(id)
	if err != nil {
		return err
	}
	u.Nickname, u.ProfileImageURL = nickname, img
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, err := f.active(id)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) Deactivate(_ context.Context, id int64) error {
	u, err := f.active(id)
	if err != nil {
		return err
	}
	u.IsActive = false
	return nil
}

func (f *fakeUsersRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsersRepo) CountByNickname(_ context.Context, nickname string) (int64, error) {
	var n int64
	for _, u := range f.byID {
		if u.IsActive && u.Nickname == nickname {
			n++
		}
	}
	return n, nil
}

func (f *fakeUsersRepo) SearchByNickname(_ context.Context, keyword string) ([]*models.User, error) {
	out := []*models.User{}
	for id := f.nextID - 1; id > 0; id-- {
		u, ok := f.byID[id]
		if ok && u.IsActive && strings.Contains(strings.ToLower(u.Nickname), strings.ToLower(keyword)) {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- posts ---

type fakePostsRepo struct {
	byID   map[int64]*models.Post
	likes  map[[2]int64]bool
	nextID int64
	err    error
}

func newFakePostsRepo() *fakePostsRepo {
	return &fakePostsRepo{byID: map[int64]*models.Post{}, likes: map[[2]int64]bool{}, nextID: 1}
}

func (f *fakePostsRepo) visible(id int64) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok || p.IsDeleted {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (f *fakePostsRepo) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.nextID++
	cp := *p
	f.byID[p.ID] = &cp
	return p, nil
}

func (f *fakePostsRepo) FindByID(_ context.Context, id int64) (*models.Post, error) {
	p, err := f.visible(id)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (f *fakePostsRepo) List(_ context.Context, page, size int) (*models.PostPage, error) {
	all := []*models.Post{}
	for id := f.nextID - 1; id > 0; id-- {
		if p, ok := f.byID[id]; ok && !p.IsDeleted {
			all = append(all, p)
		}
	}
	start := min(page*size, len(all))
	end := min(start+size, len(all))
	return &models.PostPage{Posts: all[start:end], Page: page, Size: size, TotalElements: int64(len(all))}, nil
}

func (f *fakePostsRepo) Update(_ context.Context, id, authorID int64, title, content string) error {
	p, err := f.visible(id)
	if err != nil || p.AuthorID != authorID {
		return common.ErrorNotFound
	}
	p.Title, p.Content = title, content
	return nil
}

func (f *fakePostsRepo) SoftDelete(_ context.Context, id, authorID int64) error {
	p, err := f.visible(id)
	if err != nil || p.AuthorID != authorID {
		return common.ErrorNotFound
	}
	p.IsDeleted = true
	return nil
}

func (f *fakePostsRepo) AddLike(_ context.Context, postID, userID int64) (bool, error) {
	k := [2]int64{postID, userID}
	if f.likes[k] {
		return false, nil
	}
	f.likes[k] = true
	return true, nil
}

func (f *fakePostsRepo) RemoveLike(_ context.Context, postID, userID int64) (bool, error) {
	k := [2]int64{postID, userID}
	if !f.likes[k] {
		return false, nil
	}
	delete(f.likes, k)
	return true, nil
}

func (f *fakePostsRepo) AdjustLikes(_ context.Context, postID int64, delta int) (int, error) {
	p, err := f.visible(postID)
	if err != nil {
		return 0, err
	}
	p.LikesCount = max(p.LikesCount+delta, 0)
	return p.LikesCount, nil
}

func (f *fakePostsRepo) AdjustComments(_ context.Context, postID int64, delta int) error {
	p, err := f.visible(postID)
	if err != nil {
		return err
	}
	p.CommentsCount = max(p.CommentsCount+delta, 0)
	return nil
}

func (f *fakePostsRepo) IncrementViews(_ context.Context, postID int64) (int, error) {
	p, err := f.visible(postID)
	if err != nil {
		return 0, err
	}
	p.Views++
	return p.Views, nil
}

func (f *fakePostsRepo) SearchByTitle(_ context.Context, keyword string) ([]*models.Post, error) {
	out := []*models.Post{}
	for _, p := range f.byID {
		if !p.IsDeleted && strings.Contains(strings.ToLower(p.Title), strings.ToLower(keyword)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePostsRepo) SearchByAuthor(_ context.Context, nickname string) ([]*models.Post, error) {
	out := []*models.Post{}
	for _, p := range f.byID {
		if !p.IsDeleted && strings.EqualFold(p.AuthorName, nickname) {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- images ---

type fakeImagesRepo struct {
	byPost map[int64][]string
	err    error
}

func (f *fakeImagesRepo) Add(_ context.Context, postID int64, urls []string) error {
	if f.err != nil {
		return f.err
	}
	f.byPost[postID] = append(f.byPost[postID], urls...)
	return nil
}

func (f *fakeImagesRepo) ListByPost(_ context.Context, postID int64) ([]string, error) {
	return append([]string{}, f.byPost[postID]...), nil
}

func (f *fakeImagesRepo) Replace(_ context.Context, postID int64, urls []string) error {
	f.byPost[postID] = append([]string{}, urls...)
	return nil
}

// --- comments ---

type fakeCommentsRepo struct {
	byID    map[int64]*models.Comment
	deleted map[int64]bool
	nextID  int64
}

func (f *fakeCommentsRepo) ListByPost(_ context.Context, postID int64) ([]*models.Comment, error) {
	out := []*models.Comment{}
	for id := int64(1); id < f.nextID; id++ {
		if c, ok := f.byID[id]; ok && c.PostID == postID && !f.deleted[id] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommentsRepo) Create(_ context.Context, c *models.Comment) (*models.Comment, error) {
	c.ID = f.nextID
	f.nextID++
	cp := *c
	f.byID[c.ID] = &cp
	return c, nil
}

func (f *fakeCommentsRepo) Update(_ context.Context, id, postID, authorID int64, content string) (*models.Comment, error) {
	c, ok := f.byID[id]
	if !ok || f.deleted[id] || c.PostID != postID || c.AuthorID != authorID {
		return nil, common.ErrorNotFound
	}
	c.Content = content
	cp := *c
	return &cp, nil
}

func (f *fakeCommentsRepo) SoftDelete(_ context.Context, id, postID, authorID int64) error {
	c, ok := f.byID[id]
	if !ok || f.deleted[id] || c.PostID != postID || c.AuthorID != authorID {
		return common.ErrorNotFound
	}
	f.deleted[id] = true
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	users    *fakeUsersRepo
	posts    *fakePostsRepo
	images   *fakeImagesRepo
	comments *fakeCommentsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:    newFakeUsersRepo(),
		posts:    newFakePostsRepo(),
		images:   &fakeImagesRepo{byPost: map[int64][]string{}},
		comments: &fakeCommentsRepo{byID: map[int64]*models.Comment{}, deleted: map[int64]bool{}, nextID: 1},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.users }
func (m *fakeRepoManager) Posts(dbx.DBTX) posts.Repository             { return m.posts }
func (m *fakeRepoManager) Images(dbx.DBTX) images.Repository           { return m.images }
func (m *fakeRepoManager) Comments(dbx.DBTX) comments.Repository       { return m.comments }
