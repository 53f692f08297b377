package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

// PostService is the post and comment logic the post handlers need.
type PostService interface {
	List(ctx context.Context, page, size int) (*models.PostPage, error)
	Get(ctx context.Context, id, viewerID int64) (*services.PostDetail, error)
	Create(ctx context.Context, authorID int64, authorName string, in services.PostInput) (*models.Post, error)
	Update(ctx context.Context, id, authorID int64, in services.PostInput) (*models.Post, error)
	Delete(ctx context.Context, id, authorID int64) error
	Like(ctx context.Context, postID, userID int64) (int, error)
	Unlike(ctx context.Context, postID, userID int64) (int, error)
	IncrementViews(ctx context.Context, postID int64) (int, error)
	SearchByTitle(ctx context.Context, keyword string) ([]*models.Post, error)
	SearchByAuthor(ctx context.Context, nickname string) ([]*models.Post, error)
	ListComments(ctx context.Context, postID int64) ([]*models.Comment, error)
	CreateComment(ctx context.Context, postID, authorID int64, authorName, content string) (*models.Comment, error)
	UpdateComment(ctx context.Context, postID, commentID, authorID int64, authorName, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID, authorID int64) error
}

// ImageService issues upload targets for post images.
type ImageService interface {
	PresignUpload(ctx context.Context, userID int64) (*services.ImageUpload, error)
}

type postSummary struct {
	ID        int64  `json:"post_id"`
	Title     string `json:"title"`
	AuthorID  int64  `json:"author_id"`
	Author    string `json:"author"`
	Likes     int    `json:"likes"`
	Comments  int    `json:"comments"`
	Views     int    `json:"views"`
	CreatedAt string `json:"created_at"`
}

type postDetail struct {
	postSummary
	Content   string   `json:"content"`
	Images    []string `json:"images"`
	IsAuthor  bool     `json:"is_author"`
	UpdatedAt string   `json:"updated_at"`
}

type commentResponse struct {
	ID        int64  `json:"comment_id"`
	PostID    int64  `json:"post_id"`
	AuthorID  int64  `json:"author_id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toPostSummary(p *models.Post) postSummary {
	return postSummary{
		ID:        p.ID,
		Title:     p.Title,
		AuthorID:  p.AuthorID,
		Author:    p.AuthorName,
		Likes:     p.LikesCount,
		Comments:  p.CommentsCount,
		Views:     p.Views,
		CreatedAt: formatTime(p.CreatedAt),
	}
}

func toPostSummaries(posts []*models.Post) []postSummary {
	out := make([]postSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostSummary(p))
	}
	return out
}

func toPostDetail(p *models.Post, isAuthor bool) postDetail {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return postDetail{
		postSummary: toPostSummary(p),
		Content:     p.Content,
		Images:      images,
		IsAuthor:    isAuthor,
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

func toCommentResponse(c *models.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Author:    c.AuthorName,
		Content:   c.Content,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}
}

type postHandler struct {
	posts  PostService
	images ImageService
	logger logging.Logger
}

var (
	postErrors       = errorCodes{notFound: "post_not_found"}
	postOwnerErrors  = errorCodes{notFound: "post_not_found_or_forbidden"}
	commentOwnErrors = errorCodes{notFound: "not_found_or_forbidden"}
)

type postRequest struct {
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Image   string    `json:"image"`
	Images  *[]string `json:"images"`
}

// input merges the single-image and multi-image request forms. Images nil
// means "not supplied".
func (r postRequest) input() services.PostInput {
	in := services.PostInput{Title: r.Title, Content: r.Content}
	if r.Images != nil {
		in.Images = append([]string{}, (*r.Images)...)
	}
	if r.Image != "" {
		in.Images = append(in.Images, r.Image)
	}
	return in
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
		return 0, false
	}
	return v, true
}

func viewerID(c *gin.Context) int64 {
	if p, ok := auth.PrincipalFromContext(c.Request.Context()); ok {
		return p.SubjectID
	}
	return 0
}

func (h *postHandler) list(c *gin.Context) {
	page, ok := queryInt(c, "page", 0)
	if !ok {
		return
	}
	size, ok := queryInt(c, "size", 0)
	if !ok {
		return
	}

	res, err := h.posts.List(c.Request.Context(), page, size)
	if err != nil {
		writeError(c, h.logger, err, postErrors)
		return
	}
	respond(c, http.StatusOK, "read_success", gin.H{
		"content":        toPostSummaries(res.Posts),
		"page":           res.Page,
		"size":           res.Size,
		"total_elements": res.TotalElements,
		"total_pages":    res.TotalPages(),
	})
}

func (h *postHandler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.posts.Get(c.Request.Context(), id, viewerID(c))
	if err != nil {
		writeError(c, h.logger, err, postErrors)
		return
	}
	respond(c, http.StatusOK, "read_success", toPostDetail(d.Post, d.IsAuthor))
}

func (h *postHandler) searchByTitle(c *gin.Context) {
	res, err := h.posts.SearchByTitle(c.Request.Context(), c.Query("keyword"))
	if err != nil {
		writeError(c, h.logger, err, postErrors)
		return
	}
	respond(c, http.StatusOK, "read_success", toPostSummaries(res))
}

func (h *postHandler) searchByAuthor(c *gin.Context) {
	res, err := h.posts.SearchByAuthor(c.Request.Context(), c.Query("nickname"))
	if err != nil {
		writeError(c, h.logger, err, postErrors)
		return
	}
	respond(c, http.StatusOK, "read_success", toPostSummaries(res))
}

func (h *postHandler) create(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
		return
	}

	post, err := h.posts.Create(c.Request.Context(), p.SubjectID, p.DisplayName, req.input())
	if err != nil {
		writeError(c, h.logger, err, postErrors)
		return
	}
	respond(c, http.StatusCreated, "create_success", toPostDetail(post, true))
}

func (h *postHandler) update(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
		return
	}

	post, err := h.posts.Update(c.Request.Context(), id, p.SubjectID, req.input())
	if err != nil {
		writeError(c, h.logger, err, postOwnerErrors)
		return
	}
	respond(c, http.StatusOK, "update_success", toPostDetail(post, true))
}

func (h *postHandler) delete(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), id, p.SubjectID); err != nil {
		writeError(c, h.logger, err, postOwnerErrors)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *postHandler) like(c *gin.Context) {
	h.toggleLike(c, true)
}

func (h *postHandler) unlike(c *gin.Context) {
	h.toggleLike(c, false)
}

func (h *postHandler) toggleLike(c *gin.Context, like bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var (
		n    int
		err  error
		code = "like_added"
	)
	if like {
		n, err = h.posts.Like(c.Request.Context(), id, p.SubjectID)
	} else {
		n, err = h.posts.Unlike(c.Request.Context(), id, p.SubjectID)
		code = "like_removed"
	}
	if err != nil {
		writeError(c, h.logger, err, postErrors)
		return
	}
	respond(c, http.StatusOK, code, gin.H{"likes": n})
}

func (h *postHandler) views(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.posts.IncrementViews(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err, postErrors)
		return
	}
	respond(c, http.StatusOK, "views_increased", gin.H{"views": n})
}

func (h *postHandler) listComments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.posts.ListComments(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err, postErrors)
		return
	}
	out := make([]commentResponse, 0, len(list))
	for _, cm := range list {
		out = append(out, toCommentResponse(cm))
	}
	respond(c, http.StatusOK, "read_success", out)
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *postHandler) createComment(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
		return
	}

	cm, err := h.posts.CreateComment(c.Request.Context(), id, p.SubjectID, p.DisplayName, req.Content)
	if err != nil {
		writeError(c, h.logger, err, postErrors)
		return
	}
	respond(c, http.StatusCreated, "create_success", toCommentResponse(cm))
}

func (h *postHandler) updateComment(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
		return
	}

	cm, err := h.posts.UpdateComment(c.Request.Context(), id, commentID, p.SubjectID, p.DisplayName, req.Content)
	if err != nil {
		writeError(c, h.logger, err, commentOwnErrors)
		return
	}
	respond(c, http.StatusOK, "update_success", toCommentResponse(cm))
}

func (h *postHandler) deleteComment(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}
	if err := h.posts.DeleteComment(c.Request.Context(), id, commentID, p.SubjectID); err != nil {
		writeError(c, h.logger, err, commentOwnErrors)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *postHandler) presignImage(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	up, err := h.images.PresignUpload(c.Request.Context(), p.SubjectID)
	if err != nil {
		writeError(c, h.logger, err, errorCodes{})
		return
	}
	respond(c, http.StatusOK, "presign_success", gin.H{
		"key":        up.Key,
		"upload_url": up.UploadURL,
		"expires_in": int(services.PresignValidity.Seconds()),
	})
}
