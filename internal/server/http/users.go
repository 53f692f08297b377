package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

// UserService is the account logic the user and auth handlers need.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Me(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, nickname, profileImageURL string) (*models.User, error)
	ChangePassword(ctx context.Context, id int64, password, confirm string) error
	DeleteMe(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByNickname(ctx context.Context, nickname string) (int64, error)
	SearchByNickname(ctx context.Context, keyword string) ([]*models.User, error)
}

type userResponse struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profile_image"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Nickname: u.Nickname, ProfileImage: u.ProfileImageURL}
}

type userHandler struct {
	users  UserService
	logger logging.Logger
}

var userErrors = errorCodes{notFound: "user_not_found", conflict: "email_already_exists"}

func (h *userHandler) signup(c *gin.Context) {
	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
		Nickname        string `json:"nickname"`
		ProfileImage    string `json:"profile_image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
		return
	}

	u, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Nickname:        req.Nickname,
		ProfileImageURL: req.ProfileImage,
	})
	if err != nil {
		writeError(c, h.logger, err, userErrors)
		return
	}

	h.logger.Info(c.Request.Context(), "Registered", "user_id", u.ID)
	respond(c, http.StatusCreated, "register_success", gin.H{"user_id": u.ID})
}

func (h *userHandler) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
		return
	}

	res, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err, userErrors)
		return
	}

	respond(c, http.StatusOK, "login_success", gin.H{
		"token":    res.Token,
		"user_id":  res.UserID,
		"email":    res.Email,
		"nickname": res.Nickname,
	})
}

// logout only acknowledges; the client discards its token.
func (h *userHandler) logout(c *gin.Context) {
	respond(c, http.StatusOK, "logout_success", nil)
}

func (h *userHandler) me(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	u, err := h.users.Me(c.Request.Context(), p.SubjectID)
	if err != nil {
		writeError(c, h.logger, err, userErrors)
		return
	}
	respond(c, http.StatusOK, "read_success", toUserResponse(u))
}

func (h *userHandler) updateMe(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req struct {
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
		return
	}

	u, err := h.users.UpdateProfile(c.Request.Context(), p.SubjectID, req.Nickname, req.ProfileImage)
	if err != nil {
		writeError(c, h.logger, err, userErrors)
		return
	}
	respond(c, http.StatusOK, "update_success", gin.H{
		"id":            u.ID,
		"nickname":      u.Nickname,
		"profile_image": u.ProfileImageURL,
		"updated_at":    u.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *userHandler) changePassword(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req struct {
		NewPassword        string `json:"new_password"`
		NewPasswordConfirm string `json:"new_password_confirm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), p.SubjectID, req.NewPassword, req.NewPasswordConfirm); err != nil {
		writeError(c, h.logger, err, userErrors)
		return
	}
	respond(c, http.StatusOK, "password_changed", nil)
}

func (h *userHandler) deleteMe(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	if err := h.users.DeleteMe(c.Request.Context(), p.SubjectID); err != nil {
		writeError(c, h.logger, err, userErrors)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *userHandler) searchByNickname(c *gin.Context) {
	users, err := h.users.SearchByNickname(c.Request.Context(), c.Query("keyword"))
	if err != nil {
		writeError(c, h.logger, err, userErrors)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{"id": u.ID, "nickname": u.Nickname, "profile_image": u.ProfileImageURL})
	}
	respond(c, http.StatusOK, "search_success", out)
}

func (h *userHandler) existsByEmail(c *gin.Context) {
	exists, err := h.users.ExistsByEmail(c.Request.Context(), c.Query("email"))
	if err != nil {
		writeError(c, h.logger, err, userErrors)
		return
	}
	respond(c, http.StatusOK, "check_success", gin.H{"exists": exists})
}

func (h *userHandler) countByNickname(c *gin.Context) {
	n, err := h.users.CountByNickname(c.Request.Context(), c.Query("nickname"))
	if err != nil {
		writeError(c, h.logger, err, userErrors)
		return
	}
	respond(c, http.StatusOK, "count_success", gin.H{"count": n})
}

func (h *userHandler) deactivate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.users.Deactivate(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err, userErrors)
		return
	}
	h.logger.Info(c.Request.Context(), "user deactivated", "user_id", id)
	respond(c, http.StatusOK, "deactivate_success", gin.H{"user_id": id})
}

// pathID parses a positive int64 path parameter, answering 400 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
		return 0, false
	}
	return id, true
}

