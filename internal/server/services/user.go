// Package services contains server-side business logic. This file implements
// UserService: registration, login with access token issuance, and the
// account self-service operations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/cryptox"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
)

const (
	passwordMinLen = 8
	passwordMaxLen = 20
	nicknameMaxLen = 20
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	Nickname        string
	ProfileImageURL string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token    string
	UserID   int64
	Email    string
	Nickname string
}

// UserService provides account operations. Login delegates credential
// checks to auth.Authenticator and signs tokens with auth.TokenCodec.
type UserService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	authenticator *auth.Authenticator
	codec         *auth.TokenCodec
}

// NewUserService constructs a UserService using repositories and the token codec.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, codec *auth.TokenCodec) *UserService {
	return &UserService{
		db:            db,
		repomanager:   m,
		authenticator: auth.NewAuthenticator(m.Users(db)),
		codec:         codec,
	}
}

// Register validates in and creates an active USER account. A taken email
// yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	v := &validator{}
	v.email("email", in.Email)
	v.length("password", in.Password, passwordMinLen, passwordMaxLen)
	if in.Password != in.PasswordConfirm {
		v.add("password_confirm", "mismatch")
	}
	v.length("nickname", in.Nickname, 1, nicknameMaxLen)
	if err := v.err(); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Email:           in.Email,
		PasswordHash:    hash,
		Nickname:        strings.TrimSpace(in.Nickname),
		ProfileImageURL: in.ProfileImageURL,
		Role:            models.RoleUser,
	}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login authenticates the pair and issues an access token. Any credential
// problem is auth.ErrBadCredentials; blank input is a validation error.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	v := &validator{}
	if strings.TrimSpace(email) == "" {
		v.add("email", "blank")
	}
	if password == "" {
		v.add("password", "blank")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	p, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.codec.Encode(p.SubjectID, p.Email, p.DisplayName, p.Authorities)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &LoginResult{Token: token, UserID: p.SubjectID, Email: p.Email, Nickname: p.DisplayName}, nil
}

// Me returns the active account with id.
func (s *UserService) Me(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).FindByID(ctx, id)
}

// UpdateProfile changes nickname and profile image of the account.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, nickname, profileImageURL string) (*models.User, error) {
	v := &validator{}
	v.length("nickname", nickname, 1, nicknameMaxLen)
	if err := v.err(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateProfile(ctx, id, strings.TrimSpace(nickname), profileImageURL); err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

// ChangePassword replaces the password after checking the confirmation.
func (s *UserService) ChangePassword(ctx context.Context, id int64, password, confirm string) error {
	v := &validator{}
	v.length("password", password, passwordMinLen, passwordMaxLen)
	if password != confirm {
		v.add("password_confirm", "mismatch")
	}
	if err := v.err(); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return common.ErrorInternal
	}
	return s.repomanager.Users(s.db).UpdatePassword(ctx, id, hash)
}

// DeleteMe deactivates the caller's account. Issued tokens stay valid
// until they expire, but the account can no longer log in.
func (s *UserService) DeleteMe(ctx context.Context, id int64) error {
	return s.repomanager.Users(s.db).Deactivate(ctx, id)
}

// Deactivate is the administrative form of DeleteMe.
func (s *UserService) Deactivate(ctx context.Context, id int64) error {
	return s.repomanager.Users(s.db).Deactivate(ctx, id)
}

func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.repomanager.Users(s.db).ExistsByEmail(ctx, email)
}

func (s *UserService) CountByNickname(ctx context.Context, nickname string) (int64, error) {
	return s.repomanager.Users(s.db).CountByNickname(ctx, nickname)
}

func (s *UserService) SearchByNickname(ctx context.Context, keyword string) ([]*models.User, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []*models.User{}, nil
	}
	return s.repomanager.Users(s.db).SearchByNickname(ctx, keyword)
}
