package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/cryptox"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, *fakeRepoManager) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	codec := auth.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"), time.Hour, nil)
	return NewUserService(db, rm, codec), rm
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Email:           "a@x.com",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		Nickname:        "alice",
	}
}

func TestRegister_Success(t *testing.T) {
	s, rm := newUserService(t)

	u, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "USER", u.Role)

	stored := rm.users.byID[u.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NoError(t, cryptox.CheckPassword(stored.PasswordHash, "secret123"))
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
		reason string
	}{
		{"blank email", func(in *RegisterInput) { in.Email = " " }, "email", "blank"},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email", "invalid"},
		{"display name form", func(in *RegisterInput) { in.Email = "Alice <a@x.com>" }, "email", "invalid"},
		{"short password", func(in *RegisterInput) { in.Password, in.PasswordConfirm = "short", "short" }, "password", "too_short"},
		{"long password", func(in *RegisterInput) {
			in.Password = "abcdefghijklmnopqrstuvwxyz"
			in.PasswordConfirm = in.Password
		}, "password", "too_long"},
		{"mismatch", func(in *RegisterInput) { in.PasswordConfirm = "secret124" }, "password_confirm", "mismatch"},
		{"blank nickname", func(in *RegisterInput) { in.Nickname = "" }, "nickname", "blank"},
		{"long nickname", func(in *RegisterInput) { in.Nickname = "abcdefghijklmnopqrstu" }, "nickname", "too_long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newUserService(t)
			in := validRegistration()
			tt.mutate(&in)

			_, err := s.Register(context.Background(), in)
			require.True(t, errors.Is(err, common.ErrorValidation), "got %v", err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, FieldError{Field: tt.field, Reason: tt.reason})
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s, _ := newUserService(t)

	_, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = s.Register(context.Background(), validRegistration())
	assert.True(t, errors.Is(err, common.ErrorAlreadyExists))
}

func TestRegister_RepoError(t *testing.T) {
	s, rm := newUserService(t)
	rm.users.err = errBoom{}

	_, err := s.Register(context.Background(), validRegistration())
	assert.ErrorContains(t, err, "error creating user: boom")
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	s, _ := newUserService(t)
	u, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	res, err := s.Login(context.Background(), "a@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.UserID)
	assert.Equal(t, "alice", res.Nickname)

	claims, err := s.codec.Decode(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.SubjectID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, []string{"ROLE_USER"}, claims.Authorities)
}

func TestLogin_Failures(t *testing.T) {
	s, _ := newUserService(t)
	u, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = s.Login(context.Background(), "a@x.com", "wrongpass1")
	assert.True(t, errors.Is(err, auth.ErrBadCredentials))

	_, err = s.Login(context.Background(), "nobody@x.com", "secret123")
	assert.True(t, errors.Is(err, auth.ErrBadCredentials))

	_, err = s.Login(context.Background(), "", "")
	assert.True(t, errors.Is(err, common.ErrorValidation))

	require.NoError(t, s.DeleteMe(context.Background(), u.ID))
	_, err = s.Login(context.Background(), "a@x.com", "secret123")
	assert.True(t, errors.Is(err, auth.ErrBadCredentials))
}

func TestMeAndUpdateProfile(t *testing.T) {
	s, _ := newUserService(t)
	u, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	me, err := s.Me(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Nickname)

	updated, err := s.UpdateProfile(context.Background(), u.ID, "  alicia ", "p.png")
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Nickname)
	assert.Equal(t, "p.png", updated.ProfileImageURL)

	_, err = s.UpdateProfile(context.Background(), u.ID, "", "")
	assert.True(t, errors.Is(err, common.ErrorValidation))

	_, err = s.Me(context.Background(), 999)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestChangePassword(t *testing.T) {
	s, _ := newUserService(t)
	u, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	err = s.ChangePassword(context.Background(), u.ID, "newsecret1", "newsecret2")
	assert.True(t, errors.Is(err, common.ErrorValidation))

	require.NoError(t, s.ChangePassword(context.Background(), u.ID, "newsecret1", "newsecret1"))

	_, err = s.Login(context.Background(), "a@x.com", "secret123")
	assert.True(t, errors.Is(err, auth.ErrBadCredentials))
	_, err = s.Login(context.Background(), "a@x.com", "newsecret1")
	assert.NoError(t, err)
}

func TestDeactivate_Twice(t *testing.T) {
	s, _ := newUserService(t)
	u, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	require.NoError(t, s.Deactivate(context.Background(), u.ID))
	assert.True(t, errors.Is(s.Deactivate(context.Background(), u.ID), common.ErrorNotFound))
}

func TestLookups(t *testing.T) {
	s, _ := newUserService(t)
	_, err := s.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	in := validRegistration()
	in.Email, in.Nickname = "b@x.com", "Alfred"
	_, err = s.Register(context.Background(), in)
	require.NoError(t, err)

	exists, err := s.ExistsByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := s.CountByNickname(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := s.SearchByNickname(context.Background(), "AL")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Alfred", found[0].Nickname)

	none, err := s.SearchByNickname(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, none)
}
