package auth

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/cryptox"
	"github.com/dmitrijs2005/postboard/internal/server/models"
)

// ErrBadCredentials covers every login failure caused by the submitted
// email/password pair. Callers cannot tell which half was wrong.
var ErrBadCredentials = errors.New("bad credentials")

// CredentialStore looks users up by email. A missing user is reported as
// common.ErrorNotFound.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Authenticator verifies email/password pairs against a CredentialStore.
type Authenticator struct {
	store CredentialStore
}

func NewAuthenticator(store CredentialStore) *Authenticator {
	return &Authenticator{store: store}
}

// Authenticate returns the principal of the user owning email if password
// matches its stored hash. Unknown email, inactive account and wrong
// password all yield ErrBadCredentials; other store failures yield
// common.ErrorInternal.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (Principal, error) {
	user, err := a.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.BurnCompare(password)
			return Principal{}, ErrBadCredentials
		}
		return Principal{}, common.ErrorInternal
	}

	if err := cryptox.CheckPassword(user.PasswordHash, password); err != nil {
		return Principal{}, ErrBadCredentials
	}

	if !user.IsActive {
		return Principal{}, ErrBadCredentials
	}

	return NewPrincipal(user.ID, user.Email, user.Nickname, AuthoritiesForRole(user.Role)), nil
}
