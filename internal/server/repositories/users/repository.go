package users

import (
	"context"

	"github.com/dmitrijs2005/postboard/internal/server/models"
)

// Repository persists user accounts. Lookups of missing rows return
// common.ErrorNotFound; a duplicate email on Create returns
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, nickname, profileImageURL string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Deactivate(ctx context.Context, id int64) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByNickname(ctx context.Context, nickname string) (int64, error)
	SearchByNickname(ctx context.Context, keyword string) ([]*models.User, error)
}
