package users

import (
	"context"

	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByUserName(ctx context.Context, userName string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	// UpdateAvatar stores ref as the avatar; an empty ref clears it.
	UpdateAvatar(ctx context.Context, id, ref string) error
}
