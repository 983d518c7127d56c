package posts

import (
	"context"

	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	// GetByID loads the post without images.
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, id string) error

	// ListByOwner and Feed return the posts visible under filter, newest
	// first, without images.
	ListByOwner(ctx context.Context, ownerID string, filter *access.ListFilter, page models.Page) ([]*models.Post, error)
	Feed(ctx context.Context, filter *access.ListFilter, page models.Page) ([]*models.Post, error)

	// Images returns the images of the given posts keyed by post id, each
	// list ordered by position.
	Images(ctx context.Context, postIDs ...string) (map[string][]models.PostImage, error)
	// ReplaceImages makes images the complete image list of the post.
	ReplaceImages(ctx context.Context, postID string, images []models.PostImage) error
}
