package collections

import (
	"context"

	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Collection) (*models.Collection, error)
	GetByID(ctx context.Context, id string) (*models.Collection, error)
	Update(ctx context.Context, c *models.Collection) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string, filter *access.ListFilter, page models.Page) ([]*models.Collection, error)

	AddPost(ctx context.Context, collectionID, postID string) error
	RemovePost(ctx context.Context, collectionID, postID string) error
	// ListPosts returns member posts visible under filter, most recently
	// added first.
	ListPosts(ctx context.Context, collectionID string, filter *access.ListFilter, page models.Page) ([]*models.Post, error)
}
