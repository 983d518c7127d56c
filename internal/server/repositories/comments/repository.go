package comments

import (
	"context"

	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

type Repository interface {
	Add(ctx context.Context, c *models.Comment) (*models.Comment, error)
	// List returns comments oldest first.
	List(ctx context.Context, postID string, page models.Page) ([]*models.Comment, error)
}
