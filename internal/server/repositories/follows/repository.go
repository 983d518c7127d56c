package follows

import (
	"context"

	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

// Repository stores the directed follow graph. It satisfies
// access.FollowLookup.
type Repository interface {
	// Follow is idempotent.
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	FollowingIDs(ctx context.Context, followerID string) ([]string, error)
	Stats(ctx context.Context, userID string) (models.ProfileStats, error)
}
