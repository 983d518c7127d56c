package likes

import "context"

type Repository interface {
	// Like is idempotent.
	Like(ctx context.Context, userID, postID string) error
	Unlike(ctx context.Context, userID, postID string) error
	Count(ctx context.Context, postID string) (int, error)
	HasLiked(ctx context.Context, userID, postID string) (bool, error)
}
