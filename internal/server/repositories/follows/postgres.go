package follows

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gallerist/internal/dbx"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Follow(ctx context.Context, followerID, followingID string) error {
	query :=
		`INSERT INTO follows (follower_id, following_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, followerID, followingID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Unfollow removes the edge. Removing an absent edge is not an error.
func (r *PostgresRepository) Unfollow(ctx context.Context, followerID, followingID string) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`

	if _, err := r.db.ExecContext(ctx, query, followerID, followingID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, followerID, followingID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) FollowingIDs(ctx context.Context, followerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT following_id FROM follows WHERE follower_id = $1`, followerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, userID string) (models.ProfileStats, error) {
	query :=
		`SELECT
		   (SELECT count(*) FROM follows WHERE following_id = $1),
		   (SELECT count(*) FROM follows WHERE follower_id = $1)
		 `

	var s models.ProfileStats
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.Followers, &s.Following); err != nil {
		return models.ProfileStats{}, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
