package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/logging"
	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/repomanager"
)

type FollowService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewFollowService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *FollowService {
	return &FollowService{db: db, repomanager: rm, logger: logger.With("module", "follows")}
}

func (s *FollowService) check(ctx context.Context, op string, viewer access.Viewer, userID string) error {
	if err := requireViewer(op, viewer); err != nil {
		return err
	}
	if viewer.Is(userID) {
		return common.Validation(op, "userId", "cannot follow yourself")
	}
	if err := checkID(op, userID); err != nil {
		return err
	}
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		return dbErr(op, err)
	}
	return nil
}

// Follow makes the viewer a follower of userID. Following twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, viewer access.Viewer, userID string) error {
	const op = "follows.Follow"

	if err := s.check(ctx, op, viewer, userID); err != nil {
		return err
	}
	if err := s.repomanager.Follows(s.db).Follow(ctx, viewer.ID, userID); err != nil {
		return dbErr(op, err)
	}
	s.logger.Info(ctx, "followed", "follower_id", viewer.ID, "following_id", userID)
	return nil
}

func (s *FollowService) Unfollow(ctx context.Context, viewer access.Viewer, userID string) error {
	const op = "follows.Unfollow"

	if err := s.check(ctx, op, viewer, userID); err != nil {
		return err
	}
	if err := s.repomanager.Follows(s.db).Unfollow(ctx, viewer.ID, userID); err != nil {
		return dbErr(op, err)
	}
	s.logger.Info(ctx, "unfollowed", "follower_id", viewer.ID, "following_id", userID)
	return nil
}
