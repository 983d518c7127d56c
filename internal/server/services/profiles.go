package services

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/dbx"
	"github.com/dmitrijs2005/gallerist/internal/logging"
	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/assets"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/repomanager"
)

const (
	MaxDisplayNameLen = 100
	MaxBioLen         = 500
)

type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	assets      *assets.Manager
	janitor     *assets.Janitor
	logger      logging.Logger
}

func NewProfileService(db *sql.DB, rm repomanager.RepositoryManager, am *assets.Manager, j *assets.Janitor, logger logging.Logger) *ProfileService {
	return &ProfileService{
		db:          db,
		repomanager: rm,
		assets:      am,
		janitor:     j,
		logger:      logger.With("module", "profiles"),
	}
}

// Get assembles a profile page. Posts and collections go through one list
// filter, so the follow set is loaded once, and every URL on the page is
// signed in one batch.
func (s *ProfileService) Get(ctx context.Context, viewer access.Viewer, userID string, page models.Page) (*ProfileView, error) {
	const op = "profiles.Get"

	if err := checkID(op, userID); err != nil {
		return nil, err
	}
	profile, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, dbErr(op, err)
	}

	filter, err := access.NewResolver(s.repomanager.Follows(s.db)).ListFilter(ctx, viewer)
	if err != nil {
		return nil, err
	}
	postList, err := s.repomanager.Posts(s.db).ListByOwner(ctx, userID, filter, page)
	if err != nil {
		return nil, dbErr(op, err)
	}
	collectionList, err := s.repomanager.Collections(s.db).ListByOwner(ctx, userID, filter, page)
	if err != nil {
		return nil, dbErr(op, err)
	}
	stats, err := s.repomanager.Follows(s.db).Stats(ctx, userID)
	if err != nil {
		return nil, dbErr(op, err)
	}

	sum := summarizer{posts: s.repomanager.Posts(s.db), assets: s.assets}
	postRows, collectionRows, signed, err := sum.build(ctx, postList, collectionList, profile.AvatarURL)
	if err != nil {
		return nil, dbErr(op, err)
	}

	return &ProfileView{
		Profile:     profile,
		AvatarURL:   signedOr(signed, profile.AvatarURL),
		Stats:       stats,
		IsSelf:      viewer.Is(userID),
		IsFollowing: filter.Follows(userID),
		Posts:       postRows,
		Collections: collectionRows,
	}, nil
}

// UpdateProfile changes the viewer's display name and bio.
func (s *ProfileService) UpdateProfile(ctx context.Context, viewer access.Viewer, displayName, bio string) (*ProfileView, error) {
	const op = "profiles.UpdateProfile"

	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if utf8.RuneCountInString(displayName) > MaxDisplayNameLen {
		return nil, common.Validation(op, "displayName", "display name is too long")
	}
	if utf8.RuneCountInString(bio) > MaxBioLen {
		return nil, common.Validation(op, "bio", "bio is too long")
	}

	p := &models.Profile{ID: viewer.ID, DisplayName: displayName, Bio: bio}
	if err := s.repomanager.Users(s.db).UpdateProfile(ctx, p); err != nil {
		return nil, dbErr(op, err)
	}
	return s.Get(ctx, viewer, viewer.ID, models.Page{})
}

// UpdateAvatar replaces the viewer's avatar with ref, or clears it when ref
// is empty. The previous avatar is trashed after the commit.
func (s *ProfileService) UpdateAvatar(ctx context.Context, viewer access.Viewer, ref string) (*ProfileView, error) {
	const op = "profiles.UpdateAvatar"

	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	profile, err := s.repomanager.Users(s.db).GetByID(ctx, viewer.ID)
	if err != nil {
		return nil, dbErr(op, err)
	}

	avatar, err := changeSlot(ctx, op, "avatar", s.assets, s.janitor, viewer.ID, profile.AvatarURL, ref)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).UpdateAvatar(ctx, viewer.ID, avatar.final)
	})
	if err != nil {
		avatar.prom.compensate(ctx, s.janitor)
		return nil, dbErr(op, err)
	}

	s.janitor.Schedule(ctx, assets.SoftDeleteAll(avatar.removed...))
	s.logger.Info(ctx, "avatar updated", "user_id", viewer.ID, "cleared", avatar.final == "")
	return s.Get(ctx, viewer, viewer.ID, models.Page{})
}
