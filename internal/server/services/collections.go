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

const MaxCollectionNameLen = 100

type CollectionInput struct {
	Name        string
	Description string
	Visibility  string
	// Cover is an asset reference or empty for none.
	Cover string
}

type CollectionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	assets      *assets.Manager
	janitor     *assets.Janitor
	logger      logging.Logger
}

func NewCollectionService(db *sql.DB, rm repomanager.RepositoryManager, am *assets.Manager, j *assets.Janitor, logger logging.Logger) *CollectionService {
	return &CollectionService{
		db:          db,
		repomanager: rm,
		assets:      am,
		janitor:     j,
		logger:      logger.With("module", "collections"),
	}
}

func (s *CollectionService) resolver() *access.Resolver {
	return access.NewResolver(s.repomanager.Follows(s.db))
}

func validateCollection(op string, in CollectionInput) (string, models.Visibility, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", "", common.Validation(op, "name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxCollectionNameLen {
		return "", "", common.Validation(op, "name", "name is too long")
	}
	if utf8.RuneCountInString(in.Description) > MaxBodyLen {
		return "", "", common.Validation(op, "description", "description is too long")
	}
	vis, ok := models.ParseVisibility(in.Visibility)
	if !ok {
		return "", "", common.Validation(op, "visibility", "visibility must be PUBLIC, PRIVATE or FOLLOWERS")
	}
	return name, vis, nil
}

func (s *CollectionService) Create(ctx context.Context, viewer access.Viewer, in CollectionInput) (*CollectionView, error) {
	const op = "collections.Create"

	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	name, vis, err := validateCollection(op, in)
	if err != nil {
		return nil, err
	}
	cover, err := changeSlot(ctx, op, "cover", s.assets, s.janitor, viewer.ID, "", in.Cover)
	if err != nil {
		return nil, err
	}

	c := &models.Collection{
		OwnerID:     viewer.ID,
		Name:        name,
		Description: in.Description,
		Visibility:  vis,
		CoverURL:    cover.final,
	}
	c, err = dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Collection, error) {
		return s.repomanager.Collections(tx).Create(ctx, c)
	})
	if err != nil {
		cover.prom.compensate(ctx, s.janitor)
		return nil, dbErr(op, err)
	}

	s.logger.Info(ctx, "collection created", "collection_id", c.ID, "owner_id", c.OwnerID)
	return s.view(ctx, viewer, c, models.Page{})
}

// Update replaces name, description, visibility and cover. A replaced
// cover is trashed after the commit.
func (s *CollectionService) Update(ctx context.Context, viewer access.Viewer, collectionID string, in CollectionInput) (*CollectionView, error) {
	const op = "collections.Update"

	c, err := s.loadOwned(ctx, op, viewer, collectionID)
	if err != nil {
		return nil, err
	}
	name, vis, err := validateCollection(op, in)
	if err != nil {
		return nil, err
	}
	cover, err := changeSlot(ctx, op, "cover", s.assets, s.janitor, viewer.ID, c.CoverURL, in.Cover)
	if err != nil {
		return nil, err
	}

	c.Name = name
	c.Description = in.Description
	c.Visibility = vis
	c.CoverURL = cover.final

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Collections(tx).Update(ctx, c)
	})
	if err != nil {
		cover.prom.compensate(ctx, s.janitor)
		return nil, dbErr(op, err)
	}

	s.janitor.Schedule(ctx, assets.SoftDeleteAll(cover.removed...))
	s.logger.Info(ctx, "collection updated", "collection_id", c.ID)
	return s.view(ctx, viewer, c, models.Page{})
}

func (s *CollectionService) Delete(ctx context.Context, viewer access.Viewer, collectionID string) error {
	const op = "collections.Delete"

	c, err := s.loadOwned(ctx, op, viewer, collectionID)
	if err != nil {
		return err
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Collections(tx).Delete(ctx, c.ID)
	})
	if err != nil {
		return dbErr(op, err)
	}

	s.janitor.Schedule(ctx, assets.SoftDeleteAll(c.CoverURL))
	s.logger.Info(ctx, "collection deleted", "collection_id", c.ID)
	return nil
}

// Get returns a collection with the page of member posts the viewer may see.
func (s *CollectionService) Get(ctx context.Context, viewer access.Viewer, collectionID string, page models.Page) (*CollectionView, error) {
	const op = "collections.Get"

	c, err := s.loadVisible(ctx, op, viewer, collectionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, viewer, c, page)
}

func (s *CollectionService) view(ctx context.Context, viewer access.Viewer, c *models.Collection, page models.Page) (*CollectionView, error) {
	const op = "collections.view"

	filter, err := s.resolver().ListFilter(ctx, viewer)
	if err != nil {
		return nil, err
	}
	members, err := s.repomanager.Collections(s.db).ListPosts(ctx, c.ID, filter, page)
	if err != nil {
		return nil, dbErr(op, err)
	}

	sum := summarizer{posts: s.repomanager.Posts(s.db), assets: s.assets}
	rows, _, signed, err := sum.build(ctx, members, nil, c.CoverURL)
	if err != nil {
		return nil, dbErr(op, err)
	}
	return &CollectionView{Collection: c, CoverURL: signedOr(signed, c.CoverURL), Posts: rows}, nil
}

// AddPost adds a post the viewer can see to one of the viewer's collections.
func (s *CollectionService) AddPost(ctx context.Context, viewer access.Viewer, collectionID, postID string) error {
	const op = "collections.AddPost"

	c, err := s.loadOwned(ctx, op, viewer, collectionID)
	if err != nil {
		return err
	}
	if err := checkID(op, postID); err != nil {
		return err
	}
	post, err := s.repomanager.Posts(s.db).GetByID(ctx, postID)
	if err != nil {
		return dbErr(op, err)
	}
	if err := s.resolver().Authorize(ctx, op, viewer, postItem(post)); err != nil {
		return err
	}
	return dbErr(op, s.repomanager.Collections(s.db).AddPost(ctx, c.ID, post.ID))
}

// RemovePost drops a post from one of the viewer's collections regardless
// of the post's current visibility.
func (s *CollectionService) RemovePost(ctx context.Context, viewer access.Viewer, collectionID, postID string) error {
	const op = "collections.RemovePost"

	c, err := s.loadOwned(ctx, op, viewer, collectionID)
	if err != nil {
		return err
	}
	if err := checkID(op, postID); err != nil {
		return err
	}
	return dbErr(op, s.repomanager.Collections(s.db).RemovePost(ctx, c.ID, postID))
}

func (s *CollectionService) loadVisible(ctx context.Context, op string, viewer access.Viewer, collectionID string) (*models.Collection, error) {
	if err := checkID(op, collectionID); err != nil {
		return nil, err
	}
	c, err := s.repomanager.Collections(s.db).GetByID(ctx, collectionID)
	if err != nil {
		return nil, dbErr(op, err)
	}
	if err := s.resolver().Authorize(ctx, op, viewer, collectionItem(c)); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CollectionService) loadOwned(ctx context.Context, op string, viewer access.Viewer, collectionID string) (*models.Collection, error) {
	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	c, err := s.loadVisible(ctx, op, viewer, collectionID)
	if err != nil {
		return nil, err
	}
	if !viewer.Is(c.OwnerID) {
		return nil, forbidden(op, "only the owner can change this collection")
	}
	return c, nil
}
