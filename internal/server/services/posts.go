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
	MaxTitleLen   = 200
	MaxBodyLen    = 5000
	MaxCommentLen = 2000
	MaxPostImages = 20
)

// PostInput is the editable state of a post. Images is the complete ordered
// list of references; Cover, if set, must be one of them.
type PostInput struct {
	Title      string
	Body       string
	Visibility string
	IsDraft    bool
	Images     []string
	Cover      string
}

type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	assets      *assets.Manager
	janitor     *assets.Janitor
	logger      logging.Logger
}

func NewPostService(db *sql.DB, rm repomanager.RepositoryManager, am *assets.Manager, j *assets.Janitor, logger logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: rm,
		assets:      am,
		janitor:     j,
		logger:      logger.With("module", "posts"),
	}
}

func (s *PostService) resolver() *access.Resolver {
	return access.NewResolver(s.repomanager.Follows(s.db))
}

func (s *PostService) summarizer() summarizer {
	return summarizer{posts: s.repomanager.Posts(s.db), assets: s.assets}
}

func validatePost(op string, in PostInput) (models.Visibility, error) {
	if utf8.RuneCountInString(in.Title) > MaxTitleLen {
		return "", common.Validation(op, "title", "title is too long")
	}
	if utf8.RuneCountInString(in.Body) > MaxBodyLen {
		return "", common.Validation(op, "body", "body is too long")
	}
	vis, ok := models.ParseVisibility(in.Visibility)
	if !ok {
		return "", common.Validation(op, "visibility", "visibility must be PUBLIC, PRIVATE or FOLLOWERS")
	}
	if len(in.Images) > MaxPostImages {
		return "", common.Validation(op, "images", "too many images")
	}
	for _, ref := range in.Images {
		if strings.TrimSpace(ref) == "" {
			return "", common.Validation(op, "images", "empty image reference")
		}
	}
	if in.Cover != "" {
		coverKey, err := assets.ExtractKey(in.Cover)
		if err != nil {
			return "", common.Validation(op, "cover", "invalid cover reference")
		}
		if _, ok := byKey(in.Images)[coverKey]; !ok {
			return "", common.Validation(op, "cover", "cover must be one of the images")
		}
	}
	return vis, nil
}

// buildImages lays out the final image rows in incoming order.
func buildImages(in PostInput, p *promoted, retained map[string]string) []models.PostImage {
	coverKey := ""
	if in.Cover != "" {
		coverKey, _ = assets.ExtractKey(in.Cover)
	}

	seen := map[string]bool{}
	var out []models.PostImage
	for _, ref := range in.Images {
		key, err := assets.ExtractKey(ref)
		if err != nil || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.PostImage{
			URL:      p.resolve(ref, retained),
			Position: len(out),
			IsCover:  key == coverKey,
		})
	}
	return out
}

// Create stores a new post owned by the viewer, promoting its uploads.
func (s *PostService) Create(ctx context.Context, viewer access.Viewer, in PostInput) (*PostView, error) {
	const op = "posts.Create"

	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	vis, err := validatePost(op, in)
	if err != nil {
		return nil, err
	}

	part, err := assets.Diff(nil, in.Images)
	if err != nil {
		return nil, err
	}
	if err := assets.CheckOwnership(part.Added, viewer.ID); err != nil {
		return nil, err
	}
	prom, err := promoteAdded(ctx, op, "images", s.assets, s.janitor, part.Added)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		OwnerID:    viewer.ID,
		Title:      in.Title,
		Body:       in.Body,
		Visibility: vis,
		IsDraft:    in.IsDraft,
		Images:     buildImages(in, prom, nil),
	}

	post, err = dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Post, error) {
		repo := s.repomanager.Posts(tx)
		created, err := repo.Create(ctx, post)
		if err != nil {
			return nil, err
		}
		if err := repo.ReplaceImages(ctx, created.ID, created.Images); err != nil {
			return nil, err
		}
		return created, nil
	})
	if err != nil {
		prom.compensate(ctx, s.janitor)
		return nil, dbErr(op, err)
	}

	s.logger.Info(ctx, "post created", "post_id", post.ID, "owner_id", post.OwnerID, "images", len(post.Images))
	return s.view(ctx, viewer, post)
}

// Update replaces the editable state of the viewer's post. Removed images
// are trashed after the commit.
func (s *PostService) Update(ctx context.Context, viewer access.Viewer, postID string, in PostInput) (*PostView, error) {
	const op = "posts.Update"

	post, err := s.loadOwned(ctx, op, viewer, postID)
	if err != nil {
		return nil, err
	}
	vis, err := validatePost(op, in)
	if err != nil {
		return nil, err
	}

	images, err := s.repomanager.Posts(s.db).Images(ctx, post.ID)
	if err != nil {
		return nil, dbErr(op, err)
	}
	prior := make([]string, 0, len(images[post.ID]))
	for _, img := range images[post.ID] {
		prior = append(prior, img.URL)
	}

	part, err := assets.Diff(prior, in.Images)
	if err != nil {
		return nil, err
	}
	if err := assets.CheckOwnership(part.Added, viewer.ID); err != nil {
		return nil, err
	}
	prom, err := promoteAdded(ctx, op, "images", s.assets, s.janitor, part.Added)
	if err != nil {
		return nil, err
	}
	removed := prom.prune(part.Removed)

	post.Title = in.Title
	post.Body = in.Body
	post.Visibility = vis
	post.IsDraft = in.IsDraft
	post.Images = buildImages(in, prom, byKey(part.Retained))

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)
		if err := repo.Update(ctx, post); err != nil {
			return err
		}
		return repo.ReplaceImages(ctx, post.ID, post.Images)
	})
	if err != nil {
		prom.compensate(ctx, s.janitor)
		return nil, dbErr(op, err)
	}

	s.janitor.Schedule(ctx, assets.SoftDeleteAll(removed...))
	s.logger.Info(ctx, "post updated", "post_id", post.ID,
		"added", len(part.Added), "retained", len(part.Retained), "removed", len(removed))

	return s.view(ctx, viewer, post)
}

// Delete removes the viewer's post and trashes its images.
func (s *PostService) Delete(ctx context.Context, viewer access.Viewer, postID string) error {
	const op = "posts.Delete"

	post, err := s.loadOwned(ctx, op, viewer, postID)
	if err != nil {
		return err
	}
	images, err := s.repomanager.Posts(s.db).Images(ctx, post.ID)
	if err != nil {
		return dbErr(op, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Posts(tx).Delete(ctx, post.ID)
	})
	if err != nil {
		return dbErr(op, err)
	}

	refs := make([]string, 0, len(images[post.ID]))
	for _, img := range images[post.ID] {
		refs = append(refs, img.URL)
	}
	s.janitor.Schedule(ctx, assets.SoftDeleteAll(refs...))
	s.logger.Info(ctx, "post deleted", "post_id", post.ID)
	return nil
}

// Get returns a post the viewer may see, with signed image URLs.
func (s *PostService) Get(ctx context.Context, viewer access.Viewer, postID string) (*PostView, error) {
	const op = "posts.Get"

	post, err := s.loadVisible(ctx, op, viewer, postID)
	if err != nil {
		return nil, err
	}
	images, err := s.repomanager.Posts(s.db).Images(ctx, post.ID)
	if err != nil {
		return nil, dbErr(op, err)
	}
	post.Images = images[post.ID]
	return s.view(ctx, viewer, post)
}

func (s *PostService) view(ctx context.Context, viewer access.Viewer, post *models.Post) (*PostView, error) {
	const op = "posts.view"

	refs := make([]string, 0, len(post.Images))
	for _, img := range post.Images {
		refs = append(refs, img.URL)
	}
	signed := s.assets.SignAll(ctx, refs)

	likes := s.repomanager.Likes(s.db)
	n, err := likes.Count(ctx, post.ID)
	if err != nil {
		return nil, dbErr(op, err)
	}
	liked := false
	if !viewer.IsAnonymous() {
		if liked, err = likes.HasLiked(ctx, viewer.ID, post.ID); err != nil {
			return nil, dbErr(op, err)
		}
	}

	return &PostView{Post: post, Images: imageViews(post.Images, signed), Likes: n, Liked: liked}, nil
}

// Feed lists posts visible to the viewer, newest first.
func (s *PostService) Feed(ctx context.Context, viewer access.Viewer, page models.Page) ([]PostSummary, error) {
	const op = "posts.Feed"

	filter, err := s.resolver().ListFilter(ctx, viewer)
	if err != nil {
		return nil, err
	}
	list, err := s.repomanager.Posts(s.db).Feed(ctx, filter, page)
	if err != nil {
		return nil, dbErr(op, err)
	}
	rows, _, _, err := s.summarizer().build(ctx, list, nil)
	if err != nil {
		return nil, dbErr(op, err)
	}
	return rows, nil
}

// ListByOwner lists one user's posts visible to the viewer.
func (s *PostService) ListByOwner(ctx context.Context, viewer access.Viewer, ownerID string, page models.Page) ([]PostSummary, error) {
	const op = "posts.ListByOwner"

	if err := checkID(op, ownerID); err != nil {
		return nil, err
	}
	filter, err := s.resolver().ListFilter(ctx, viewer)
	if err != nil {
		return nil, err
	}
	list, err := s.repomanager.Posts(s.db).ListByOwner(ctx, ownerID, filter, page)
	if err != nil {
		return nil, dbErr(op, err)
	}
	rows, _, _, err := s.summarizer().build(ctx, list, nil)
	if err != nil {
		return nil, dbErr(op, err)
	}
	return rows, nil
}

func (s *PostService) Like(ctx context.Context, viewer access.Viewer, postID string) error {
	const op = "posts.Like"

	if err := requireViewer(op, viewer); err != nil {
		return err
	}
	if _, err := s.loadVisible(ctx, op, viewer, postID); err != nil {
		return err
	}
	return dbErr(op, s.repomanager.Likes(s.db).Like(ctx, viewer.ID, postID))
}

func (s *PostService) Unlike(ctx context.Context, viewer access.Viewer, postID string) error {
	const op = "posts.Unlike"

	if err := requireViewer(op, viewer); err != nil {
		return err
	}
	if _, err := s.loadVisible(ctx, op, viewer, postID); err != nil {
		return err
	}
	return dbErr(op, s.repomanager.Likes(s.db).Unlike(ctx, viewer.ID, postID))
}

func (s *PostService) AddComment(ctx context.Context, viewer access.Viewer, postID, body string) (*models.Comment, error) {
	const op = "posts.AddComment"

	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, common.Validation(op, "body", "comment is empty")
	}
	if utf8.RuneCountInString(body) > MaxCommentLen {
		return nil, common.Validation(op, "body", "comment is too long")
	}
	if _, err := s.loadVisible(ctx, op, viewer, postID); err != nil {
		return nil, err
	}

	c, err := s.repomanager.Comments(s.db).Add(ctx, &models.Comment{PostID: postID, AuthorID: viewer.ID, Body: body})
	if err != nil {
		return nil, dbErr(op, err)
	}
	return c, nil
}

func (s *PostService) ListComments(ctx context.Context, viewer access.Viewer, postID string, page models.Page) ([]*models.Comment, error) {
	const op = "posts.ListComments"

	if _, err := s.loadVisible(ctx, op, viewer, postID); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Comments(s.db).List(ctx, postID, page)
	if err != nil {
		return nil, dbErr(op, err)
	}
	return list, nil
}

// loadVisible loads a post and resolves it for the viewer.
func (s *PostService) loadVisible(ctx context.Context, op string, viewer access.Viewer, postID string) (*models.Post, error) {
	if err := checkID(op, postID); err != nil {
		return nil, err
	}
	post, err := s.repomanager.Posts(s.db).GetByID(ctx, postID)
	if err != nil {
		return nil, dbErr(op, err)
	}
	if err := s.resolver().Authorize(ctx, op, viewer, postItem(post)); err != nil {
		return nil, err
	}
	return post, nil
}

// loadOwned loads a post the viewer owns. Posts the viewer cannot see
// resolve as usual; visible posts of others are FORBIDDEN.
func (s *PostService) loadOwned(ctx context.Context, op string, viewer access.Viewer, postID string) (*models.Post, error) {
	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	post, err := s.loadVisible(ctx, op, viewer, postID)
	if err != nil {
		return nil, err
	}
	if !viewer.Is(post.OwnerID) {
		return nil, forbidden(op, "only the owner can change this post")
	}
	return post, nil
}
