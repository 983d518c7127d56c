package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/assets"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/posts"
)

// ImageView is a post image with a time-limited view URL. URL falls back to
// the reference when signing failed.
type ImageView struct {
	ID        string
	Reference string
	URL       string
	Position  int
	IsCover   bool
}

type PostView struct {
	Post   *models.Post
	Images []ImageView
	Likes  int
	Liked  bool
}

// PostSummary is a post as shown in lists: metadata and a signed cover.
type PostSummary struct {
	ID         string
	OwnerID    string
	Title      string
	Visibility models.Visibility
	IsDraft    bool
	CreatedAt  time.Time
	CoverURL   string
}

type CollectionSummary struct {
	ID         string
	OwnerID    string
	Name       string
	Visibility models.Visibility
	CoverURL   string
}

type CollectionView struct {
	Collection *models.Collection
	CoverURL   string
	Posts      []PostSummary
}

type ProfileView struct {
	Profile     *models.Profile
	AvatarURL   string
	Stats       models.ProfileStats
	IsSelf      bool
	IsFollowing bool
	Posts       []PostSummary
	Collections []CollectionSummary
}

func imageViews(images []models.PostImage, signed map[string]string) []ImageView {
	out := make([]ImageView, 0, len(images))
	for _, img := range images {
		out = append(out, ImageView{
			ID:        img.ID,
			Reference: img.URL,
			URL:       signedOr(signed, img.URL),
			Position:  img.Position,
			IsCover:   img.IsCover,
		})
	}
	return out
}

func signedOr(signed map[string]string, ref string) string {
	if ref == "" {
		return ""
	}
	if url, ok := signed[ref]; ok {
		return url
	}
	return ref
}

// summarizer assembles list rows. Items must already have passed the list
// filter; it only loads covers and signs them in one batch, together with
// any extra references the caller needs signed.
type summarizer struct {
	posts  posts.Repository
	assets *assets.Manager
}

func (s summarizer) covers(ctx context.Context, list []*models.Post) (map[string]string, error) {
	if len(list) == 0 {
		return map[string]string{}, nil
	}
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	images, err := s.posts.Images(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(list))
	for _, p := range list {
		p.Images = images[p.ID]
		if c, ok := p.Cover(); ok {
			out[p.ID] = c.URL
		}
	}
	return out, nil
}

// build signs covers and extra references together and returns summaries
// plus the signed map for the extras.
func (s summarizer) build(ctx context.Context, list []*models.Post, collections []*models.Collection, extra ...string) ([]PostSummary, []CollectionSummary, map[string]string, error) {
	covers, err := s.covers(ctx, list)
	if err != nil {
		return nil, nil, nil, err
	}

	refs := append([]string(nil), extra...)
	for _, ref := range covers {
		refs = append(refs, ref)
	}
	for _, c := range collections {
		refs = append(refs, c.CoverURL)
	}
	signed := s.assets.SignAll(ctx, refs)

	postRows := make([]PostSummary, 0, len(list))
	for _, p := range list {
		postRows = append(postRows, PostSummary{
			ID:         p.ID,
			OwnerID:    p.OwnerID,
			Title:      p.Title,
			Visibility: p.Visibility,
			IsDraft:    p.IsDraft,
			CreatedAt:  p.CreatedAt,
			CoverURL:   signedOr(signed, covers[p.ID]),
		})
	}

	collectionRows := make([]CollectionSummary, 0, len(collections))
	for _, c := range collections {
		collectionRows = append(collectionRows, CollectionSummary{
			ID:         c.ID,
			OwnerID:    c.OwnerID,
			Name:       c.Name,
			Visibility: c.Visibility,
			CoverURL:   signedOr(signed, c.CoverURL),
		})
	}
	return postRows, collectionRows, signed, nil
}

func postItem(p *models.Post) access.Item {
	return access.Item{OwnerID: p.OwnerID, Visibility: p.Visibility, IsDraft: p.IsDraft}
}

func collectionItem(c *models.Collection) access.Item {
	return access.Item{OwnerID: c.OwnerID, Visibility: c.Visibility}
}
