package models

import "time"

// Post is a titled set of images owned by one user.
type Post struct {
	ID         string
	OwnerID    string
	Title      string
	Body       string
	Visibility Visibility
	IsDraft    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Images is ordered by Position. Loaded on demand.
	Images []PostImage
}

// PostImage is one asset of a post. At most one image per post has IsCover.
type PostImage struct {
	ID       string
	PostID   string
	URL      string
	Position int
	IsCover  bool
}

// Cover returns the cover image, falling back to the first image. The second
// result is false for a post without images.
func (p *Post) Cover() (PostImage, bool) {
	for _, img := range p.Images {
		if img.IsCover {
			return img, true
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0], true
	}
	return PostImage{}, false
}
