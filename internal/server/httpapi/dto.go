package httpapi

import (
	"time"

	"github.com/dmitrijs2005/gallerist/internal/server/assets"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
	"github.com/dmitrijs2005/gallerist/internal/server/services"
)

type uploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type uploadResponse struct {
	UploadURL string    `json:"uploadUrl"`
	Key       string    `json:"key"`
	Reference string    `json:"reference"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toUpload(c *assets.UploadCapability) uploadResponse {
	return uploadResponse{UploadURL: c.UploadURL, Key: c.Key, Reference: c.Reference, ExpiresAt: c.ExpiresAt}
}

type postRequest struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Visibility string   `json:"visibility"`
	IsDraft    bool     `json:"isDraft"`
	Images     []string `json:"images"`
	Cover      string   `json:"cover"`
}

func (p postRequest) input() services.PostInput {
	return services.PostInput{
		Title:      p.Title,
		Body:       p.Body,
		Visibility: p.Visibility,
		IsDraft:    p.IsDraft,
		Images:     p.Images,
		Cover:      p.Cover,
	}
}

type imageResponse struct {
	ID        string `json:"id,omitempty"`
	Reference string `json:"reference"`
	URL       string `json:"url"`
	Position  int    `json:"position"`
	IsCover   bool   `json:"isCover"`
}

type postResponse struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"ownerId"`
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	Visibility string          `json:"visibility"`
	IsDraft    bool            `json:"isDraft"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Images     []imageResponse `json:"images"`
	Likes      int             `json:"likes"`
	Liked      bool            `json:"liked"`
}

func toPost(v *services.PostView) postResponse {
	images := make([]imageResponse, 0, len(v.Images))
	for _, img := range v.Images {
		images = append(images, imageResponse(img))
	}
	return postResponse{
		ID:         v.Post.ID,
		OwnerID:    v.Post.OwnerID,
		Title:      v.Post.Title,
		Body:       v.Post.Body,
		Visibility: string(v.Post.Visibility),
		IsDraft:    v.Post.IsDraft,
		CreatedAt:  v.Post.CreatedAt,
		UpdatedAt:  v.Post.UpdatedAt,
		Images:     images,
		Likes:      v.Likes,
		Liked:      v.Liked,
	}
}

type postSummaryResponse struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	Title      string    `json:"title"`
	Visibility string    `json:"visibility"`
	IsDraft    bool      `json:"isDraft"`
	CreatedAt  time.Time `json:"createdAt"`
	CoverURL   string    `json:"coverUrl,omitempty"`
}

func toPostSummaries(list []services.PostSummary) []postSummaryResponse {
	out := make([]postSummaryResponse, 0, len(list))
	for _, p := range list {
		out = append(out, postSummaryResponse{
			ID:         p.ID,
			OwnerID:    p.OwnerID,
			Title:      p.Title,
			Visibility: string(p.Visibility),
			IsDraft:    p.IsDraft,
			CreatedAt:  p.CreatedAt,
			CoverURL:   p.CoverURL,
		})
	}
	return out
}

type commentRequest struct {
	Body string `json:"body"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func toComment(c *models.Comment) commentResponse {
	return commentResponse{ID: c.ID, PostID: c.PostID, AuthorID: c.AuthorID, Body: c.Body, CreatedAt: c.CreatedAt}
}

type collectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	Cover       string `json:"cover"`
}

func (c collectionRequest) input() services.CollectionInput {
	return services.CollectionInput{Name: c.Name, Description: c.Description, Visibility: c.Visibility, Cover: c.Cover}
}

type collectionSummaryResponse struct {
	ID         string `json:"id"`
	OwnerID    string `json:"ownerId"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	CoverURL   string `json:"coverUrl,omitempty"`
}

type collectionResponse struct {
	ID             string                `json:"id"`
	OwnerID        string                `json:"ownerId"`
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Visibility     string                `json:"visibility"`
	CoverReference string                `json:"coverReference,omitempty"`
	CoverURL       string                `json:"coverUrl,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	Posts          []postSummaryResponse `json:"posts"`
}

func toCollection(v *services.CollectionView) collectionResponse {
	return collectionResponse{
		ID:             v.Collection.ID,
		OwnerID:        v.Collection.OwnerID,
		Name:           v.Collection.Name,
		Description:    v.Collection.Description,
		Visibility:     string(v.Collection.Visibility),
		CoverReference: v.Collection.CoverURL,
		CoverURL:       v.CoverURL,
		CreatedAt:      v.Collection.CreatedAt,
		Posts:          toPostSummaries(v.Posts),
	}
}

type profileRequest struct {
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
}

type avatarRequest struct {
	// Reference is the new avatar; empty clears it.
	Reference string `json:"reference"`
}

type profileResponse struct {
	ID              string                      `json:"id"`
	UserName        string                      `json:"userName"`
	DisplayName     string                      `json:"displayName"`
	Bio             string                      `json:"bio"`
	AvatarReference string                      `json:"avatarReference,omitempty"`
	AvatarURL       string                      `json:"avatarUrl,omitempty"`
	Followers       int                         `json:"followers"`
	Following       int                         `json:"following"`
	IsSelf          bool                        `json:"isSelf"`
	IsFollowing     bool                        `json:"isFollowing"`
	Posts           []postSummaryResponse       `json:"posts"`
	Collections     []collectionSummaryResponse `json:"collections"`
}

func toProfile(v *services.ProfileView) profileResponse {
	collections := make([]collectionSummaryResponse, 0, len(v.Collections))
	for _, c := range v.Collections {
		collections = append(collections, collectionSummaryResponse{
			ID:         c.ID,
			OwnerID:    c.OwnerID,
			Name:       c.Name,
			Visibility: string(c.Visibility),
			CoverURL:   c.CoverURL,
		})
	}
	return profileResponse{
		ID:              v.Profile.ID,
		UserName:        v.Profile.UserName,
		DisplayName:     v.Profile.DisplayName,
		Bio:             v.Profile.Bio,
		AvatarReference: v.Profile.AvatarURL,
		AvatarURL:       v.AvatarURL,
		Followers:       v.Stats.Followers,
		Following:       v.Stats.Following,
		IsSelf:          v.IsSelf,
		IsFollowing:     v.IsFollowing,
		Posts:           toPostSummaries(v.Posts),
		Collections:     collections,
	}
}
