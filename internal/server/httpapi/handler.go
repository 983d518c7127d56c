// Package httpapi exposes the gallerist services as a JSON API over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/logging"
	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/assets"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
	"github.com/dmitrijs2005/gallerist/internal/server/services"
)

type UploadService interface {
	RequestUpload(ctx context.Context, viewer access.Viewer, fileName, contentType string) (*assets.UploadCapability, error)
}

type PostService interface {
	Create(ctx context.Context, viewer access.Viewer, in services.PostInput) (*services.PostView, error)
	Update(ctx context.Context, viewer access.Viewer, postID string, in services.PostInput) (*services.PostView, error)
	Delete(ctx context.Context, viewer access.Viewer, postID string) error
	Get(ctx context.Context, viewer access.Viewer, postID string) (*services.PostView, error)
	Feed(ctx context.Context, viewer access.Viewer, page models.Page) ([]services.PostSummary, error)
	ListByOwner(ctx context.Context, viewer access.Viewer, ownerID string, page models.Page) ([]services.PostSummary, error)
	Like(ctx context.Context, viewer access.Viewer, postID string) error
	Unlike(ctx context.Context, viewer access.Viewer, postID string) error
	AddComment(ctx context.Context, viewer access.Viewer, postID, body string) (*models.Comment, error)
	ListComments(ctx context.Context, viewer access.Viewer, postID string, page models.Page) ([]*models.Comment, error)
}

type CollectionService interface {
	Create(ctx context.Context, viewer access.Viewer, in services.CollectionInput) (*services.CollectionView, error)
	Update(ctx context.Context, viewer access.Viewer, collectionID string, in services.CollectionInput) (*services.CollectionView, error)
	Delete(ctx context.Context, viewer access.Viewer, collectionID string) error
	Get(ctx context.Context, viewer access.Viewer, collectionID string, page models.Page) (*services.CollectionView, error)
	AddPost(ctx context.Context, viewer access.Viewer, collectionID, postID string) error
	RemovePost(ctx context.Context, viewer access.Viewer, collectionID, postID string) error
}

type ProfileService interface {
	Get(ctx context.Context, viewer access.Viewer, userID string, page models.Page) (*services.ProfileView, error)
	UpdateProfile(ctx context.Context, viewer access.Viewer, displayName, bio string) (*services.ProfileView, error)
	UpdateAvatar(ctx context.Context, viewer access.Viewer, ref string) (*services.ProfileView, error)
}

type FollowService interface {
	Follow(ctx context.Context, viewer access.Viewer, userID string) error
	Unfollow(ctx context.Context, viewer access.Viewer, userID string) error
}

// Services groups the business services behind the API.
type Services struct {
	Uploads     UploadService
	Posts       PostService
	Collections CollectionService
	Profiles    ProfileService
	Follows     FollowService
}

type Handler struct {
	svc       Services
	logger    logging.Logger
	jwtSecret []byte
	// objects serves presigned requests of the in-memory object store.
	objects http.Handler
}

func NewHandler(svc Services, logger logging.Logger, secretKey string, objects http.Handler) *Handler {
	return &Handler{
		svc:       svc,
		logger:    logger.With("module", "http_api"),
		jwtSecret: []byte(secretKey),
		objects:   objects,
	}
}

// Routes builds the router. Extra middleware runs outermost, in order.
func (h *Handler) Routes(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	for _, mw := range middlewares {
		r.Use(mw)
	}
	r.Use(Metrics)

	r.Get("/health/live", h.healthLive)
	r.Handle("/metrics", promhttp.Handler())

	if h.objects != nil {
		r.Handle("/"+assets.PrefixStaged+"*", h.objects)
		r.Handle("/"+assets.PrefixPermanent+"*", h.objects)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.identity)

		r.Post("/uploads", h.requestUpload)
		r.Get("/feed", h.feed)

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", h.createPost)
			r.Route("/{postID}", func(r chi.Router) {
				r.Get("/", h.getPost)
				r.Put("/", h.updatePost)
				r.Delete("/", h.deletePost)
				r.Post("/like", h.likePost)
				r.Delete("/like", h.unlikePost)
				r.Get("/comments", h.listComments)
				r.Post("/comments", h.addComment)
			})
		})

		r.Route("/collections", func(r chi.Router) {
			r.Post("/", h.createCollection)
			r.Route("/{collectionID}", func(r chi.Router) {
				r.Get("/", h.getCollection)
				r.Put("/", h.updateCollection)
				r.Delete("/", h.deleteCollection)
				r.Put("/posts/{postID}", h.addCollectionPost)
				r.Delete("/posts/{postID}", h.removeCollectionPost)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Put("/me", h.updateProfile)
			r.Put("/me/avatar", h.updateAvatar)
			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", h.getProfile)
				r.Get("/posts", h.listUserPosts)
				r.Post("/follow", h.follow)
				r.Delete("/follow", h.unfollow)
			})
		})
	})

	return r
}

func (h *Handler) healthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into dst. Unknown fields are rejected.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.Validation("httpapi.decode", "", "malformed request body")
	}
	return nil
}

// pageOf parses limit and offset query parameters.
func pageOf(r *http.Request) (models.Page, error) {
	var p models.Page
	q := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.Page{}, common.Validation("httpapi.page", name, name+" must be an integer")
		}
		*dst = n
	}
	return p.Normalize(), nil
}
