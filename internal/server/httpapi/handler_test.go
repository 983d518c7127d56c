package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/logging"
	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/assets"
	"github.com/dmitrijs2005/gallerist/internal/server/auth"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
	"github.com/dmitrijs2005/gallerist/internal/server/objstore"
	"github.com/dmitrijs2005/gallerist/internal/server/services"
)

const testSecret = "secret"

type fakePosts struct {
	PostService
	viewer access.Viewer
	postID string
	in     services.PostInput
	page   models.Page
	err    error
}

func (f *fakePosts) Get(_ context.Context, v access.Viewer, id string) (*services.PostView, error) {
	f.viewer, f.postID = v, id
	if f.err != nil {
		return nil, f.err
	}
	return &services.PostView{
		Post:   &models.Post{ID: id, OwnerID: "o", Title: "t", Visibility: models.VisibilityPublic},
		Images: []services.ImageView{{Reference: "https://cdn/uploads/1-a.png", URL: "https://signed"}},
		Likes:  3,
	}, nil
}

func (f *fakePosts) Create(_ context.Context, v access.Viewer, in services.PostInput) (*services.PostView, error) {
	f.viewer, f.in = v, in
	if f.err != nil {
		return nil, f.err
	}
	return &services.PostView{Post: &models.Post{ID: "p1", OwnerID: v.ID, Title: in.Title}}, nil
}

func (f *fakePosts) Feed(_ context.Context, v access.Viewer, page models.Page) ([]services.PostSummary, error) {
	f.viewer, f.page = v, page
	return []services.PostSummary{{ID: "p1", CoverURL: "https://signed"}}, f.err
}

func (f *fakePosts) Delete(_ context.Context, v access.Viewer, id string) error {
	f.viewer, f.postID = v, id
	return f.err
}

type fakeUploads struct {
	viewer access.Viewer
}

func (f *fakeUploads) RequestUpload(_ context.Context, v access.Viewer, name, ct string) (*assets.UploadCapability, error) {
	f.viewer = v
	return &assets.UploadCapability{UploadURL: "https://put", Key: "temp/" + v.ID + "/1-" + name, Reference: "ref", ExpiresAt: time.Unix(0, 0)}, nil
}

func newTestHandler(posts *fakePosts, objects http.Handler) (*Handler, http.Handler) {
	h := NewHandler(Services{Posts: posts, Uploads: &fakeUploads{}}, logging.Discard(), testSecret, objects)
	return h, h.Routes()
}

func do(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), ttl)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	return tok
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestIdentity(t *testing.T) {
	posts := &fakePosts{}
	_, router := newTestHandler(posts, nil)

	rec := do(t, router, http.MethodGet, "/api/v1/posts/p1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, posts.viewer.IsAnonymous())

	rec = do(t, router, http.MethodGet, "/api/v1/posts/p1", token(t, "u1", time.Hour), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", posts.viewer.ID)
	assert.Equal(t, "p1", posts.postID)

	rec = do(t, router, http.MethodGet, "/api/v1/posts/p1", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, envelope(t, rec).Code)

	rec = do(t, router, http.MethodGet, "/api/v1/posts/p1", token(t, "u1", -time.Minute), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token expired", envelope(t, rec).Message)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts/p1", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
		field  string
	}{
		{common.Validation("op", "images", "upload not found"), http.StatusBadRequest, CodeValidation, "images"},
		{&common.Error{Kind: common.KindUnauthorized, Msg: "sign in"}, http.StatusUnauthorized, CodeUnauthorized, ""},
		{&common.Error{Kind: common.KindForbidden, Msg: "private"}, http.StatusForbidden, CodeForbidden, ""},
		{&common.Error{Kind: common.KindNotFound}, http.StatusNotFound, CodeNotFound, ""},
		{common.Transient("op", errors.New("s3 down")), http.StatusServiceUnavailable, CodeUnavailable, ""},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal, ""},
	}
	for _, tt := range tests {
		posts := &fakePosts{err: tt.err}
		_, router := newTestHandler(posts, nil)

		rec := do(t, router, http.MethodGet, "/api/v1/posts/p1", "", "")
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
		body := envelope(t, rec)
		assert.Equal(t, tt.code, body.Code)
		assert.Equal(t, tt.field, body.Field)
		assert.NotContains(t, body.Message, "s3 down", "infrastructure detail leaked")
	}
}

func TestCreatePost(t *testing.T) {
	posts := &fakePosts{}
	_, router := newTestHandler(posts, nil)

	rec := do(t, router, http.MethodPost, "/api/v1/posts", token(t, "u1", time.Hour),
		`{"title":"trip","visibility":"FOLLOWERS","images":["a","b"],"cover":"b"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, services.PostInput{Title: "trip", Visibility: "FOLLOWERS", Images: []string{"a", "b"}, Cover: "b"}, posts.in)

	var got postResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "u1", got.OwnerID)

	rec = do(t, router, http.MethodPost, "/api/v1/posts", token(t, "u1", time.Hour), `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/posts", token(t, "u1", time.Hour), `{"unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPostBody(t *testing.T) {
	_, router := newTestHandler(&fakePosts{}, nil)

	rec := do(t, router, http.MethodGet, "/api/v1/posts/p9", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got postResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Images, 1)
	assert.Equal(t, "https://signed", got.Images[0].URL)
	assert.Equal(t, "https://cdn/uploads/1-a.png", got.Images[0].Reference)
	assert.Equal(t, 3, got.Likes)
}

func TestFeedPaging(t *testing.T) {
	posts := &fakePosts{}
	_, router := newTestHandler(posts, nil)

	rec := do(t, router, http.MethodGet, "/api/v1/feed?limit=500&offset=10", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Page{Limit: models.MaxPageSize, Offset: 10}, posts.page)

	rec = do(t, router, http.MethodGet, "/api/v1/feed?limit=ten", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit", envelope(t, rec).Field)
}

func TestDeletePost(t *testing.T) {
	posts := &fakePosts{}
	_, router := newTestHandler(posts, nil)

	rec := do(t, router, http.MethodDelete, "/api/v1/posts/p1", token(t, "u1", time.Hour), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "p1", posts.postID)
}

func TestRequestUpload(t *testing.T) {
	_, router := newTestHandler(&fakePosts{}, nil)

	rec := do(t, router, http.MethodPost, "/api/v1/uploads", token(t, "u1", time.Hour),
		`{"fileName":"a.png","contentType":"image/png"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "temp/u1/1-a.png", got.Key)
	assert.Equal(t, "https://put", got.UploadURL)
}

func TestHealthAndMetrics(t *testing.T) {
	_, router := newTestHandler(&fakePosts{}, nil)

	rec := do(t, router, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	do(t, router, http.MethodGet, "/api/v1/posts/p1", "", "")
	rec = do(t, router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/v1/posts/{postID}`)
}

func TestObjectsMount(t *testing.T) {
	store := objstore.NewMemory("http://example.com", []byte("k"))
	_, router := newTestHandler(&fakePosts{}, store.Handler(""))

	putURL, err := store.PresignPut(context.Background(), "temp/u1/1-a.png", "image/png", time.Minute)
	require.NoError(t, err)
	path := strings.TrimPrefix(putURL, "http://example.com")

	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader("pixels"))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, store.Has("temp/u1/1-a.png"))

	rec = do(t, router, http.MethodGet, "/trash/1-a.png", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "trash is never served")
}

func TestHTTPServer_RunStopsOnCancel(t *testing.T) {
	s := NewHTTPServer("127.0.0.1:0", http.NotFoundHandler(), logging.Discard(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
