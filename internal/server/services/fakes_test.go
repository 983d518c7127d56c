package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/dbx"
	"github.com/dmitrijs2005/gallerist/internal/logging"
	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/assets"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
	"github.com/dmitrijs2005/gallerist/internal/server/objstore"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/collections"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/comments"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/follows"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/likes"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/posts"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/users"
)

const testBase = "https://cdn.example.com"

// world is an in-memory database behind the fake repositories. List
// methods apply the ListFilter through Allows, which agrees with its SQL.
type world struct {
	mu sync.Mutex

	users       map[string]*models.Profile
	posts       map[string]*models.Post
	images      map[string][]models.PostImage
	collections map[string]*models.Collection
	members     map[string][]string
	follows     map[[2]string]bool
	likes       map[[2]string]bool
	comments    []*models.Comment

	clock         time.Time
	followLookups int

	// replaceImagesErr fails ReplaceImages, simulating a failed commit.
	replaceImagesErr error
}

func newWorld() *world {
	return &world{
		users:       map[string]*models.Profile{},
		posts:       map[string]*models.Post{},
		images:      map[string][]models.PostImage{},
		collections: map[string]*models.Collection{},
		members:     map[string][]string{},
		follows:     map[[2]string]bool{},
		likes:       map[[2]string]bool{},
		clock:       time.Unix(1700000000, 0),
	}
}

func (w *world) tick() time.Time {
	w.clock = w.clock.Add(time.Second)
	return w.clock
}

func (w *world) addUser(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := uuid.NewString()
	w.users[id] = &models.Profile{ID: id, UserName: name, CreatedAt: w.tick()}
	return id
}

type fakeRepoManager struct {
	w *world
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return &fakeUsers{m.w} }
func (m *fakeRepoManager) Posts(dbx.DBTX) posts.Repository              { return &fakePosts{m.w} }
func (m *fakeRepoManager) Collections(dbx.DBTX) collections.Repository  { return &fakeCollections{m.w} }
func (m *fakeRepoManager) Follows(dbx.DBTX) follows.Repository          { return &fakeFollows{m.w} }
func (m *fakeRepoManager) Likes(dbx.DBTX) likes.Repository              { return &fakeLikes{m.w} }
func (m *fakeRepoManager) Comments(dbx.DBTX) comments.Repository        { return &fakeComments{m.w} }

type fakeUsers struct{ w *world }

func (r *fakeUsers) Create(_ context.Context, p *models.Profile) (*models.Profile, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	p.ID = uuid.NewString()
	cp := *p
	r.w.users[p.ID] = &cp
	return p, nil
}

func (r *fakeUsers) GetByID(_ context.Context, id string) (*models.Profile, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	p, ok := r.w.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeUsers) GetByUserName(_ context.Context, name string) (*models.Profile, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for _, p := range r.w.users {
		if p.UserName == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsers) UpdateProfile(_ context.Context, p *models.Profile) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	u, ok := r.w.users[p.ID]
	if !ok {
		return common.ErrorNotFound
	}
	u.DisplayName, u.Bio = p.DisplayName, p.Bio
	return nil
}

func (r *fakeUsers) UpdateAvatar(_ context.Context, id, ref string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	u, ok := r.w.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.AvatarURL = ref
	return nil
}

type fakePosts struct{ w *world }

func (r *fakePosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = r.w.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	cp.Images = nil
	r.w.posts[p.ID] = &cp
	return p, nil
}

func (r *fakePosts) GetByID(_ context.Context, id string) (*models.Post, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	p, ok := r.w.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePosts) Update(_ context.Context, p *models.Post) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if _, ok := r.w.posts[p.ID]; !ok {
		return common.ErrorNotFound
	}
	p.UpdatedAt = r.w.tick()
	cp := *p
	cp.Images = nil
	r.w.posts[p.ID] = &cp
	return nil
}

func (r *fakePosts) Delete(_ context.Context, id string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if _, ok := r.w.posts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.w.posts, id)
	delete(r.w.images, id)
	return nil
}

func (r *fakePosts) list(filter *access.ListFilter, page models.Page, keep func(*models.Post) bool) []*models.Post {
	var out []*models.Post
	for _, p := range r.w.posts {
		if keep(p) && filter.Allows(postItem(p)) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, page)
}

func (r *fakePosts) ListByOwner(_ context.Context, ownerID string, filter *access.ListFilter, page models.Page) ([]*models.Post, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return r.list(filter, page, func(p *models.Post) bool { return p.OwnerID == ownerID }), nil
}

func (r *fakePosts) Feed(_ context.Context, filter *access.ListFilter, page models.Page) ([]*models.Post, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return r.list(filter, page, func(*models.Post) bool { return true }), nil
}

func (r *fakePosts) Images(_ context.Context, ids ...string) (map[string][]models.PostImage, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	out := map[string][]models.PostImage{}
	for _, id := range ids {
		if imgs, ok := r.w.images[id]; ok {
			out[id] = append([]models.PostImage(nil), imgs...)
		}
	}
	return out, nil
}

func (r *fakePosts) ReplaceImages(_ context.Context, postID string, images []models.PostImage) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if r.w.replaceImagesErr != nil {
		return r.w.replaceImagesErr
	}
	rows := make([]models.PostImage, len(images))
	for i, img := range images {
		img.ID = uuid.NewString()
		img.PostID = postID
		rows[i] = img
	}
	r.w.images[postID] = rows
	return nil
}

type fakeCollections struct{ w *world }

func (r *fakeCollections) Create(_ context.Context, c *models.Collection) (*models.Collection, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = r.w.tick()
	cp := *c
	r.w.collections[c.ID] = &cp
	return c, nil
}

func (r *fakeCollections) GetByID(_ context.Context, id string) (*models.Collection, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	c, ok := r.w.collections[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCollections) Update(_ context.Context, c *models.Collection) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if _, ok := r.w.collections[c.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *c
	r.w.collections[c.ID] = &cp
	return nil
}

func (r *fakeCollections) Delete(_ context.Context, id string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	if _, ok := r.w.collections[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.w.collections, id)
	delete(r.w.members, id)
	return nil
}

func (r *fakeCollections) ListByOwner(_ context.Context, ownerID string, filter *access.ListFilter, page models.Page) ([]*models.Collection, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []*models.Collection
	for _, c := range r.w.collections {
		if c.OwnerID == ownerID && filter.Allows(collectionItem(c)) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, page), nil
}

func (r *fakeCollections) AddPost(_ context.Context, collectionID, postID string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	for _, id := range r.w.members[collectionID] {
		if id == postID {
			return nil
		}
	}
	r.w.members[collectionID] = append(r.w.members[collectionID], postID)
	return nil
}

func (r *fakeCollections) RemovePost(_ context.Context, collectionID, postID string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	ids := r.w.members[collectionID]
	for i, id := range ids {
		if id == postID {
			r.w.members[collectionID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *fakeCollections) ListPosts(_ context.Context, collectionID string, filter *access.ListFilter, page models.Page) ([]*models.Post, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []*models.Post
	ids := r.w.members[collectionID]
	for i := len(ids) - 1; i >= 0; i-- {
		if p, ok := r.w.posts[ids[i]]; ok && filter.Allows(postItem(p)) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return window(out, page), nil
}

type fakeFollows struct{ w *world }

func (r *fakeFollows) Follow(_ context.Context, follower, following string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.follows[[2]string{follower, following}] = true
	return nil
}

func (r *fakeFollows) Unfollow(_ context.Context, follower, following string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	delete(r.w.follows, [2]string{follower, following})
	return nil
}

func (r *fakeFollows) Exists(_ context.Context, follower, following string) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.followLookups++
	return r.w.follows[[2]string{follower, following}], nil
}

func (r *fakeFollows) FollowingIDs(_ context.Context, follower string) ([]string, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.followLookups++
	var out []string
	for e := range r.w.follows {
		if e[0] == follower {
			out = append(out, e[1])
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeFollows) Stats(_ context.Context, userID string) (models.ProfileStats, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var s models.ProfileStats
	for e := range r.w.follows {
		if e[1] == userID {
			s.Followers++
		}
		if e[0] == userID {
			s.Following++
		}
	}
	return s, nil
}

type fakeLikes struct{ w *world }

func (r *fakeLikes) Like(_ context.Context, userID, postID string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.w.likes[[2]string{userID, postID}] = true
	return nil
}

func (r *fakeLikes) Unlike(_ context.Context, userID, postID string) error {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	delete(r.w.likes, [2]string{userID, postID})
	return nil
}

func (r *fakeLikes) Count(_ context.Context, postID string) (int, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	n := 0
	for e := range r.w.likes {
		if e[1] == postID {
			n++
		}
	}
	return n, nil
}

func (r *fakeLikes) HasLiked(_ context.Context, userID, postID string) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return r.w.likes[[2]string{userID, postID}], nil
}

type fakeComments struct{ w *world }

func (r *fakeComments) Add(_ context.Context, c *models.Comment) (*models.Comment, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = r.w.tick()
	cp := *c
	r.w.comments = append(r.w.comments, &cp)
	return c, nil
}

func (r *fakeComments) List(_ context.Context, postID string, page models.Page) ([]*models.Comment, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	var out []*models.Comment
	for _, c := range r.w.comments {
		if c.PostID == postID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return window(out, page), nil
}

func window[T any](list []T, page models.Page) []T {
	page = page.Normalize()
	if page.Offset >= len(list) {
		return nil
	}
	list = list[page.Offset:]
	if len(list) > page.Limit {
		list = list[:page.Limit]
	}
	return list
}

// env bundles a service test setup: sqlmock for transactions, the fake
// world, an in-memory object store and the asset manager over it.
type env struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	w       *world
	rm      *fakeRepoManager
	store   *objstore.Memory
	assets  *assets.Manager
	janitor *assets.Janitor
	uploads int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	w := newWorld()
	store := objstore.NewMemory("http://blobs.test", []byte("k"))
	am := assets.NewManager(store, assets.Options{PublicBaseURL: testBase}, logging.Discard())
	return &env{
		db:      db,
		mock:    mock,
		w:       w,
		rm:      &fakeRepoManager{w: w},
		store:   store,
		assets:  am,
		janitor: assets.NewJanitor(am, logging.Discard()),
	}
}

// upload stages an object for owner as a client would after a presigned PUT
// and returns its reference.
func (e *env) upload(owner, name string) string {
	e.uploads++
	key := assets.StagedKey(owner, time.UnixMilli(int64(1700000000000+e.uploads)), name)
	e.store.Put(key, []byte(name), "image/png")
	return e.assets.Reference(key)
}

// expectTx queues n successful transactions.
func (e *env) expectTx(n int) {
	for i := 0; i < n; i++ {
		e.mock.ExpectBegin()
		e.mock.ExpectCommit()
	}
}

// drain waits for scheduled cleanups.
func (e *env) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.janitor.Wait(ctx); err != nil {
		t.Fatalf("janitor did not finish: %v", err)
	}
}

func (e *env) posts() *PostService {
	return NewPostService(e.db, e.rm, e.assets, e.janitor, logging.Discard())
}

func (e *env) collections() *CollectionService {
	return NewCollectionService(e.db, e.rm, e.assets, e.janitor, logging.Discard())
}

func (e *env) profiles() *ProfileService {
	return NewProfileService(e.db, e.rm, e.assets, e.janitor, logging.Discard())
}

func (e *env) follows() *FollowService {
	return NewFollowService(e.db, e.rm, logging.Discard())
}

// keyOf is ExtractKey for references known to be valid.
func keyOf(t *testing.T, ref string) string {
	t.Helper()
	k, err := assets.ExtractKey(ref)
	if err != nil {
		t.Fatalf("ExtractKey(%q): %v", ref, err)
	}
	return k
}

func as(id string) access.Viewer { return access.Viewer{ID: id} }

var errBoom = errors.New("boom")
