// Package assets manages the lifecycle of uploaded binary objects:
// staged -> permanent -> trashed -> purged. State lives only in the object
// key prefix. The manager mints upload and view capabilities and moves
// objects between states with idempotent, step-wise copies.
package assets

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/logging"
)

// Options configures a Manager. Zero durations and limits fall back to the
// defaults below.
type Options struct {
	// PublicBaseURL prefixes every reference. It must not carry a path.
	PublicBaseURL   string
	UploadTTL       time.Duration
	ViewTTL         time.Duration
	OpTimeout       time.Duration
	SignConcurrency int
	// SignCacheSize bounds an optional cache of minted view URLs. Zero, the
	// default, mints a fresh URL on every call.
	SignCacheSize int
}

const (
	defaultTTL         = time.Hour
	defaultOpTimeout   = 10 * time.Second
	defaultConcurrency = 8
)

type Manager struct {
	store      ObjectStore
	publicBase string
	uploadTTL  time.Duration
	viewTTL    time.Duration
	opTimeout  time.Duration
	signLimit  int
	signed     *expirable.LRU[string, string]
	logger     logging.Logger
	now        func() time.Time
}

func NewManager(store ObjectStore, opts Options, logger logging.Logger) *Manager {
	m := &Manager{
		store:      store,
		publicBase: strings.TrimRight(opts.PublicBaseURL, "/"),
		uploadTTL:  orDuration(opts.UploadTTL, defaultTTL),
		viewTTL:    orDuration(opts.ViewTTL, defaultTTL),
		opTimeout:  orDuration(opts.OpTimeout, defaultOpTimeout),
		signLimit:  opts.SignConcurrency,
		logger:     logger.With("module", "assets"),
		now:        time.Now,
	}
	if m.signLimit <= 0 {
		m.signLimit = defaultConcurrency
	}
	if opts.SignCacheSize > 0 {
		// Cached URLs are handed out for at most half their lifetime, so a
		// client always gets at least ViewTTL/2 of validity.
		m.signed = expirable.NewLRU[string, string](opts.SignCacheSize, nil, m.viewTTL/2)
	}
	return m
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Reference renders the public reference of a key.
func (m *Manager) Reference(key string) string {
	return m.publicBase + "/" + key
}

// call runs one object-store operation under the per-call timeout.
func (m *Manager) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	start := time.Now()
	err := fn(ctx)
	storeCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

// UploadCapability is a presigned PUT for a freshly staged key.
type UploadCapability struct {
	UploadURL string
	Key       string
	Reference string
	ExpiresAt time.Time
}

// IssueUploadCapability stages a key under the owner's namespace and mints
// a PUT URL for it. Nothing is written to the store. The content type must
// have been checked with AllowedContentType.
func (m *Manager) IssueUploadCapability(ctx context.Context, fileName, contentType, ownerID string) (*UploadCapability, error) {
	const op = "assets.IssueUploadCapability"

	if ownerID == "" || strings.Contains(ownerID, "/") {
		return nil, common.Validation(op, "owner", "invalid owner")
	}
	if contentType == "" {
		return nil, common.Validation(op, "contentType", "content type is required")
	}

	now := m.now()
	key := StagedKey(ownerID, now, SanitizeName(fileName))

	var url string
	err := m.call(ctx, "presign_put", func(ctx context.Context) error {
		var err error
		url, err = m.store.PresignPut(ctx, key, contentType, m.uploadTTL)
		return err
	})
	if err != nil {
		return nil, common.Transient(op, err)
	}

	return &UploadCapability{
		UploadURL: url,
		Key:       key,
		Reference: m.Reference(key),
		ExpiresAt: now.Add(m.uploadTTL),
	}, nil
}

// Promotion is the outcome of Promote.
type Promotion struct {
	// Reference is the permanent reference to persist.
	Reference string
	// SourceMissing is set when the staged object was already gone but an
	// earlier promotion of it was verified to have completed.
	SourceMissing bool
}

// Promote moves a staged object to its permanent key. A permanent reference
// is returned as given, minus any query string, without touching the store. The steps are
// copy to the permanent key, copy to a trash shadow, delete the staged key;
// each is safe to repeat, so a failed promotion is retried by calling
// Promote again with the same reference.
func (m *Manager) Promote(ctx context.Context, ref string) (Promotion, error) {
	const op = "assets.Promote"

	key, err := ExtractKey(ref)
	if err != nil {
		return Promotion{}, err
	}

	switch StateOf(key) {
	case StatePermanent:
		promotionsTotal.WithLabelValues(resultAlreadyFinal).Inc()
		unsigned, _, _ := strings.Cut(ref, "?")
		return Promotion{Reference: unsigned}, nil
	case StateStaged:
	default:
		return Promotion{}, common.Validation(op, "reference", "reference is not an uploaded asset")
	}

	dest, err := PermanentKey(key)
	if err != nil {
		return Promotion{}, err
	}

	err = m.call(ctx, "copy", func(ctx context.Context) error { return m.store.Copy(ctx, key, dest) })
	if errors.Is(err, common.ErrObjectNotFound) {
		return m.verifyPromoted(ctx, key, dest)
	}
	if err != nil {
		promotionsTotal.WithLabelValues(resultError).Inc()
		return Promotion{}, common.Transient(op, err)
	}

	shadow := TrashKey(key, m.now())
	err = m.call(ctx, "copy", func(ctx context.Context) error { return m.store.Copy(ctx, key, shadow) })
	if err != nil && !errors.Is(err, common.ErrObjectNotFound) {
		promotionsTotal.WithLabelValues(resultError).Inc()
		return Promotion{}, common.Transient(op, err)
	}

	err = m.call(ctx, "delete", func(ctx context.Context) error { return m.store.Delete(ctx, key) })
	if err != nil && !errors.Is(err, common.ErrObjectNotFound) {
		promotionsTotal.WithLabelValues(resultError).Inc()
		return Promotion{}, common.Transient(op, err)
	}

	promotionsTotal.WithLabelValues(resultPromoted).Inc()
	m.logger.Debug(ctx, "asset promoted", "from", key, "to", dest)
	return Promotion{Reference: m.Reference(dest)}, nil
}

// verifyPromoted handles a vanished staged object: if its deterministic
// destination exists an earlier attempt finished, otherwise the upload never
// happened or was lost.
func (m *Manager) verifyPromoted(ctx context.Context, key, dest string) (Promotion, error) {
	const op = "assets.Promote"

	var exists bool
	err := m.call(ctx, "exists", func(ctx context.Context) error {
		var err error
		exists, err = m.store.Exists(ctx, dest)
		return err
	})
	if err != nil {
		promotionsTotal.WithLabelValues(resultError).Inc()
		return Promotion{}, common.Transient(op, err)
	}

	if !exists {
		promotionsTotal.WithLabelValues(resultSourceMissing).Inc()
		m.logger.Warn(ctx, "staged asset missing", "key", key)
		return Promotion{}, &common.Error{
			Kind:  common.KindSourceMissing,
			Op:    op,
			Field: "reference",
			Msg:   "upload not found",
			Err:   common.ErrObjectNotFound,
		}
	}

	promotionsTotal.WithLabelValues(resultVerified).Inc()
	m.logger.Info(ctx, "staged asset already promoted", "key", key, "to", dest)
	return Promotion{Reference: m.Reference(dest), SourceMissing: true}, nil
}

// SoftDelete moves an object to trash. Trashed and missing objects are left
// alone.
func (m *Manager) SoftDelete(ctx context.Context, ref string) error {
	const op = "assets.SoftDelete"

	key, err := ExtractKey(ref)
	if err != nil {
		return err
	}
	switch StateOf(key) {
	case StateTrashed:
		return nil
	case StateUnknown:
		return common.Validation(op, "reference", "reference is not an asset")
	}

	trash := TrashKey(key, m.now())
	err = m.call(ctx, "copy", func(ctx context.Context) error { return m.store.Copy(ctx, key, trash) })
	if errors.Is(err, common.ErrObjectNotFound) {
		return nil
	}
	if err != nil {
		return common.Transient(op, err)
	}

	err = m.call(ctx, "delete", func(ctx context.Context) error { return m.store.Delete(ctx, key) })
	if err != nil && !errors.Is(err, common.ErrObjectNotFound) {
		return common.Transient(op, err)
	}
	m.forget(key)
	return nil
}

// Purge deletes an object outright. A missing object is not an error.
func (m *Manager) Purge(ctx context.Context, ref string) error {
	const op = "assets.Purge"

	key, err := ExtractKey(ref)
	if err != nil {
		return err
	}
	err = m.call(ctx, "delete", func(ctx context.Context) error { return m.store.Delete(ctx, key) })
	if err != nil && !errors.Is(err, common.ErrObjectNotFound) {
		return common.Transient(op, err)
	}
	m.forget(key)
	return nil
}

// MintViewCapability returns a time-limited GET URL for ref. The object's
// state is not checked.
func (m *Manager) MintViewCapability(ctx context.Context, ref string) (string, error) {
	const op = "assets.MintViewCapability"

	key, err := ExtractKey(ref)
	if err != nil {
		return "", err
	}
	if m.signed != nil {
		if url, ok := m.signed.Get(key); ok {
			return url, nil
		}
	}

	var url string
	err = m.call(ctx, "presign_get", func(ctx context.Context) error {
		var err error
		url, err = m.store.PresignGet(ctx, key, m.viewTTL)
		return err
	})
	if err != nil {
		return "", common.Transient(op, err)
	}
	if m.signed != nil {
		m.signed.Add(key, url)
	}
	return url, nil
}

func (m *Manager) forget(key string) {
	if m.signed != nil {
		m.signed.Remove(key)
	}
}

// SignAll mints view capabilities for refs concurrently. The result maps
// each non-empty input reference to its signed URL, or to the reference
// itself when signing failed. It never fails as a whole.
func (m *Manager) SignAll(ctx context.Context, refs []string) map[string]string {
	out := make(map[string]string, len(refs))
	var pending []string
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if _, seen := out[ref]; seen {
			continue
		}
		out[ref] = ref
		pending = append(pending, ref)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(m.signLimit)

	for _, ref := range pending {
		g.Go(func() error {
			url, err := m.MintViewCapability(ctx, ref)
			if err != nil {
				signFallbacksTotal.Inc()
				m.logger.Warn(ctx, "view capability fallback", "ref", ref, "error", err)
				return nil
			}
			mu.Lock()
			out[ref] = url
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}
