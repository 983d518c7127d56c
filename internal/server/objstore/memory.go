package objstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gallerist/internal/common"
)

// Operation names accepted by Memory.Fail.
const (
	OpPresignPut = "presign_put"
	OpPresignGet = "presign_get"
	OpCopy       = "copy"
	OpDelete     = "delete"
	OpExists     = "exists"
)

type memObject struct {
	data        []byte
	contentType string
}

// Memory is an in-process object store. Its presigned URLs point at
// Handler, which verifies an HMAC signature and expiry before serving them.
// Faults can be injected per operation and key.
type Memory struct {
	mu       sync.Mutex
	objects  map[string]memObject
	faults   map[string]error
	calls    []string
	baseURL  string
	secret   []byte
	now      func() time.Time
	maxBytes int64
}

func NewMemory(baseURL string, secret []byte) *Memory {
	return &Memory{
		objects:  make(map[string]memObject),
		faults:   make(map[string]error),
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   secret,
		now:      time.Now,
		maxBytes: 32 << 20,
	}
}

// Fail makes the next and every later call of op on key return err. An
// empty key matches every key. A nil err clears the fault.
func (m *Memory) Fail(op, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op+"|"+key)
		return
	}
	m.faults[op+"|"+key] = err
}

// Put stores an object directly, as if uploaded.
func (m *Memory) Put(key string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: append([]byte(nil), data...), contentType: contentType}
}

// Has reports whether key is stored.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Keys lists stored keys in order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Calls returns the "op key" log of every operation so far.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// enter records a call and returns an injected fault, if any. Callers hold mu.
func (m *Memory) enter(op, key string) error {
	m.calls = append(m.calls, op+" "+key)
	if err, ok := m.faults[op+"|"+key]; ok {
		return err
	}
	if err, ok := m.faults[op+"|"]; ok {
		return err
	}
	return nil
}

func (m *Memory) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpPresignPut, key); err != nil {
		return "", err
	}
	return m.sign(http.MethodPut, key, contentType, ttl), nil
}

func (m *Memory) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpPresignGet, key); err != nil {
		return "", err
	}
	return m.sign(http.MethodGet, key, "", ttl), nil
}

func (m *Memory) Copy(ctx context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCopy, srcKey); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	obj, ok := m.objects[srcKey]
	if !ok {
		return fmt.Errorf("memory: copy %s: %w", srcKey, common.ErrObjectNotFound)
	}
	m.objects[dstKey] = obj
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDelete, key); err != nil {
		return err
	}
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("memory: delete %s: %w", key, common.ErrObjectNotFound)
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpExists, key); err != nil {
		return false, err
	}
	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) sign(method, key, contentType string, ttl time.Duration) string {
	expires := strconv.FormatInt(m.now().Add(ttl).Unix(), 10)
	q := url.Values{}
	q.Set("X-Method", method)
	q.Set("X-Expires", expires)
	if contentType != "" {
		q.Set("X-Content-Type", contentType)
	}
	q.Set("X-Signature", m.mac(method, key, contentType, expires))
	return m.baseURL + "/" + key + "?" + q.Encode()
}

func (m *Memory) mac(method, key, contentType, expires string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(method + "\n" + key + "\n" + contentType + "\n" + expires))
	return hex.EncodeToString(h.Sum(nil))
}

func (m *Memory) clock() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now()
}

// SetClock replaces the time source used for signing and expiry.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// verify checks a request against its presigned query.
func (m *Memory) verify(r *http.Request, key string) (string, error) {
	q := r.URL.Query()
	if q.Get("X-Method") != r.Method {
		return "", fmt.Errorf("method not signed")
	}
	expires := q.Get("X-Expires")
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || m.clock().Unix() > exp {
		return "", fmt.Errorf("capability expired")
	}
	ct := q.Get("X-Content-Type")
	want := m.mac(r.Method, key, ct, expires)
	if !hmac.Equal([]byte(want), []byte(q.Get("X-Signature"))) {
		return "", fmt.Errorf("bad signature")
	}
	if r.Method == http.MethodPut && r.Header.Get("Content-Type") != ct {
		return "", fmt.Errorf("content type mismatch")
	}
	return ct, nil
}

// Handler serves presigned PUT and GET requests. It must be mounted so that
// the request path below prefix is the object key.
func (m *Memory) Handler(prefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")
		if key == "" {
			http.NotFound(w, r)
			return
		}

		ct, err := m.verify(r, key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}

		switch r.Method {
		case http.MethodPut:
			data, err := io.ReadAll(io.LimitReader(r.Body, m.maxBytes))
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			m.Put(key, data, ct)
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			m.mu.Lock()
			obj, ok := m.objects[key]
			m.mu.Unlock()
			if !ok {
				http.NotFound(w, r)
				return
			}
			if obj.contentType != "" {
				w.Header().Set("Content-Type", obj.contentType)
			}
			_, _ = w.Write(obj.data)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}
