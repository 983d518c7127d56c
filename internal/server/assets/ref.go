package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/gallerist/internal/common"
)

// Key prefixes. The prefix of an object key is the only record of its
// lifecycle state.
const (
	PrefixStaged    = "temp/"
	PrefixPermanent = "uploads/"
	PrefixTrash     = "trash/"
)

// State is the lifecycle state encoded in a key. Purged objects have no key
// left to inspect, so there is no state for them.
type State uint8

const (
	StateUnknown State = iota
	StateStaged
	StatePermanent
	StateTrashed
)

func (s State) String() string {
	switch s {
	case StateStaged:
		return "staged"
	case StatePermanent:
		return "permanent"
	case StateTrashed:
		return "trashed"
	default:
		return "unknown"
	}
}

// StateOf interprets the key prefix.
func StateOf(key string) State {
	switch {
	case strings.HasPrefix(key, PrefixStaged):
		return StateStaged
	case strings.HasPrefix(key, PrefixPermanent):
		return StatePermanent
	case strings.HasPrefix(key, PrefixTrash):
		return StateTrashed
	default:
		return StateUnknown
	}
}

// ExtractKey returns the object key of a reference. It accepts bare keys,
// public URLs and signed URLs: everything from the first '?' is dropped, the
// URL path is taken and its leading slash removed.
func ExtractKey(ref string) (string, error) {
	const op = "assets.ExtractKey"

	if i := strings.IndexByte(ref, '?'); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", common.Validation(op, "reference", "empty asset reference")
	}

	path := ref
	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", &common.Error{Kind: common.KindValidation, Op: op, Field: "reference", Msg: "malformed asset reference", Err: err}
		}
		path = u.Path
	}

	key := strings.TrimLeft(path, "/")
	if key == "" {
		return "", common.Validation(op, "reference", "asset reference has no key")
	}
	return key, nil
}

// SanitizeName maps whitespace to '_' and drops everything outside
// [A-Za-z0-9._-]. An empty result becomes "file".
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r < unicode.MaxASCII && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-'):
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

// StagedKey builds temp/<owner>/<millis>-<name>. name must already be
// sanitized.
func StagedKey(ownerID string, at time.Time, name string) string {
	return fmt.Sprintf("%s%s/%d-%s", PrefixStaged, ownerID, at.UnixMilli(), name)
}

// StagedOwner returns the owner segment of a staged key.
func StagedOwner(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, PrefixStaged)
	if !ok {
		return "", false
	}
	owner, file, ok := strings.Cut(rest, "/")
	if !ok || owner == "" || file == "" || strings.Contains(file, "/") {
		return "", false
	}
	return owner, true
}

// PermanentKey derives the promotion destination of a staged key:
// uploads/<stagedMillis>-<digest>-<name>. The same staged key always maps to
// the same destination, so a retried promotion can check whether an earlier
// attempt already finished.
func PermanentKey(stagedKey string) (string, error) {
	if _, ok := StagedOwner(stagedKey); !ok {
		return "", common.Validation("assets.PermanentKey", "reference", "not a staged key")
	}
	millis, name := splitStamp(lastSegment(stagedKey))
	sum := sha256.Sum256([]byte(stagedKey))
	return fmt.Sprintf("%s%s-%s-%s", PrefixPermanent, millis, hex.EncodeToString(sum[:4]), name), nil
}

// TrashKey builds trash/<millis>-<name> for any key.
func TrashKey(key string, at time.Time) string {
	return fmt.Sprintf("%s%d-%s", PrefixTrash, at.UnixMilli(), NameOf(key))
}

// NameOf recovers the sanitized file name embedded in a key.
func NameOf(key string) string {
	seg := lastSegment(key)
	switch StateOf(key) {
	case StateStaged, StateTrashed:
		_, name := splitStamp(seg)
		return name
	case StatePermanent:
		_, rest := splitStamp(seg)
		if d, name, ok := strings.Cut(rest, "-"); ok && isHex(d) {
			return name
		}
		return rest
	default:
		return SanitizeName(seg)
	}
}

func lastSegment(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// splitStamp splits "<millis>-<rest>". Without a numeric stamp the whole
// segment is returned as rest.
func splitStamp(seg string) (string, string) {
	stamp, rest, ok := strings.Cut(seg, "-")
	if !ok || rest == "" {
		return "0", seg
	}
	if _, err := strconv.ParseInt(stamp, 10, 64); err != nil {
		return "0", seg
	}
	return stamp, rest
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil && len(s)%2 == 0
}

var allowedContentTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"image/webp":      {},
	"image/avif":      {},
	"image/heic":      {},
	"video/mp4":       {},
	"video/webm":      {},
	"video/quicktime": {},
}

// AllowedContentType reports whether uploads of this media type are
// accepted. Parameters such as "; charset" are ignored.
func AllowedContentType(ct string) bool {
	ct, _, _ = strings.Cut(ct, ";")
	_, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(ct))]
	return ok
}
