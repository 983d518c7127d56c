// Package access decides which viewers may see which posts, collections and
// profiles. The decision table in Decide is the only policy; ListFilter is
// the same table rendered as a query predicate for list endpoints.
package access

import (
	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

// Viewer is the identity a request acts as. The zero value is anonymous.
type Viewer struct {
	ID string
}

// Anonymous is the viewer of unauthenticated requests.
var Anonymous = Viewer{}

func (v Viewer) IsAnonymous() bool { return v.ID == "" }

// Is reports whether the viewer is the given, non-empty user.
func (v Viewer) Is(userID string) bool { return !v.IsAnonymous() && v.ID == userID }

// Item is the visibility-relevant projection of a post or collection.
type Item struct {
	OwnerID    string
	Visibility models.Visibility
	IsDraft    bool
}

// Reason explains a denial.
type Reason uint8

const (
	ReasonNone Reason = iota
	// ReasonForbidden: the viewer is known and will not get access.
	ReasonForbidden
	// ReasonUnauthorized: anonymous viewer, signing in might grant access.
	ReasonUnauthorized
	// ReasonNotFound: the item must not be acknowledged at all (drafts).
	ReasonNotFound
)

func (r Reason) String() string {
	switch r {
	case ReasonForbidden:
		return "FORBIDDEN"
	case ReasonUnauthorized:
		return "UNAUTHORIZED"
	case ReasonNotFound:
		return "NOT_FOUND"
	default:
		return "NONE"
	}
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

var allow = Decision{Allowed: true}

func deny(r Reason) Decision { return Decision{Reason: r} }

// Err converts a denial into a tagged error; an allow yields nil.
func (d Decision) Err(op string) error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonUnauthorized:
		return &common.Error{Kind: common.KindUnauthorized, Op: op, Msg: "sign in to view this content"}
	case d.Reason == ReasonNotFound:
		return &common.Error{Kind: common.KindNotFound, Op: op, Msg: "not found"}
	default:
		return &common.Error{Kind: common.KindForbidden, Op: op, Msg: "this content is private"}
	}
}

// Decide is the visibility decision table. following tells whether the
// edge viewer -> owner exists; it is ignored unless the item is FOLLOWERS
// and the viewer is neither anonymous nor the owner.
func Decide(v Viewer, it Item, following bool) Decision {
	owner := v.Is(it.OwnerID)
	switch {
	case it.IsDraft:
		if owner {
			return allow
		}
		return deny(ReasonNotFound)
	case owner:
		return allow
	case it.Visibility == models.VisibilityPublic:
		return allow
	case it.Visibility == models.VisibilityFollowers:
		if v.IsAnonymous() {
			return deny(ReasonUnauthorized)
		}
		if following {
			return allow
		}
		return deny(ReasonForbidden)
	default:
		// PRIVATE and anything unrecognised.
		return deny(ReasonForbidden)
	}
}

// needsFollowEdge reports whether Decide depends on the follow edge for this
// pair, i.e. whether a lookup is worth making.
func needsFollowEdge(v Viewer, it Item) bool {
	return !it.IsDraft &&
		it.Visibility == models.VisibilityFollowers &&
		!v.IsAnonymous() &&
		v.ID != it.OwnerID
}
