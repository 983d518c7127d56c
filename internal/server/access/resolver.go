package access

import (
	"context"

	"github.com/dmitrijs2005/gallerist/internal/common"
)

// FollowLookup answers follow-graph questions. An absent edge is a normal
// false result; errors mean the lookup itself failed.
type FollowLookup interface {
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	FollowingIDs(ctx context.Context, followerID string) ([]string, error)
}

// Resolver applies Decide to stored content, fetching follow edges only when
// the table needs them.
type Resolver struct {
	follows FollowLookup
}

func NewResolver(follows FollowLookup) *Resolver {
	return &Resolver{follows: follows}
}

// ResolveItem decides a single item for a detail page. Lookup failures are
// returned as KindStoreTransient and never turned into a denial.
func (r *Resolver) ResolveItem(ctx context.Context, v Viewer, it Item) (Decision, error) {
	following := false
	if needsFollowEdge(v, it) {
		ok, err := r.follows.Exists(ctx, v.ID, it.OwnerID)
		if err != nil {
			return Decision{}, common.Transient("access.ResolveItem", err)
		}
		following = ok
	}
	return Decide(v, it, following), nil
}

// Authorize is ResolveItem folded into a single error: nil on allow, a
// tagged denial or transient error otherwise.
func (r *Resolver) Authorize(ctx context.Context, op string, v Viewer, it Item) error {
	d, err := r.ResolveItem(ctx, v, it)
	if err != nil {
		return err
	}
	return d.Err(op)
}

// ListFilter loads the viewer's followed set once. The result is meant to be
// reused for every list query of the same request.
func (r *Resolver) ListFilter(ctx context.Context, v Viewer) (*ListFilter, error) {
	if v.IsAnonymous() {
		return NewListFilter(v, nil), nil
	}
	ids, err := r.follows.FollowingIDs(ctx, v.ID)
	if err != nil {
		return nil, common.Transient("access.ListFilter", err)
	}
	return NewListFilter(v, ids), nil
}
