package access

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

// ListFilter is the decision table as a row predicate:
//
//	owner = viewer
//	OR (NOT draft AND (visibility = PUBLIC
//	                   OR (visibility = FOLLOWERS AND owner IN followed)))
//
// For any viewer other than the owner this equals
// "NOT draft AND (PUBLIC OR (FOLLOWERS AND owner IN followed))"; the owner
// branch keeps it in agreement with Decide for the owner's own drafts.
type ListFilter struct {
	viewer   Viewer
	followed map[string]struct{}
	ids      []string
}

func NewListFilter(v Viewer, followed []string) *ListFilter {
	f := &ListFilter{viewer: v, followed: make(map[string]struct{}, len(followed))}
	if v.IsAnonymous() {
		return f
	}
	for _, id := range followed {
		if id == "" {
			continue
		}
		if _, dup := f.followed[id]; dup {
			continue
		}
		f.followed[id] = struct{}{}
		f.ids = append(f.ids, id)
	}
	sort.Strings(f.ids)
	return f
}

func (f *ListFilter) Viewer() Viewer { return f.viewer }

// Follows reports whether the viewer follows ownerID.
func (f *ListFilter) Follows(ownerID string) bool {
	_, ok := f.followed[ownerID]
	return ok
}

// Allows evaluates the predicate in memory.
func (f *ListFilter) Allows(it Item) bool {
	return Decide(f.viewer, it, f.Follows(it.OwnerID)).Allowed
}

// Columns names the columns the predicate is rendered against. Draft may be
// empty for tables without drafts.
type Columns struct {
	Owner      string
	Visibility string
	Draft      string
}

// SQL renders the predicate with PostgreSQL positional parameters starting
// at $firstArg. The returned args must be appended to the query's own args.
func (f *ListFilter) SQL(c Columns, firstArg int) (string, []any) {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", firstArg+len(args)-1)
	}

	visible := []string{fmt.Sprintf("%s = '%s'", c.Visibility, models.VisibilityPublic)}
	if len(f.ids) > 0 {
		ph := make([]string, len(f.ids))
		for i, id := range f.ids {
			ph[i] = next(id)
		}
		visible = append(visible, fmt.Sprintf("(%s = '%s' AND %s IN (%s))",
			c.Visibility, models.VisibilityFollowers, c.Owner, strings.Join(ph, ", ")))
	}

	published := "(" + strings.Join(visible, " OR ") + ")"
	if c.Draft != "" {
		published = fmt.Sprintf("(NOT %s AND %s)", c.Draft, published)
	}

	if f.viewer.IsAnonymous() {
		return published, args
	}
	return fmt.Sprintf("(%s = %s OR %s)", c.Owner, next(f.viewer.ID), published), args
}
