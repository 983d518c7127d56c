// Package services contains server-side business logic: posts, collections,
// profiles, follows and uploads. Every read resolves visibility before it
// signs asset URLs; every write that changes assets diffs them, promotes new
// uploads before the transaction and cleans up removed ones after commit.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/assets"
)

// requireViewer rejects anonymous callers of write operations.
func requireViewer(op string, v access.Viewer) error {
	if v.IsAnonymous() {
		return &common.Error{Kind: common.KindUnauthorized, Op: op, Msg: "sign in required"}
	}
	return nil
}

// dbErr tags a repository error: not found stays NOT_FOUND, anything else
// is a transient store failure.
func dbErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *common.Error
	if errors.As(err, &tagged) {
		return err
	}
	if errors.Is(err, common.ErrorNotFound) {
		return &common.Error{Kind: common.KindNotFound, Op: op, Msg: "not found", Err: err}
	}
	return common.Transient(op, err)
}

// checkID rejects ids that cannot name a row. Such ids are reported as
// NOT_FOUND instead of reaching the database as a cast error.
func checkID(op, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &common.Error{Kind: common.KindNotFound, Op: op, Msg: "not found"}
	}
	return nil
}

func forbidden(op, msg string) error {
	return &common.Error{Kind: common.KindForbidden, Op: op, Msg: msg}
}

// promoted is the outcome of promoting the added side of a diff.
type promoted struct {
	// final maps each added reference to its permanent reference.
	final map[string]string
	// refs are the permanent references this call created, purged if the
	// commit fails.
	refs []string
}

// promoteAdded promotes every added reference in order. On failure the
// references promoted so far are purged and the error is returned; a
// vanished upload is reported as a validation error on field.
func promoteAdded(ctx context.Context, op, field string, m *assets.Manager, j *assets.Janitor, added []string) (*promoted, error) {
	p := &promoted{final: make(map[string]string, len(added))}
	for _, ref := range added {
		res, err := m.Promote(ctx, ref)
		if err != nil {
			_ = j.Run(context.WithoutCancel(ctx), assets.PurgeAll(p.refs...))
			if common.IsKind(err, common.KindSourceMissing) {
				return nil, &common.Error{Kind: common.KindValidation, Op: op, Field: field, Msg: "upload not found", Err: err}
			}
			return nil, err
		}
		p.final[ref] = res.Reference
		if !res.SourceMissing {
			p.refs = append(p.refs, res.Reference)
		}
	}
	return p, nil
}

// prune drops removed references whose key is the destination of a
// promotion. A repeated edit re-sends the staged reference of an upload an
// earlier attempt already committed; that object is persisted again and
// must not be trashed.
func (p *promoted) prune(removed []string) []string {
	if p == nil || len(p.final) == 0 {
		return removed
	}
	final := make(map[string]struct{}, len(p.final))
	for _, ref := range p.final {
		if key, err := assets.ExtractKey(ref); err == nil {
			final[key] = struct{}{}
		}
	}
	out := removed[:0:0]
	for _, ref := range removed {
		if key, err := assets.ExtractKey(ref); err == nil {
			if _, ok := final[key]; ok {
				continue
			}
		}
		out = append(out, ref)
	}
	return out
}

// compensate purges newly promoted objects after a failed commit.
func (p *promoted) compensate(ctx context.Context, j *assets.Janitor) {
	if p == nil || len(p.refs) == 0 {
		return
	}
	_ = j.Run(context.WithoutCancel(ctx), assets.PurgeAll(p.refs...))
}

// resolve returns the reference to persist for an incoming one: the
// persisted form when retained, the permanent form when just promoted.
func (p *promoted) resolve(ref string, retained map[string]string) string {
	if final, ok := p.final[ref]; ok {
		return final
	}
	key, err := assets.ExtractKey(ref)
	if err != nil {
		return ref
	}
	if persisted, ok := retained[key]; ok {
		return persisted
	}
	return ref
}

// byKey indexes references by object key.
func byKey(refs []string) map[string]string {
	out := make(map[string]string, len(refs))
	for _, r := range refs {
		if k, err := assets.ExtractKey(r); err == nil {
			out[k] = r
		}
	}
	return out
}

// slotChange is the outcome of replacing a single-asset slot such as a
// collection cover or an avatar.
type slotChange struct {
	final   string
	removed []string
	prom    *promoted
}

// changeSlot diffs the prior and incoming reference of a slot, checks that
// a new reference is the owner's upload and promotes it. Empty means no
// asset.
func changeSlot(ctx context.Context, op, field string, m *assets.Manager, j *assets.Janitor, ownerID, prior, incoming string) (*slotChange, error) {
	part, err := assets.Diff(optional(prior), optional(incoming))
	if err != nil {
		return nil, err
	}
	if err := assets.CheckOwnership(part.Added, ownerID); err != nil {
		return nil, err
	}
	prom, err := promoteAdded(ctx, op, field, m, j, part.Added)
	if err != nil {
		return nil, err
	}

	c := &slotChange{removed: prom.prune(part.Removed), prom: prom}
	if incoming != "" {
		c.final = prom.resolve(incoming, byKey(part.Retained))
	}
	return c, nil
}

func optional(ref string) []string {
	if ref == "" {
		return nil
	}
	return []string{ref}
}
