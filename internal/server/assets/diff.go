package assets

import (
	"github.com/dmitrijs2005/gallerist/internal/common"
)

// Partition splits an edit of an entity's asset list. References are
// compared by key, so a signed URL echoed back by a client matches its
// persisted reference.
type Partition struct {
	// Added are incoming references whose key was not persisted before.
	Added []string
	// Retained are the persisted forms of keys present on both sides.
	Retained []string
	// Removed are persisted references absent from the incoming list.
	Removed []string
}

// Diff partitions prior (persisted) against incoming references. Added and
// Retained follow incoming order, Removed follows prior order, duplicates
// are dropped. Each key lands in exactly one part.
func Diff(prior, incoming []string) (Partition, error) {
	priorByKey := make(map[string]string, len(prior))
	var priorKeys []string
	for _, ref := range prior {
		key, err := ExtractKey(ref)
		if err != nil {
			return Partition{}, common.E(common.KindInternal, "assets.Diff", err)
		}
		if _, dup := priorByKey[key]; dup {
			continue
		}
		priorByKey[key] = ref
		priorKeys = append(priorKeys, key)
	}

	var p Partition
	seen := make(map[string]struct{}, len(incoming))
	for _, ref := range incoming {
		key, err := ExtractKey(ref)
		if err != nil {
			return Partition{}, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if persisted, ok := priorByKey[key]; ok {
			p.Retained = append(p.Retained, persisted)
		} else {
			p.Added = append(p.Added, ref)
		}
	}

	for _, key := range priorKeys {
		if _, ok := seen[key]; !ok {
			p.Removed = append(p.Removed, priorByKey[key])
		}
	}
	return p, nil
}

// CheckOwnership rejects added references that ownerID may not attach:
// only the owner's own staged uploads can be added to an entity.
func CheckOwnership(added []string, ownerID string) error {
	const op = "assets.CheckOwnership"

	for _, ref := range added {
		key, err := ExtractKey(ref)
		if err != nil {
			return err
		}
		switch StateOf(key) {
		case StateStaged:
			if owner, ok := StagedOwner(key); !ok || owner != ownerID {
				return common.Validation(op, "reference", "upload belongs to another user")
			}
		case StatePermanent:
			return common.Validation(op, "reference", "asset is not attached to this item")
		default:
			return common.Validation(op, "reference", "reference is not an uploaded asset")
		}
	}
	return nil
}
