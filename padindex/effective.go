package padindex

import (
	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/log"

	"github.com/grailbio/padindex/catalog"
)

// padIDNode lets a plain uint32 pad id live in an llrb.Tree, which keeps
// inserted values sorted and automatically collapses duplicate keys on
// Insert -- exactly the sorted, deduplicated accumulation buildEffectivePads
// needs, without a separate sort+unique pass over a slice.
type padIDNode uint32

func (a padIDNode) Compare(b llrb.Comparable) int {
	return int(a) - int(b.(padIDNode))
}

const (
	padUnvisited = iota
	padInProgress
	padDone
)

// buildEffectivePads fills in EffectivePads and EffectiveGroupID for every
// pad in cat. Pads form a DAG, assumed acyclic; resolveEffectivePads panics
// if it observes a pad already in progress on the current path, the
// recursion-in-progress marker the original's own design notes call for.
func buildEffectivePads(cat *catalog.Catalog) {
	defer phase("collect effective pads")()

	state := make(map[uint32]int, len(cat.Pads))
	emptyCount := 0
	for padID := range cat.Pads {
		resolveEffectivePads(cat, padID, state)
	}
	for _, pad := range cat.Pads {
		if len(pad.EffectivePads) == 0 {
			emptyCount++
		}
	}
	log.Printf("padindex: pads=%d empty-effective-pads=%d", len(cat.Pads), emptyCount)

	groupEffectivePads(cat)
}

func resolveEffectivePads(cat *catalog.Catalog, padID uint32, state map[uint32]int) {
	switch state[padID] {
	case padDone:
		return
	case padInProgress:
		log.Panicf("padindex: cycle detected in pad DAG at pad %d", padID)
	}
	state[padID] = padInProgress

	pad := cat.Pads[padID]
	var tree llrb.Tree
	if pad.HasTargetingsOrFilters {
		tree.Insert(padIDNode(padID))
	}
	for _, parentID := range pad.DirectParents {
		resolveEffectivePads(cat, parentID, state)
		for _, id := range cat.Pads[parentID].EffectivePads {
			tree.Insert(padIDNode(id))
		}
	}

	var ids []uint32
	tree.Do(func(c llrb.Comparable) bool {
		ids = append(ids, uint32(c.(padIDNode)))
		return false
	})
	pad.EffectivePads = ids
	state[padID] = padDone
}

// groupEffectivePads assigns EffectiveGroupID so that two pads with equal
// EffectivePads lists always share a group id: the first pad encountered
// with a given list becomes the group's representative (groupId == its own
// padId), bucketed by a cheap XOR hash of the list to avoid an
// all-pairs comparison.
func groupEffectivePads(cat *catalog.Catalog) {
	defer phase("group effective pads")()

	byHash := map[uint32][]uint32{}
	groups, emptyGroups := 0, 0

	for padID, pad := range cat.Pads {
		var hash uint32
		for _, id := range pad.EffectivePads {
			hash ^= id
		}
		bucket := byHash[hash]
		found := false
		for _, candidateID := range bucket {
			if effectivePadsEqual(pad.EffectivePads, cat.Pads[candidateID].EffectivePads) {
				pad.EffectiveGroupID = candidateID
				found = true
				break
			}
		}
		if !found {
			pad.EffectiveGroupID = padID
			byHash[hash] = append(bucket, padID)
			groups++
			if len(pad.EffectivePads) == 0 {
				emptyGroups++
			}
		}
	}
	log.Printf("padindex: groups=%d empty-effective-groups=%d", groups, emptyGroups)
}

func effectivePadsEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
