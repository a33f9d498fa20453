package padindex

import "github.com/grailbio/padindex/catalog"

// buildGroupCumulativeFilteredBanners unions filteredBanners over each
// pad's effective pads, keyed by EffectiveGroupID rather than pad id: the
// group invariant (equal EffectivePads implies equal result) means every
// pad in a group would compute the identical union, so keying by group
// lets the query layer share one entry per group instead of one per pad
// (see DESIGN.md's resolution of this open question).
func buildGroupCumulativeFilteredBanners(cat *catalog.Catalog, filteredBanners map[uint32]map[uint32]struct{}) map[uint32]map[uint32]struct{} {
	defer phase("group cumulative filtered banners")()

	result := map[uint32]map[uint32]struct{}{}
	for _, pad := range cat.Pads {
		groupID := pad.EffectiveGroupID
		if _, ok := result[groupID]; ok {
			continue
		}
		blocked := map[uint32]struct{}{}
		for _, q := range pad.EffectivePads {
			for bannerID := range filteredBanners[q] {
				blocked[bannerID] = struct{}{}
			}
		}
		result[groupID] = blocked
	}
	return result
}
