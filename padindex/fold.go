package padindex

import (
	"github.com/grailbio/padindex/bitset"
	"github.com/grailbio/padindex/catalog"
	"github.com/grailbio/padindex/filters"
)

// buildFilters folds each pad's PadFilter into negativeCampaigns and
// extracts the per-banner filters of partially-filtered campaigns into
// filteredBanners. It never mutates a bank bitset: the partial-filter
// extraction computes any&^all into a scratch Set instead of the original's
// mutate-then-restore of the shared `any` bitset (see §9 of the original's
// own notes).
func buildFilters(cat *catalog.Catalog, bank *filters.Bank, negativeCampaigns map[uint32]*bitset.Set) (map[uint32]map[uint32]struct{}, error) {
	if err := foldFullyFilteredCampaigns(bank, negativeCampaigns); err != nil {
		return nil, err
	}
	return extractPartiallyFilteredBanners(cat, bank)
}

func foldFullyFilteredCampaigns(bank *filters.Bank, negativeCampaigns map[uint32]*bitset.Set) error {
	defer phase("adding fully filtered campaigns")()

	for padID, pf := range bank.PadFilters {
		any := bank.Any(pf)
		current, ok := negativeCampaigns[padID]
		if !ok {
			negativeCampaigns[padID] = any.Clone()
			continue
		}
		current.And(any)
	}
	return nil
}

func extractPartiallyFilteredBanners(cat *catalog.Catalog, bank *filters.Bank) (map[uint32]map[uint32]struct{}, error) {
	defer phase("adding filtered banners of partially filtered campaigns")()

	filteredBanners := map[uint32]map[uint32]struct{}{}
	partial := &bitset.Set{}

	for padID, pf := range bank.PadFilters {
		any := bank.Any(pf)
		all := bank.All(pf)
		banners := bank.Banners(pf)

		partial.AndNotOf(any, all)

		for i := partial.FindFirst(); i != bitset.NPos; i = partial.FindNext(i) {
			if int(i) >= len(cat.IndexedCampaigns) {
				continue
			}
			ic := cat.IndexedCampaigns[i]
			for j := uint32(0); j < ic.BannerCount; j++ {
				k := uint(ic.FirstBannerPosition + j)
				if !banners.Test(k) {
					set, ok := filteredBanners[padID]
					if !ok {
						set = map[uint32]struct{}{}
						filteredBanners[padID] = set
					}
					set[cat.IndexedBanners[k].BannerID] = struct{}{}
				}
			}
		}
	}
	return filteredBanners, nil
}
