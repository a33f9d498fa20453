package padindex

import "github.com/grailbio/padindex/bitset"

// CampaignsByPad returns a fresh bitset of len(IndexedCampaigns) bits: bit i
// set means campaign i may show on pad padID. Positive targetings are
// inherited downward (any positive along the ancestor chain allows the
// campaign); negatives, including folded-in filters, are cumulative (any
// negative anywhere kills it). An unknown padID yields an all-false result.
func (idx *Index) CampaignsByPad(padID uint32) *bitset.Set {
	result := bitset.New(uint(len(idx.cat.IndexedCampaigns)), false)
	pad := idx.cat.Pads[padID]
	if pad == nil {
		return result
	}

	for _, q := range pad.EffectivePads {
		if positive, ok := idx.positiveCampaigns[q]; ok {
			result.Or(positive)
		}
	}
	for _, q := range pad.EffectivePads {
		if negative, ok := idx.negativeCampaigns[q]; ok {
			result.And(negative)
		}
	}
	return result
}

// FilteredBannersByPad returns a read-only reference to the set of banner
// ids filtered on padID or any of its effective pads, for campaigns that are
// partially filtered at the pad doing the filtering (a campaign fully
// filtered there contributes no banners). Banners are not checked against
// CampaignsByPad: a campaign excluded for another reason (a negative
// targeting, or a full filter at a different pad) keeps its recorded
// banners in the set. The caller must not
// mutate the returned map; its lifetime is tied to idx. An unknown padID,
// or a pad with nothing filtered, returns a shared empty set.
func (idx *Index) FilteredBannersByPad(padID uint32) map[uint32]struct{} {
	pad := idx.cat.Pads[padID]
	if pad == nil {
		return emptyBannerSet
	}
	if set, ok := idx.groupCumulativeFilteredBanners[pad.EffectiveGroupID]; ok {
		return set
	}
	return emptyBannerSet
}
