// Package filters loads the precomputed per-pad filter file (index.txt):
// the IndexedCampaigns/IndexedBanners order, the two shared bitset banks,
// and each pad's {all, any, banners} triple of bank indices.
package filters

import "github.com/grailbio/padindex/bitset"

// PadFilter names the three bitsets describing a pad's precomputed filter
// verdicts, as indices into the two banks held alongside it.
//
// All: bit k set means every banner of IndexedCampaigns[k] passes this
// pad's filter.
// Any: bit k set means at least one banner of IndexedCampaigns[k] passes.
// Banners: bit k set means IndexedBanners[k] passes.
//
// Invariants: All is a subset of Any; |All| == |Any| ==
// len(IndexedCampaigns); |Banners| == len(IndexedBanners). Load checks the
// sizes; it does not check that All is a subset of Any.
type PadFilter struct {
	AllID     uint32
	AnyID     uint32
	BannersID uint32
}

// Bank holds the two shared bitset banks that PadFilter entries index into,
// plus the PadFilter map itself. Bank bitsets may be referenced by more
// than one pad; nothing in this package or padindex ever mutates a bank
// entry in place (see padindex.extractPartiallyFilteredBanners, which computes
// any&^all out of place instead of the original's mutate-then-restore).
type Bank struct {
	CampaignBitsets []*bitset.Set // indexed by PadFilter.AllID / AnyID
	BannerBitsets   []*bitset.Set // indexed by PadFilter.BannersID

	PadFilters map[uint32]PadFilter // pad id -> filter
}

func (b *Bank) All(pf PadFilter) *bitset.Set     { return b.CampaignBitsets[pf.AllID] }
func (b *Bank) Any(pf PadFilter) *bitset.Set     { return b.CampaignBitsets[pf.AnyID] }
func (b *Bank) Banners(pf PadFilter) *bitset.Set { return b.BannerBitsets[pf.BannersID] }
