// Package padindex runs the four build phases over a loaded catalog and
// precomputed filter bank, and answers the two read-only query operators
// over the result.
package padindex

import (
	"github.com/grailbio/padindex/bitset"
	"github.com/grailbio/padindex/catalog"
	"github.com/grailbio/padindex/filters"
)

// Index is the built, queryable result of Build. Every table is immutable
// from this point on and may be shared across concurrent query callers
// without synchronization.
type Index struct {
	cat *catalog.Catalog

	// pad id -> bitset sized len(cat.IndexedCampaigns); absent means "no
	// direct targeting of that sign at this pad".
	positiveCampaigns map[uint32]*bitset.Set
	negativeCampaigns map[uint32]*bitset.Set

	// pad id -> banner ids filtered directly at that pad, excluding banners
	// of fully-filtered campaigns (those are already excluded by
	// negativeCampaigns).
	filteredBanners map[uint32]map[uint32]struct{}

	// effective-group id -> union of filteredBanners over the group's
	// effective pads. Keyed by groupId, not padId (see DESIGN.md).
	groupCumulativeFilteredBanners map[uint32]map[uint32]struct{}
}

var emptyBannerSet = map[uint32]struct{}{}

// Diagnostics accumulates the non-fatal, counted conditions build phases
// encounter -- referential drops already live in catalog.Stats; this is for
// the assumption check buildTargetings makes about targeting shape (see
// DESIGN.md's resolution of the "exactly one positive source" open
// question).
type Diagnostics struct {
	MixedPositiveSourceCampaigns int
	UserTargetedCampaigns        int
}

// Build runs the four phases in order and returns a queryable Index.
func Build(cat *catalog.Catalog, bank *filters.Bank) (*Index, Diagnostics, error) {
	idx := &Index{cat: cat}
	var diag Diagnostics

	positiveCampaigns, negativeCampaigns, d := buildTargetings(cat)
	diag = d
	idx.positiveCampaigns = positiveCampaigns
	idx.negativeCampaigns = negativeCampaigns

	filteredBanners, err := buildFilters(cat, bank, negativeCampaigns)
	if err != nil {
		return nil, diag, err
	}
	idx.filteredBanners = filteredBanners

	buildEffectivePads(cat)

	idx.groupCumulativeFilteredBanners = buildGroupCumulativeFilteredBanners(cat, filteredBanners)

	return idx, diag, nil
}
