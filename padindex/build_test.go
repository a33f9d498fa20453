package padindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/padindex/bitset"
	"github.com/grailbio/padindex/catalog"
	"github.com/grailbio/padindex/filters"
)

// fixture builds a small catalog and filter bank by hand (skipping the flat
// file / index.txt readers entirely) covering: direct positive targeting,
// inheritance from a parent pad, an inherited negative targeting overriding
// a pad's own positive, a fully-filtered campaign, a partially-filtered
// campaign with one passing and one failing banner, and two pads (4, 5)
// with no targeting of their own and therefore an identical effective-pad
// list to their parent.
//
// Campaigns (IndexedCampaigns index): 0=100 (user 10, positive@pad1),
// 1=101 (user 10, positive@pad2, negative@pad1), 2=102 (user 11,
// positive@pad6, banners 900,901), 3=103 (user 11, positive@pad7, banner
// 902, fully filtered at pad7).
func fixture(t *testing.T) (*catalog.Catalog, *filters.Bank) {
	cat := &catalog.Catalog{
		Pads:      map[uint32]*catalog.Pad{},
		Users:     map[uint32]*catalog.User{10: {ID: 10}, 11: {ID: 11}},
		Packages:  map[uint32]*catalog.Package{},
		Campaigns: map[uint32]*catalog.Campaign{},
	}
	for _, id := range []uint32{1, 2, 4, 5, 6, 7} {
		cat.Pads[id] = &catalog.Pad{ID: id}
	}
	cat.Pads[2].DirectParents = []uint32{1}
	cat.Pads[4].DirectParents = []uint32{1}
	cat.Pads[5].DirectParents = []uint32{1}
	cat.Pads[1].HasTargetingsOrFilters = true
	cat.Pads[2].HasTargetingsOrFilters = true
	cat.Pads[6].HasTargetingsOrFilters = true
	cat.Pads[7].HasTargetingsOrFilters = true

	// campaign.txt has no "none" sentinel for package_id (unlike
	// User.ParentID): catalog.loadCampaigns unconditionally creates a
	// Package entry for every campaign's package_id, including 0, and the
	// original always applies that package's targetings. Campaign 104 has
	// no direct targeting of its own and relies entirely on package 0's
	// positive targeting of pad 1.
	cat.Packages[0] = &catalog.Package{ID: 0, PositiveTargetingPads: []uint32{1}}

	// These four use an unregistered package id (999, absent from
	// cat.Packages) so their targeting stays exactly direct/user-chain,
	// isolating campaign 104 below as the one exercising package id 0.
	cat.Campaigns[100] = &catalog.Campaign{ID: 100, UserID: 10, HasUser: true, PackageID: 999, PositiveTargetingPads: []uint32{1}}
	cat.Campaigns[101] = &catalog.Campaign{ID: 101, UserID: 10, HasUser: true, PackageID: 999, PositiveTargetingPads: []uint32{2}, NegativeTargetingPads: []uint32{1}}
	cat.Campaigns[102] = &catalog.Campaign{ID: 102, UserID: 11, HasUser: true, PackageID: 999, PositiveTargetingPads: []uint32{6}, BannerIDs: []uint32{900, 901}}
	cat.Campaigns[103] = &catalog.Campaign{ID: 103, UserID: 11, HasUser: true, PackageID: 999, PositiveTargetingPads: []uint32{7}, BannerIDs: []uint32{902}}
	cat.Campaigns[104] = &catalog.Campaign{ID: 104, UserID: 10, HasUser: true, PackageID: 0}

	cat.IndexedCampaigns = []catalog.IndexedCampaign{
		{UserID: 10, CampaignID: 100},
		{UserID: 10, CampaignID: 101},
		{UserID: 11, CampaignID: 102, FirstBannerPosition: 0, BannerCount: 2},
		{UserID: 11, CampaignID: 103, FirstBannerPosition: 2, BannerCount: 1},
		{UserID: 10, CampaignID: 104, FirstBannerPosition: 3, BannerCount: 0},
	}
	cat.IndexedBanners = []catalog.IndexedBanner{
		{UserID: 11, CampaignID: 102, BannerID: 900},
		{UserID: 11, CampaignID: 102, BannerID: 901},
		{UserID: 11, CampaignID: 103, BannerID: 902},
	}

	any6, err := bitset.DecodeHex("f1", 5) // campaign 2 (bit 2) partially passes, rest trivial
	require.NoError(t, err)
	all6, err := bitset.DecodeHex("b1", 5) // bit 2 clear: not every banner of campaign 2 passes
	require.NoError(t, err)
	banners6, err := bitset.DecodeHex("1", 3) // banner 900 passes, 901 fails
	require.NoError(t, err)

	any7, err := bitset.DecodeHex("71", 5) // bit 3 clear: campaign 3 fully filtered
	require.NoError(t, err)
	all7, err := bitset.DecodeHex("71", 5)
	require.NoError(t, err)
	banners7, err := bitset.DecodeHex("0", 3)
	require.NoError(t, err)

	bank := &filters.Bank{
		CampaignBitsets: []*bitset.Set{any6, all6, any7, all7},
		BannerBitsets:   []*bitset.Set{banners6, banners7},
		PadFilters: map[uint32]filters.PadFilter{
			6: {AnyID: 0, AllID: 1, BannersID: 0},
			7: {AnyID: 2, AllID: 3, BannersID: 1},
		},
	}
	return cat, bank
}

func TestBuildDirectAndInheritedTargeting(t *testing.T) {
	cat, bank := fixture(t)
	idx, diag, err := Build(cat, bank)
	require.NoError(t, err)
	assert.Equal(t, 0, diag.UserTargetedCampaigns)

	// pad1: only campaign 100 (index 0) is directly positive there.
	r1 := idx.CampaignsByPad(1)
	assert.True(t, r1.Test(0))
	assert.False(t, r1.Test(1))

	// pad2 inherits pad1's positive for campaign 100, adds its own positive
	// for campaign 101, but pad1's negative targeting of campaign 101 wins.
	r2 := idx.CampaignsByPad(2)
	assert.True(t, r2.Test(0), "inherited positive from pad1")
	assert.False(t, r2.Test(1), "ancestor negative overrides descendant positive")
}

func TestBuildAppliesPackageZeroTargeting(t *testing.T) {
	cat, bank := fixture(t)
	idx, diag, err := Build(cat, bank)
	require.NoError(t, err)

	// campaign 104 has no targeting of its own; it's reached only through
	// package 0's positive targeting of pad 1, the same as any other
	// package id would apply.
	r1 := idx.CampaignsByPad(1)
	assert.True(t, r1.Test(4), "package id 0 is an ordinary package, not \"no package\"")
	assert.Equal(t, 0, diag.MixedPositiveSourceCampaigns)
}

func TestBuildFullyFilteredCampaignExcluded(t *testing.T) {
	cat, bank := fixture(t)
	idx, _, err := Build(cat, bank)
	require.NoError(t, err)

	r7 := idx.CampaignsByPad(7)
	assert.False(t, r7.Test(3), "campaign 103 has no passing banner and must be fully excluded")
}

func TestBuildPartiallyFilteredCampaignKeepsCampaignButRecordsBanner(t *testing.T) {
	cat, bank := fixture(t)
	idx, _, err := Build(cat, bank)
	require.NoError(t, err)

	r6 := idx.CampaignsByPad(6)
	assert.True(t, r6.Test(2), "campaign 102 still has a passing banner, so it must survive")

	blocked := idx.FilteredBannersByPad(6)
	_, blocked900 := blocked[900]
	_, blocked901 := blocked[901]
	assert.False(t, blocked900, "banner 900 passed the filter")
	assert.True(t, blocked901, "banner 901 failed the filter")
}

func TestBuildGroupInvariant(t *testing.T) {
	cat, bank := fixture(t)
	idx, _, err := Build(cat, bank)
	require.NoError(t, err)

	// pads 4 and 5 have no targeting of their own, so their effective pads
	// are exactly pad1's: they must land in the same group and produce
	// identical query results.
	assert.Equal(t, cat.Pads[4].EffectiveGroupID, cat.Pads[5].EffectiveGroupID)
	assert.Equal(t, []uint32{1}, cat.Pads[4].EffectivePads)
	assert.Equal(t, []uint32{1}, cat.Pads[5].EffectivePads)

	r4 := idx.CampaignsByPad(4)
	r5 := idx.CampaignsByPad(5)
	assert.True(t, r4.Eq(r5))

	assert.Equal(t, idx.FilteredBannersByPad(4), idx.FilteredBannersByPad(5))
}

func TestBuildUnknownPadYieldsEmptyResults(t *testing.T) {
	cat, bank := fixture(t)
	idx, _, err := Build(cat, bank)
	require.NoError(t, err)

	r := idx.CampaignsByPad(9999)
	assert.True(t, r.None())
	assert.Empty(t, idx.FilteredBannersByPad(9999))
}

func TestBuildReport(t *testing.T) {
	cat, bank := fixture(t)
	idx, _, err := Build(cat, bank)
	require.NoError(t, err)

	r := BuildReport(idx)
	assert.Equal(t, len(cat.Pads), r.Pads)
	assert.NotZero(t, r.Fingerprint)
}
