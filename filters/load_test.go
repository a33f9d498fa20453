package filters

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/padindex/catalog"
)

func writeIndex(t *testing.T, dir, contents string) string {
	p := filepath.Join(dir, "index.txt")
	require.NoError(t, ioutil.WriteFile(p, []byte(contents), 0644))
	return p
}

func baseCatalog() *catalog.Catalog {
	c := &catalog.Catalog{
		Pads:      map[uint32]*catalog.Pad{1: {ID: 1}, 2: {ID: 2}},
		Users:     map[uint32]*catalog.User{},
		Packages:  map[uint32]*catalog.Package{},
		Campaigns: map[uint32]*catalog.Campaign{},
	}
	c.Campaigns[100] = &catalog.Campaign{ID: 100, UserID: 10}
	c.Campaigns[101] = &catalog.Campaign{ID: 101, UserID: 10}
	return c
}

// Two campaigns (100, 101) of the same user, each with one banner. All
// bitsets here are 2 bits wide: 0x3 = both bits set, 0x1 = only bit 0.
const fixture = `Campaigns (id)
2
100 101
Banners (id, campaign_id)
2
900 100 901 101
Campaign bitsets:
2
0 3
1 1
Banner bitsets:
1
0 3
pad_id/full/any/banner:
2
1 0 0 0
2 1 0 0
Done
`

func TestLoadFixture(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeIndex(t, dir, fixture)
	c := baseCatalog()

	bank, err := Load(path, c)
	require.NoError(t, err)

	require.Len(t, c.IndexedCampaigns, 2)
	assert.Equal(t, uint32(100), c.IndexedCampaigns[0].CampaignID)
	assert.Equal(t, uint32(101), c.IndexedCampaigns[1].CampaignID)

	require.Len(t, c.IndexedBanners, 2)
	assert.Equal(t, uint32(900), c.IndexedBanners[0].BannerID)
	assert.Equal(t, []uint32{900}, c.Campaigns[100].BannerIDs)
	assert.Equal(t, []uint32{901}, c.Campaigns[101].BannerIDs)

	require.Len(t, bank.CampaignBitsets, 2)
	assert.True(t, bank.CampaignBitsets[0].Test(0))
	assert.True(t, bank.CampaignBitsets[0].Test(1))
	assert.True(t, bank.CampaignBitsets[1].Test(0))
	assert.False(t, bank.CampaignBitsets[1].Test(1))

	require.Len(t, bank.PadFilters, 2)
	pf := bank.PadFilters[2]
	assert.True(t, bank.All(pf).Test(0))
	assert.True(t, bank.Any(pf).Test(1))
	assert.True(t, c.Pads[1].HasTargetingsOrFilters)
	assert.True(t, c.Pads[2].HasTargetingsOrFilters)
}

func TestLoadSkipsUnknownCampaignsAndResizesBitsets(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	// Campaign 102 is unknown to the catalog and must be skipped, shrinking
	// every campaign-sized bitset from 3 bits down to 2.
	contents := `Campaigns (id)
3
100 102 101
Banners (id, campaign_id)
2
900 100 901 101
Campaign bitsets:
1
0 7
Banner bitsets:
1
0 3
pad_id/full/any/banner:
1
1 0 0 0
Done
`
	path := writeIndex(t, dir, contents)
	c := baseCatalog()

	bank, err := Load(path, c)
	require.NoError(t, err)

	require.Len(t, c.IndexedCampaigns, 2)
	assert.Equal(t, uint32(2), bank.CampaignBitsets[0].Size())
	// original bit 1 (campaign 102, dropped) is excluded; bits 0 and 2
	// (campaigns 100 and 101) survive as bits 0 and 1.
	assert.True(t, bank.CampaignBitsets[0].Test(0))
	assert.True(t, bank.CampaignBitsets[0].Test(1))
}

func TestLoadRejectsBadHeader(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeIndex(t, dir, "Campaignz (id)\n0\nDone\n")
	c := baseCatalog()

	_, err := Load(path, c)
	require.Error(t, err)
	assert.Equal(t, ErrBadFormat, errors.Cause(err))
}

func TestLoadRejectsWrongHexDigitCount(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	contents := `Campaigns (id)
1
100
Banners (id, campaign_id)
1
900 100
Campaign bitsets:
1
0 1
Banner bitsets:
1
0 33
pad_id/full/any/banner:
1
1 0 0 0
Done
`
	path := writeIndex(t, dir, contents)
	c := baseCatalog()

	_, err := Load(path, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digits")
}

func TestDecodeSkippingMatchesPlainDecodeWhenNothingSkipped(t *testing.T) {
	set, err := decodeSkipping("f", 4, nil)
	require.NoError(t, err)
	for i := uint(0); i < 4; i++ {
		assert.True(t, set.Test(i))
	}
}
