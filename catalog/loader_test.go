package catalog

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) {
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), []byte(contents), 0644))
}

func writeFixture(t *testing.T, dir string) {
	writeFile(t, dir, "pad.txt", "pad_id\n1\n2\n3\n")
	writeFile(t, dir, "pad_relation.txt", "pad_id parent_pad_id\n2 1\n99 1\n")
	writeFile(t, dir, "user.txt", "id parent_user_id\n10 0\n11 10\n")
	writeFile(t, dir, "campaign.txt", "id user_id package_id\n100 10 1000\n101 999 1000\n")
	writeFile(t, dir, "targeting_user.txt", "user_id pad_id type\n10 1 positive\n")
	writeFile(t, dir, "targeting_package.txt", "package_id pad_id type\n1000 2 negative\n")
	writeFile(t, dir, "targeting_campaign.txt", "campaign_id pad_id type\n100 3 positive\n")
}

func TestLoadFixture(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	writeFixture(t, dir)

	c, stats, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Pads)
	assert.Equal(t, 2, stats.PadRelations)
	assert.Equal(t, 1, stats.BadPadRelations) // 99 is unknown
	assert.Equal(t, 2, stats.Users)
	assert.Equal(t, 0, stats.BadUsers)
	assert.Equal(t, 2, stats.Campaigns)
	assert.Equal(t, 1, stats.BadCampaigns) // campaign 101 references unknown user 999

	require.Len(t, c.Pads[2].DirectParents, 1)
	assert.Equal(t, uint32(1), c.Pads[2].DirectParents[0])
	require.Len(t, c.Pads[1].DirectChildren, 1)

	assert.True(t, c.Pads[1].HasTargetingsOrFilters)
	assert.True(t, c.Pads[2].HasTargetingsOrFilters)
	assert.True(t, c.Pads[3].HasTargetingsOrFilters)

	require.True(t, c.Campaigns[100].HasUser)
	require.False(t, c.Campaigns[101].HasUser)

	assert.Equal(t, []uint32{1}, c.Users[10].PositiveTargetingPads)
	assert.Equal(t, []uint32{2}, c.Packages[1000].NegativeTargetingPads)
	assert.Equal(t, []uint32{3}, c.Campaigns[100].PositiveTargetingPads)
}

func TestLoadBadHeaderSuggestsClosestColumn(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	writeFile(t, dir, "pad.txt", "pad_idx\n1\n")

	_, _, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "pad_id"`)
	assert.Equal(t, ErrBadHeader, errors.Cause(err))
}

func TestUserChainStopsAtUnknownParent(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	writeFile(t, dir, "pad.txt", "pad_id\n1\n")
	writeFile(t, dir, "pad_relation.txt", "pad_id parent_pad_id\n")
	writeFile(t, dir, "user.txt", "id parent_user_id\n20 5\n")
	writeFile(t, dir, "campaign.txt", "id user_id package_id\n")
	writeFile(t, dir, "targeting_user.txt", "user_id pad_id type\n")
	writeFile(t, dir, "targeting_package.txt", "package_id pad_id type\n")
	writeFile(t, dir, "targeting_campaign.txt", "campaign_id pad_id type\n")

	c, stats, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.BadUsers)
	chain := c.UserChain(c.Users[20])
	require.Len(t, chain, 1)
	assert.Equal(t, uint32(20), chain[0].ID)
}
