package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClosestMatch(t *testing.T) {
	candidates := []string{"pad_id", "parent_pad_id", "campaign_id"}

	best, dist := ClosestMatch(candidates, "pad_idx")
	assert.Equal(t, "pad_id", best)
	assert.Equal(t, 1, dist)

	best, dist = ClosestMatch(candidates, "pad_id")
	assert.Equal(t, "pad_id", best)
	assert.Equal(t, 0, dist)

	best, _ = ClosestMatch(candidates, "campaing_id")
	assert.Equal(t, "campaign_id", best)
}
