package padindex

import (
	"sort"

	"github.com/grailbio/base/log"

	"github.com/grailbio/padindex/bitset"
	"github.com/grailbio/padindex/catalog"
)

// padCampaignPair is one (padId, campaignIdx) targeting edge, the Go shape
// of the original's PadReorder.
type padCampaignPair struct {
	padID       uint32
	campaignIdx uint32
}

func lessPair(a, b padCampaignPair) bool {
	if a.padID != b.padID {
		return a.padID < b.padID
	}
	return a.campaignIdx < b.campaignIdx
}

// buildTargetings walks IndexedCampaigns, collecting every direct, package,
// and user-chain targeting edge, then streams the sorted edge lists into
// per-pad bitsets. See DESIGN.md for the decision to surface the original's
// "exactly one of direct/package positive, no user positive" assumption as
// a counted diagnostic rather than a fatal assertion.
func buildTargetings(cat *catalog.Catalog) (positive, negative map[uint32]*bitset.Set, diag Diagnostics) {
	defer phase("collecting targeted pad/campaign pairs")()

	var positivePairs, negativePairs []padCampaignPair

	for i := range cat.IndexedCampaigns {
		camp := cat.Campaigns[cat.IndexedCampaigns[i].CampaignID]
		idx := uint32(i)

		hasDirectPositive := len(camp.PositiveTargetingPads) > 0
		for _, padID := range camp.PositiveTargetingPads {
			positivePairs = append(positivePairs, padCampaignPair{padID, idx})
		}
		for _, padID := range camp.NegativeTargetingPads {
			negativePairs = append(negativePairs, padCampaignPair{padID, idx})
		}

		hasPackagePositive := false
		if pkg := cat.Packages[camp.PackageID]; pkg != nil {
			hasPackagePositive = len(pkg.PositiveTargetingPads) > 0
			for _, padID := range pkg.PositiveTargetingPads {
				positivePairs = append(positivePairs, padCampaignPair{padID, idx})
			}
			for _, padID := range pkg.NegativeTargetingPads {
				negativePairs = append(negativePairs, padCampaignPair{padID, idx})
			}
		}

		hasUserPositive := false
		if camp.HasUser {
			for _, u := range cat.UserChain(cat.Users[camp.UserID]) {
				if len(u.PositiveTargetingPads) > 0 {
					hasUserPositive = true
				}
				for _, padID := range u.PositiveTargetingPads {
					positivePairs = append(positivePairs, padCampaignPair{padID, idx})
				}
				for _, padID := range u.NegativeTargetingPads {
					negativePairs = append(negativePairs, padCampaignPair{padID, idx})
				}
			}
		}

		if hasDirectPositive == hasPackagePositive {
			diag.MixedPositiveSourceCampaigns++
		}
		if hasUserPositive {
			diag.UserTargetedCampaigns++
		}
	}

	sort.Slice(positivePairs, func(i, j int) bool { return lessPair(positivePairs[i], positivePairs[j]) })
	sort.Slice(negativePairs, func(i, j int) bool { return lessPair(negativePairs[i], negativePairs[j]) })

	if diag.MixedPositiveSourceCampaigns > 0 {
		log.Printf("padindex: %d campaign(s) violate the direct-xor-package-positive assumption", diag.MixedPositiveSourceCampaigns)
	}
	if diag.UserTargetedCampaigns > 0 {
		log.Printf("padindex: %d campaign(s) have a positive user-chain targeting", diag.UserTargetedCampaigns)
	}

	nCampaigns := uint(len(cat.IndexedCampaigns))
	positive = streamPairs(positivePairs, nCampaigns, false)
	negative = streamPairs(negativePairs, nCampaigns, true)
	return positive, negative, diag
}

// streamPairs allocates one bitset per distinct padID in pairs (which must
// already be sorted by padID), filled with the given fill, and for
// positives sets each pair's bit / for negatives clears it -- mirroring the
// "allocate a new bitset every time padID changes" streaming pattern the
// original uses for both lists.
func streamPairs(pairs []padCampaignPair, size uint, fill bool) map[uint32]*bitset.Set {
	result := map[uint32]*bitset.Set{}
	var current *bitset.Set
	var lastPadID uint32
	havePad := false

	for _, p := range pairs {
		if !havePad || lastPadID != p.padID {
			lastPadID = p.padID
			havePad = true
			current = bitset.New(size, fill)
			result[p.padID] = current
		}
		if fill {
			current.Reset(uint(p.campaignIdx))
		} else {
			current.Set(uint(p.campaignIdx))
		}
	}
	return result
}
