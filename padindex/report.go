package padindex

import (
	"encoding/binary"
	"fmt"

	"github.com/grailbio/base/log"
	"github.com/minio/highwayhash"

	"github.com/grailbio/padindex/bitset"
)

// Report is the diagnostic summary the original prints at the end of a
// build (calcPadStat + reportIndexSizes), plus a build fingerprint used to
// compare two builds from the same snapshot without diffing the full index.
type Report struct {
	Pads               int
	EmptyEffectivePads int
	Groups             int
	EmptyGroups        int

	// TotalUsers/TotalCampaigns sum, over every pad, the number of distinct
	// users/campaigns reachable by campaignsByPad -- the original's
	// calcPadStat, which the comment there already flags as not
	// banner-granular ("is it possible to calculate how many banners are
	// allowed to show on every pad?").
	TotalUsers     int
	TotalCampaigns int

	PositiveBitsetBytes   uintptr
	NegativeBitsetBytes   uintptr
	FilteredBannerEntries int

	// Fingerprint is a HighwayHash over the ordered IndexedCampaigns/
	// IndexedBanners id sequence, diagnostic only -- it never participates
	// in query semantics.
	Fingerprint [highwayhash.Size]byte
}

var fingerprintKey [highwayhash.Size]byte

// BuildReport computes the diagnostic summary over an already-built Index.
// This is a read-only pass; it does not belong to the four ordered build
// phases and may be skipped entirely by a caller that doesn't need it.
func BuildReport(idx *Index) Report {
	defer phase("calculate pad stats")()

	var r Report
	r.Pads = len(idx.cat.Pads)

	seenGroup := map[uint32]bool{}
	for _, pad := range idx.cat.Pads {
		if len(pad.EffectivePads) == 0 {
			r.EmptyEffectivePads++
		}
		if !seenGroup[pad.EffectiveGroupID] {
			seenGroup[pad.EffectiveGroupID] = true
			r.Groups++
			if len(pad.EffectivePads) == 0 {
				r.EmptyGroups++
			}
		}
	}

	for padID := range idx.cat.Pads {
		campaigns := idx.CampaignsByPad(padID)
		var users, campaignCount int
		var lastUser uint32
		haveLast := false
		for i := campaigns.FindFirst(); i != bitset.NPos; i = campaigns.FindNext(i) {
			campaignCount++
			uid := idx.cat.IndexedCampaigns[i].UserID
			if !haveLast || lastUser != uid {
				haveLast = true
				lastUser = uid
				users++
			}
		}
		r.TotalUsers += users
		r.TotalCampaigns += campaignCount
	}

	for _, b := range idx.positiveCampaigns {
		r.PositiveBitsetBytes += b.MemSize()
	}
	for _, b := range idx.negativeCampaigns {
		r.NegativeBitsetBytes += b.MemSize()
	}
	for _, set := range idx.groupCumulativeFilteredBanners {
		r.FilteredBannerEntries += 1 + len(set)
	}

	r.Fingerprint = fingerprint(idx)

	log.Printf("padindex: pads=%d (empty effective %d) groups=%d (empty %d)",
		r.Pads, r.EmptyEffectivePads, r.Groups, r.EmptyGroups)
	log.Printf("padindex: advertisers/campaigns reachable (summed over pads) = %d / %d", r.TotalUsers, r.TotalCampaigns)
	log.Printf("padindex: positive bitsets %dMB, negative bitsets %dMB, filtered-banner entries %d",
		r.PositiveBitsetBytes/1024/1024, r.NegativeBitsetBytes/1024/1024, r.FilteredBannerEntries)
	log.Printf("padindex: build fingerprint %x", r.Fingerprint)
	return r
}

func fingerprint(idx *Index) [highwayhash.Size]byte {
	buf := make([]byte, 0, 8*(len(idx.cat.IndexedCampaigns)+len(idx.cat.IndexedBanners)))
	for _, ic := range idx.cat.IndexedCampaigns {
		buf = appendUint32(buf, ic.CampaignID)
	}
	for _, ib := range idx.cat.IndexedBanners {
		buf = appendUint32(buf, ib.BannerID)
	}
	return highwayhash.Sum(buf, fingerprintKey[:])
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// String renders the report the way the original's reportIndexSizes does,
// as a short human-readable block.
func (r Report) String() string {
	return fmt.Sprintf(
		"pads=%d groups=%d filteredBannerEntries=%d positiveMB=%d negativeMB=%d fingerprint=%x",
		r.Pads, r.Groups, r.FilteredBannerEntries,
		r.PositiveBitsetBytes/1024/1024, r.NegativeBitsetBytes/1024/1024, r.Fingerprint)
}
