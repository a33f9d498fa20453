// Package util holds small standalone helpers used by catalog that don't
// belong to its core model.
package util

import (
	"github.com/antzucaro/matchr"
)

// ClosestMatch returns the candidate string closest to got by Levenshtein
// edit distance, along with that distance. It's used to turn a bare "wrong
// header" parse failure into a concrete suggestion, e.g. "header field 2 is
// 'pad_idx', did you mean 'pad_id'?".
//
// candidates must be non-empty.
func ClosestMatch(candidates []string, got string) (best string, distance int) {
	best = candidates[0]
	distance = matchr.Levenshtein(got, best)
	for _, c := range candidates[1:] {
		if d := matchr.Levenshtein(got, c); d < distance {
			best, distance = c, d
		}
	}
	return best, distance
}
