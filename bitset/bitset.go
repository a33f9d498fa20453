// Package bitset implements a dynamic bit vector: a resizable array of bits
// packed into 64-bit words, with bulk Boolean operations, population count,
// forward bit iteration, and a stable hash. It is the primitive that the
// padindex and filters packages build their per-pad tables on top of.
//
// Terminology, following the original: the vector holds bits packed into
// words. If the bitset's size is a multiple of the word width, every word is
// "complete". Otherwise the last word is "incomplete": its low bits (up to
// size%WordBits of them) are "payload" and the rest are "excess" bits in an
// undefined state. Every operation that reads the tail word masks with the
// payload mask so excess bits never leak into count()/eq()/hash()/etc.
package bitset

import (
	"math/bits"

	"github.com/grailbio/base/log"
)

// WordBits is the number of bits per machine word backing a Set.
const WordBits = 64

// NPos is returned by FindFirst/FindNext when there is no matching bit.
const NPos = ^uint(0)

const wordMax = ^uint64(0)

// Set is a dynamic, resizable bit vector.
//
// The zero value is a valid, empty (size 0) Set.
type Set struct {
	words       []uint64
	size        uint
	completeLen uint   // number of complete words: size / WordBits
	payloadMask uint64 // payload bits of the tail word; 0 when there is no incomplete tail word
}

// New returns a Set of n bits, all initialized to fill.
func New(n uint, fill bool) *Set {
	s := &Set{}
	s.Resize(n, fill)
	return s
}

// Resize grows or shrinks the set to n bits. When growing, every newly
// addressable bit -- including bits that were previously excess (beyond the
// old size, but within the same tail word) and so in an undefined state --
// takes the value fill.
func (s *Set) Resize(n uint, fill bool) {
	if s.payloadMask != 0 && n > s.size {
		// The current tail word has excess bits in an undefined state; pin
		// them to fill before the size/payload mask change makes them payload.
		if fill {
			s.words[s.completeLen] |= ^s.payloadMask
		} else {
			s.words[s.completeLen] &= s.payloadMask
		}
	}
	newWordLen := (n + WordBits - 1) / WordBits
	s.words = growWords(s.words, int(newWordLen), fill)
	s.size = n
	s.completeLen = n / WordBits
	payloadBits := n % WordBits
	s.payloadMask = 0
	if payloadBits != 0 {
		s.payloadMask = ^(wordMax << payloadBits)
	}
}

func growWords(words []uint64, n int, fill bool) []uint64 {
	fillWord := uint64(0)
	if fill {
		fillWord = wordMax
	}
	if n <= len(words) {
		return words[:n]
	}
	out := make([]uint64, n)
	copy(out, words)
	for i := len(words); i < n; i++ {
		out[i] = fillWord
	}
	return out
}

// Size returns the number of bits in the set.
func (s *Set) Size() uint { return s.size }

// Empty reports whether the set has zero bits.
func (s *Set) Empty() bool { return s.size == 0 }

func (s *Set) wordIndex(i uint) uint { return i / WordBits }

func bitMask(i uint) uint64 { return uint64(1) << (i % WordBits) }

func (s *Set) checkRange(i uint) {
	if i >= s.size {
		log.Panicf("bitset: index %d out of range for size %d", i, s.size)
	}
}

// Test returns the value of bit i. i must be < Size().
func (s *Set) Test(i uint) bool {
	s.checkRange(i)
	return s.words[s.wordIndex(i)]&bitMask(i) != 0
}

// Set sets bit i to 1. i must be < Size().
func (s *Set) Set(i uint) {
	s.checkRange(i)
	s.words[s.wordIndex(i)] |= bitMask(i)
}

// SetTo sets bit i to the given value. i must be < Size().
func (s *Set) SetTo(i uint, v bool) {
	if v {
		s.Set(i)
	} else {
		s.Reset(i)
	}
}

// Reset clears bit i to 0. i must be < Size().
func (s *Set) Reset(i uint) {
	s.checkRange(i)
	s.words[s.wordIndex(i)] &^= bitMask(i)
}

// Flip toggles bit i. i must be < Size().
func (s *Set) Flip(i uint) {
	s.checkRange(i)
	s.words[s.wordIndex(i)] ^= bitMask(i)
}

// SetAll sets every bit to 1.
func (s *Set) SetAll() {
	for i := range s.words {
		s.words[i] = wordMax
	}
}

// ResetAll clears every bit to 0.
func (s *Set) ResetAll() {
	for i := range s.words {
		s.words[i] = 0
	}
}

// FlipAll toggles every bit.
func (s *Set) FlipAll() {
	for i, w := range s.words {
		s.words[i] = ^w
	}
}

// Count returns the number of set bits among the payload bits (indices
// [0, Size())).
func (s *Set) Count() uint {
	var n uint
	for i := uint(0); i < s.completeLen; i++ {
		n += uint(bits.OnesCount64(s.words[i]))
	}
	if s.payloadMask != 0 {
		n += uint(bits.OnesCount64(s.payloadMask & s.words[s.completeLen]))
	}
	return n
}

// Any reports whether any payload bit is set.
func (s *Set) Any() bool {
	for i := uint(0); i < s.completeLen; i++ {
		if s.words[i] != 0 {
			return true
		}
	}
	return s.payloadMask != 0 && s.payloadMask&s.words[s.completeLen] != 0
}

// None reports whether no payload bit is set.
func (s *Set) None() bool { return !s.Any() }

// All reports whether every payload bit is set.
func (s *Set) All() bool {
	for i := uint(0); i < s.completeLen; i++ {
		if s.words[i] != wordMax {
			return false
		}
	}
	return s.payloadMask == 0 || s.payloadMask&^s.words[s.completeLen] == 0
}

// Eq reports whether s and o are equal over their payload bits. They must
// have the same Size().
func (s *Set) Eq(o *Set) bool {
	s.checkSameSize(o)
	for i := uint(0); i < s.completeLen; i++ {
		if s.words[i] != o.words[i] {
			return false
		}
	}
	if s.payloadMask != 0 && s.payloadMask&(s.words[s.completeLen]^o.words[s.completeLen]) != 0 {
		return false
	}
	return true
}

func (s *Set) checkSameSize(o *Set) {
	if s.size != o.size {
		log.Panicf("bitset: size mismatch %d vs %d", s.size, o.size)
	}
}

// And does s &= o in place. s and o must have the same Size().
func (s *Set) And(o *Set) {
	s.checkSameSize(o)
	for i := range s.words {
		s.words[i] &= o.words[i]
	}
}

// Or does s |= o in place. s and o must have the same Size().
func (s *Set) Or(o *Set) {
	s.checkSameSize(o)
	for i := range s.words {
		s.words[i] |= o.words[i]
	}
}

// AndNot does s &= ^o in place (set subtraction). s and o must have the same
// Size().
func (s *Set) AndNot(o *Set) {
	s.checkSameSize(o)
	for i := range s.words {
		s.words[i] &^= o.words[i]
	}
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	out := &Set{
		words:       make([]uint64, len(s.words)),
		size:        s.size,
		completeLen: s.completeLen,
		payloadMask: s.payloadMask,
	}
	copy(out.words, s.words)
	return out
}

// CopyFrom overwrites s with a copy of o's bits, resizing s to o's size.
func (s *Set) CopyFrom(o *Set) {
	s.words = append(s.words[:0], o.words...)
	s.size = o.size
	s.completeLen = o.completeLen
	s.payloadMask = o.payloadMask
}

// AndNotOf sets s = a &^ b (s is resized to a's size). Unlike AndNot, this
// does not mutate a or b; it's the out-of-place difference the filter folder
// uses instead of the original's mutate-then-restore pattern (see
// padindex.extractPartiallyFilteredBanners).
func (s *Set) AndNotOf(a, b *Set) {
	a.checkSameSize(b)
	s.CopyFrom(a)
	s.AndNot(b)
}

// FindFirst returns the index of the lowest set payload bit, or NPos if none
// is set.
func (s *Set) FindFirst() uint {
	return s.findFirstFromWord(0)
}

// FindNext returns the index of the lowest set payload bit at an index > i,
// or NPos if none is set.
func (s *Set) FindNext(i uint) uint {
	wordNo := s.wordIndex(i)
	mask := bitMask(i)
	mask |= mask - 1
	word := s.words[wordNo] &^ mask
	if word != 0 {
		return s.posInWord(wordNo, word)
	}
	return s.findFirstFromWord(wordNo + 1)
}

func (s *Set) findFirstFromWord(startWord uint) uint {
	for i := startWord; i < uint(len(s.words)); i++ {
		if s.words[i] != 0 {
			return s.posInWord(i, s.words[i])
		}
	}
	return NPos
}

// posInWord returns the bitset index of the lowest set bit of word wordNo's
// contents, or NPos if that position is beyond Size() (only possible for the
// incomplete tail word, whose excess bits are undefined).
func (s *Set) posInWord(wordNo uint, word uint64) uint {
	pos := wordNo*WordBits + uint(bits.TrailingZeros64(word))
	if pos < s.size {
		return pos
	}
	return NPos
}

// Hash returns an XOR-fold of the payload words. Equal sets (per Eq) always
// hash equally.
func (s *Set) Hash() uint64 {
	var h uint64
	for i := uint(0); i < s.completeLen; i++ {
		h ^= s.words[i]
	}
	if s.payloadMask != 0 {
		h ^= s.payloadMask & s.words[s.completeLen]
	}
	return h
}

// MemSize returns the number of bytes backing the set's word storage, for
// reporting purposes.
func (s *Set) MemSize() uintptr {
	return uintptr(cap(s.words)) * 8
}
