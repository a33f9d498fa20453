package bitset

import (
	"fmt"
	"strings"
)

// EncodeHex renders s as the hex format used by the precomputed filter file
// (see catalog §6): one lower-case hex digit per 4 bits, little-endian
// within each nibble (bit j of a digit is (digit>>j)&1, j=0..3), with
// ceil(Size()/4) digits.
func (s *Set) EncodeHex() string {
	var b strings.Builder
	nDigits := (s.size + 3) / 4
	b.Grow(int(nDigits))
	for d := uint(0); d < nDigits; d++ {
		var digit int
		for j := uint(0); j < 4; j++ {
			pos := d*4 + j
			if pos < s.size && s.Test(pos) {
				digit |= 1 << j
			}
		}
		b.WriteByte("0123456789abcdef"[digit])
	}
	return b.String()
}

// DecodeHex parses the hex format of EncodeHex into a new Set of originalSize
// bits. It is the plain (no skipped positions) counterpart to the
// skip-aware decoder filters.decodeSkipping uses for index.txt's bitset
// banks.
func DecodeHex(hex string, originalSize uint) (*Set, error) {
	wantDigits := (originalSize + 3) / 4
	if uint(len(hex)) != wantDigits {
		return nil, fmt.Errorf("bitset: hex string has %d digits, want %d for %d bits", len(hex), wantDigits, originalSize)
	}
	out := New(originalSize, false)
	for d, c := range hex {
		digit, err := hexDigit(byte(c))
		if err != nil {
			return nil, err
		}
		for j := uint(0); j < 4; j++ {
			pos := uint(d)*4 + j
			if pos >= originalSize {
				break
			}
			if (digit>>j)&1 != 0 {
				out.Set(pos)
			}
		}
	}
	return out, nil
}

func hexDigit(c byte) (int, error) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), nil
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, nil
	default:
		return 0, fmt.Errorf("bitset: invalid hex digit %q", c)
	}
}
