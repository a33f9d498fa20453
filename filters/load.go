package filters

import (
	"bufio"
	"bytes"
	"io/ioutil"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/grailbio/padindex/bitset"
	"github.com/grailbio/padindex/catalog"
)

// tok is a whitespace-token scanner over the precomputed filter file.
// Unlike catalog's tableReader (fixed-width records), index.txt is a
// sequence of differently-shaped sections, so this just hands out one
// token at a time.
type tok struct {
	path    string
	scanner *bufio.Scanner
}

func newTok(path string, data []byte) *tok {
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(make([]byte, 64*1024), 64*1024*1024)
	s.Split(bufio.ScanWords)
	return &tok{path: path, scanner: s}
}

func (t *tok) next() (string, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.Errorf("%s: unexpected end of file", t.path)
	}
	return t.scanner.Text(), nil
}

// ErrBadFormat is the structural "format error" class of §7 for the
// precomputed filter file: a section label or delimiter doesn't match what
// §6 specifies. A caller can tell this apart from other load failures with
// errors.Cause(err) == ErrBadFormat.
var ErrBadFormat = errors.New("filters: bad format")

func (t *tok) expect(want string) error {
	got, err := t.next()
	if err != nil {
		return err
	}
	if got != want {
		return errors.Wrapf(ErrBadFormat, "%s: wrong file format: got %q, want %q", t.path, got, want)
	}
	return nil
}

func (t *tok) expectSeq(want ...string) error {
	for _, w := range want {
		if err := t.expect(w); err != nil {
			return err
		}
	}
	return nil
}

func (t *tok) uint32() (uint32, error) {
	s, err := t.next()
	if err != nil {
		return 0, err
	}
	v, err := parseUint32(s)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", t.path)
	}
	return v, nil
}

func (t *tok) int_() (int, error) {
	v, err := t.uint32()
	return int(v), err
}

func parseUint32(s string) (uint32, error) {
	var v uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.Errorf("%q is not a non-negative integer", s)
		}
		v = v*10 + uint64(c-'0')
	}
	return uint32(v), nil
}

// Load reads the precomputed filter file at path (§6), filling in
// cat.IndexedCampaigns and cat.IndexedBanners (dropping rows referencing
// campaigns unknown to cat, as the loaded catalog's referential truth), and
// returns the bitset Bank built from it.
//
// This mirrors the original's loadPrecalculatedFilters: campaigns/banners
// whose ids are unknown are skipped, and their original bit positions are
// omitted from every bitset decoded from the file's hex bank sections, so a
// bank bitset's final size is the file's declared count minus the number
// skipped.
func Load(path string, cat *catalog.Catalog) (*Bank, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	log.Printf("filters: loaded %s (%d bytes, farm=%#x)", path, len(data), farm.Hash64(data))
	t := newTok(path, data)

	originalCampaignCount, skippedCampaigns, err := readCampaigns(t, cat)
	if err != nil {
		return nil, err
	}
	originalBannerCount, skippedBanners, err := readBanners(t, cat)
	if err != nil {
		return nil, err
	}
	log.Printf("filters: indexed campaigns=%d (skipped %d), banners=%d (skipped %d)",
		len(cat.IndexedCampaigns), len(skippedCampaigns), len(cat.IndexedBanners), len(skippedBanners))

	campaignBitsets, err := readBitsetBank(t, "Campaign", originalCampaignCount, skippedCampaigns)
	if err != nil {
		return nil, err
	}
	bannerBitsets, err := readBitsetBank(t, "Banner", originalBannerCount, skippedBanners)
	if err != nil {
		return nil, err
	}

	bank := &Bank{
		CampaignBitsets: campaignBitsets,
		BannerBitsets:   bannerBitsets,
		PadFilters:      map[uint32]PadFilter{},
	}
	if err := readPadFilters(t, cat, bank); err != nil {
		return nil, err
	}

	if err := t.expect("Done"); err != nil {
		return nil, err
	}
	return bank, nil
}

// readCampaigns parses the "Campaigns (id)" section and appends one
// IndexedCampaign per known campaign id, in file order, to cat. It returns
// the file's declared campaign count and the 0-based positions (within
// that count) of the ids the catalog doesn't know about.
func readCampaigns(t *tok, cat *catalog.Catalog) (originalCount int, skipped []int, err error) {
	if err := t.expectSeq("Campaigns", "(id)"); err != nil {
		return 0, nil, err
	}
	originalCount, err = t.int_()
	if err != nil {
		return 0, nil, err
	}
	if originalCount == 0 {
		return 0, nil, errors.Errorf("%s: must have at least one campaign", t.path)
	}

	userIDs := map[uint32]bool{}
	userCount := 0
	var lastUser uint32
	haveLastUser := false

	for i := 0; i < originalCount; i++ {
		campaignID, err := t.uint32()
		if err != nil {
			return 0, nil, err
		}
		camp := cat.Campaigns[campaignID]
		if camp == nil {
			skipped = append(skipped, i)
			continue
		}
		cat.IndexedCampaigns = append(cat.IndexedCampaigns, catalog.IndexedCampaign{
			UserID:     camp.UserID,
			CampaignID: campaignID,
		})
		if !haveLastUser || lastUser != camp.UserID {
			lastUser = camp.UserID
			haveLastUser = true
			userCount++
		}
		userIDs[camp.UserID] = true
	}
	if len(userIDs) != userCount {
		return 0, nil, errors.Errorf("%s: order of users is broken", t.path)
	}
	return originalCount, skipped, nil
}

// readBanners parses the "Banners (id, campaign_id)" section, filling in
// FirstBannerPosition/BannerCount on cat.IndexedCampaigns and appending to
// cat.IndexedBanners and the owning Campaign's BannerIDs.
func readBanners(t *tok, cat *catalog.Catalog) (originalCount int, skipped []int, err error) {
	if err := t.expectSeq("Banners", "(id,", "campaign_id)"); err != nil {
		return 0, nil, err
	}
	originalCount, err = t.int_()
	if err != nil {
		return 0, nil, err
	}
	if originalCount == 0 {
		return 0, nil, errors.Errorf("%s: must have at least one banner", t.path)
	}
	if len(cat.IndexedCampaigns) == 0 {
		return 0, nil, errors.Errorf("%s: no indexed campaigns to attach banners to", t.path)
	}

	pos := 0
	cat.IndexedCampaigns[0].FirstBannerPosition = 0
	cat.IndexedCampaigns[0].BannerCount = 0

	for i := 0; i < originalCount; i++ {
		bannerID, err := t.uint32()
		if err != nil {
			return 0, nil, err
		}
		campaignID, err := t.uint32()
		if err != nil {
			return 0, nil, err
		}
		camp := cat.Campaigns[campaignID]
		if camp == nil {
			skipped = append(skipped, i)
			continue
		}
		if cat.IndexedCampaigns[pos].CampaignID != campaignID {
			pos++
			if pos == len(cat.IndexedCampaigns) {
				return 0, nil, errors.Errorf("%s: campaign order in banner list is broken", t.path)
			}
			cat.IndexedCampaigns[pos].FirstBannerPosition = uint32(len(cat.IndexedBanners))
			cat.IndexedCampaigns[pos].BannerCount = 0
		}
		if cat.IndexedCampaigns[pos].CampaignID != campaignID {
			return 0, nil, errors.Errorf("%s: campaign order in banner list is broken", t.path)
		}
		cat.IndexedCampaigns[pos].BannerCount++
		camp.BannerIDs = append(camp.BannerIDs, bannerID)
		cat.IndexedBanners = append(cat.IndexedBanners, catalog.IndexedBanner{
			UserID:     camp.UserID,
			CampaignID: campaignID,
			BannerID:   bannerID,
		})
	}

	checkCount := 0
	for i := range cat.IndexedCampaigns {
		ic := cat.IndexedCampaigns[i]
		checkCount += int(ic.BannerCount)
		for j := uint32(0); j < ic.BannerCount; j++ {
			k := ic.FirstBannerPosition + j
			if int(k) >= len(cat.IndexedBanners) ||
				cat.IndexedBanners[k].UserID != ic.UserID ||
				cat.IndexedBanners[k].CampaignID != ic.CampaignID {
				return 0, nil, errors.Errorf("%s: banner/campaign layout inconsistent at campaign %d", t.path, ic.CampaignID)
			}
		}
	}
	if checkCount != len(cat.IndexedBanners) {
		return 0, nil, errors.Errorf("%s: banner/campaign layout inconsistent", t.path)
	}
	return originalCount, skipped, nil
}

func readBitsetBank(t *tok, label string, originalSize int, skipped []int) ([]*bitset.Set, error) {
	if err := t.expectSeq(label, "bitsets:"); err != nil {
		return nil, err
	}
	count, err := t.int_()
	if err != nil {
		return nil, err
	}
	bank := make([]*bitset.Set, count)
	for i := 0; i < count; i++ {
		id, err := t.uint32()
		if err != nil {
			return nil, err
		}
		if int(id) >= count {
			return nil, errors.Errorf("%s: bitset id %d out of range [0,%d)", t.path, id, count)
		}
		hex, err := t.next()
		if err != nil {
			return nil, err
		}
		set, err := decodeSkipping(hex, originalSize, skipped)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: %s bitset %d", t.path, label, id)
		}
		bank[id] = set
	}
	return bank, nil
}

// decodeSkipping is the skip-aware counterpart to bitset.DecodeHex: it
// decodes a hex string described over originalSize bit positions, but
// omits the bits at the (sorted, 0-based) positions listed in skipped, the
// way the original's loadBitsetFromString drops bits for campaigns/banners
// unknown to the local catalog.
func decodeSkipping(hex string, originalSize int, skipped []int) (*bitset.Set, error) {
	wantDigits := (originalSize + 3) / 4
	if len(hex) != wantDigits {
		return nil, errors.Errorf("hex string has %d digits, want %d for %d bits", len(hex), wantDigits, originalSize)
	}
	out := bitset.New(uint(originalSize-len(skipped)), false)
	skipIdx := 0
	resultPos := uint(0)
	for d := 0; d < len(hex); d++ {
		digit, err := hexDigitValue(hex[d])
		if err != nil {
			return nil, err
		}
		for j := 0; j < 4; j++ {
			origPos := d*4 + j
			if origPos >= originalSize {
				break
			}
			if skipIdx < len(skipped) && skipped[skipIdx] == origPos {
				skipIdx++
				continue
			}
			if (digit>>uint(j))&1 != 0 {
				out.Set(resultPos)
			}
			resultPos++
		}
	}
	return out, nil
}

func hexDigitValue(c byte) (int, error) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), nil
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, nil
	default:
		return 0, errors.Errorf("invalid hex digit %q", c)
	}
}

func readPadFilters(t *tok, cat *catalog.Catalog, bank *Bank) error {
	if err := t.expect("pad_id/full/any/banner:"); err != nil {
		return err
	}
	count, err := t.int_()
	if err != nil {
		return err
	}
	skipped := 0
	nCampaigns := uint(len(cat.IndexedCampaigns))
	nBanners := uint(len(cat.IndexedBanners))

	for i := 0; i < count; i++ {
		padID, err := t.uint32()
		if err != nil {
			return err
		}
		allID, err := t.uint32()
		if err != nil {
			return err
		}
		anyID, err := t.uint32()
		if err != nil {
			return err
		}
		bannersID, err := t.uint32()
		if err != nil {
			return err
		}

		if int(allID) >= len(bank.CampaignBitsets) || int(anyID) >= len(bank.CampaignBitsets) || int(bannersID) >= len(bank.BannerBitsets) {
			return errors.Errorf("%s: pad %d: bitset id out of range", t.path, padID)
		}
		all := bank.CampaignBitsets[allID]
		any := bank.CampaignBitsets[anyID]
		banners := bank.BannerBitsets[bannersID]
		if all.Size() != nCampaigns || any.Size() != nCampaigns {
			return errors.Errorf("%s: pad %d: campaign bitset size mismatch, got %d/%d, want %d",
				t.path, padID, all.Size(), any.Size(), nCampaigns)
		}
		if banners.Size() != nBanners {
			return errors.Errorf("%s: pad %d: banner bitset size mismatch, got %d, want %d",
				t.path, padID, banners.Size(), nBanners)
		}

		pad := cat.Pads[padID]
		if pad == nil {
			skipped++
			continue
		}
		pad.HasTargetingsOrFilters = true
		bank.PadFilters[padID] = PadFilter{AllID: allID, AnyID: anyID, BannersID: bannersID}
	}
	log.Printf("filters: loaded pad filters=%d (skipped %d)", len(bank.PadFilters), skipped)
	return nil
}
