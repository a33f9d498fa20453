// Package catalog holds the flat-file-loaded advertising catalog: Pads,
// Users, Packages, Campaigns, and the compacted IndexedCampaigns/
// IndexedBanners arrays the padindex package builds its bitsets over.
//
// Entities are addressed by dense uint32 ids and reference each other only
// by id, never by pointer -- the padindex build phases look entities up in
// the Catalog's maps/slices as needed. This mirrors the original's decision
// to keep the pad DAG and targeting lists as flat adjacency, just done with
// ids instead of raw pointers so there's nothing here for the garbage
// collector to chase during a build.
package catalog

// TargetingType distinguishes a positive ("allowed") targeting rule from a
// negative ("disallowed") one.
type TargetingType bool

const (
	// Positive marks a rule that allows a campaign to show on a pad.
	Positive TargetingType = true
	// Negative marks a rule that forbids a campaign from showing on a pad.
	Negative TargetingType = false
)

// Pad is an ad placement slot. Pads form a DAG via DirectParents/
// DirectChildren; a pad may have more than one parent.
type Pad struct {
	ID uint32

	DirectParents  []uint32
	DirectChildren []uint32

	// HasTargetingsOrFilters is true iff this pad is the direct subject of
	// any targeting row or any precomputed filter. Only such pads, plus
	// their ancestors with the same property, can affect a query.
	HasTargetingsOrFilters bool

	// EffectivePads and EffectiveGroupID are filled in by padindex.Build
	// (its buildEffectivePads phase); zero value until then.
	EffectivePads    []uint32
	EffectiveGroupID uint32
}

// User is a node in a (single-parent) user chain. ParentID == 0 means no
// parent.
type User struct {
	ID       uint32
	ParentID uint32

	PositiveTargetingPads []uint32
	NegativeTargetingPads []uint32
}

// Package carries its own pad targeting, inherited by every campaign
// assigned to it.
type Package struct {
	ID uint32

	PositiveTargetingPads []uint32
	NegativeTargetingPads []uint32
}

// Campaign is a group of banners, owned by a user, assigned to a package,
// with its own direct pad targeting.
type Campaign struct {
	ID        uint32
	UserID    uint32
	PackageID uint32

	// HasUser is false when UserID named an unknown user at load time; the
	// campaign is kept (it still has a package), but contributes no
	// user-chain targetings.
	HasUser bool

	// BannerIDs is populated by filters.Load, not by catalog's own loader:
	// the banner catalog only exists inside the precomputed filter file.
	BannerIDs []uint32

	PositiveTargetingPads []uint32
	NegativeTargetingPads []uint32
}

// IndexedCampaign is a compacted campaign record. The IndexedCampaigns
// slice is ordered so campaigns of the same user are contiguous, in the
// exact order campaign ids appear in the precomputed filter file (after
// dropping unknown campaigns); every bitset in the system that is "sized
// over IndexedCampaigns" addresses bit k as IndexedCampaigns[k].
type IndexedCampaign struct {
	UserID              uint32
	CampaignID          uint32
	FirstBannerPosition uint32
	BannerCount         uint32
}

// IndexedBanner is a compacted banner record. The IndexedBanners slice is
// ordered so banners of the same campaign are contiguous, and the campaign
// order matches IndexedCampaigns.
type IndexedBanner struct {
	UserID     uint32
	CampaignID uint32
	BannerID   uint32
}

// Catalog is the full set of entities loaded from the flat input tables
// (§6), keyed by id. IndexedCampaigns/IndexedBanners are populated later,
// by filters.Load, once the precomputed filter file has been read; a
// freshly loaded Catalog has them nil.
type Catalog struct {
	Pads      map[uint32]*Pad
	Users     map[uint32]*User
	Packages  map[uint32]*Package
	Campaigns map[uint32]*Campaign

	IndexedCampaigns []IndexedCampaign
	IndexedBanners   []IndexedBanner
}

// UserChain returns user, user's parent, user's parent's parent, and so on,
// stopping at the first unknown or nil parent. A user whose ParentID is
// nonzero but not present in Users is reported at load time (see loadUsers)
// and, from here, simply ends the chain -- it's treated as if it were root.
func (c *Catalog) UserChain(u *User) []*User {
	var chain []*User
	for u != nil {
		chain = append(chain, u)
		if u.ParentID == 0 {
			break
		}
		u = c.Users[u.ParentID]
	}
	return chain
}
