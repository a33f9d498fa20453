package catalog

import (
	"path/filepath"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Stats reports how many rows of each table were loaded and how many had a
// referential error (§7: referential errors are counted, never fatal). Pad
// relations and targetings naming an unknown id are dropped; a user with an
// unknown parent and a campaign with an unknown user are counted as bad but
// kept. Format errors and structural violations are returned as an error
// from Load instead.
type Stats struct {
	Pads, PadRelations, BadPadRelations       int
	Users, BadUsers                           int
	Campaigns, BadCampaigns                   int
	UserTargetings, BadUserTargetings         int
	PackageTargetings, BadPackageTargetings   int
	CampaignTargetings, BadCampaignTargetings int
}

// Load reads pad.txt, pad_relation.txt, user.txt, campaign.txt,
// targeting_user.txt, targeting_package.txt, and targeting_campaign.txt
// from dir and returns the resulting Catalog. IndexedCampaigns/
// IndexedBanners are left nil; only filters.Load (reading the precomputed
// filter file) knows the campaign/banner order.
func Load(dir string) (*Catalog, Stats, error) {
	var stats Stats
	c := &Catalog{
		Pads:      map[uint32]*Pad{},
		Users:     map[uint32]*User{},
		Packages:  map[uint32]*Package{},
		Campaigns: map[uint32]*Campaign{},
	}

	if err := loadPads(dir, c, &stats); err != nil {
		return nil, stats, err
	}
	if err := loadPadRelations(dir, c, &stats); err != nil {
		return nil, stats, err
	}
	if err := loadUsers(dir, c, &stats); err != nil {
		return nil, stats, err
	}
	if err := loadCampaigns(dir, c, &stats); err != nil {
		return nil, stats, err
	}
	if err := loadUserTargetings(dir, c, &stats); err != nil {
		return nil, stats, err
	}
	if err := loadPackageTargetings(dir, c, &stats); err != nil {
		return nil, stats, err
	}
	if err := loadCampaignTargetings(dir, c, &stats); err != nil {
		return nil, stats, err
	}

	log.Printf("catalog: pads=%d (bad relations %d/%d) users=%d (bad %d) campaigns=%d (bad %d)",
		stats.Pads, stats.BadPadRelations, stats.PadRelations, stats.Users, stats.BadUsers,
		stats.Campaigns, stats.BadCampaigns)
	return c, stats, nil
}

func path(dir, name string) string { return filepath.Join(dir, name) }

func loadPads(dir string, c *Catalog, stats *Stats) error {
	r, err := openTable(path(dir, "pad.txt"), []string{"pad_id"})
	if err != nil {
		return err
	}
	for r.Next() {
		id := r.uint32Field(0)
		c.Pads[id] = &Pad{ID: id}
		stats.Pads++
	}
	return nil
}

func loadPadRelations(dir string, c *Catalog, stats *Stats) error {
	r, err := openTable(path(dir, "pad_relation.txt"), []string{"pad_id", "parent_pad_id"})
	if err != nil {
		return err
	}
	for r.Next() {
		stats.PadRelations++
		padID, parentID := r.uint32Field(0), r.uint32Field(1)
		pad, parent := c.Pads[padID], c.Pads[parentID]
		if pad == nil || parent == nil {
			stats.BadPadRelations++
			continue
		}
		pad.DirectParents = append(pad.DirectParents, parentID)
		parent.DirectChildren = append(parent.DirectChildren, padID)
	}
	return nil
}

// loadUsers stores Users[id] = User{id, parentID} for every row, last write
// wins on duplicate ids -- the same behavior as the original's
// "Users[id] = User(id, parent_id)" inside its read loop (see the
// duplicate-user-id open question in DESIGN.md). A nonzero parent id that
// names no known user is counted as bad and the user is treated as a root
// (its UserChain walk simply stops there).
func loadUsers(dir string, c *Catalog, stats *Stats) error {
	r, err := openTable(path(dir, "user.txt"), []string{"id", "parent_user_id"})
	if err != nil {
		return err
	}
	for r.Next() {
		id, parentID := r.uint32Field(0), r.uint32Field(1)
		c.Users[id] = &User{ID: id, ParentID: parentID}
	}
	stats.Users = len(c.Users)
	for _, u := range c.Users {
		if u.ParentID != 0 && c.Users[u.ParentID] == nil {
			stats.BadUsers++
		}
	}
	return nil
}

func loadCampaigns(dir string, c *Catalog, stats *Stats) error {
	r, err := openTable(path(dir, "campaign.txt"), []string{"id", "user_id", "package_id"})
	if err != nil {
		return err
	}
	for r.Next() {
		stats.Campaigns++
		id, userID, packageID := r.uint32Field(0), r.uint32Field(1), r.uint32Field(2)
		if c.Packages[packageID] == nil {
			c.Packages[packageID] = &Package{ID: packageID}
		}
		camp := &Campaign{ID: id, UserID: userID, PackageID: packageID}
		if c.Users[userID] != nil {
			camp.HasUser = true
		} else {
			stats.BadCampaigns++
		}
		c.Campaigns[id] = camp
	}
	return nil
}

func loadUserTargetings(dir string, c *Catalog, stats *Stats) error {
	r, err := openTable(path(dir, "targeting_user.txt"), []string{"user_id", "pad_id", "type"})
	if err != nil {
		return err
	}
	for r.Next() {
		stats.UserTargetings++
		userID, padID := r.uint32Field(0), r.uint32Field(1)
		typ, err := parseTargetingType(r.stringField(2))
		if err != nil {
			return errors.Wrapf(err, "targeting_user.txt")
		}
		user, pad := c.Users[userID], c.Pads[padID]
		if user == nil || pad == nil {
			stats.BadUserTargetings++
			continue
		}
		pad.HasTargetingsOrFilters = true
		if typ == Positive {
			user.PositiveTargetingPads = append(user.PositiveTargetingPads, padID)
		} else {
			user.NegativeTargetingPads = append(user.NegativeTargetingPads, padID)
		}
	}
	return nil
}

func loadPackageTargetings(dir string, c *Catalog, stats *Stats) error {
	r, err := openTable(path(dir, "targeting_package.txt"), []string{"package_id", "pad_id", "type"})
	if err != nil {
		return err
	}
	for r.Next() {
		stats.PackageTargetings++
		packageID, padID := r.uint32Field(0), r.uint32Field(1)
		typ, err := parseTargetingType(r.stringField(2))
		if err != nil {
			return errors.Wrapf(err, "targeting_package.txt")
		}
		pad := c.Pads[padID]
		if pad == nil {
			stats.BadPackageTargetings++
			continue
		}
		pkg, ok := c.Packages[packageID]
		if !ok {
			pkg = &Package{ID: packageID}
			c.Packages[packageID] = pkg
		}
		pad.HasTargetingsOrFilters = true
		if typ == Positive {
			pkg.PositiveTargetingPads = append(pkg.PositiveTargetingPads, padID)
		} else {
			pkg.NegativeTargetingPads = append(pkg.NegativeTargetingPads, padID)
		}
	}
	return nil
}

func loadCampaignTargetings(dir string, c *Catalog, stats *Stats) error {
	r, err := openTable(path(dir, "targeting_campaign.txt"), []string{"campaign_id", "pad_id", "type"})
	if err != nil {
		return err
	}
	for r.Next() {
		stats.CampaignTargetings++
		campaignID, padID := r.uint32Field(0), r.uint32Field(1)
		typ, err := parseTargetingType(r.stringField(2))
		if err != nil {
			return errors.Wrapf(err, "targeting_campaign.txt")
		}
		camp, pad := c.Campaigns[campaignID], c.Pads[padID]
		if camp == nil || pad == nil {
			stats.BadCampaignTargetings++
			continue
		}
		pad.HasTargetingsOrFilters = true
		if typ == Positive {
			camp.PositiveTargetingPads = append(camp.PositiveTargetingPads, padID)
		} else {
			camp.NegativeTargetingPads = append(camp.NegativeTargetingPads, padID)
		}
	}
	return nil
}

func parseTargetingType(s string) (TargetingType, error) {
	switch s {
	case "positive":
		return Positive, nil
	case "negative":
		return Negative, nil
	default:
		return false, errors.Errorf("wrong targeting type %q, want \"positive\" or \"negative\"", s)
	}
}
