// Package links classifies social URLs and manages the links attached to
// venues and artists, including the single primary link per owner.
package links

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/lookups"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
)

// Link type names
const (
	TypeInstagram = "Instagram"
	TypeTikTok    = "TikTok"
	TypeX         = "X"
	TypeFacebook  = "Facebook"
	TypeYouTube   = "YouTube"
	TypeWebsite   = "Website"
)

// ErrNotAttached is returned when a link does not belong to the owner
var ErrNotAttached = errors.New("link is not attached to this owner")

// rules are checked in order; the first match wins
var rules = []struct {
	substrings []string
	linkType   string
}{
	{[]string{"instagram.com"}, TypeInstagram},
	{[]string{"tiktok.com"}, TypeTikTok},
	{[]string{"x.com", "twitter.com"}, TypeX},
	{[]string{"facebook.com"}, TypeFacebook},
	{[]string{"youtube.com"}, TypeYouTube},
}

// Classify returns the link type name for url
func Classify(url string) string {
	u := strings.ToLower(url)
	for _, r := range rules {
		for _, s := range r.substrings {
			if strings.Contains(u, s) {
				return r.linkType
			}
		}
	}
	return TypeWebsite
}

// Create classifies url, resolves its link type and stores a new link
func Create(tx *gorm.DB, url string) (models.Link, error) {
	url = strings.TrimSpace(url)
	lt, err := lookups.LinkType(tx, Classify(url))
	if err != nil {
		return models.Link{}, fmt.Errorf("resolving link type: %w", err)
	}

	link := models.Link{URL: url, LinkTypeID: lt.ID, LinkType: lt}
	if err := tx.Omit("LinkType").Create(&link).Error; err != nil {
		return models.Link{}, fmt.Errorf("creating link: %w", err)
	}
	return link, nil
}

// owner describes one of the link join tables
type owner struct {
	model  func() any
	column string
	row    func(ownerID, linkID uint, primary bool) any
}

var (
	venueOwner = owner{
		model:  func() any { return &models.VenueLink{} },
		column: "venue_id",
		row: func(ownerID, linkID uint, primary bool) any {
			return &models.VenueLink{VenueID: ownerID, LinkID: linkID, IsPrimary: primary}
		},
	}
	artistOwner = owner{
		model:  func() any { return &models.ArtistLink{} },
		column: "artist_id",
		row: func(ownerID, linkID uint, primary bool) any {
			return &models.ArtistLink{ArtistID: ownerID, LinkID: linkID, IsPrimary: primary}
		},
	}
)

func (o owner) clearPrimary(tx *gorm.DB, ownerID uint) error {
	return tx.Model(o.model()).
		Where(o.column+" = ? AND is_primary = ?", ownerID, true).
		Update("is_primary", false).Error
}

func (o owner) attach(tx *gorm.DB, ownerID uint, url string, primary bool) (models.Link, error) {
	link, err := Create(tx, url)
	if err != nil {
		return models.Link{}, err
	}
	if primary {
		if err := o.clearPrimary(tx, ownerID); err != nil {
			return models.Link{}, err
		}
	}
	if err := tx.Create(o.row(ownerID, link.ID, primary)).Error; err != nil {
		return models.Link{}, fmt.Errorf("attaching link: %w", err)
	}
	return link, nil
}

func (o owner) replace(tx *gorm.DB, ownerID uint, url string) error {
	var linkIDs []uint
	if err := tx.Model(o.model()).Where(o.column+" = ?", ownerID).Pluck("link_id", &linkIDs).Error; err != nil {
		return err
	}
	if err := tx.Where(o.column+" = ?", ownerID).Delete(o.model()).Error; err != nil {
		return err
	}
	if len(linkIDs) > 0 {
		if err := tx.Where("id IN ?", linkIDs).Delete(&models.Link{}).Error; err != nil {
			return err
		}
	}

	if strings.TrimSpace(url) == "" {
		return nil
	}
	_, err := o.attach(tx, ownerID, url, true)
	return err
}

func (o owner) setPrimary(tx *gorm.DB, ownerID, linkID uint) error {
	var count int64
	if err := tx.Model(o.model()).Where(o.column+" = ? AND link_id = ?", ownerID, linkID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotAttached
	}

	if err := o.clearPrimary(tx, ownerID); err != nil {
		return err
	}
	return tx.Model(o.model()).
		Where(o.column+" = ? AND link_id = ?", ownerID, linkID).
		Update("is_primary", true).Error
}

// AttachToVenue creates a link for url and attaches it to the venue.
// When primary is set the venue's current primary link is demoted first.
func AttachToVenue(tx *gorm.DB, venueID uint, url string, primary bool) (models.Link, error) {
	return venueOwner.attach(tx, venueID, url, primary)
}

// AttachToArtist is AttachToVenue for artists
func AttachToArtist(tx *gorm.DB, artistID uint, url string, primary bool) (models.Link, error) {
	return artistOwner.attach(tx, artistID, url, primary)
}

// ReplaceVenueLinks drops every link of the venue and attaches url as its primary link
func ReplaceVenueLinks(tx *gorm.DB, venueID uint, url string) error {
	return venueOwner.replace(tx, venueID, url)
}

// ReplaceArtistLinks drops every link of the artist and attaches url as its primary link
func ReplaceArtistLinks(tx *gorm.DB, artistID uint, url string) error {
	return artistOwner.replace(tx, artistID, url)
}

// SetPrimaryForVenue makes linkID the venue's only primary link
func SetPrimaryForVenue(tx *gorm.DB, venueID, linkID uint) error {
	return venueOwner.setPrimary(tx, venueID, linkID)
}

// SetPrimaryForArtist makes linkID the artist's only primary link
func SetPrimaryForArtist(tx *gorm.DB, artistID, linkID uint) error {
	return artistOwner.setPrimary(tx, artistID, linkID)
}

// Owned is a join row between an owner and one of its links
type Owned interface {
	GetLink() models.Link
	Primary() bool
}

// PrimaryURL returns the URL of the primary link, else the first link, else ""
func PrimaryURL[T Owned](rows []T) string {
	for _, r := range rows {
		if r.Primary() {
			return r.GetLink().URL
		}
	}
	if len(rows) > 0 {
		return rows[0].GetLink().URL
	}
	return ""
}

// View is a link as shown on a detail page
type View struct {
	ID        uint   `json:"id"`
	URL       string `json:"url"`
	Type      string `json:"type"`
	IsPrimary bool   `json:"is_primary"`
}

// Views converts join rows (with Link.LinkType loaded), primary link first
func Views[T Owned](rows []T) []View {
	out := make([]View, 0, len(rows))
	for _, r := range rows {
		l := r.GetLink()
		v := View{ID: l.ID, URL: l.URL, Type: l.LinkType.TypeName, IsPrimary: r.Primary()}
		if v.IsPrimary {
			out = append([]View{v}, out...)
		} else {
			out = append(out, v)
		}
	}
	return out
}
