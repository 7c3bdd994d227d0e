package models

import (
	"time"

	"gorm.io/gorm"
)

// Venue is a place that hosts shows
type Venue struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
	Name               string         `gorm:"not null;index:ix_venue_name;uniqueIndex:uq_name_locationid,where:deleted_at IS NULL" json:"name"`
	Phone              string         `gorm:"size:120" json:"phone"`
	ImageLink          string         `gorm:"size:500" json:"image_link"`
	SeekingTalent      bool           `gorm:"not null;default:false" json:"seeking_talent"`
	SeekingDescription string         `json:"seeking_description"`
	LocationID         uint           `gorm:"not null;uniqueIndex:uq_name_locationid" json:"location_id"`

	// Relationships
	Location   Location    `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Shows      []Show      `gorm:"foreignKey:VenueID;constraint:OnDelete:CASCADE" json:"shows,omitempty"`
	VenueLinks []VenueLink `gorm:"foreignKey:VenueID;constraint:OnDelete:CASCADE" json:"venue_links,omitempty"`
	Genres     []Genre     `gorm:"many2many:genres_venues;" json:"genres,omitempty"`
}

// GenreVenue is the join row between genres and venues
type GenreVenue struct {
	VenueID uint `gorm:"primaryKey;autoIncrement:false"`
	GenreID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (GenreVenue) TableName() string { return "genres_venues" }

// VenueLink attaches a link to a venue.
// At most one row per venue may have IsPrimary set (partial unique index).
type VenueLink struct {
	VenueID   uint `gorm:"primaryKey;autoIncrement:false;index:ix_venue_primary_link,unique,where:is_primary = true" json:"venue_id"`
	LinkID    uint `gorm:"primaryKey;autoIncrement:false" json:"link_id"`
	IsPrimary bool `gorm:"not null;default:false" json:"is_primary"`

	Link Link `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"link"`
}

// GetLink returns the attached link
func (vl VenueLink) GetLink() Link { return vl.Link }

// Primary reports whether this is the venue's primary link
func (vl VenueLink) Primary() bool { return vl.IsPrimary }
