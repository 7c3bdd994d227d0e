package models

import (
	"time"

	"gorm.io/gorm"
)

// Artist is a performer that can be booked at venues
type Artist struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
	Name               string         `gorm:"not null;index:ix_artist_name" json:"name"`
	ImageLink          string         `gorm:"size:500" json:"image_link"`
	SeekingVenue       bool           `gorm:"not null;default:false" json:"seeking_venue"`
	SeekingDescription string         `json:"seeking_description"`

	// Relationships
	Shows       []Show       `gorm:"foreignKey:ArtistID;constraint:OnDelete:CASCADE" json:"shows,omitempty"`
	ArtistLinks []ArtistLink `gorm:"foreignKey:ArtistID;constraint:OnDelete:CASCADE" json:"artist_links,omitempty"`
	Genres      []Genre      `gorm:"many2many:genres_artists;" json:"genres,omitempty"`
}

// GenreArtist is the join row between genres and artists
type GenreArtist struct {
	ArtistID uint `gorm:"primaryKey;autoIncrement:false"`
	GenreID  uint `gorm:"primaryKey;autoIncrement:false"`
}

func (GenreArtist) TableName() string { return "genres_artists" }

// ArtistLink attaches a link to an artist.
// At most one row per artist may have IsPrimary set (partial unique index).
type ArtistLink struct {
	ArtistID  uint `gorm:"primaryKey;autoIncrement:false;index:ix_artist_primary_link,unique,where:is_primary = true" json:"artist_id"`
	LinkID    uint `gorm:"primaryKey;autoIncrement:false" json:"link_id"`
	IsPrimary bool `gorm:"not null;default:false" json:"is_primary"`

	Link Link `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"link"`
}

// GetLink returns the attached link
func (al ArtistLink) GetLink() Link { return al.Link }

// Primary reports whether this is the artist's primary link
func (al ArtistLink) Primary() bool { return al.IsPrimary }
