package models

import (
	"time"

	"gorm.io/gorm"
)

// Show books an artist at a venue at a given start time
type Show struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	ArtistID  uint           `gorm:"not null;index:ix_show_artist_id;uniqueIndex:uq_artistid_venueid_starttime,where:deleted_at IS NULL" json:"artist_id"`
	VenueID   uint           `gorm:"not null;index:ix_show_venue_id;uniqueIndex:uq_artistid_venueid_starttime" json:"venue_id"`
	StartTime time.Time      `gorm:"not null;index:ix_show_start_time;uniqueIndex:uq_artistid_venueid_starttime" json:"start_time"`

	// Relationships
	Artist Artist `gorm:"foreignKey:ArtistID" json:"artist,omitempty"`
	Venue  Venue  `gorm:"foreignKey:VenueID" json:"venue,omitempty"`
}

// BeforeSave stores start times in UTC so they compare and sort consistently
func (s *Show) BeforeSave(tx *gorm.DB) error {
	s.StartTime = s.StartTime.UTC()
	return nil
}
