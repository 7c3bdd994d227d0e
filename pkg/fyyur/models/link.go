package models

import "time"

// LinkType is the category of a link (Website, Instagram, ...)
type LinkType struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	TypeName string `gorm:"size:50;uniqueIndex;not null" json:"type_name"`

	Links []Link `gorm:"foreignKey:LinkTypeID;constraint:OnDelete:CASCADE" json:"links,omitempty"`
}

// Link is a URL attached to a venue or artist
type Link struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	URL        string    `gorm:"size:255;not null" json:"url"`
	LinkTypeID uint      `gorm:"not null;index" json:"link_type_id"`

	LinkType LinkType `gorm:"foreignKey:LinkTypeID" json:"link_type"`
}
