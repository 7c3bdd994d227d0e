package models

import "time"

// Location is a street address within a postal code area
type Location struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Address      string    `gorm:"size:255;not null;uniqueIndex:uq_address_postalcodeid" json:"address"`
	PostalCodeID uint      `gorm:"not null;uniqueIndex:uq_address_postalcodeid" json:"postal_code_id"`

	PostalCode PostalCode `gorm:"foreignKey:PostalCodeID" json:"postal_code"`
}

// PostalCode is a (city, state) pair, optionally carrying the code itself
type PostalCode struct {
	ID    uint    `gorm:"primarykey" json:"id"`
	Code  *string `gorm:"size:10" json:"code,omitempty"`
	City  string  `gorm:"size:120;not null;uniqueIndex:uq_city_state" json:"city"`
	State string  `gorm:"size:120;not null;uniqueIndex:uq_city_state" json:"state"`

	Locations []Location `gorm:"foreignKey:PostalCodeID;constraint:OnDelete:CASCADE" json:"locations,omitempty"`
}
