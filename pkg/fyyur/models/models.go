package models

import "gorm.io/gorm"

// AllModels returns all models for migration
func AllModels() []interface{} {
	return []interface{}{
		&PostalCode{},
		&Location{},
		&Genre{},
		&LinkType{},
		&Link{},
		&Venue{},
		&Artist{},
		&Show{},
		&VenueLink{},
		&ArtistLink{},
		&GenreVenue{},
		&GenreArtist{},
	}
}

// SetupJoinTables registers the explicit genre join models.
// It must run on every connection before the Genres associations are used.
func SetupJoinTables(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Venue{}, "Genres", &GenreVenue{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&Genre{}, "Venues", &GenreVenue{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&Artist{}, "Genres", &GenreArtist{}); err != nil {
		return err
	}
	return db.SetupJoinTable(&Genre{}, "Artists", &GenreArtist{})
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	if err := SetupJoinTables(db); err != nil {
		return err
	}
	return db.AutoMigrate(AllModels()...)
}
