// Package seed loads venues, artists and shows from YAML fixtures.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/links"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/lookups"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
)

//go:embed fixtures/demo.yaml
var demo []byte

// Venue is a venue fixture. The first link becomes the primary link.
type Venue struct {
	Name               string   `yaml:"name"`
	Address            string   `yaml:"address"`
	City               string   `yaml:"city"`
	State              string   `yaml:"state"`
	Phone              string   `yaml:"phone"`
	Genres             []string `yaml:"genres"`
	Links              []string `yaml:"links"`
	SeekingTalent      bool     `yaml:"seeking_talent"`
	SeekingDescription string   `yaml:"seeking_description"`
	ImageLink          string   `yaml:"image_link"`
}

// Artist is an artist fixture. The first link becomes the primary link.
type Artist struct {
	Name               string   `yaml:"name"`
	Genres             []string `yaml:"genres"`
	Links              []string `yaml:"links"`
	SeekingVenue       bool     `yaml:"seeking_venue"`
	SeekingDescription string   `yaml:"seeking_description"`
	ImageLink          string   `yaml:"image_link"`
}

// Show books an artist at a venue, both referenced by name
type Show struct {
	Venue     string    `yaml:"venue"`
	Artist    string    `yaml:"artist"`
	StartTime time.Time `yaml:"start_time"`
}

// Fixtures is the root of a fixture file
type Fixtures struct {
	Venues  []Venue  `yaml:"venues"`
	Artists []Artist `yaml:"artists"`
	Shows   []Show   `yaml:"shows"`
}

// Result counts the rows a load created
type Result struct {
	Venues  int
	Artists int
	Shows   int
}

// Parse decodes fixtures, rejecting unknown keys
func Parse(r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &fx, nil
}

// LoadFile parses the fixture file at path
func LoadFile(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Demo returns the bundled demo fixtures
func Demo() *Fixtures {
	var fx Fixtures
	if err := yaml.Unmarshal(demo, &fx); err != nil {
		panic(fmt.Sprintf("seed: bundled fixtures are invalid: %v", err))
	}
	return &fx
}

// Apply stores the fixtures in one transaction. Rows that already exist
// (venue by name and location, artist by name, show by its triple) are
// kept, so applying the same fixtures twice is a no-op.
func Apply(db *gorm.DB, fx *Fixtures) (Result, error) {
	var res Result
	err := db.Transaction(func(tx *gorm.DB) error {
		venueIDs := make(map[string]uint, len(fx.Venues))
		for _, v := range fx.Venues {
			id, created, err := applyVenue(tx, v)
			if err != nil {
				return fmt.Errorf("venue %q: %w", v.Name, err)
			}
			venueIDs[v.Name] = id
			if created {
				res.Venues++
			}
		}

		artistIDs := make(map[string]uint, len(fx.Artists))
		for _, a := range fx.Artists {
			id, created, err := applyArtist(tx, a)
			if err != nil {
				return fmt.Errorf("artist %q: %w", a.Name, err)
			}
			artistIDs[a.Name] = id
			if created {
				res.Artists++
			}
		}

		for _, s := range fx.Shows {
			created, err := applyShow(tx, s, venueIDs, artistIDs)
			if err != nil {
				return fmt.Errorf("show %s at %s: %w", s.Artist, s.Venue, err)
			}
			if created {
				res.Shows++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	log.Info().Int("venues", res.Venues).Int("artists", res.Artists).Int("shows", res.Shows).Msg("Fixtures applied")
	return res, nil
}

func applyVenue(tx *gorm.DB, v Venue) (uint, bool, error) {
	loc, err := lookups.Address(tx, v.Address, v.City, v.State)
	if err != nil {
		return 0, false, err
	}

	var existing models.Venue
	err = tx.Where("name = ? AND location_id = ?", v.Name, loc.ID).First(&existing).Error
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}

	genres, err := lookups.Genres(tx, v.Genres)
	if err != nil {
		return 0, false, err
	}
	venue := models.Venue{
		Name:               v.Name,
		Phone:              v.Phone,
		ImageLink:          v.ImageLink,
		SeekingTalent:      v.SeekingTalent,
		SeekingDescription: v.SeekingDescription,
		LocationID:         loc.ID,
	}
	if err := tx.Create(&venue).Error; err != nil {
		return 0, false, err
	}
	if err := tx.Model(&venue).Association("Genres").Replace(genres); err != nil {
		return 0, false, err
	}
	for i, url := range v.Links {
		if _, err := links.AttachToVenue(tx, venue.ID, url, i == 0); err != nil {
			return 0, false, err
		}
	}
	return venue.ID, true, nil
}

func applyArtist(tx *gorm.DB, a Artist) (uint, bool, error) {
	var existing models.Artist
	err := tx.Where("name = ?", a.Name).First(&existing).Error
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}

	genres, err := lookups.Genres(tx, a.Genres)
	if err != nil {
		return 0, false, err
	}
	artist := models.Artist{
		Name:               a.Name,
		ImageLink:          a.ImageLink,
		SeekingVenue:       a.SeekingVenue,
		SeekingDescription: a.SeekingDescription,
	}
	if err := tx.Create(&artist).Error; err != nil {
		return 0, false, err
	}
	if err := tx.Model(&artist).Association("Genres").Replace(genres); err != nil {
		return 0, false, err
	}
	for i, url := range a.Links {
		if _, err := links.AttachToArtist(tx, artist.ID, url, i == 0); err != nil {
			return 0, false, err
		}
	}
	return artist.ID, true, nil
}

func applyShow(tx *gorm.DB, s Show, venueIDs, artistIDs map[string]uint) (bool, error) {
	venueID, ok := venueIDs[s.Venue]
	if !ok {
		return false, fmt.Errorf("unknown venue %q", s.Venue)
	}
	artistID, ok := artistIDs[s.Artist]
	if !ok {
		return false, fmt.Errorf("unknown artist %q", s.Artist)
	}

	start := s.StartTime.UTC()
	var count int64
	if err := tx.Model(&models.Show{}).
		Where("artist_id = ? AND venue_id = ? AND start_time = ?", artistID, venueID, start).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	show := models.Show{ArtistID: artistID, VenueID: venueID, StartTime: start}
	if err := tx.Create(&show).Error; err != nil {
		return false, err
	}
	return true, nil
}
