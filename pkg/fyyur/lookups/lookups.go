// Package lookups resolves shared reference rows (postal codes, locations,
// genres, link types), creating them on first use so equivalent data is
// stored once.
package lookups

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
)

// resolve loads the row matching query into dest, or creates dest when none exists.
// A concurrent writer winning the unique index race is answered by re-reading its row.
func resolve[T any](tx *gorm.DB, dest *T, query string, args ...any) error {
	err := tx.Where(query, args...).First(dest).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// Savepoint so a failed insert does not poison an enclosing postgres transaction
	err = tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(dest).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return tx.Where(query, args...).First(dest).Error
	}
	return err
}

// PostalCode returns the postal code row for (city, state)
func PostalCode(tx *gorm.DB, city, state string) (models.PostalCode, error) {
	pc := models.PostalCode{City: strings.TrimSpace(city), State: strings.TrimSpace(state)}
	err := resolve(tx, &pc, "city = ? AND state = ?", pc.City, pc.State)
	return pc, err
}

// Location returns the location row for (address, postalCodeID)
func Location(tx *gorm.DB, address string, postalCodeID uint) (models.Location, error) {
	loc := models.Location{Address: strings.TrimSpace(address), PostalCodeID: postalCodeID}
	err := resolve(tx, &loc, "address = ? AND postal_code_id = ?", loc.Address, postalCodeID)
	return loc, err
}

// Address resolves the postal code for (city, state) and then the location
// for the street address inside it. The returned location has PostalCode set.
func Address(tx *gorm.DB, address, city, state string) (models.Location, error) {
	pc, err := PostalCode(tx, city, state)
	if err != nil {
		return models.Location{}, err
	}
	loc, err := Location(tx, address, pc.ID)
	if err != nil {
		return models.Location{}, err
	}
	loc.PostalCode = pc
	return loc, nil
}

// Genres returns one row per distinct non-empty name, in input order
func Genres(tx *gorm.DB, names []string) ([]models.Genre, error) {
	genres := make([]models.Genre, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		genre := models.Genre{Name: name}
		if err := resolve(tx, &genre, "genre_name = ?", name); err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}
	return genres, nil
}

// LinkType returns the link type row named name
func LinkType(tx *gorm.DB, name string) (models.LinkType, error) {
	lt := models.LinkType{TypeName: strings.TrimSpace(name)}
	err := resolve(tx, &lt, "type_name = ?", lt.TypeName)
	return lt, err
}
