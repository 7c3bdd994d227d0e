// Package forms holds the submitted form payloads and their validation rules.
package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/links"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
)

var phonePattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)

var startTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// VenueForm is the create/edit venue payload
type VenueForm struct {
	Name               string   `form:"name" json:"name"`
	City               string   `form:"city" json:"city"`
	State              string   `form:"state" json:"state"`
	Address            string   `form:"address" json:"address"`
	Phone              string   `form:"phone" json:"phone"`
	ImageLink          string   `form:"image_link" json:"image_link"`
	Genres             []string `form:"genres" json:"genres"`
	SocialLink         string   `form:"social_link" json:"social_link"`
	SeekingTalent      bool     `form:"seeking_talent" json:"seeking_talent"`
	SeekingDescription string   `form:"seeking_description" json:"seeking_description"`
}

func (f VenueForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required.Error("name is required"), validation.Length(1, 255)),
		validation.Field(&f.City, validation.Required.Error("city is required"), validation.Length(1, 120)),
		validation.Field(&f.State,
			validation.Required.Error("state is required"),
			validation.In(values(States)...).Error("not a valid state"),
		),
		validation.Field(&f.Address, validation.Required.Error("address is required"), validation.Length(1, 255)),
		validation.Field(&f.Phone, validation.Match(phonePattern).Error("phone must look like 123-456-7890")),
		validation.Field(&f.ImageLink, is.URL.Error("image link must be a valid URL"), validation.Length(0, 500)),
		validation.Field(&f.Genres,
			validation.Required.Error("pick at least one genre"),
			validation.Each(validation.In(values(Genres)...).Error("not a valid genre")),
		),
		validation.Field(&f.SocialLink, is.URL.Error("social link must be a valid URL"), validation.Length(0, 255)),
		validation.Field(&f.SeekingDescription, validation.Length(0, 500)),
	)
}

// Normalize trims surrounding whitespace from the text fields
func (f *VenueForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.City = strings.TrimSpace(f.City)
	f.Address = strings.TrimSpace(f.Address)
	f.Phone = strings.TrimSpace(f.Phone)
	f.ImageLink = strings.TrimSpace(f.ImageLink)
	f.SocialLink = strings.TrimSpace(f.SocialLink)
	f.SeekingDescription = strings.TrimSpace(f.SeekingDescription)
}

// VenueFormFromModel pre-populates the edit form from a venue loaded with
// Location.PostalCode, Genres and VenueLinks.Link
func VenueFormFromModel(v models.Venue) VenueForm {
	return VenueForm{
		Name:               v.Name,
		City:               v.Location.PostalCode.City,
		State:              v.Location.PostalCode.State,
		Address:            v.Location.Address,
		Phone:              v.Phone,
		ImageLink:          v.ImageLink,
		Genres:             models.GenreNames(v.Genres),
		SocialLink:         links.PrimaryURL(v.VenueLinks),
		SeekingTalent:      v.SeekingTalent,
		SeekingDescription: v.SeekingDescription,
	}
}

// ArtistForm is the create/edit artist payload
type ArtistForm struct {
	Name               string   `form:"name" json:"name"`
	ImageLink          string   `form:"image_link" json:"image_link"`
	Genres             []string `form:"genres" json:"genres"`
	SocialLink         string   `form:"social_link" json:"social_link"`
	SeekingVenue       bool     `form:"seeking_venue" json:"seeking_venue"`
	SeekingDescription string   `form:"seeking_description" json:"seeking_description"`
}

func (f ArtistForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required.Error("name is required"), validation.Length(1, 255)),
		validation.Field(&f.ImageLink, is.URL.Error("image link must be a valid URL"), validation.Length(0, 500)),
		validation.Field(&f.Genres,
			validation.Required.Error("pick at least one genre"),
			validation.Each(validation.In(values(Genres)...).Error("not a valid genre")),
		),
		validation.Field(&f.SocialLink, is.URL.Error("social link must be a valid URL"), validation.Length(0, 255)),
		validation.Field(&f.SeekingDescription, validation.Length(0, 500)),
	)
}

// Normalize trims surrounding whitespace from the text fields
func (f *ArtistForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.ImageLink = strings.TrimSpace(f.ImageLink)
	f.SocialLink = strings.TrimSpace(f.SocialLink)
	f.SeekingDescription = strings.TrimSpace(f.SeekingDescription)
}

// ArtistFormFromModel pre-populates the edit form from an artist loaded with
// Genres and ArtistLinks.Link
func ArtistFormFromModel(a models.Artist) ArtistForm {
	return ArtistForm{
		Name:               a.Name,
		ImageLink:          a.ImageLink,
		Genres:             models.GenreNames(a.Genres),
		SocialLink:         links.PrimaryURL(a.ArtistLinks),
		SeekingVenue:       a.SeekingVenue,
		SeekingDescription: a.SeekingDescription,
	}
}

// ShowForm is the create show payload
type ShowForm struct {
	ArtistID  uint   `form:"artist_id" json:"artist_id"`
	VenueID   uint   `form:"venue_id" json:"venue_id"`
	StartTime string `form:"start_time" json:"start_time"`
}

func (f ShowForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.ArtistID, validation.Required.Error("artist is required")),
		validation.Field(&f.VenueID, validation.Required.Error("venue is required")),
		validation.Field(&f.StartTime,
			validation.Required.Error("start time is required"),
			validation.By(func(value interface{}) error {
				_, err := ParseStartTime(value.(string))
				return err
			}),
		),
	)
}

// ParseStartTime accepts "YYYY-MM-DD HH:MM[:SS]", the same with a "T"
// separator, or RFC 3339. Times without an offset are UTC.
func ParseStartTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("start time must look like 2006-01-02 15:04")
}

// LinkForm attaches an extra link to a venue or artist
type LinkForm struct {
	URL         string `form:"url" json:"url"`
	MakePrimary bool   `form:"make_primary" json:"make_primary"`
}

func (f LinkForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.URL,
			validation.Required.Error("url is required"),
			is.URL.Error("url must be a valid URL"),
			validation.Length(1, 255),
		),
	)
}

// SearchForm is the search box; an empty term matches everything
type SearchForm struct {
	SearchTerm string `form:"search_term" json:"search_term"`
}

// Pattern returns the LIKE pattern for the term
func (f SearchForm) Pattern() string {
	term := strings.TrimSpace(f.SearchTerm)
	term = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(term)
	return "%" + strings.ToLower(term) + "%"
}

// ErrorMap flattens a validation error into field -> message
func ErrorMap(err error) map[string]string {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for field, e := range verrs {
			out[field] = e.Error()
		}
		return out
	}
	return map[string]string{"form": err.Error()}
}
