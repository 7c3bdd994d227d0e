package forms

import (
	"testing"
	"time"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
)

func validVenueForm() VenueForm {
	return VenueForm{
		Name:       "The Musical Hop",
		City:       "San Francisco",
		State:      "CA",
		Address:    "1015 Folsom Street",
		Phone:      "123-123-1234",
		ImageLink:  "https://images.example.com/hop.jpg",
		Genres:     []string{"Jazz", "Swing"},
		SocialLink: "https://www.facebook.com/TheMusicalHop",
	}
}

func TestVenueFormValid(t *testing.T) {
	if err := validVenueForm().Validate(); err != nil {
		t.Errorf("Expected valid form, got %v", err)
	}

	f := validVenueForm()
	f.Phone = ""
	f.ImageLink = ""
	f.SocialLink = ""
	if err := f.Validate(); err != nil {
		t.Errorf("Expected optional fields to be optional, got %v", err)
	}
}

func TestVenueFormErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*VenueForm)
		field  string
	}{
		{"missing name", func(f *VenueForm) { f.Name = "" }, "name"},
		{"missing city", func(f *VenueForm) { f.City = "" }, "city"},
		{"bad state", func(f *VenueForm) { f.State = "XX" }, "state"},
		{"missing address", func(f *VenueForm) { f.Address = "" }, "address"},
		{"bad phone", func(f *VenueForm) { f.Phone = "1231231234" }, "phone"},
		{"no genres", func(f *VenueForm) { f.Genres = nil }, "genres"},
		{"unknown genre", func(f *VenueForm) { f.Genres = []string{"Jazz", "Polka"} }, "genres"},
		{"bad image link", func(f *VenueForm) { f.ImageLink = "not a url" }, "image_link"},
		{"bad social link", func(f *VenueForm) { f.SocialLink = "not a link" }, "social_link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validVenueForm()
			tt.mutate(&f)
			errs := ErrorMap(f.Validate())
			if _, ok := errs[tt.field]; !ok {
				t.Errorf("Expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestVenueFormNormalize(t *testing.T) {
	f := VenueForm{Name: "  Hop ", City: " SF ", Address: " 1 Main St "}
	f.Normalize()
	if f.Name != "Hop" || f.City != "SF" || f.Address != "1 Main St" {
		t.Errorf("Expected trimmed fields, got %+v", f)
	}
}

func TestVenueFormFromModel(t *testing.T) {
	venue := models.Venue{
		Name:          "The Musical Hop",
		Phone:         "123-123-1234",
		SeekingTalent: true,
		Location: models.Location{
			Address:    "1015 Folsom Street",
			PostalCode: models.PostalCode{City: "San Francisco", State: "CA"},
		},
		Genres: []models.Genre{{Name: "Jazz"}, {Name: "Folk"}},
		VenueLinks: []models.VenueLink{
			{LinkID: 1, Link: models.Link{URL: "https://www.themusicalhop.com"}},
			{LinkID: 2, IsPrimary: true, Link: models.Link{URL: "https://www.facebook.com/TheMusicalHop"}},
		},
	}

	f := VenueFormFromModel(venue)
	if f.City != "San Francisco" || f.State != "CA" || f.Address != "1015 Folsom Street" {
		t.Errorf("Unexpected location fields: %+v", f)
	}
	if len(f.Genres) != 2 || f.Genres[0] != "Jazz" {
		t.Errorf("Unexpected genres: %v", f.Genres)
	}
	if f.SocialLink != "https://www.facebook.com/TheMusicalHop" {
		t.Errorf("Expected the primary link, got %q", f.SocialLink)
	}
	if !f.SeekingTalent {
		t.Error("Expected seeking talent to be carried over")
	}
}

func TestArtistForm(t *testing.T) {
	f := ArtistForm{Name: "Guns N Petals", Genres: []string{"Rock n Roll"}}
	if err := f.Validate(); err != nil {
		t.Errorf("Expected valid form, got %v", err)
	}

	f.Name = ""
	f.Genres = []string{"Yodel"}
	errs := ErrorMap(f.Validate())
	if _, ok := errs["name"]; !ok {
		t.Errorf("Expected name error, got %v", errs)
	}
	if _, ok := errs["genres"]; !ok {
		t.Errorf("Expected genres error, got %v", errs)
	}
}

func TestArtistFormFromModel(t *testing.T) {
	artist := models.Artist{
		Name:         "Guns N Petals",
		SeekingVenue: true,
		Genres:       []models.Genre{{Name: "Rock n Roll"}},
		ArtistLinks: []models.ArtistLink{
			{LinkID: 7, Link: models.Link{URL: "https://www.facebook.com/GunsNPetals"}},
		},
	}

	f := ArtistFormFromModel(artist)
	if f.SocialLink != "https://www.facebook.com/GunsNPetals" {
		t.Errorf("Expected the first link without a primary, got %q", f.SocialLink)
	}
	if !f.SeekingVenue {
		t.Error("Expected seeking venue to be carried over")
	}
}

func TestShowForm(t *testing.T) {
	f := ShowForm{ArtistID: 1, VenueID: 2, StartTime: "2035-04-01 20:00"}
	if err := f.Validate(); err != nil {
		t.Errorf("Expected valid form, got %v", err)
	}

	errs := ErrorMap(ShowForm{StartTime: "next tuesday"}.Validate())
	for _, field := range []string{"artist_id", "venue_id", "start_time"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("Expected error on %s, got %v", field, errs)
		}
	}
}

func TestParseStartTime(t *testing.T) {
	want := time.Date(2035, 4, 1, 20, 0, 0, 0, time.UTC)
	inputs := []string{
		"2035-04-01 20:00",
		"2035-04-01 20:00:00",
		"2035-04-01T20:00",
		"2035-04-01T20:00:00",
		"2035-04-01T20:00:00Z",
		"2035-04-01T22:00:00+02:00",
		" 2035-04-01 20:00 ",
	}
	for _, in := range inputs {
		got, err := ParseStartTime(in)
		if err != nil {
			t.Errorf("ParseStartTime(%q) failed: %v", in, err)
			continue
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Errorf("ParseStartTime(%q) = %v, expected %v", in, got, want)
		}
	}

	if _, err := ParseStartTime("04/01/2035"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestLinkForm(t *testing.T) {
	if err := (LinkForm{URL: "https://www.tiktok.com/@band"}).Validate(); err != nil {
		t.Errorf("Expected valid link, got %v", err)
	}
	if err := (LinkForm{}).Validate(); err == nil {
		t.Error("Expected error for missing url")
	}
	if err := (LinkForm{URL: "not a url"}).Validate(); err == nil {
		t.Error("Expected error for invalid url")
	}
}

func TestSearchPattern(t *testing.T) {
	tests := []struct {
		term     string
		expected string
	}{
		{"", "%%"},
		{"Hop", "%hop%"},
		{"  Music ", "%music%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
	}
	for _, tt := range tests {
		if got := (SearchForm{SearchTerm: tt.term}).Pattern(); got != tt.expected {
			t.Errorf("Pattern(%q) = %q, expected %q", tt.term, got, tt.expected)
		}
	}
}

func TestErrorMapNonValidation(t *testing.T) {
	if ErrorMap(nil) != nil {
		t.Error("Expected nil map for nil error")
	}
	errs := ErrorMap(errTest("boom"))
	if errs["form"] != "boom" {
		t.Errorf("Expected form error, got %v", errs)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
