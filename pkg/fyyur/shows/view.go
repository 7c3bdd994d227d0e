package shows

import (
	"time"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
)

// View is a show as listed on the shows page and the venue/artist pages
type View struct {
	ID              uint      `json:"id"`
	VenueID         uint      `json:"venue_id"`
	VenueName       string    `json:"venue_name,omitempty"`
	VenueImageLink  string    `json:"venue_image_link,omitempty"`
	ArtistID        uint      `json:"artist_id"`
	ArtistName      string    `json:"artist_name,omitempty"`
	ArtistImageLink string    `json:"artist_image_link,omitempty"`
	StartTime       time.Time `json:"start_time"`
}

// NewView flattens a show with its Venue and Artist loaded
func NewView(s models.Show) View {
	return View{
		ID:              s.ID,
		VenueID:         s.VenueID,
		VenueName:       s.Venue.Name,
		VenueImageLink:  s.Venue.ImageLink,
		ArtistID:        s.ArtistID,
		ArtistName:      s.Artist.Name,
		ArtistImageLink: s.Artist.ImageLink,
		StartTime:       s.StartTime.UTC(),
	}
}

// NewViews flattens a list of shows
func NewViews(list []models.Show) []View {
	out := make([]View, len(list))
	for i, s := range list {
		out[i] = NewView(s)
	}
	return out
}
