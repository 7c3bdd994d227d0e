package models

// Genre is a music genre shared by artists and venues
type Genre struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"column:genre_name;size:120;uniqueIndex;not null" json:"name"`

	// Relationships
	Venues  []Venue  `gorm:"many2many:genres_venues;" json:"venues,omitempty"`
	Artists []Artist `gorm:"many2many:genres_artists;" json:"artists,omitempty"`
}

// GenreNames returns the names of the given genres in order
func GenreNames(genres []Genre) []string {
	names := make([]string, len(genres))
	for i, g := range genres {
		names[i] = g.Name
	}
	return names
}
