package shows

import (
	"time"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
)

// IsUpcoming reports whether the show starts strictly after now
func IsUpcoming(s models.Show, now time.Time) bool {
	return s.StartTime.After(now)
}

// Split partitions shows into past and upcoming, preserving order
func Split(shows []models.Show, now time.Time) (past, upcoming []models.Show) {
	past = []models.Show{}
	upcoming = []models.Show{}
	for _, s := range shows {
		if IsUpcoming(s, now) {
			upcoming = append(upcoming, s)
		} else {
			past = append(past, s)
		}
	}
	return past, upcoming
}

// CountUpcoming returns how many shows start after now
func CountUpcoming(shows []models.Show, now time.Time) int {
	n := 0
	for _, s := range shows {
		if IsUpcoming(s, now) {
			n++
		}
	}
	return n
}
