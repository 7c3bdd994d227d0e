package artists

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/cache"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/links"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/lookups"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/session"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/views"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/web"
)

var testNow = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func setupTestRouter(t *testing.T, db *gorm.DB, store cache.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tmpl, err := web.Templates()
	if err != nil {
		t.Fatalf("Failed to parse templates: %v", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(session.Middleware([]byte("test-secret"), false))

	handler := NewHandler(db, store, time.Minute)
	handler.now = func() time.Time { return testNow }
	handler.RegisterRoutes(&r.RouterGroup)
	return r
}

func createTestArtist(t *testing.T, db *gorm.DB, name string) models.Artist {
	artist := models.Artist{Name: name, ImageLink: "https://images.example.com/" + name}
	if err := db.Create(&artist).Error; err != nil {
		t.Fatalf("Failed to create artist: %v", err)
	}
	return artist
}

func createTestVenue(t *testing.T, db *gorm.DB, name string) models.Venue {
	var venue models.Venue
	err := db.Transaction(func(tx *gorm.DB) error {
		loc, err := lookups.Address(tx, "1015 Folsom Street", "San Francisco", "CA")
		if err != nil {
			return err
		}
		venue = models.Venue{Name: name, LocationID: loc.ID}
		return tx.Create(&venue).Error
	})
	if err != nil {
		t.Fatalf("Failed to create venue: %v", err)
	}
	return venue
}

func doRequest(r *gin.Engine, method, path string, form url.Values, accept string) *httptest.ResponseRecorder {
	body := strings.NewReader("")
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, _ := http.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func artistForm(name string) url.Values {
	return url.Values{
		"name":                {name},
		"genres":              {"Rock n Roll"},
		"social_link":         {"https://www.facebook.com/GunsNPetals"},
		"image_link":          {"https://images.example.com/petals.jpg"},
		"seeking_venue":       {"true"},
		"seeking_description": {"Looking for shows to perform at in the San Francisco Bay Area!"},
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestListOrderedByName(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db, nil)
	createTestArtist(t, db, "The Wild Sax Band")
	createTestArtist(t, db, "Guns N Petals")
	createTestArtist(t, db, "Matt Quevedo")

	w := doRequest(r, "GET", "/artists", nil, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Artists []views.Summary `json:"artists"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	expected := []string{"Guns N Petals", "Matt Quevedo", "The Wild Sax Band"}
	if len(resp.Artists) != len(expected) {
		t.Fatalf("Expected %d artists, got %d", len(expected), len(resp.Artists))
	}
	for i, name := range expected {
		if resp.Artists[i].Name != name {
			t.Errorf("Expected %q at %d, got %q", name, i, resp.Artists[i].Name)
		}
	}
}

func TestListInvalidatedOnCreate(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db, cache.NewMemory())
	createTestArtist(t, db, "Matt Quevedo")

	doRequest(r, "GET", "/artists", nil, "application/json")
	doRequest(r, "POST", "/artists/create", artistForm("Guns N Petals"), "")

	w := doRequest(r, "GET", "/artists", nil, "application/json")
	if !strings.Contains(w.Body.String(), "Guns N Petals") {
		t.Errorf("Expected the new artist in the listing, got %s", w.Body.String())
	}
}

func TestSearchArtists(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db, nil)
	createTestArtist(t, db, "Guns N Petals")
	createTestArtist(t, db, "Matt Quevedo")
	createTestArtist(t, db, "The Wild Sax Band")

	tests := []struct {
		term  string
		count int
	}{
		{"A", 3},
		{"band", 1},
		{"xyz", 0},
	}

	for _, tt := range tests {
		w := doRequest(r, "POST", "/artists/search", url.Values{"search_term": {tt.term}}, "application/json")
		var resp struct {
			Results views.SearchResult `json:"results"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Results.Count != tt.count {
			t.Errorf("Search %q: expected %d results, got %d", tt.term, tt.count, resp.Results.Count)
		}
	}

	w := doRequest(r, "POST", "/artists/search", url.Values{"search_term": {"band"}}, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "The Wild Sax Band") {
		t.Errorf("Expected the HTML results page, got %d", w.Code)
	}
}

func TestGetArtist(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db, nil)
	artist := createTestArtist(t, db, "Guns N Petals")
	venue := createTestVenue(t, db, "The Musical Hop")
	links.AttachToArtist(db, artist.ID, "https://www.facebook.com/GunsNPetals", true)

	db.Create(&models.Show{ArtistID: artist.ID, VenueID: venue.ID, StartTime: testNow.Add(-48 * time.Hour)})
	db.Create(&models.Show{ArtistID: artist.ID, VenueID: venue.ID, StartTime: testNow.Add(48 * time.Hour)})

	w := doRequest(r, "GET", "/artists/"+itoa(artist.ID), nil, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Artist ArtistDetail `json:"artist"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	a := resp.Artist
	if a.PastShowsCount != 1 || a.UpcomingShowsCount != 1 {
		t.Errorf("Expected 1 past and 1 upcoming show, got %d and %d", a.PastShowsCount, a.UpcomingShowsCount)
	}
	if a.UpcomingShows[0].VenueName != "The Musical Hop" {
		t.Errorf("Expected venue name on shows, got %q", a.UpcomingShows[0].VenueName)
	}
	if a.SocialLink != "https://www.facebook.com/GunsNPetals" {
		t.Errorf("Expected primary link, got %q", a.SocialLink)
	}

	w = doRequest(r, "GET", "/artists/"+itoa(artist.ID), nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "1 Upcoming Show") {
		t.Errorf("Expected the HTML artist page, got %d", w.Code)
	}
}

func TestGetArtistNotFound(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db, nil)

	w := doRequest(r, "GET", "/artists/77", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCreateArtist(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db, nil)

	w := doRequest(r, "POST", "/artists/create", artistForm("Guns N Petals"), "")
	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d: %s", w.Code, w.Body.String())
	}

	var artist models.Artist
	if err := db.Preload("Genres").Preload("ArtistLinks.Link").First(&artist).Error; err != nil {
		t.Fatalf("Expected artist to be stored: %v", err)
	}
	if !artist.SeekingVenue || len(artist.Genres) != 1 || artist.Genres[0].Name != "Rock n Roll" {
		t.Errorf("Unexpected artist: %+v", artist)
	}
	if len(artist.ArtistLinks) != 1 || !artist.ArtistLinks[0].IsPrimary {
		t.Errorf("Expected one primary link, got %+v", artist.ArtistLinks)
	}

	// The flash survives the redirect
	req, _ := http.NewRequest("GET", "/artists", nil)
	for _, cookie := range w.Result().Cookies() {
		req.AddCookie(cookie)
	}
	next := httptest.NewRecorder()
	r.ServeHTTP(next, req)
	if !strings.Contains(next.Body.String(), "Artist Guns N Petals was successfully listed!") {
		t.Error("Expected the success flash on the next page")
	}
}

func TestCreateArtistValidation(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db, nil)

	form := artistForm("Guns N Petals")
	form["genres"] = []string{"Polka"}
	form.Set("social_link", "not a link")

	w := doRequest(r, "POST", "/artists/create", form, "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Fields["genres"] == "" || resp.Fields["social_link"] == "" {
		t.Errorf("Expected genre and link errors, got %v", resp.Fields)
	}
}

func TestUpdateArtist(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db, nil)
	doRequest(r, "POST", "/artists/create", artistForm("Guns N Petals"), "")

	var artist models.Artist
	db.First(&artist)

	w := doRequest(r, "GET", "/artists/"+itoa(artist.ID)+"/edit", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `<option value="Rock n Roll" selected>`) {
		t.Errorf("Expected the pre-populated edit form, got %d", w.Code)
	}

	form := artistForm("Guns N Roses")
	form["genres"] = []string{"Rock n Roll", "Punk"}
	form.Set("social_link", "")
	w = doRequest(r, "POST", "/artists/"+itoa(artist.ID)+"/edit", form, "")
	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", w.Code)
	}

	var updated models.Artist
	db.Preload("Genres").Preload("ArtistLinks").First(&updated, artist.ID)
	if updated.Name != "Guns N Roses" || len(updated.Genres) != 2 {
		t.Errorf("Unexpected artist after update: %s %v", updated.Name, models.GenreNames(updated.Genres))
	}
	if len(updated.ArtistLinks) != 0 {
		t.Errorf("Expected an empty social link to clear links, got %d", len(updated.ArtistLinks))
	}
}

func TestDeleteArtist(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db, nil)
	artist := createTestArtist(t, db, "Guns N Petals")
	venue := createTestVenue(t, db, "The Musical Hop")
	db.Create(&models.Show{ArtistID: artist.ID, VenueID: venue.ID, StartTime: testNow})

	w := doRequest(r, "DELETE", "/artists/"+itoa(artist.ID), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var shows int64
	db.Model(&models.Show{}).Count(&shows)
	if shows != 0 {
		t.Errorf("Expected the artist's shows to be deleted, got %d", shows)
	}

	w = doRequest(r, "DELETE", "/artists/"+itoa(artist.ID), nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected a second delete to 404, got %d", w.Code)
	}
}

func TestArtistLinks(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db, nil)
	artist := createTestArtist(t, db, "Guns N Petals")
	links.AttachToArtist(db, artist.ID, "https://www.facebook.com/GunsNPetals", true)

	w := doRequest(r, "POST", "/artists/"+itoa(artist.ID)+"/links", url.Values{"url": {"https://www.instagram.com/petals"}, "make_primary": {"true"}}, "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	var added struct {
		ID uint `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &added)

	var primary models.ArtistLink
	db.Where("artist_id = ? AND is_primary = ?", artist.ID, true).First(&primary)
	if primary.LinkID != added.ID {
		t.Errorf("Expected the added link to be primary, got link %d", primary.LinkID)
	}

	w = doRequest(r, "POST", "/artists/"+itoa(artist.ID)+"/links/9999/make-primary", url.Values{}, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for a foreign link, got %d", w.Code)
	}
}
