package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/cache"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/config"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/logging"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
)

var tokenPattern = regexp.MustCompile(`name="csrf-token" content="([^"]+)"`)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Security.SecretKey = "test-secret"
	cfg.Security.CSRFEnabled = true
	cfg.Cache.Driver = "memory"
	cfg.Metrics.Enabled = true
	return cfg
}

func setupFullServer(t *testing.T, cfg *config.Config) (*client, *gorm.DB) {
	db := setupTestDB(t)
	store, closeStore, err := NewStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to build cache: %v", err)
	}
	t.Cleanup(func() { closeStore() })

	r, err := New(db, cfg, store)
	if err != nil {
		t.Fatalf("Failed to build server: %v", err)
	}
	return &client{handler: r, cookies: map[string]*http.Cookie{}}, db
}

// client keeps the session cookie between requests like a browser
type client struct {
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	for _, cookie := range w.Result().Cookies() {
		c.cookies[cookie.Name] = cookie
	}
	return w
}

func (c *client) get(path, accept string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return c.do(req)
}

func (c *client) post(path string, form url.Values, accept string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return c.do(req)
}

// token loads a page and reads the CSRF token from its meta tag
func (c *client) token(t *testing.T) string {
	w := c.get("/", "")
	m := tokenPattern.FindStringSubmatch(w.Body.String())
	if m == nil {
		t.Fatal("Expected a CSRF token on the home page")
	}
	return m[1]
}

func TestServerStartup(t *testing.T) {
	c, _ := setupFullServer(t, testConfig())
	if c.handler == nil {
		t.Fatal("Expected router to be created")
	}
}

func TestHealthEndpoint(t *testing.T) {
	c, _ := setupFullServer(t, testConfig())

	w := c.get("/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get(logging.RequestIDHeader) == "" {
		t.Error("Expected a request id header")
	}
	if len(c.cookies) != 0 {
		t.Error("Expected the health check not to set cookies")
	}
}

func TestStaticAndMetrics(t *testing.T) {
	c, _ := setupFullServer(t, testConfig())

	if w := c.get("/static/css/main.css", ""); w.Code != http.StatusOK {
		t.Errorf("Expected stylesheet, got %d", w.Code)
	}

	c.get("/venues", "")
	w := c.get("/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "fyyur_http_requests_total") {
		t.Error("Expected request counter in the exposition")
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	c, _ := setupFullServer(t, cfg)

	if w := c.get("/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestNotFoundPage(t *testing.T) {
	c, _ := setupFullServer(t, testConfig())

	w := c.get("/nowhere", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Back to the home page") {
		t.Error("Expected the 404 page")
	}
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	c, db := setupFullServer(t, testConfig())

	w := c.post("/artists/create", url.Values{"name": {"Guns N Petals"}, "genres": {"Rock n Roll"}}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}

	var count int64
	db.Model(&models.Artist{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no artist to be stored, got %d", count)
	}
}

func TestCSRFDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Security.CSRFEnabled = false
	c, _ := setupFullServer(t, cfg)

	w := c.post("/artists/create", url.Values{"name": {"Guns N Petals"}, "genres": {"Rock n Roll"}}, "")
	if w.Code != http.StatusFound {
		t.Errorf("Expected status 302, got %d", w.Code)
	}
}

func TestBookingFlow(t *testing.T) {
	c, _ := setupFullServer(t, testConfig())
	token := c.token(t)

	w := c.post("/venues/create", url.Values{
		"csrf_token":  {token},
		"name":        {"The Musical Hop"},
		"city":        {"San Francisco"},
		"state":       {"CA"},
		"address":     {"1015 Folsom Street"},
		"genres":      {"Jazz"},
		"social_link": {"https://www.themusicalhop.com"},
	}, "")
	if w.Code != http.StatusFound {
		t.Fatalf("Expected venue create to redirect, got %d: %s", w.Code, w.Body.String())
	}

	// The flash shows up on the page the browser lands on
	w = c.get("/", "")
	if !strings.Contains(w.Body.String(), "Venue The Musical Hop was successfully listed!") {
		t.Error("Expected the venue flash on the home page")
	}
	if !strings.Contains(w.Body.String(), "The Musical Hop") {
		t.Error("Expected the venue among recent listings")
	}

	w = c.post("/artists/create", url.Values{
		"csrf_token": {token},
		"name":       {"Guns N Petals"},
		"genres":     {"Rock n Roll"},
	}, "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected artist create to answer 201, got %d", w.Code)
	}
	var artist struct {
		ID uint `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &artist)

	w = c.post("/shows/create", url.Values{
		"csrf_token": {token},
		"artist_id":  {strconv.FormatUint(uint64(artist.ID), 10)},
		"venue_id":   {"1"},
		"start_time": {"2035-04-01 20:00"},
	}, "")
	if w.Code != http.StatusFound {
		t.Fatalf("Expected show create to redirect, got %d: %s", w.Code, w.Body.String())
	}

	w = c.get("/venues", "application/json")
	if !strings.Contains(w.Body.String(), `"num_upcoming_shows":1`) {
		t.Errorf("Expected the cached listing to be refreshed, got %s", w.Body.String())
	}

	// Deletes carry the token in a header, as the page script does
	req, _ := http.NewRequest("DELETE", "/venues/1", nil)
	req.Header.Set("X-CSRFToken", token)
	w = c.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected delete to succeed, got %d", w.Code)
	}

	w = c.get("/shows", "application/json")
	if strings.Contains(w.Body.String(), "Guns N Petals") {
		t.Error("Expected the venue's show to be gone")
	}
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{"none", "noop", false},
		{"", "noop", false},
		{"memory", "memory", false},
		{"memcached", "", true},
	}

	for _, tt := range tests {
		cfg := testConfig()
		cfg.Cache.Driver = tt.driver
		store, closeStore, err := NewStore(context.Background(), cfg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Driver %q: expected error", tt.driver)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Driver %q: unexpected error %v", tt.driver, err)
		}
		closeStore()

		var got string
		switch store.(type) {
		case cache.Noop:
			got = "noop"
		case *cache.Memory:
			got = "memory"
		}
		if got != tt.want {
			t.Errorf("Driver %q: expected %s store, got %T", tt.driver, tt.want, store)
		}
	}
}
