// Package pages serves the home page and the site-wide fallbacks.
package pages

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/cache"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/views"
)

// RecentLimit is how many venues and artists the home page lists
const RecentLimit = 10

// Listing is a recently listed venue or artist
type Listing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Recent holds the home page listings, newest first
type Recent struct {
	Venues  []Listing `json:"venues"`
	Artists []Listing `json:"artists"`
}

// Handler handles the home page and health check
type Handler struct {
	db       *gorm.DB
	cache    cache.Store
	cacheTTL time.Duration
}

// NewHandler creates a new pages handler
func NewHandler(db *gorm.DB, store cache.Store, cacheTTL time.Duration) *Handler {
	if store == nil {
		store = cache.Noop{}
	}
	return &Handler{db: db, cache: store, cacheTTL: cacheTTL}
}

func (h *Handler) loadRecent() (Recent, error) {
	recent := Recent{Venues: []Listing{}, Artists: []Listing{}}
	if err := h.db.Model(&models.Venue{}).Select("id", "name").
		Order("created_at DESC, id DESC").Limit(RecentLimit).Find(&recent.Venues).Error; err != nil {
		return Recent{}, err
	}
	if err := h.db.Model(&models.Artist{}).Select("id", "name").
		Order("created_at DESC, id DESC").Limit(RecentLimit).Find(&recent.Artists).Error; err != nil {
		return Recent{}, err
	}
	return recent, nil
}

// Home lists the most recently added venues and artists
func (h *Handler) Home(c *gin.Context) {
	recent, err := cache.Load(c.Request.Context(), h.cache, cache.KeyRecent, h.cacheTTL, h.loadRecent)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load recent listings")
		views.ServerError(c)
		return
	}
	views.Render(c, http.StatusOK, "pages/home.html", gin.H{
		"venues":  recent.Venues,
		"artists": recent.Artists,
	})
}

// Health reports that the server is up
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterRoutes registers the home page
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.Home)
}

// RegisterFallbacks registers the health check and the 404 page.
// middleware runs before the 404 page only.
func (h *Handler) RegisterFallbacks(r *gin.Engine, middleware ...gin.HandlerFunc) {
	r.GET("/health", h.Health)
	r.NoRoute(append(middleware, views.NotFound)...)
}
