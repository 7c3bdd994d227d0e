package artists

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/cache"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/forms"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/links"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/lookups"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/metrics"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/session"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/shows"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/views"
)

// Handler handles artist pages
type Handler struct {
	db       *gorm.DB
	cache    cache.Store
	cacheTTL time.Duration
	now      func() time.Time
}

// NewHandler creates a new artists handler
func NewHandler(db *gorm.DB, store cache.Store, cacheTTL time.Duration) *Handler {
	if store == nil {
		store = cache.Noop{}
	}
	return &Handler{db: db, cache: store, cacheTTL: cacheTTL, now: time.Now}
}

// ArtistDetail is the artist page payload
type ArtistDetail struct {
	ID                 uint         `json:"id"`
	Name               string       `json:"name"`
	Genres             []string     `json:"genres"`
	SocialLink         string       `json:"social_link"`
	Links              []links.View `json:"links"`
	SeekingVenue       bool         `json:"seeking_venue"`
	SeekingDescription string       `json:"seeking_description"`
	ImageLink          string       `json:"image_link"`
	PastShows          []shows.View `json:"past_shows"`
	UpcomingShows      []shows.View `json:"upcoming_shows"`
	PastShowsCount     int          `json:"past_shows_count"`
	UpcomingShowsCount int          `json:"upcoming_shows_count"`
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func formData(form forms.ArtistForm) gin.H {
	return gin.H{
		"form":   form,
		"errors": map[string]string{},
		"genres": forms.Genres,
	}
}

func (h *Handler) invalidate(c *gin.Context) {
	if err := cache.Invalidate(c.Request.Context(), h.cache); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate listing cache")
	}
}

func (h *Handler) summaries(artists []models.Artist) []views.Summary {
	now := h.now()
	out := make([]views.Summary, len(artists))
	for i, a := range artists {
		out[i] = views.Summary{ID: a.ID, Name: a.Name, NumUpcomingShows: shows.CountUpcoming(a.Shows, now)}
	}
	return out
}

func (h *Handler) loadListing() ([]views.Summary, error) {
	var artists []models.Artist
	if err := h.db.Preload("Shows").Order("name, id").Find(&artists).Error; err != nil {
		return nil, err
	}
	return h.summaries(artists), nil
}

// List shows all artists ordered by name
func (h *Handler) List(c *gin.Context) {
	artists, err := cache.Load(c.Request.Context(), h.cache, cache.KeyArtistListing, h.cacheTTL, h.loadListing)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list artists")
		views.ServerError(c)
		return
	}
	views.Render(c, http.StatusOK, "pages/artists.html", gin.H{"artists": artists})
}

// Search matches artist names case-insensitively
func (h *Handler) Search(c *gin.Context) {
	var form forms.SearchForm
	if err := c.ShouldBind(&form); err != nil {
		views.BadRequest(c)
		return
	}

	var artists []models.Artist
	if err := h.db.Preload("Shows").
		Where("LOWER(name) LIKE ? ESCAPE '\\'", form.Pattern()).
		Order("artists.id").
		Find(&artists).Error; err != nil {
		log.Error().Err(err).Msg("Failed to search artists")
		views.ServerError(c)
		return
	}

	data := h.summaries(artists)
	views.Render(c, http.StatusOK, "pages/search_artists.html", gin.H{
		"results":     views.SearchResult{Count: len(data), Data: data},
		"search_term": form.SearchTerm,
	})
}

func (h *Handler) find(id uint) (models.Artist, error) {
	var artist models.Artist
	err := h.db.
		Preload("Genres").
		Preload("ArtistLinks.Link.LinkType").
		Preload("Shows", func(db *gorm.DB) *gorm.DB { return db.Order("start_time") }).
		Preload("Shows.Venue").
		First(&artist, id).Error
	return artist, err
}

// Get shows one artist with the venues they played and will play
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		views.NotFound(c)
		return
	}

	artist, err := h.find(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			views.NotFound(c)
			return
		}
		log.Error().Err(err).Uint("artist_id", id).Msg("Failed to load artist")
		views.ServerError(c)
		return
	}

	past, upcoming := shows.Split(artist.Shows, h.now())
	detail := ArtistDetail{
		ID:                 artist.ID,
		Name:               artist.Name,
		Genres:             models.GenreNames(artist.Genres),
		SocialLink:         links.PrimaryURL(artist.ArtistLinks),
		Links:              links.Views(artist.ArtistLinks),
		SeekingVenue:       artist.SeekingVenue,
		SeekingDescription: artist.SeekingDescription,
		ImageLink:          artist.ImageLink,
		PastShows:          shows.NewViews(past),
		UpcomingShows:      shows.NewViews(upcoming),
		PastShowsCount:     len(past),
		UpcomingShowsCount: len(upcoming),
	}

	views.Render(c, http.StatusOK, "pages/show_artist.html", gin.H{"artist": detail})
}

// NewForm renders the empty create form
func (h *Handler) NewForm(c *gin.Context) {
	views.Render(c, http.StatusOK, "forms/new_artist.html", formData(forms.ArtistForm{}))
}

// Create stores a new artist from the submitted form
func (h *Handler) Create(c *gin.Context) {
	var form forms.ArtistForm
	if err := c.ShouldBind(&form); err != nil {
		views.Invalid(c, "forms/new_artist.html", formData(form), map[string]string{"form": "Invalid submission"})
		return
	}
	form.Normalize()
	if err := form.Validate(); err != nil {
		views.Invalid(c, "forms/new_artist.html", formData(form), forms.ErrorMap(err))
		return
	}

	var artist models.Artist
	err := h.db.Transaction(func(tx *gorm.DB) error {
		genres, err := lookups.Genres(tx, form.Genres)
		if err != nil {
			return fmt.Errorf("resolving genres: %w", err)
		}

		artist = models.Artist{
			Name:               form.Name,
			ImageLink:          form.ImageLink,
			SeekingVenue:       form.SeekingVenue,
			SeekingDescription: form.SeekingDescription,
		}
		if err := tx.Create(&artist).Error; err != nil {
			return err
		}
		if err := tx.Model(&artist).Association("Genres").Replace(genres); err != nil {
			return err
		}
		if form.SocialLink != "" {
			if _, err := links.AttachToArtist(tx, artist.ID, form.SocialLink, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Failed to create artist")
		session.Flash(c, "An error occurred. Artist "+form.Name+" could not be listed.")
		views.Render(c, http.StatusInternalServerError, "forms/new_artist.html", formData(form))
		return
	}

	h.invalidate(c)
	metrics.ListingCreated("artist")
	log.Info().Uint("artist_id", artist.ID).Str("name", artist.Name).Msg("Artist created")

	session.Flash(c, "Artist "+artist.Name+" was successfully listed!")
	views.Created(c, "/", gin.H{"id": artist.ID, "name": artist.Name})
}

// EditForm renders the edit form pre-populated from the artist
func (h *Handler) EditForm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		views.NotFound(c)
		return
	}

	artist, err := h.find(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			views.NotFound(c)
			return
		}
		views.ServerError(c)
		return
	}

	data := formData(forms.ArtistFormFromModel(artist))
	data["artist"] = views.Summary{ID: artist.ID, Name: artist.Name}
	views.Render(c, http.StatusOK, "forms/edit_artist.html", data)
}

func (h *Handler) invalidEdit(c *gin.Context, artist models.Artist, form forms.ArtistForm, errs map[string]string) {
	data := formData(form)
	data["artist"] = views.Summary{ID: artist.ID, Name: artist.Name}
	views.Invalid(c, "forms/edit_artist.html", data, errs)
}

// Update applies the edit form; genres and links are replaced
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		views.NotFound(c)
		return
	}

	var artist models.Artist
	if err := h.db.First(&artist, id).Error; err != nil {
		views.NotFound(c)
		return
	}

	var form forms.ArtistForm
	if err := c.ShouldBind(&form); err != nil {
		h.invalidEdit(c, artist, form, map[string]string{"form": "Invalid submission"})
		return
	}
	form.Normalize()
	if err := form.Validate(); err != nil {
		h.invalidEdit(c, artist, form, forms.ErrorMap(err))
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		genres, err := lookups.Genres(tx, form.Genres)
		if err != nil {
			return fmt.Errorf("resolving genres: %w", err)
		}
		if err := tx.Model(&artist).
			Select("Name", "ImageLink", "SeekingVenue", "SeekingDescription").
			Updates(models.Artist{
				Name:               form.Name,
				ImageLink:          form.ImageLink,
				SeekingVenue:       form.SeekingVenue,
				SeekingDescription: form.SeekingDescription,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&artist).Association("Genres").Replace(genres); err != nil {
			return err
		}
		return links.ReplaceArtistLinks(tx, artist.ID, form.SocialLink)
	})

	location := fmt.Sprintf("/artists/%d", artist.ID)
	if err != nil {
		log.Error().Err(err).Uint("artist_id", artist.ID).Msg("Failed to update artist")
		session.Flash(c, "An error occurred. Artist "+form.Name+" could not be updated.")
		if views.WantsJSON(c) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Artist could not be updated"})
			return
		}
		views.Redirect(c, location)
		return
	}

	h.invalidate(c)
	session.Flash(c, "Artist "+form.Name+" was successfully updated!")
	if views.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"id": artist.ID, "name": form.Name})
		return
	}
	views.Redirect(c, location)
}

// Delete soft-deletes the artist together with their shows
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Artist not found"})
		return
	}

	var artist models.Artist
	if err := h.db.First(&artist, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Artist not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("artist_id = ?", artist.ID).Delete(&models.Show{}).Error; err != nil {
			return err
		}
		return tx.Delete(&artist).Error
	})
	if err != nil {
		log.Error().Err(err).Uint("artist_id", artist.ID).Msg("Failed to delete artist")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Artist could not be deleted"})
		return
	}

	h.invalidate(c)
	session.Flash(c, "Artist "+artist.Name+" was successfully deleted.")
	c.JSON(http.StatusOK, gin.H{"success": true, "redirect": "/"})
}

// AddLink attaches an extra link to the artist
func (h *Handler) AddLink(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		views.NotFound(c)
		return
	}

	var artist models.Artist
	if err := h.db.First(&artist, id).Error; err != nil {
		views.NotFound(c)
		return
	}

	location := fmt.Sprintf("/artists/%d", artist.ID)
	var form forms.LinkForm
	if err := c.ShouldBind(&form); err != nil {
		session.Flash(c, "Invalid link submission.")
		views.Redirect(c, location)
		return
	}
	if err := form.Validate(); err != nil {
		if views.WantsJSON(c) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": forms.ErrorMap(err)})
			return
		}
		session.Flash(c, "Link could not be added: "+forms.ErrorMap(err)["url"])
		views.Redirect(c, location)
		return
	}

	var link models.Link
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		link, err = links.AttachToArtist(tx, artist.ID, form.URL, form.MakePrimary)
		return err
	})
	if err != nil {
		log.Error().Err(err).Uint("artist_id", artist.ID).Msg("Failed to add artist link")
		session.Flash(c, "An error occurred. Link could not be added.")
		if views.WantsJSON(c) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Link could not be added"})
			return
		}
		views.Redirect(c, location)
		return
	}

	session.Flash(c, "Link added to artist")
	views.Created(c, location, gin.H{"id": link.ID, "url": link.URL, "type": link.LinkType.TypeName})
}

// MakePrimary switches the artist's primary link
func (h *Handler) MakePrimary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		views.NotFound(c)
		return
	}
	linkID, ok := parseID(c, "link_id")
	if !ok {
		views.NotFound(c)
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return links.SetPrimaryForArtist(tx, id, linkID)
	})
	if err != nil {
		if errors.Is(err, links.ErrNotAttached) {
			views.NotFound(c)
			return
		}
		log.Error().Err(err).Uint("artist_id", id).Uint("link_id", linkID).Msg("Failed to set primary link")
		views.ServerError(c)
		return
	}

	session.Flash(c, "Primary link updated")
	if views.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	views.Redirect(c, fmt.Sprintf("/artists/%d", id))
}

// RegisterRoutes registers artist routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/artists", h.List)
	rg.POST("/artists/search", h.Search)
	rg.GET("/artists/create", h.NewForm)
	rg.POST("/artists/create", h.Create)
	rg.GET("/artists/:id", h.Get)
	rg.GET("/artists/:id/edit", h.EditForm)
	rg.POST("/artists/:id/edit", h.Update)
	rg.DELETE("/artists/:id", h.Delete)
	rg.POST("/artists/:id/links", h.AddLink)
	rg.POST("/artists/:id/links/:link_id/make-primary", h.MakePrimary)
}
