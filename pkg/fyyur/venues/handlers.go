package venues

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

// Handler handles venue pages
type Handler struct {
	db       *gorm.DB
	cache    cache.Store
	cacheTTL time.Duration
	now      func() time.Time
}

// NewHandler creates a new venues handler
func NewHandler(db *gorm.DB, store cache.Store, cacheTTL time.Duration) *Handler {
	if store == nil {
		store = cache.Noop{}
	}
	return &Handler{db: db, cache: store, cacheTTL: cacheTTL, now: time.Now}
}

// Area groups the venues of one city
type Area struct {
	City   string          `json:"city"`
	State  string          `json:"state"`
	Venues []views.Summary `json:"venues"`
}

// VenueDetail is the venue page payload
type VenueDetail struct {
	ID                 uint         `json:"id"`
	Name               string       `json:"name"`
	Genres             []string     `json:"genres"`
	Address            string       `json:"address"`
	City               string       `json:"city"`
	State              string       `json:"state"`
	Phone              string       `json:"phone"`
	SocialLink         string       `json:"social_link"`
	Links              []links.View `json:"links"`
	SeekingTalent      bool         `json:"seeking_talent"`
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

// formData is the template data shared by the create and edit forms
func formData(form forms.VenueForm) gin.H {
	return gin.H{
		"form":   form,
		"errors": map[string]string{},
		"states": forms.States,
		"genres": forms.Genres,
	}
}

// invalidate drops cached listings after a write
func (h *Handler) invalidate(c *gin.Context) {
	if err := cache.Invalidate(c.Request.Context(), h.cache); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate listing cache")
	}
}

// loadAreas groups venues by (city, state) in first-seen order
func (h *Handler) loadAreas() ([]Area, error) {
	var venues []models.Venue
	if err := h.db.Preload("Location.PostalCode").Preload("Shows").Order("venues.id").Find(&venues).Error; err != nil {
		return nil, err
	}

	now := h.now()
	areas := []Area{}
	index := make(map[[2]string]int)
	for _, v := range venues {
		key := [2]string{v.Location.PostalCode.City, v.Location.PostalCode.State}
		i, ok := index[key]
		if !ok {
			areas = append(areas, Area{City: key[0], State: key[1], Venues: []views.Summary{}})
			i = len(areas) - 1
			index[key] = i
		}
		areas[i].Venues = append(areas[i].Venues, views.Summary{
			ID:               v.ID,
			Name:             v.Name,
			NumUpcomingShows: shows.CountUpcoming(v.Shows, now),
		})
	}
	return areas, nil
}

// List shows all venues grouped by area
func (h *Handler) List(c *gin.Context) {
	areas, err := cache.Load(c.Request.Context(), h.cache, cache.KeyVenueAreas, h.cacheTTL, h.loadAreas)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list venues")
		views.ServerError(c)
		return
	}
	views.Render(c, http.StatusOK, "pages/venues.html", gin.H{"areas": areas})
}

// Search matches venue names case-insensitively
func (h *Handler) Search(c *gin.Context) {
	var form forms.SearchForm
	if err := c.ShouldBind(&form); err != nil {
		views.BadRequest(c)
		return
	}

	var venues []models.Venue
	if err := h.db.Preload("Shows").
		Where("LOWER(name) LIKE ? ESCAPE '\\'", form.Pattern()).
		Order("venues.id").
		Find(&venues).Error; err != nil {
		log.Error().Err(err).Msg("Failed to search venues")
		views.ServerError(c)
		return
	}

	now := h.now()
	result := views.SearchResult{Count: len(venues), Data: make([]views.Summary, len(venues))}
	for i, v := range venues {
		result.Data[i] = views.Summary{ID: v.ID, Name: v.Name, NumUpcomingShows: shows.CountUpcoming(v.Shows, now)}
	}

	views.Render(c, http.StatusOK, "pages/search_venues.html", gin.H{
		"results":     result,
		"search_term": form.SearchTerm,
	})
}

func (h *Handler) find(id uint) (models.Venue, error) {
	var venue models.Venue
	err := h.db.
		Preload("Location.PostalCode").
		Preload("Genres").
		Preload("VenueLinks.Link.LinkType").
		Preload("Shows", func(db *gorm.DB) *gorm.DB { return db.Order("start_time") }).
		Preload("Shows.Artist").
		First(&venue, id).Error
	return venue, err
}

// Get shows one venue with its past and upcoming shows
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		views.NotFound(c)
		return
	}

	venue, err := h.find(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			views.NotFound(c)
			return
		}
		log.Error().Err(err).Uint("venue_id", id).Msg("Failed to load venue")
		views.ServerError(c)
		return
	}

	past, upcoming := shows.Split(venue.Shows, h.now())
	detail := VenueDetail{
		ID:                 venue.ID,
		Name:               venue.Name,
		Genres:             models.GenreNames(venue.Genres),
		Address:            venue.Location.Address,
		City:               venue.Location.PostalCode.City,
		State:              venue.Location.PostalCode.State,
		Phone:              venue.Phone,
		SocialLink:         links.PrimaryURL(venue.VenueLinks),
		Links:              links.Views(venue.VenueLinks),
		SeekingTalent:      venue.SeekingTalent,
		SeekingDescription: venue.SeekingDescription,
		ImageLink:          venue.ImageLink,
		PastShows:          shows.NewViews(past),
		UpcomingShows:      shows.NewViews(upcoming),
		PastShowsCount:     len(past),
		UpcomingShowsCount: len(upcoming),
	}

	views.Render(c, http.StatusOK, "pages/show_venue.html", gin.H{"venue": detail})
}

// NewForm renders the empty create form
func (h *Handler) NewForm(c *gin.Context) {
	views.Render(c, http.StatusOK, "forms/new_venue.html", formData(forms.VenueForm{}))
}

// Create stores a new venue from the submitted form
func (h *Handler) Create(c *gin.Context) {
	var form forms.VenueForm
	if err := c.ShouldBind(&form); err != nil {
		views.Invalid(c, "forms/new_venue.html", formData(form), map[string]string{"form": "Invalid submission"})
		return
	}
	form.Normalize()
	if err := form.Validate(); err != nil {
		views.Invalid(c, "forms/new_venue.html", formData(form), forms.ErrorMap(err))
		return
	}

	var venue models.Venue
	err := h.db.Transaction(func(tx *gorm.DB) error {
		loc, err := lookups.Address(tx, form.Address, form.City, form.State)
		if err != nil {
			return fmt.Errorf("resolving address: %w", err)
		}
		genres, err := lookups.Genres(tx, form.Genres)
		if err != nil {
			return fmt.Errorf("resolving genres: %w", err)
		}

		venue = models.Venue{
			Name:               form.Name,
			Phone:              form.Phone,
			ImageLink:          form.ImageLink,
			SeekingTalent:      form.SeekingTalent,
			SeekingDescription: form.SeekingDescription,
			LocationID:         loc.ID,
		}
		if err := tx.Create(&venue).Error; err != nil {
			return err
		}
		if err := tx.Model(&venue).Association("Genres").Replace(genres); err != nil {
			return err
		}
		if form.SocialLink != "" {
			if _, err := links.AttachToVenue(tx, venue.ID, form.SocialLink, true); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			status = http.StatusConflict
			session.Flash(c, "Venue "+form.Name+" already exists at this address.")
		} else {
			log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Failed to create venue")
			session.Flash(c, "An error occurred. Venue "+form.Name+" could not be listed.")
		}
		views.Render(c, status, "forms/new_venue.html", formData(form))
		return
	}

	h.invalidate(c)
	metrics.ListingCreated("venue")
	log.Info().Uint("venue_id", venue.ID).Str("name", venue.Name).Msg("Venue created")

	session.Flash(c, "Venue "+venue.Name+" was successfully listed!")
	views.Created(c, "/", gin.H{"id": venue.ID, "name": venue.Name})
}

// EditForm renders the edit form pre-populated from the venue
func (h *Handler) EditForm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		views.NotFound(c)
		return
	}

	venue, err := h.find(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			views.NotFound(c)
			return
		}
		views.ServerError(c)
		return
	}

	data := formData(forms.VenueFormFromModel(venue))
	data["venue"] = views.Summary{ID: venue.ID, Name: venue.Name}
	views.Render(c, http.StatusOK, "forms/edit_venue.html", data)
}

func (h *Handler) invalidEdit(c *gin.Context, venue models.Venue, form forms.VenueForm, errs map[string]string) {
	data := formData(form)
	data["venue"] = views.Summary{ID: venue.ID, Name: venue.Name}
	views.Invalid(c, "forms/edit_venue.html", data, errs)
}

// Update applies the edit form; genres and links are replaced, not merged
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		views.NotFound(c)
		return
	}

	var venue models.Venue
	if err := h.db.First(&venue, id).Error; err != nil {
		views.NotFound(c)
		return
	}

	var form forms.VenueForm
	if err := c.ShouldBind(&form); err != nil {
		h.invalidEdit(c, venue, form, map[string]string{"form": "Invalid submission"})
		return
	}
	form.Normalize()
	if err := form.Validate(); err != nil {
		h.invalidEdit(c, venue, form, forms.ErrorMap(err))
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		loc, err := lookups.Address(tx, form.Address, form.City, form.State)
		if err != nil {
			return fmt.Errorf("resolving address: %w", err)
		}
		genres, err := lookups.Genres(tx, form.Genres)
		if err != nil {
			return fmt.Errorf("resolving genres: %w", err)
		}

		if err := tx.Model(&venue).
			Select("Name", "Phone", "ImageLink", "SeekingTalent", "SeekingDescription", "LocationID").
			Updates(models.Venue{
				Name:               form.Name,
				Phone:              form.Phone,
				ImageLink:          form.ImageLink,
				SeekingTalent:      form.SeekingTalent,
				SeekingDescription: form.SeekingDescription,
				LocationID:         loc.ID,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&venue).Association("Genres").Replace(genres); err != nil {
			return err
		}
		return links.ReplaceVenueLinks(tx, venue.ID, form.SocialLink)
	})

	location := fmt.Sprintf("/venues/%d", venue.ID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			status = http.StatusConflict
			session.Flash(c, "Venue "+form.Name+" already exists at this address.")
		} else {
			log.Error().Err(err).Uint("venue_id", venue.ID).Msg("Failed to update venue")
			session.Flash(c, "An error occurred. Venue "+form.Name+" could not be updated.")
		}
		if views.WantsJSON(c) {
			c.JSON(status, gin.H{"error": "Venue could not be updated"})
			return
		}
		views.Redirect(c, location)
		return
	}

	h.invalidate(c)
	session.Flash(c, "Venue "+form.Name+" was successfully updated!")
	if views.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"id": venue.ID, "name": form.Name})
		return
	}
	views.Redirect(c, location)
}

// Delete soft-deletes the venue together with its shows
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Venue not found"})
		return
	}

	var venue models.Venue
	if err := h.db.First(&venue, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Venue not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("venue_id = ?", venue.ID).Delete(&models.Show{}).Error; err != nil {
			return err
		}
		return tx.Delete(&venue).Error
	})
	if err != nil {
		log.Error().Err(err).Uint("venue_id", venue.ID).Msg("Failed to delete venue")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Venue could not be deleted"})
		return
	}

	h.invalidate(c)
	session.Flash(c, "Venue "+venue.Name+" was successfully deleted.")
	c.JSON(http.StatusOK, gin.H{"success": true, "redirect": "/"})
}

// AddLink attaches an extra link to the venue
func (h *Handler) AddLink(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		views.NotFound(c)
		return
	}

	var venue models.Venue
	if err := h.db.First(&venue, id).Error; err != nil {
		views.NotFound(c)
		return
	}

	location := fmt.Sprintf("/venues/%d", venue.ID)
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
		link, err = links.AttachToVenue(tx, venue.ID, form.URL, form.MakePrimary)
		return err
	})
	if err != nil {
		log.Error().Err(err).Uint("venue_id", venue.ID).Msg("Failed to add venue link")
		session.Flash(c, "An error occurred. Link could not be added.")
		if views.WantsJSON(c) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Link could not be added"})
			return
		}
		views.Redirect(c, location)
		return
	}

	session.Flash(c, "Link added to venue")
	views.Created(c, location, gin.H{"id": link.ID, "url": link.URL, "type": link.LinkType.TypeName})
}

// MakePrimary switches the venue's primary link
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
		return links.SetPrimaryForVenue(tx, id, linkID)
	})
	if err != nil {
		if errors.Is(err, links.ErrNotAttached) {
			views.NotFound(c)
			return
		}
		log.Error().Err(err).Uint("venue_id", id).Uint("link_id", linkID).Msg("Failed to set primary link")
		views.ServerError(c)
		return
	}

	session.Flash(c, "Primary link updated for venue")
	if views.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	views.Redirect(c, fmt.Sprintf("/venues/%d", id))
}

// RegisterRoutes registers venue routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/venues", h.List)
	rg.POST("/venues/search", h.Search)
	rg.GET("/venues/create", h.NewForm)
	rg.POST("/venues/create", h.Create)
	rg.GET("/venues/:id", h.Get)
	rg.GET("/venues/:id/edit", h.EditForm)
	rg.POST("/venues/:id/edit", h.Update)
	rg.DELETE("/venues/:id", h.Delete)
	rg.POST("/venues/:id/links", h.AddLink)
	rg.POST("/venues/:id/links/:link_id/make-primary", h.MakePrimary)
}
