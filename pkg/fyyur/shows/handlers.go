package shows

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/cache"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/forms"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/metrics"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/session"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/views"
)

// Handler handles show pages
type Handler struct {
	db    *gorm.DB
	cache cache.Store
}

// NewHandler creates a new shows handler. store is only invalidated, since
// venue and artist listings carry upcoming show counts.
func NewHandler(db *gorm.DB, store cache.Store) *Handler {
	if store == nil {
		store = cache.Noop{}
	}
	return &Handler{db: db, cache: store}
}

// Option is an artist or venue choice on the show form
type Option struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) invalidate(c *gin.Context) {
	if err := cache.Invalidate(c.Request.Context(), h.cache); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate listing cache")
	}
}

// formData loads the artist and venue choices for the create form
func (h *Handler) formData(form forms.ShowForm) (gin.H, error) {
	var artists, venues []Option
	if err := h.db.Model(&models.Artist{}).Select("id", "name").Order("name, id").Find(&artists).Error; err != nil {
		return nil, err
	}
	if err := h.db.Model(&models.Venue{}).Select("id", "name").Order("name, id").Find(&venues).Error; err != nil {
		return nil, err
	}
	return gin.H{
		"form":    form,
		"errors":  map[string]string{},
		"artists": artists,
		"venues":  venues,
	}, nil
}

// List shows every live show ordered by start time
func (h *Handler) List(c *gin.Context) {
	var list []models.Show
	if err := h.db.Preload("Venue").Preload("Artist").Order("start_time, id").Find(&list).Error; err != nil {
		log.Error().Err(err).Msg("Failed to list shows")
		views.ServerError(c)
		return
	}
	views.Render(c, http.StatusOK, "pages/shows.html", gin.H{"shows": NewViews(list)})
}

// NewForm renders the empty create form
func (h *Handler) NewForm(c *gin.Context) {
	data, err := h.formData(forms.ShowForm{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to load show form choices")
		views.ServerError(c)
		return
	}
	views.Render(c, http.StatusOK, "forms/new_show.html", data)
}

// render re-renders the create form with status and field errors
func (h *Handler) render(c *gin.Context, status int, form forms.ShowForm, errs map[string]string) {
	data, err := h.formData(form)
	if err != nil {
		views.ServerError(c)
		return
	}
	if errs != nil {
		views.Invalid(c, "forms/new_show.html", data, errs)
		return
	}
	views.Render(c, status, "forms/new_show.html", data)
}

// Create books an artist at a venue
func (h *Handler) Create(c *gin.Context) {
	var form forms.ShowForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, form, map[string]string{"form": "Invalid submission"})
		return
	}
	if err := form.Validate(); err != nil {
		h.render(c, http.StatusBadRequest, form, forms.ErrorMap(err))
		return
	}
	start, _ := forms.ParseStartTime(form.StartTime)

	errs := map[string]string{}
	if err := h.db.First(&models.Artist{}, form.ArtistID).Error; err != nil {
		errs["artist_id"] = "artist does not exist"
	}
	if err := h.db.First(&models.Venue{}, form.VenueID).Error; err != nil {
		errs["venue_id"] = "venue does not exist"
	}
	if len(errs) > 0 {
		h.render(c, http.StatusBadRequest, form, errs)
		return
	}

	show := models.Show{ArtistID: form.ArtistID, VenueID: form.VenueID, StartTime: start}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&show).Error
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			status = http.StatusConflict
			session.Flash(c, "This show already exists.")
		} else {
			log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Failed to create show")
			session.Flash(c, "An error occurred. Show could not be listed.")
		}
		h.render(c, status, form, nil)
		return
	}

	h.invalidate(c)
	metrics.ListingCreated("show")
	log.Info().Uint("show_id", show.ID).Uint("artist_id", show.ArtistID).Uint("venue_id", show.VenueID).Msg("Show created")

	session.Flash(c, "Show was successfully listed!")
	views.Created(c, "/", gin.H{"id": show.ID, "start_time": show.StartTime})
}

// Delete soft-deletes a show
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Show not found"})
		return
	}

	var show models.Show
	if err := h.db.First(&show, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Show not found"})
		return
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&show).Error
	}); err != nil {
		log.Error().Err(err).Uint("show_id", show.ID).Msg("Failed to delete show")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Show could not be deleted"})
		return
	}

	h.invalidate(c)
	session.Flash(c, "Show was successfully deleted.")
	c.JSON(http.StatusOK, gin.H{"success": true, "redirect": "/shows"})
}

// RegisterRoutes registers show routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/shows", h.List)
	rg.GET("/shows/create", h.NewForm)
	rg.POST("/shows/create", h.Create)
	rg.DELETE("/shows/:id", h.Delete)
}
