// Package server assembles the gin engine from the feature handlers.
package server

import (
	"context"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/artists"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/cache"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/config"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/csrf"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/logging"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/metrics"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/pages"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/session"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/shows"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/venues"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/views"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/web"
)

// NewStore builds the listing cache selected by cfg.Cache.Driver.
// The returned close func releases the redis connection, if any.
func NewStore(ctx context.Context, cfg *config.Config) (cache.Store, func() error, error) {
	noClose := func() error { return nil }

	switch cfg.Cache.Driver {
	case "memory":
		return cache.NewMemory(), noClose, nil
	case "redis":
		r, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Connected to redis")
		return r, r.Close, nil
	case "none", "":
		return cache.Noop{}, noClose, nil
	}
	return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
}

// New builds the engine with every route registered
func New(db *gorm.DB, cfg *config.Config, store cache.Store) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)

	r.Use(logging.RequestID())
	r.Use(logging.Logger())
	r.Use(logging.Recovery(views.ServerError))
	if cfg.Metrics.Enabled {
		metrics.Register()
		r.Use(metrics.Middleware())
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", csrf.HeaderName}
	corsConfig.ExposeHeaders = []string{logging.RequestIDHeader}
	r.Use(cors.New(corsConfig))

	// Static files, health and metrics sit outside the session so they
	// never set cookies.
	r.StaticFS("/static", web.Static())
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metrics.Handler())
	}

	secret := []byte(cfg.Security.SecretKey)
	site := r.Group("")
	site.Use(session.Middleware(secret, cfg.IsProduction()))
	if cfg.Security.CSRFEnabled {
		site.Use(csrf.New(secret).Middleware(views.BadRequest))
	}

	ttl := cfg.Cache.TTL
	pagesHandler := pages.NewHandler(db, store, ttl)
	pagesHandler.RegisterRoutes(site)
	pagesHandler.RegisterFallbacks(r, session.Middleware(secret, cfg.IsProduction()))

	venues.NewHandler(db, store, ttl).RegisterRoutes(site)
	artists.NewHandler(db, store, ttl).RegisterRoutes(site)
	shows.NewHandler(db, store).RegisterRoutes(site)

	return r, nil
}
