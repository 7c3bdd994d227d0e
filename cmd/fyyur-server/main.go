package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/config"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/database"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/logging"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/seed"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/server"
)

func main() {
	app := &cli.App{
		Name:  "fyyur-server",
		Usage: "venue and artist booking site",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"FYYUR_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the web server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "load fixtures into the database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "fixture file; the bundled demo data when empty",
					},
				},
				Action: seedData,
			},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("fyyur-server failed")
	}
}

// setup loads config, configures logging and connects the database
func setup(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.App.Env, cfg.Log.Level)

	err = database.Connect(database.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, nil
}

func migrate(c *cli.Context) error {
	if _, err := setup(c); err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}
	log.Info().Msg("Database migrations completed")
	return nil
}

func seedData(c *cli.Context) error {
	if _, err := setup(c); err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	fx := seed.Demo()
	if path := c.String("file"); path != "" {
		var err error
		if fx, err = seed.LoadFile(path); err != nil {
			return err
		}
	}

	res, err := seed.Apply(database.GetDB(), fx)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	fmt.Printf("Created %d venues, %d artists, %d shows\n", res.Venues, res.Artists, res.Shows)
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	store, closeStore, err := server.NewStore(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up cache: %w", err)
	}
	defer closeStore()

	router, err := server.New(database.GetDB(), cfg, store)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.App.Env).Msg("Starting Fyyur server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info().Msg("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info().Msg("Server exited")
	return nil
}
