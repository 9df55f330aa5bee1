package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"cliphub/internal/database"
	"cliphub/internal/media"
	"cliphub/internal/notify"
	"cliphub/internal/startup"
	"cliphub/internal/storage"
)

// app is what every command runs against: the same configuration, store
// and artifact layout the server uses.
type app struct {
	config    *startup.Config
	db        *database.Database
	artifacts *storage.Manager
	out       io.Writer

	prober    media.Prober
	extractor media.FrameExtractor
	resizer   media.Resizer
	notifier  notify.Notifier
}

// openApp reads the server configuration from the environment (and .env)
// and opens the clip store.
func openApp(ctx context.Context) (*app, error) {
	config := startup.FromEnv()
	if err := config.PrepareDirectories(); err != nil {
		return nil, err
	}

	if config.Resizer == "vips" {
		if err := media.InitVips(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: libvips unavailable, using imaging: %v\n", err)
		}
	}

	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", config.DatabasePath, err)
	}

	artifacts, err := storage.NewManager(storage.Layout{
		Dir:       config.ThumbnailDir,
		URLPrefix: config.ThumbnailURLPrefix,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{
		config:    config,
		db:        db,
		artifacts: artifacts,
		out:       os.Stdout,
		prober:    media.DefaultProber(config.FFprobePath),
		extractor: media.FFmpegExtractor{Path: config.FFmpegPath},
		resizer:   media.NewResizer(config.Resizer),
		notifier:  notify.New(config.DiscordWebhookURL, config.FrontendURL, config.BackendURL),
	}, nil
}

func (a *app) Close() error {
	if a.config != nil && a.config.Resizer == "vips" {
		media.ShutdownVips()
	}
	return a.db.Close()
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
