package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfryer1193/blogsync/blog/application"
	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/dfryer1193/blogsync/blog/persistence"
	"github.com/dfryer1193/blogsync/internal/middleware"
	"github.com/dfryer1193/blogsync/internal/rest"
	"github.com/dfryer1193/blogsync/shared/config"
	"github.com/dfryer1193/blogsync/shared/db/sqlite"
	gh "github.com/dfryer1193/blogsync/shared/github"
	"github.com/dfryer1193/blogsync/shared/pagecache"
	webhook "github.com/dfryer1193/blogsync/webhook/http"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 5 * time.Second
	resyncTimeout   = 5 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "blogsync",
		Short:         "Serves blog posts cached from a GitHub repository",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and webhook endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "resync",
		Short: "Rebuild the post cache from the source repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResync()
		},
	})

	return root
}

// app holds the dependencies shared by every command, constructed once.
type app struct {
	cfg         *config.Config
	store       domain.PostStore
	postService *application.PostService
	closer      io.Closer
}

func setup() (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// logging is not configured yet
		log.Error().Err(err).Msg("Failed to load configuration")
		return nil, err
	}
	configureLogging(cfg)

	store, closer, err := openStore(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open post store")
		return nil, err
	}

	sourceRepo := gh.NewGithubSourceRepository(
		gh.NewClient(cfg.GithubToken),
		cfg.GithubOwner,
		cfg.GithubRepo,
		gh.WithRef(cfg.SourceBranch),
		gh.WithRateLimit(cfg.GithubRateLimit),
	)
	source := application.NewSourceBlogData(sourceRepo, cfg.SyncConcurrency)
	log.Info().
		Str("repo", sourceRepo.GetRepoFullName()).
		Str("branch", cfg.SourceBranch).
		Msg("Reading posts from GitHub")

	return &app{
		cfg:         cfg,
		store:       store,
		postService: application.NewPostService(store, source, cfg.SourceBranch, cfg.SyncConcurrency),
		closer:      closer,
	}, nil
}

func (a *app) Close() {
	if err := a.closer.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close post store")
	}
}

func configureLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func openStore(cfg *config.Config) (domain.PostStore, io.Closer, error) {
	if cfg.UseRedis() {
		opts := persistence.DefaultRedisOptions()
		opts.URL = cfg.RedisURL
		opts.Prefix = cfg.CachePrefix

		store, err := persistence.NewRedisPostStore(opts)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("prefix", cfg.CachePrefix).Msg("Using Redis post store")
		return store, store, nil
	}

	database := sqlite.NewSQLiteDB(sqlite.NewSQLiteConfig(cfg.SQLitePath))
	if err := database.Connect(); err != nil {
		return nil, nil, err
	}
	log.Info().Str("path", cfg.SQLitePath).Msg("Using SQLite post store")
	return persistence.NewSQLitePostStore(database.DB()), database, nil
}

func runServe() error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	pages := pagecache.New(a.cfg.PageCacheTTL)
	invalidation := application.NewInvalidationService(pages)

	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(gin.CustomRecovery(middleware.HandlePanics()))

	webhook.NewWebhookHandler(a.cfg.WebhookSecret, a.postService, invalidation).RegisterRoutes(r)
	rest.NewApi(a.postService, application.NewMarkdownRenderer(a.cfg.SiteURL), pages).RegisterRoutes(r)

	srv := &http.Server{
		Addr:    a.cfg.ServerAddr(),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting server on " + a.cfg.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("Failed to start server")
		return err
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown server")
		return err
	}

	log.Info().Interface("page_cache", pages.Stats()).Msg("Server stopped")
	return nil
}

func runResync() error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()

	if err := a.postService.Resync(ctx); err != nil {
		log.Error().Err(err).Msg("Resync failed")
		return fmt.Errorf("resync: %w", err)
	}

	log.Info().Msg("Resync complete")
	return nil
}
