package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sjsage522/pricetracker/config"
	"sjsage522/pricetracker/internal"
	"sjsage522/pricetracker/internal/fetch"
	"sjsage522/pricetracker/logger"
	apperrors "sjsage522/pricetracker/pkg/errors"
	"sjsage522/pricetracker/services/cache"
	"sjsage522/pricetracker/services/pipeline"
	"sjsage522/pricetracker/services/publisher"
	"sjsage522/pricetracker/services/storage"
)

// options holds the command-line flags
type options struct {
	target      pipeline.TargetOptions
	analyzeOnly bool
	email       string
	password    string
	session     string
}

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	registry, err := config.LoadRegistry(cfg.CollectiblesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid collectible registry")
	}

	if err := newRootCommand(cfg, registry).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config, registry config.Registry) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "pricetracker",
		Short: "Scrape completed sales for a collectible and summarize their prices.",
		Long: "pricetracker scrapes completed-sale listings or price-history charts for one\n" +
			"collectible, stores the raw records and writes a summary and text report.\n\n" +
			"Collectible types:\n" + registry.Describe(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, registry, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.target.Collectible, "collectible", "", "collectible type from the registry (default "+config.DefaultCollectible+")")
	flags.BoolVarP(&opts.analyzeOnly, "analyze-only", "a", false, "skip scraping and analyze existing data")
	flags.StringVarP(&opts.target.URL, "url", "u", "", "page URL (overrides collection/type)")
	flags.StringVarP(&opts.target.Collection, "collection", "c", "", "collection name, e.g. pokemon-silver-tempest")
	flags.StringVarP(&opts.target.ProductType, "type", "t", "", "product type, e.g. booster-box")
	flags.StringVarP(&opts.target.Mode, "mode", "m", "", "scrape mode: "+config.ModeListing+" or "+config.ModeHistory)
	flags.StringVarP(&opts.target.OutputDir, "output", "o", "", "base output directory (default "+cfg.OutputDir+")")
	flags.StringVarP(&opts.email, "email", "e", "", "login e-mail (default $PRICECHARTING_EMAIL)")
	flags.StringVarP(&opts.password, "password", "p", "", "login password (default $PRICECHARTING_PASSWORD)")
	flags.StringVar(&opts.session, "session", "", "session token from a previous login")

	return cmd
}

func run(parent context.Context, cfg *config.Config, registry config.Registry, opts *options) error {
	log := logger.ForStage("cli")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	target, err := pipeline.ResolveTarget(cfg, registry, opts.target)
	if err != nil {
		return err
	}
	target.Render = target.Render || cfg.UseChrome

	log.Info().
		Str("environment", cfg.Environment).
		Str("target", target.Name).
		Str("mode", target.Mode).
		Str("url", target.URL).
		Str("dir", target.Dir).
		Msg("Starting run")

	creds := fetch.Credentials{
		Email:        firstNonEmpty(opts.email, cfg.Email),
		Password:     firstNonEmpty(opts.password, cfg.Password),
		SessionToken: opts.session,
	}

	services, err := initializeServices(ctx, cfg, target, creds, opts.analyzeOnly)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	p := pipeline.New(services.Dependencies, cfg)

	switch target.Mode {
	case config.ModeHistory:
		result, err := p.RunPriceHistory(ctx, target)
		if err != nil {
			return handleRunError(err)
		}
		for _, e := range result.BlobErrors {
			log.Warn().Err(e).Msg("Blob skipped")
		}
		fmt.Printf("Saved %d files to %s\n", len(result.Files), target.Dir)
		for _, f := range result.Files {
			fmt.Println("  " + f)
		}
	default:
		result, err := p.RunListing(ctx, target, opts.analyzeOnly)
		if err != nil {
			return handleRunError(err)
		}
		if result.FetchErr != nil {
			log.Warn().Err(result.FetchErr).Msg("Report built from previously saved sales")
		}
		fmt.Print(p.RenderReport(result.Summary))
	}
	return nil
}

// handleRunError reports non-fatal outcomes and passes fatal ones through
func handleRunError(err error) error {
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeEmptyDataset):
		fmt.Println("no data to analyze")
		return nil
	case apperrors.IsType(err, apperrors.ErrorTypeFetch):
		logger.LogError("fetch", err, "Could not retrieve page")
		return nil
	default:
		return err
	}
}

// Services holds all the initialized services
type Services struct {
	Cache cache.CacheService
	internal.Dependencies
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices initializes all required services. Memcache and Redis are
// optional; an unreachable server disables the feature for this run.
func initializeServices(ctx context.Context, cfg *config.Config, target pipeline.Target, creds fetch.Credentials, analyzeOnly bool) (*Services, error) {
	services := &Services{}
	services.Storage = storage.NewFileStorage()
	services.Publisher = publisher.Nop{}

	if cfg.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr, "pricetracker")
		if err := cacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unavailable, session and rate-limit caching disabled: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = cacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			logger.Warn("Redis at %s unavailable, summaries will not be published: %v", cfg.RedisAddr, err)
			redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	httpFetcher, err := fetch.NewHTTPFetcher(fetch.OptionsFromConfig(cfg, services.Cache))
	if err != nil {
		return nil, err
	}
	services.Fetcher = httpFetcher

	if analyzeOnly && target.Mode == config.ModeListing {
		return services, nil
	}

	if !creds.Empty() {
		if err := httpFetcher.Login(ctx, creds); err != nil {
			logger.LogError("fetch", err, "Login failed, continuing without a session")
		}
	}

	if target.Render {
		renderer := fetch.NewChromeRenderer(cfg.ChromeBin, cfg.FetchTimeout, target.Collectible.Selectors.Row)
		if token := httpFetcher.SessionToken(); token != "" {
			renderer.WithSession(cfg.SessionCookie, token)
		}
		services.Renderer = renderer
	}

	return services, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
