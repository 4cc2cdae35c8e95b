package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chemstalk/internal/api"
	"chemstalk/internal/config"
	"chemstalk/internal/crawler"
	"chemstalk/internal/driver"
	"chemstalk/internal/fetcher"
	"chemstalk/internal/storage"
)

var (
	cfgFile    string
	verbose    bool
	concurrent int
	delay      string
	headful    bool
	port       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chemstalk",
		Short: "ChemStalk — chemical catalog crawler and price API",
		Long: `ChemStalk crawls vendor catalogs of chemical products, probes per-pack
availability, normalizes pack sizes, and stores the results for
unit-normalized price queries over a REST API.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// crawlCmd creates the "crawl" subcommand: one full crawl run, then exit.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one full catalog crawl",
		Long:  "Discover catalog categories, walk listings, extract products, probe availability, and store the normalized items.",
		RunE:  runCrawl,
	}

	cmd.Flags().IntVarP(&concurrent, "concurrency", "n", 0, "number of concurrent product workers (0 = config default)")
	cmd.Flags().StringVar(&delay, "delay", "", "politeness delay between product requests")
	cmd.Flags().BoolVar(&headful, "headful", false, "run the browser with a visible window")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("starting crawl",
		"company", cfg.Crawler.CompanyName,
		"base_url", cfg.Crawler.BaseURL,
		"concurrency", cfg.Crawler.Concurrency,
	)

	full, err := driver.NewFullLoad(&cfg.Driver, logger)
	if err != nil {
		return fmt.Errorf("create full-load session: %w", err)
	}
	defer full.Close()

	eager, err := driver.NewEagerLoad(&cfg.Driver, logger)
	if err != nil {
		return fmt.Errorf("create eager-load session: %w", err)
	}
	defer eager.Close()

	fetch, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	store, err := storage.NewMongoStore(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := crawler.New(cfg, full, eager, fetch, store, logger)

	start := time.Now()
	if err := c.Run(ctx); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	elapsed := time.Since(start)
	stats := c.Stats().Snapshot()

	fmt.Printf("\nCrawl complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Categories: %v\n", stats["categories_found"])
	fmt.Printf("  Products:   %v seen, %v skipped\n", stats["products_seen"], stats["items_skipped"])
	fmt.Printf("  Items:      %v stored, %v dropped\n", stats["items_scraped"], stats["items_dropped"])
	fmt.Printf("  Probes:     %v sent\n", stats["probes_sent"])
	fmt.Printf("  Failures:   %v\n", stats["failures"])

	return nil
}

// serveCmd creates the "serve" subcommand: the REST API plus the
// on-demand crawl runner.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the query and crawl-trigger API server",
		RunE:  runServe,
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (0 = config default)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.API.Port = port
	}

	store, err := storage.NewMongoStore(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close(context.Background())

	runner := crawler.NewRunner(cfg, store, logger)
	server := api.NewServer(cfg.API.Port, store, runner, logger)

	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down...", "signal", sig)

	return server.Shutdown(context.Background())
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ChemStalk %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Crawler:\n")
			fmt.Printf("  Company:           %s\n", cfg.Crawler.CompanyName)
			fmt.Printf("  Base URL:          %s\n", cfg.Crawler.BaseURL)
			fmt.Printf("  Concurrency:       %d\n", cfg.Crawler.Concurrency)
			fmt.Printf("  Politeness Delay:  %s\n", cfg.Crawler.PolitenessDelay)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Crawler.RequestTimeout)
			fmt.Printf("  Probe Timeout:     %s\n", cfg.Crawler.ProbeTimeout)
			fmt.Printf("  Max Listing Pages: %d\n", cfg.Crawler.MaxListingPages)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Crawler.UserAgents))
			fmt.Printf("\nDriver:\n")
			fmt.Printf("  Headless:          %v\n", cfg.Driver.Headless)
			fmt.Printf("  Nav Timeout:       %s\n", cfg.Driver.NavTimeout)
			fmt.Printf("  Wait Timeout:      %s\n", cfg.Driver.WaitTimeout)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  URI:               %s\n", cfg.Storage.URI)
			fmt.Printf("  Database:          %s\n", cfg.Storage.Database)
			fmt.Printf("  Collection:        %s\n", cfg.Storage.Collection)
			fmt.Printf("\nAPI:\n")
			fmt.Printf("  Port:              %d\n", cfg.API.Port)
			return nil
		},
	}
}

// loadConfig loads and validates config, applies CLI overrides, and
// builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if concurrent > 0 {
		cfg.Crawler.Concurrency = concurrent
	}
	if delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			cfg.Crawler.PolitenessDelay = d
		}
	}
	if headful {
		cfg.Driver.Headless = false
	}

	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, setupLogger(cfg), nil
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
