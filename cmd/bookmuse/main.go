// Command bookmuse runs the book recommendation backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookmuse/internal/api"
	"bookmuse/internal/catalog"
	"bookmuse/internal/config"
	"bookmuse/internal/llm"
	"bookmuse/internal/logging"
	"bookmuse/internal/recommend"
	"bookmuse/internal/types"
)

var (
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "bookmuse",
	Short: "bookmuse - personalized book recommendation backend",
	Long: `bookmuse turns a reader's rated book history into ranked, personalized
book recommendations. It profiles the reader's taste with one model
completion, sources candidate books from the Google Books catalog, and ranks
them with a second completion; with no catalog key it recommends from model
knowledge alone.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// serveCmd runs the HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := llm.NewFromConfig(cfg.LLM, logger)
		if err != nil {
			return err
		}

		catalogClient := catalog.NewClient(catalog.ClientConfig{
			APIKey:    cfg.Catalog.APIKey,
			BaseURL:   cfg.Catalog.BaseURL,
			Timeout:   cfg.Catalog.Timeout,
			RateLimit: cfg.Catalog.RateLimit,
		}, logger)

		// Sourcing only runs with a catalog key; the interactive search
		// endpoint works keyless.
		var sourcing types.Searcher
		if cfg.CatalogEnabled() {
			sourcing = catalogClient
		} else {
			logger.Warn("no catalog API key configured, recommendations use knowledge-only mode")
		}

		engine := recommend.NewEngine(client, sourcing, logger)
		handler := api.NewRouter(engine, catalogClient, cfg.Server.CORSOrigins, logger)

		srv := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: cfg.Server.Timeout,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("server listening",
				zap.String("addr", srv.Addr),
				zap.String("provider", cfg.LLM.Provider),
				zap.Bool("catalog", cfg.CatalogEnabled()))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

// searchCmd queries the catalog once and prints the results, useful for
// checking an API key and seeing what the sourcer would fetch.
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a one-off catalog search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogClient := catalog.NewClient(catalog.ClientConfig{
			APIKey:    cfg.Catalog.APIKey,
			BaseURL:   cfg.Catalog.BaseURL,
			Timeout:   cfg.Catalog.Timeout,
			RateLimit: cfg.Catalog.RateLimit,
		}, logger)

		results, err := catalogClient.Search(cmd.Context(), strings.Join(args, " "), 8)
		if err != nil {
			return err
		}
		for _, book := range results {
			fmt.Printf("%-14s %s by %s (%s)\n", book.ID, book.Title, book.Author, book.PublishedDate)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
