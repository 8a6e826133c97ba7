package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/api"
	"fintrack/internal/categorize"
	"fintrack/internal/config"
	"fintrack/internal/embed"
	"fintrack/internal/events"
	"fintrack/internal/market"
	"fintrack/internal/mcpserver"
	"fintrack/internal/query"
	"fintrack/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cmd := &cli.Command{
		Name:  "fintrack",
		Usage: "Personal finance tracker with a natural language query interface",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: runServe,
			},
			{
				Name:      "query",
				Usage:     "Answer a one-off natural language question",
				ArgsUsage: "<question>",
				Action:    runQuery,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP stdio server",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newClassifier builds the configured classifier. The similarity
// classifier embeds the intent catalog up front.
func newClassifier(ctx context.Context, cfg *config.Config) (query.Classifier, *query.SimilarityClassifier, error) {
	if cfg.Classifier == config.ClassifierRules {
		return query.NewRuleBasedClassifier(), nil, nil
	}

	var embedder query.Embedder
	if cfg.Embedder == config.EmbedderHTTP {
		embedder = embed.NewHTTPEmbedder(cfg.EmbedServiceURL, cfg.EmbedModel, cfg.EmbedAPIKey)
	} else {
		embedder = embed.NewHashingEmbedder()
	}

	defs := query.DefaultCatalog()
	if cfg.IntentCatalogPath != "" {
		loaded, err := query.LoadCatalogFile(cfg.IntentCatalogPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load intent catalog: %w", err)
		}
		defs = loaded
	}

	sc, err := query.NewSimilarityClassifier(ctx, embedder, defs, cfg.ClassifierMinConfidence)
	if err != nil {
		return nil, nil, fmt.Errorf("build similarity classifier: %w", err)
	}
	return sc, sc, nil
}

func runServe(ctx context.Context, _ *cli.Command) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer repo.Close()

	classifier, similarity, err := newClassifier(ctx, cfg)
	if err != nil {
		return err
	}

	var publisher events.Publisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("initialize AMQP client: %w", err)
		}
		defer client.Close()
		publisher = client
	} else {
		slog.Info("AMQP disabled - no AMQP_URL provided")
	}

	nlqRouter := query.NewRouter(repo, classifier)
	ruleRouter := query.NewRouter(repo, query.NewRuleBasedClassifier())
	marketClient := market.NewClient(cfg.MarketBaseURL, cfg.MarketCacheTTL)

	handler := api.NewHandler(repo, ruleRouter, nlqRouter, categorize.Default(), marketClient, publisher)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        api.NewRouter(handler),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting fintrack server", "port", cfg.Port, "classifier", cfg.Classifier)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if similarity != nil && cfg.IntentCatalogPath != "" {
		g.Go(func() error {
			err := query.WatchCatalog(gctx, cfg.IntentCatalogPath, similarity)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("Server stopped gracefully")
	return nil
}

func runQuery(ctx context.Context, cmd *cli.Command) error {
	question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("usage: fintrack query <question>")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer repo.Close()

	classifier, _, err := newClassifier(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := query.NewRouter(repo, classifier).HandleQuery(ctx, question)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runMCP(ctx context.Context, _ *cli.Command) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer repo.Close()

	classifier, _, err := newClassifier(ctx, cfg)
	if err != nil {
		return err
	}

	slog.Info("Starting fintrack MCP server", "classifier", cfg.Classifier)
	return mcpserver.New(repo, query.NewRouter(repo, classifier)).ServeStdio()
}
