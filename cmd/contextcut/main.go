package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/KaranOps/ContextCut/internal/api"
	"github.com/KaranOps/ContextCut/internal/catalog"
	"github.com/KaranOps/ContextCut/internal/config"
	"github.com/KaranOps/ContextCut/internal/director"
	"github.com/KaranOps/ContextCut/internal/embed"
	"github.com/KaranOps/ContextCut/internal/generate"
	"github.com/KaranOps/ContextCut/internal/notify"
	"github.com/KaranOps/ContextCut/internal/retrieve"
	"github.com/KaranOps/ContextCut/internal/store"
	"github.com/KaranOps/ContextCut/internal/timeline"
	"github.com/KaranOps/ContextCut/internal/vector"
)

var version = "dev"

func main() {
	// A missing .env is fine, env vars may come from the environment.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	root := &cobra.Command{
		Use:          "contextcut",
		Short:        "Semantic B-roll placement for narration-driven video",
		SilenceUsage: true,
	}
	root.AddCommand(
		serveCmd(cfg),
		indexCmd(cfg),
		generateCmd(cfg),
		validateCmd(cfg),
		versionCmd(),
	)

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			db, err := store.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()
			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}
			slog.Info("database connected")

			cat, err := db.LoadCatalog(ctx)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			slog.Info("catalog loaded", "clips", len(cat))

			gen, closeVec, err := buildGenerator(cfg)
			if err != nil {
				return err
			}
			defer closeVec()

			var notifier notify.Publisher = notify.Noop{}
			if cfg.NatsURL != "" {
				n, err := notify.New(cfg.NatsURL)
				if err != nil {
					return fmt.Errorf("connect to NATS: %w", err)
				}
				notifier = n
				slog.Info("NATS notifier enabled", "url", cfg.NatsURL)
			}
			defer notifier.Close()

			srv := api.NewServer(db, gen, notifier, cat, cfg.Port)
			go func() {
				if err := srv.Start(); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()
			slog.Info("contextcut ready", "port", cfg.Port)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			slog.Info("shutting down", "signal", sig)
			cancel()
			return nil
		},
	}
}

func indexCmd(cfg config.Config) *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed and index a catalog file into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.LoadFile(catalogPath)
			if err != nil {
				return err
			}

			idx, closeVec, err := buildIndex(cfg)
			if err != nil {
				return err
			}
			defer closeVec()

			if err := idx.IndexCatalog(cmd.Context(), cat); err != nil {
				return err
			}
			slog.Info("catalog indexed", "clips", len(cat), "collection", idx.CollectionName())
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path to catalog JSON or YAML file")
	cmd.MarkFlagRequired("catalog")
	return cmd
}

func generateCmd(cfg config.Config) *cobra.Command {
	var segmentsPath, catalogPath string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a timeline for a transcript against a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			segments, err := loadSegments(segmentsPath)
			if err != nil {
				return err
			}
			cat, err := catalog.LoadFile(catalogPath)
			if err != nil {
				return err
			}

			gen, closeVec, err := buildGenerator(cfg)
			if err != nil {
				return err
			}
			defer closeVec()

			tl, err := gen.Run(cmd.Context(), segments, cat)
			if err != nil {
				return err
			}
			return printJSON(tl)
		},
	}
	cmd.Flags().StringVar(&segmentsPath, "segments", "", "path to narration segments JSON file")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path to catalog JSON or YAML file")
	cmd.MarkFlagRequired("segments")
	cmd.MarkFlagRequired("catalog")
	return cmd
}

func validateCmd(cfg config.Config) *cobra.Command {
	var segmentsPath, proposalsPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate draft timeline proposals against pacing rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			segments, err := loadSegments(segmentsPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(proposalsPath)
			if err != nil {
				return fmt.Errorf("read proposals: %w", err)
			}
			var proposals []timeline.ProposedEvent
			if err := json.Unmarshal(data, &proposals); err != nil {
				return fmt.Errorf("decode proposals: %w", err)
			}

			accepted := timeline.Validate(segments, proposals, rulesFromConfig(cfg))
			return printJSON(timeline.Timeline{Events: accepted})
		},
	}
	cmd.Flags().StringVar(&segmentsPath, "segments", "", "path to narration segments JSON file")
	cmd.Flags().StringVar(&proposalsPath, "proposals", "", "path to draft proposals JSON file")
	cmd.MarkFlagRequired("segments")
	cmd.MarkFlagRequired("proposals")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("contextcut", version)
		},
	}
}

func buildIndex(cfg config.Config) (*vector.Index, func(), error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	var embedder embed.Embedder = embed.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingBaseURL)
	if cfg.EmbeddingBaseURL != "" {
		// Fall back to the default OpenAI endpoint if the custom one is down.
		embedder = embed.NewChain(embedder, embed.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel, ""))
	}
	embedder = embed.NewCached(embedder, cfg.EmbedCacheTTL)

	vs, err := vector.OpenSQLite(cfg.VectorDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open vector store: %w", err)
	}

	idx := vector.NewIndex(vs, embedder, cfg.CollectionPrefix)
	return idx, func() { vs.Close() }, nil
}

func buildGenerator(cfg config.Config) (*generate.Generator, func(), error) {
	idx, closeVec, err := buildIndex(cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.GroqAPIKey == "" {
		closeVec()
		return nil, nil, fmt.Errorf("GROQ_API_KEY is required")
	}
	d := director.NewLLM(director.Config{
		APIKey:      cfg.GroqAPIKey,
		Model:       cfg.DirectorModel,
		BaseURL:     cfg.DirectorBaseURL,
		MaxAttempts: cfg.DirectorMaxAttempts,
		Rules: director.Rules{
			MinBrollDuration: cfg.MinBrollDuration,
			CoolDownSeconds:  cfg.CoolDownSeconds,
			DiversityWindow:  cfg.DiversityWindow,
		},
	})

	retriever := retrieve.New(idx, cfg.VectorTopK, cfg.SimilarityThreshold)
	gen := generate.New(idx, retriever, d, rulesFromConfig(cfg))
	return gen, closeVec, nil
}

func rulesFromConfig(cfg config.Config) timeline.Rules {
	return timeline.Rules{
		MinBrollDuration: cfg.MinBrollDuration,
		CoolDownSeconds:  cfg.CoolDownSeconds,
		DiversityWindow:  cfg.DiversityWindow,
		MinConfidence:    cfg.MinLLMConfidence,
		StartTolerance:   cfg.StartTolerance,
	}
}

func loadSegments(path string) ([]timeline.NarrationSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	var segments []timeline.NarrationSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	return segments, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
