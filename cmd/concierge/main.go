// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/poiesic/concierge"
	"github.com/poiesic/concierge/ai"
	"github.com/poiesic/concierge/ai/openai"
	"github.com/poiesic/concierge/answer"
	"github.com/poiesic/concierge/config"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/index"
	"github.com/poiesic/concierge/server"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "concierge",
		Usage: "Grounded question answering about the company",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				Value:   config.DefaultPath,
				EnvVars: []string{"CONCIERGE_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			// A missing .env file is fine; the environment may already be set.
			_ = godotenv.Load()
			return setupLogger(c)
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the chat API over HTTP",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides server.addr)",
					},
				},
			},
			{
				Name:   "build-index",
				Usage:  "Load the configured sources and rebuild the document index",
				Action: buildIndexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "sources",
						Aliases: []string{"s"},
						Usage:   "Path to sources YAML file (overrides index.sources)",
					},
					&cli.StringFlag{
						Name:  "index",
						Usage: "Index directory (overrides index.path)",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per embedding batch",
						Value: index.DefaultMaxAttempts,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: index.DefaultRetryDelay,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a single question",
				ArgsUsage: "<message>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session id (a new one is generated if empty)",
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Print each pipeline step to stderr",
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Show a conversation, or list recent ones",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session id to show",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of conversations to list",
						Value: 20,
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func openAssistant(cfg *config.AppConfig) (*concierge.Assistant, error) {
	a, err := concierge.NewAssistant(cfg.Storage.Path,
		concierge.WithAIConfig(ai.NewConfig(cfg.AI.Options()...)),
		concierge.WithIndexPath(cfg.Index.Path),
		concierge.WithIndexCache(cfg.Index.Cache),
		concierge.WithCompanyName(cfg.Assistant.Company),
		concierge.WithTopK(cfg.Assistant.TopK),
		concierge.WithStageTimeout(cfg.Assistant.StageTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open assistant: %w", err)
	}
	return a, nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	a, err := openAssistant(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting server",
		"addr", cfg.Server.Addr,
		"index", cfg.Index.Path,
		"company", cfg.Assistant.Company)
	return server.New(a, cfg.Server).Run(ctx)
}

func buildIndexCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sourcesPath := cfg.Index.Sources
	if s := c.String("sources"); s != "" {
		sourcesPath = s
	}
	indexPath := cfg.Index.Path
	if p := c.String("index"); p != "" {
		indexPath = p
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, err := index.LoadSources(sourcesPath)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}

	aiConfig := ai.NewConfig(cfg.AI.Options()...)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	opts := []index.BuilderOption{
		index.WithChunking(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap),
		index.WithBatchSize(cfg.Index.BatchSize),
		index.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		index.WithEmbeddingModel(aiConfig.EmbeddingModel),
		index.WithProgress(os.Stderr),
	}
	if cfg.Index.PoolSize > 0 {
		opts = append(opts, index.WithPoolSize(cfg.Index.PoolSize))
	}
	builder, err := index.NewBuilder(embedder, opts...)
	if err != nil {
		return fmt.Errorf("failed to create index builder: %w", err)
	}
	defer builder.Release()

	fmt.Fprintf(os.Stderr, "Sources: %s (%d)\n", sourcesPath, len(sources))
	fmt.Fprintf(os.Stderr, "Index: %s\n", indexPath)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", aiConfig.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	docs, err := index.NewLoader(nil).LoadAll(ctx, sources)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	start := time.Now()
	manifest, err := builder.Build(ctx, indexPath, docs)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Indexed %d passages from %d documents in %s\n",
		manifest.ChunkCount, manifest.DocumentCount, time.Since(start).Round(time.Millisecond))
	return nil
}

func askCommand(c *cli.Context) error {
	message := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("a message is required")
	}
	sessionID := c.String("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	a, err := openAssistant(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var monitor answer.Monitor
	if c.Bool("trace") {
		monitor = answer.NewTraceMonitor(os.Stderr)
	}

	result, err := a.ChatWithMonitor(c.Context, message, sessionID, monitor)
	if err != nil {
		return err
	}
	printAnswer(c.App.Writer, sessionID, result)
	return nil
}

func historyCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	a, err := openAssistant(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	w := c.App.Writer
	if sessionID := c.String("session"); sessionID != "" {
		conv, err := a.Conversation(c.Context, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load conversation: %w", err)
		}
		printConversation(w, conv)
		return nil
	}

	summaries, err := a.RecentConversations(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No conversations.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%-36s %4d  %s\n", s.SessionID, s.MessageCount, s.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func printAnswer(w io.Writer, sessionID string, result *core.AnswerResult) {
	fmt.Fprintln(w, result.Answer)
	if len(result.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, src := range result.Sources {
			fmt.Fprintf(w, "  - %s <%s>\n", src.Title, src.URL)
		}
	}
	if len(result.Suggestions) > 0 {
		fmt.Fprintln(w, "\nYou might also ask:")
		for _, s := range result.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	fmt.Fprintf(w, "\nSession: %s\n", sessionID)
}

func printConversation(w io.Writer, conv *core.Conversation) {
	fmt.Fprintf(w, "Session %s (%d messages)\n", conv.SessionID, len(conv.Messages))
	for _, msg := range conv.Messages {
		fmt.Fprintf(w, "\n[%s]\nYou: %s\nAssistant: %s\n",
			msg.Timestamp.Local().Format(time.DateTime), msg.HumanText, msg.AIText)
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
