package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kanad/internal/assistant"
	"kanad/internal/bus"
	"kanad/internal/channel"
	"kanad/internal/config"
	"kanad/internal/domain"
	"kanad/internal/provider"
	"kanad/internal/research"
	"kanad/internal/session"

	authsvc "kanad/internal/auth"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "kanad",
		Short: "KANAD: AI research assistant backend",
		Long:  "kanad is the headless backend of the KANAD research assistant: workspace sessions, streamed Gemini responses, paper search, and history.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ~/.kanad/config.yaml)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			fmt.Printf("Wrote %s\nSet GEMINI_API_KEY (or edit gemini.apiKey) before running 'kanad serve'.\n", cfgPath)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant backend",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.General.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := bus.New(100, logger)
	defer updates.Close()

	var persister session.Persister
	if cfg.History.Persist {
		store, err := session.NewSQLiteStore(cfg.History.DBPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		persister = store
	}

	sessions := session.NewStore(logger)
	archive := session.NewArchive(persister, logger)

	gen, err := provider.NewGemini(ctx, provider.Config{
		APIKey:     cfg.Gemini.APIKey,
		ImageModel: cfg.Gemini.Models.Image,
		JSONModel:  cfg.Gemini.Models.Flash,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	orch := assistant.New(assistant.Config{
		Store:     sessions,
		Archive:   archive,
		Generator: gen,
		Bus:       updates,
		Logger:    logger,
		Models: assistant.Models{
			Flash: cfg.Gemini.Models.Flash,
			Pro:   cfg.Gemini.Models.Pro,
		},
		Timeout: time.Duration(cfg.General.RequestTimeoutSeconds) * time.Second,
		User: domain.UserContext{
			Role:     cfg.General.DefaultRole,
			Language: cfg.General.DefaultLanguage,
		},
	})

	papers := research.NewClient(research.Config{
		ArxivURL:           cfg.Research.ArxivURL,
		SemanticScholarURL: cfg.Research.SemanticScholarURL,
		MaxResults:         cfg.Research.MaxResults,
		Logger:             logger,
	})

	users := authsvc.NewService()

	var channels []channel.Channel
	if cfg.Channels.Web.Enabled {
		channels = append(channels, channel.NewWeb(channel.WebConfig{
			Host:          cfg.Channels.Web.Host,
			Port:          cfg.Channels.Web.Port,
			Orchestrator:  orch,
			Updates:       updates,
			Papers:        papers,
			Users:         users,
			Logger:        logger,
			Version:       version,
			AuthEnabled:   cfg.Channels.Web.Auth.Enabled,
			AuthUsername:  cfg.Channels.Web.Auth.Username,
			AuthPassword:  cfg.Channels.Web.Auth.Password,
			MaxFileSizeMB: cfg.Attachments.MaxFileSizeMB,
		}))
	}
	if cfg.Channels.Telegram.Enabled {
		channels = append(channels, channel.NewTelegram(channel.TelegramChannelConfig{
			Token:        cfg.Channels.Telegram.Token,
			Workspace:    cfg.Channels.Telegram.Workspace,
			AllowFrom:    cfg.Channels.Telegram.AllowFrom,
			Orchestrator: orch,
			Logger:       logger,
		}))
	}
	if len(channels) == 0 {
		return fmt.Errorf("no channels enabled; enable channels.web or channels.telegram")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range channels {
		g.Go(func() error {
			logger.Info("starting channel", "channel", ch.Name())
			return ch.Start(gctx)
		})
	}

	err = g.Wait()
	logger.Info("kanad stopped")
	return err
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query a running instance's status endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				cfg = config.Defaults()
			}
			url := fmt.Sprintf("http://%s:%d/status", cfg.Channels.Web.Host, cfg.Channels.Web.Port)
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("kanad is not running at %s: %w", url, err)
			}
			defer resp.Body.Close()

			var status map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return err
			}
			fmt.Printf("kanad %v (%v)\n", status["version"], status["status"])
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("kanad " + version)
		},
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
