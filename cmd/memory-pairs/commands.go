package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/smith3v/memory-pairs/pkg/auth"
	"github.com/smith3v/memory-pairs/pkg/bot/handlers"
	"github.com/smith3v/memory-pairs/pkg/config"
	"github.com/smith3v/memory-pairs/pkg/db"
	"github.com/smith3v/memory-pairs/pkg/game"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"github.com/smith3v/memory-pairs/pkg/metrics"
	"github.com/smith3v/memory-pairs/pkg/scheduler"
	"github.com/smith3v/memory-pairs/pkg/web"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "memory-pairs",
		Short:         "A memory card-pairs game served over HTTP, websockets and Telegram.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(configFile)
		},
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVarP(&configFile, "config", "c", "", "path to a JSON config file; MEMORY_* env vars override it")

	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newResetProgressCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("memory-pairs v{{.Version}}\n")

	return cmd
}

func setup(configFile string) error {
	if err := config.LoadConfig(configFile); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Configure(logger.Options{
		Level:  config.AppConfig.Logging.Level,
		File:   config.AppConfig.Logging.File,
		Format: config.AppConfig.Logging.Format,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the session sweeper and, with a token configured, the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, config.AppConfig)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	if err := db.InitDB(cfg.Database); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	repo := db.NewRepository(db.DB)

	memory := game.NewMemoryStore(cfg.Game.SessionTTL(), func() time.Time { return time.Now().UTC() })
	store := game.NewSnapshotStore(memory, repo)

	m := metrics.New()
	if err := m.TrackActiveSessions(store.Len); err != nil {
		return fmt.Errorf("register session gauge: %w", err)
	}

	games := game.NewService(store, repo, game.WithMetrics(m))
	accounts, err := auth.NewService(repo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	jobs, err := scheduler.New(store, repo, cfg.Game.SweepInterval())
	if err != nil {
		return err
	}
	jobs.Start()
	defer func() {
		if err := jobs.Shutdown(); err != nil {
			logger.Error("failed to stop scheduler", "error", err)
		}
	}()

	if token := strings.TrimSpace(cfg.Telegram.Token); token != "" {
		h := handlers.New(games, repo)
		b, err := bot.New(token, bot.WithDefaultHandler(h.DefaultHandler))
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		h.Register(b)
		go func() {
			logger.Info("starting telegram bot")
			b.Start(ctx)
		}()
	} else {
		logger.Info("telegram token not set, bot disabled")
	}

	server := web.NewServer(cfg.Server, games, accounts,
		web.WithMetrics(m),
		web.WithVersion(releaseVersion),
	)
	return server.Run(ctx)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.InitDB(config.AppConfig.Database); err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
			return nil
		},
	}
}

func newResetProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-progress <username>",
		Short: "Erase a player's completed games, streak and achievements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.InitDB(config.AppConfig.Database); err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			repo := db.NewRepository(db.DB)
			user, err := repo.FindUserByUsername(cmd.Context(), args[0])
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("no user named %q", args[0])
			}
			if err != nil {
				return err
			}
			if err := repo.ResetUserProgress(cmd.Context(), user.ID); err != nil {
				return fmt.Errorf("reset progress: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "progress reset for %s\n", user.Username)
			return nil
		},
	}
}
