package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/database/memory"
	"github.com/aquilax/usernotes/database/pebblekv"
	"github.com/aquilax/usernotes/database/postgres"
	"github.com/aquilax/usernotes/database/sqlite"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "usernotes",
		Short: "Forum with moderator notes on users",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage: true,
	}
	setupFlags(rootCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the forum web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load users, topics and replies from a fixture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(db database.Database) error {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				res, err := seed(db, f, time.Now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d topics, %d replies\n", res.Users, res.Topics, res.Replies)
				return nil
			})
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "notes <user-id>",
		Short: "Print the notes kept on a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			return withDatabase(func(db database.Database) error {
				return printNotes(cmd.OutOrStdout(), db, id)
			})
		},
	})
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	ApplyDefaults(viper.GetViper())
	defaults := NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("address", defaults.GetString("server.address"), "HTTP listen address")
	cmd.PersistentFlags().String("driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres, pebble, memory)")
	cmd.PersistentFlags().String("dsn", defaults.GetString("database.dsn"), "Database DSN or directory")
	cmd.PersistentFlags().String("site-url", "", "Public base URL used in note permalinks")
	cmd.PersistentFlags().String("language", defaults.GetString("site.language"), "UI language")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("token-secret", "", "Signing secret for form tokens (overrides env)")

	bindFlag(cmd, "server.address", "address")
	bindFlag(cmd, "database.driver", "driver")
	bindFlag(cmd, "database.dsn", "dsn")
	bindFlag(cmd, "site.url", "site-url")
	bindFlag(cmd, "site.language", "language")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "token.secret", "token-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func openDatabase(cfg *Config) (database.Database, error) {
	var db database.Database
	switch cfg.Driver {
	case "postgres":
		db = postgres.New()
	case "pebble":
		db = pebblekv.New()
	case "memory":
		db = memory.New()
	default:
		db = sqlite.New()
	}
	if err := db.Open(cfg.Driver, cfg.Dsn); err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

func withDatabase(fn func(db database.Database) error) error {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func runServer(ctx context.Context) error {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		return err
	}
	if err := cfg.validateServer(); err != nil {
		return err
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer zap.ReplaceGlobals(logger)()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	app := NewApp(cfg, db, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting", zap.String("address", cfg.Server), zap.String("driver", cfg.Driver))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
