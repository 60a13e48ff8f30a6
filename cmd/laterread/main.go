package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pbaille/laterread/internal/category"
	"github.com/pbaille/laterread/internal/classifier"
	"github.com/pbaille/laterread/internal/codec"
	"github.com/pbaille/laterread/internal/config"
	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/embedding"
	"github.com/pbaille/laterread/internal/library"
	"github.com/pbaille/laterread/internal/logging"
	"github.com/pbaille/laterread/internal/notify"
	"github.com/pbaille/laterread/internal/secret"
	"github.com/pbaille/laterread/internal/store"
)

var (
	configPath string
	flags      struct {
		inbox      string
		laterWrite string
		db         string
		logLevel   string
		verbose    bool
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "laterread",
		Short:         "Reading list kept in plain markdown, with automatic classification",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultPath(), "config file path")
	pf.StringVar(&flags.inbox, "inbox", "", "inbox document path")
	pf.StringVar(&flags.laterWrite, "laterwrite", "", "LaterWrite document path")
	pf.StringVar(&flags.db, "db", "", "database path")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "also log to stderr")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(captureCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(toggleCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(relateCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(promoteCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(classifyAllCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(digestCmd())
	rootCmd.AddCommand(keyCmd())
	rootCmd.AddCommand(noticesCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is everything a command needs, built once per process
type app struct {
	cfg     *config.Config
	logs    *logging.LogData
	db      *store.DB
	secrets secret.Store
	lib     *library.Library
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if flags.inbox != "" {
		cfg.InboxPath = flags.inbox
	}
	if flags.laterWrite != "" {
		cfg.LaterWritePath = flags.laterWrite
	}
	if flags.db != "" {
		cfg.DBPath = flags.db
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	build := logging.New().FromPath(cfg.LogPath).WithLevel(cfg.LogLevel)
	if flags.verbose {
		build = build.FromWriter(os.Stderr)
	}
	logs, err := build.Make()
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	log := logs.Logger

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logs.Close()
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logs.Close()
		return nil, err
	}
	secrets := secret.WithEnv(secret.NewDB(db), config.APIKeyEnv)

	reg := category.Default()
	cdc := codec.New(reg)

	notifiers := notify.Multi{notify.NewLog(log), notify.NewHistory(db, log)}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err != nil {
			log.Warn().Err(err).Msg("telegram notices disabled")
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	clf := classifier.New(secrets.Get, reg,
		classifier.WithBaseURL(cfg.Classifier.BaseURL),
		classifier.WithModel(cfg.Classifier.Model),
		classifier.WithTimeout(cfg.Classifier.Timeout),
		classifier.WithMaxTokens(cfg.Classifier.MaxTokens),
		classifier.WithLogger(log),
	)

	var emb embedding.Embedder
	if cfg.Embedding.APIKey != "" {
		emb = embedding.NewVoyage(cfg.Embedding.APIKey, cfg.Embedding.Model, "")
	}

	lib := library.New(ctx, library.Deps{
		Codec:      cdc,
		Inbox:      store.NewCollection(domain.Inbox, cfg.InboxPath, cdc, log),
		LaterWrite: store.NewCollection(domain.LaterWrite, cfg.LaterWritePath, cdc, log),
		Classifier: clf,
		Notifier:   notifiers,
		Runs:       db,
		Embedder:   emb,
	}, library.Options{
		AutoClassify: cfg.AutoClassify,
		BatchPause:   cfg.BatchPause,
		ArchivePath:  cfg.ArchivePath,
		DigestDir:    cfg.DigestDir,
	}, log)

	log.Debug().Str("inbox", cfg.InboxPath).Str("laterwrite", cfg.LaterWritePath).Msg("started")
	return &app{cfg: cfg, logs: logs, db: db, secrets: secrets, lib: lib}, nil
}

// Close waits for queued jobs, then releases the database and log file
func (a *app) Close() {
	a.lib.Wait()
	a.db.Close()
	a.logs.Close()
}

