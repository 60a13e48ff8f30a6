package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/laterread/internal/api"
	"github.com/pbaille/laterread/internal/classifier"
	"github.com/pbaille/laterread/internal/config"
	"github.com/pbaille/laterread/internal/library"
	"github.com/pbaille/laterread/internal/secret"
)

func suggestCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest [url]",
		Short: "List items that look related to an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			suggestions, err := a.lib.Suggest(cmd.Context(), args[0], limit)
			if errors.Is(err, library.ErrNoEmbedder) {
				return fmt.Errorf("%w (set %s)", err, config.EmbeddingKeyEnv)
			}
			if err != nil {
				return notFound(err, args[0])
			}
			if len(suggestions) == 0 {
				fmt.Println("No candidates.")
				return nil
			}
			for _, s := range suggestions {
				fmt.Printf("%.2f  %-10s %s  %s\n", s.Score, s.Collection, truncate(s.Item.Title, 50), s.Item.URL)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of suggestions")
	return cmd
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [url]",
		Short: "Classify one item now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.lib.Classify(cmd.Context(), args[0])
			if err != nil {
				return describeClassifyError(notFound(err, args[0]))
			}
			info := a.lib.Registry().Lookup(a.lib.Registry().Resolve(res.Category))
			fmt.Printf("%s %s\n  %s\n", info.Symbol, info.Label, res.Summary)
			return nil
		},
	}
}

func classifyAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify-all",
		Short: "Classify every unread inbox item without a summary or category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.lib.ClassifyAll(cmd.Context())
			if err != nil {
				return describeClassifyError(err)
			}
			if b.Classified+b.Failed == 0 {
				fmt.Println("Nothing to classify.")
				return nil
			}
			fmt.Printf("Classified %d, failed %d.\n", b.Classified, b.Failed)
			return nil
		},
	}
}

func describeClassifyError(err error) error {
	switch classifier.KindOf(err) {
	case classifier.KindUnauthorized:
		return fmt.Errorf("%w (set a key with 'laterread key set' or %s)", err, config.APIKeyEnv)
	case classifier.KindRateLimited:
		return fmt.Errorf("%w (try again later)", err)
	}
	return err
}

func archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Move read inbox items to the archive document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.lib.ArchiveRead(cmd.Context())
			if errors.Is(err, library.ErrNothingToDo) {
				fmt.Println("No read items to archive.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Archived %d item(s) to %s\n", n, a.cfg.ArchivePath)
			return nil
		},
	}
}

func digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Write this week's reading list of unread items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := a.lib.Digest(cmd.Context(), time.Now())
			if errors.Is(err, library.ErrNothingToDo) {
				fmt.Println("Nothing unread.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the classifier API key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.secrets.Set(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Key stored.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the API key in use, masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			k, err := a.secrets.Get(cmd.Context())
			if errors.Is(err, secret.ErrNotFound) {
				fmt.Println("No key set.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(mask(k))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.secrets.Delete(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Key removed.")
			return nil
		},
	})

	return cmd
}

func mask(k string) string {
	if len(k) <= 8 {
		return strings.Repeat("*", len(k))
	}
	return k[:4] + strings.Repeat("*", len(k)-8) + k[len(k)-4:]
}

func noticesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Show recent notices",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			notices, err := a.db.ListNotices(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(notices) == 0 {
				fmt.Println("No notices yet.")
				return nil
			}
			for _, n := range notices {
				fmt.Printf("%s  %-16s %s: %s\n", n.CreatedAt.Format("2006-01-02 15:04"), n.Kind, n.Title, truncate(n.Body, 60))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of notices to show")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show recent classification attempts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			runs, err := a.db.ListRuns(cmd.Context(), url, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No classification runs recorded.")
				return nil
			}
			for _, r := range runs {
				detail := r.Category
				if r.Status != "ok" {
					detail = r.ErrorKind
				}
				fmt.Printf("%s  %-6s %-16s %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Status, detail, r.URL)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
			}
			if err := config.Default(config.Dir()).Save(configPath); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Telegram.Token = mask(cfg.Telegram.Token)
			cfg.Embedding.APIKey = mask(cfg.Embedding.APIKey)
			return cfg.Write(os.Stdout)
		},
	})

	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			server := api.New(a.lib, a.db, addr, a.logs.Logger)
			fmt.Printf("Serving on %s\n", addr)
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:8080", "server address")
	return cmd
}
