package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/laterread/internal/capture"
	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/fetcher"
	"github.com/pbaille/laterread/internal/store"
)

func addCmd() *cobra.Command {
	var (
		title      string
		note       string
		noClassify bool
	)

	cmd := &cobra.Command{
		Use:   "add [url]",
		Short: "Save a link to the inbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			page, err := capture.Titled{
				Capturer: capture.Static{URL: args[0], Title: title},
				Client:   fetcher.DefaultClient,
			}.Capture(cmd.Context())
			if err != nil {
				return fmt.Errorf("not a url: %s", args[0])
			}
			return save(cmd, a, page, note, noClassify)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "title (fetched from the page when empty)")
	cmd.Flags().StringVar(&note, "note", "", "note to attach")
	cmd.Flags().BoolVar(&noClassify, "no-classify", false, "skip automatic classification")
	return cmd
}

func captureCmd() *cobra.Command {
	var (
		note       string
		noClassify bool
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Save the link currently on the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			page, err := capture.Titled{
				Capturer: capture.NewClipboard(),
				Client:   fetcher.DefaultClient,
			}.Capture(cmd.Context())
			if errors.Is(err, capture.ErrUnavailable) {
				return errors.New("no link on the clipboard")
			}
			if err != nil {
				return err
			}
			return save(cmd, a, page, note, noClassify)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "note to attach")
	cmd.Flags().BoolVar(&noClassify, "no-classify", false, "skip automatic classification")
	return cmd
}

func save(cmd *cobra.Command, a *app, page capture.Page, note string, noClassify bool) error {
	if noClassify {
		a.lib.SetAutoClassify(false)
	}
	it, err := a.lib.Add(cmd.Context(), page, note)
	if err != nil {
		return err
	}
	fmt.Printf("Saved: %s\n", truncate(it.Title, 70))
	fmt.Printf("       %s\n", it.URL)

	if noClassify || !a.lib.Pending(it.URL) {
		return nil
	}
	fmt.Print("Classifying... ")
	a.lib.Wait()
	got, ok, err := a.lib.Collection(domain.Inbox).Find(cmd.Context(), it.URL)
	if err != nil || !ok || got.Summary == "" {
		fmt.Println("failed (see 'laterread notices')")
		return nil
	}
	info := a.lib.Registry().Lookup(a.lib.Registry().Resolve(got.Category))
	fmt.Printf("%s %s\n", info.Symbol, info.Label)
	fmt.Printf("  %s\n", got.Summary)
	return nil
}

func listCmd() *cobra.Command {
	var (
		collection string
		cat        string
		unread     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved items",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := domain.ParseKind(collection)
			if !ok {
				return fmt.Errorf("unknown collection: %s", collection)
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			items, report, err := a.lib.Collection(kind).Snapshot()
			if err != nil {
				return err
			}

			reg := a.lib.Registry()
			shown := 0
			for _, it := range items {
				if unread && it.Read {
					continue
				}
				if cat != "" && reg.Resolve(it.Category) != reg.Resolve(cat) {
					continue
				}
				check := " "
				if it.Read {
					check = "x"
				}
				info := reg.Lookup(reg.Resolve(it.Category))
				fmt.Printf("[%s] %s %s  %s\n", check, info.Symbol, truncate(it.Title, 60), it.URL)
				shown++
			}

			if shown == 0 {
				fmt.Println("Nothing here yet. Use 'laterread add' to save a link.")
			}
			if !report.Clean() {
				fmt.Printf("\n%d line(s) could not be read:\n", len(report.Skipped))
				for _, s := range report.Skipped {
					fmt.Printf("  line %d (%s): %s\n", s.Line, s.Reason, truncate(s.Text, 60))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "inbox", "inbox or laterwrite")
	cmd.Flags().StringVar(&cat, "category", "", "only show this category key")
	cmd.Flags().BoolVarP(&unread, "unread", "u", false, "only show unread items")
	return cmd
}

func toggleCmd() *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "toggle [url]",
		Short: "Flip the read state of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := domain.ParseKind(collection)
			if !ok {
				return fmt.Errorf("unknown collection: %s", collection)
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.lib.ToggleRead(cmd.Context(), kind, args[0]); err != nil {
				return notFound(err, args[0])
			}
			fmt.Println("Toggled.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "inbox", "inbox or laterwrite")
	return cmd
}

func editCmd() *cobra.Command {
	var (
		collection string
		cat        string
		summary    string
		note       string
	)

	cmd := &cobra.Command{
		Use:   "edit [url]",
		Short: "Change the category, summary or note of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := domain.ParseKind(collection)
			if !ok {
				return fmt.Errorf("unknown collection: %s", collection)
			}

			var f store.Fields
			if cmd.Flags().Changed("category") {
				f.Category = &cat
			}
			if cmd.Flags().Changed("summary") {
				f.Summary = &summary
			}
			if cmd.Flags().Changed("note") {
				f.Note = &note
			}
			if f.Category == nil && f.Summary == nil && f.Note == nil {
				return errors.New("nothing to change: pass --category, --summary or --note")
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.lib.UpdateFields(cmd.Context(), kind, args[0], f); err != nil {
				return notFound(err, args[0])
			}
			fmt.Println("Updated.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "inbox", "inbox or laterwrite")
	cmd.Flags().StringVar(&cat, "category", "", "category key")
	cmd.Flags().StringVar(&summary, "summary", "", "summary line")
	cmd.Flags().StringVar(&note, "note", "", "note line")
	return cmd
}

func relateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relate [url] [related-url...]",
		Short: "Replace the related links of an item; backlinks follow",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.lib.SetRelations(cmd.Context(), args[0], args[1:]); err != nil {
				return notFound(err, args[0])
			}
			fmt.Printf("%d related link(s) set.\n", len(args)-1)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "delete [url]",
		Short: "Remove an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := domain.ParseKind(collection)
			if !ok {
				return fmt.Errorf("unknown collection: %s", collection)
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.lib.Delete(cmd.Context(), kind, args[0]); err != nil {
				return notFound(err, args[0])
			}
			fmt.Println("Deleted.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "inbox", "inbox or laterwrite")
	return cmd
}

func promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote [url] [related-url...]",
		Short: "Move an inbox item to LaterWrite",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			it, err := a.lib.Promote(cmd.Context(), args[0], args[1:])
			if err != nil {
				return notFound(err, args[0])
			}
			fmt.Printf("Moved to LaterWrite: %s\n", truncate(it.Title, 70))
			for _, r := range it.Related {
				fmt.Printf("  🔗 %s\n", r)
			}
			return nil
		},
	}
}

func notFound(err error, url string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no item with url %s", url)
	}
	return err
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
