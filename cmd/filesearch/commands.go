package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/filesearch/internal/backend"
	"github.com/kalambet/filesearch/internal/config"
	"github.com/kalambet/filesearch/internal/session"
	"github.com/kalambet/filesearch/internal/upload"
)

// --- stores ---

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Manage document stores",
}

var storesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List document stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		stores, err := a.sess.RefreshStores(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			if stores == nil {
				stores = []backend.Store{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(stores)
		}

		if len(stores) == 0 {
			fmt.Fprintln(out, "No stores found.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tCREATED\tSTATE")
		for _, s := range stores {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.DisplayName, s.CreateTime, s.State)
		}
		return tw.Flush()
	},
}

var storesCreateCmd = &cobra.Command{
	Use:   "create <display-name>",
	Short: "Create a document store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")

		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.sess.CreateStore(cmd.Context(), name)
		if err != nil {
			return err
		}
		printSuccess("Created store %q", st.Label())
		fmt.Fprintln(cmd.OutOrStdout(), st.Name)
		return nil
	},
}

var storesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a document store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.sess.DeleteStore(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("Deleted store %s", args[0])
		return nil
	},
}

var storesDeleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every document store",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL stores and their documents. Use --confirm to proceed.")
			return nil
		}

		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.sess.DeleteAllStores(cmd.Context()); err != nil {
			return err
		}
		printSuccess("All stores deleted")
		return nil
	},
}

var storesSyncCmd = &cobra.Command{
	Use:   "sync <name>",
	Short: "Re-index a store's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		displayName, _ := cmd.Flags().GetString("display-name")
		documentName, _ := cmd.Flags().GetString("document-name")

		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		printStep("Syncing %s...", args[0])
		if _, err := a.sess.Sync(cmd.Context(), args[0], displayName, documentName); err != nil {
			return err
		}
		printSuccess("Synced %s", args[0])
		return nil
	},
}

func init() {
	storesListCmd.Flags().Bool("json", false, "print the listing as JSON")
	storesDeleteAllCmd.Flags().Bool("confirm", false, "confirm deleting every store")
	storesSyncCmd.Flags().String("display-name", "", "new display name for the store")
	storesSyncCmd.Flags().String("document-name", "", "document to re-index")

	storesCmd.AddCommand(storesListCmd)
	storesCmd.AddCommand(storesCreateCmd)
	storesCmd.AddCommand(storesDeleteCmd)
	storesCmd.AddCommand(storesDeleteAllCmd)
	storesCmd.AddCommand(storesSyncCmd)
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <store> <file>...",
	Short: "Upload files into a store",
	Long: `Upload one or more files into a store. Files are uploaded concurrently.

Examples:
  filesearch upload fileSearchStores/abc ./report.pdf
  filesearch upload --parallel 4 fileSearchStores/abc docs/*.md`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		parallel, _ := cmd.Flags().GetInt("parallel")
		if parallel < 1 {
			return fmt.Errorf("--parallel must be at least 1")
		}
		store, paths := args[0], args[1:]

		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(parallel)
		for _, path := range paths {
			g.Go(func() error {
				f, err := upload.Inspect(path)
				if err != nil {
					return err
				}
				printStep("Uploading %s (%s)", f.Name, upload.FormatSize(f.Size))
				_, err = a.sess.Upload(ctx, store, path, func(pct int) {
					a.logger.Debug("upload progress", "file", f.Name, "percent", pct)
				})
				if err != nil {
					return fmt.Errorf("uploading %s: %w", f.Name, err)
				}
				printSuccess("Uploaded %s", f.Name)
				return nil
			})
		}
		return g.Wait()
	},
}

func init() {
	uploadCmd.Flags().Int("parallel", 2, "number of files to upload at once")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask a single question about a store",
	Long: `Ask a single question about the store given by --store.

Examples:
  filesearch ask --store fileSearchStores/abc "Summarize the onboarding guide"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		if storeFlag == "" {
			return fmt.Errorf("--store is required")
		}

		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := selectStore(cmd, a, storeFlag); err != nil {
			return err
		}

		out, err := a.sess.Submit(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		answer := out.Answer
		if !raw && !noColor {
			answer = renderMarkdown(answer, a.cfg.UI.WordWrap)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, strings.TrimRight(answer, "\n"))
		if len(out.Sources) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, colorize(colorBold, "Sources:"))
			for _, s := range out.Sources {
				fmt.Fprintf(w, "  - %s\n", sourceLabel(s))
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("raw", false, "print the answer without markdown rendering")
}

// selectStore makes id the active store, refreshing the listing first.
func selectStore(cmd *cobra.Command, a *app, id string) error {
	if _, err := a.sess.RefreshStores(cmd.Context()); err != nil && !errors.Is(err, session.ErrStoreNotFound) {
		return err
	}
	if err := a.sess.Select(id); err != nil {
		if errors.Is(err, session.ErrStoreNotFound) {
			return fmt.Errorf("store %s not found", id)
		}
		return err
	}
	return nil
}

func renderMarkdown(text string, wrap int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

func sourceLabel(s backend.Source) string {
	switch {
	case s.Title != "" && s.URI != "":
		return fmt.Sprintf("%s (%s)", s.Title, s.URI)
	case s.Title != "":
		return s.Title
	case s.URI != "":
		return s.URI
	default:
		return s.ChunkID
	}
}

// --- directive ---

var directiveCmd = &cobra.Command{
	Use:   "directive",
	Short: "Show or change the system prompt sent with every query",
}

var directiveShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the system prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.directive.Read()
		if err != nil {
			return err
		}
		if v == "" {
			printWarning("No system prompt set")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var directiveSetCmd = &cobra.Command{
	Use:   "set [text]",
	Short: "Set the system prompt",
	Long: `Set the system prompt from the arguments or, with --file, from a file.

Examples:
  filesearch directive set "Answer in one paragraph."
  filesearch directive set --file ./prompt.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var value string
		switch {
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			value = string(data)
		case len(args) > 0:
			value = strings.Join(args, " ")
		default:
			return fmt.Errorf("text or --file is required")
		}

		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.directive.Write(value); err != nil {
			return err
		}
		if strings.TrimSpace(value) == "" {
			printSuccess("System prompt cleared")
			return nil
		}
		printSuccess("System prompt set")
		return nil
	},
}

var directiveClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the system prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.directive.Clear(); err != nil {
			return err
		}
		printSuccess("System prompt cleared")
		return nil
	},
}

func init() {
	directiveSetCmd.Flags().String("file", "", "read the system prompt from a file")
	directiveCmd.AddCommand(directiveShowCmd)
	directiveCmd.AddCommand(directiveSetCmd)
	directiveCmd.AddCommand(directiveClearCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(w, "  %s = %s %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorDim, "("+k.EnvVar+")"))
		}
		if cfg.API.Token != "" {
			fmt.Fprintf(w, "  %s = %s\n", colorize(colorBold, "api.token"), "(set)")
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
