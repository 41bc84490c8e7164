package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mmcdole/zenread/internal/adapter"
	"github.com/mmcdole/zenread/internal/domain"
	"github.com/mmcdole/zenread/internal/search"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRootCmd() *cobra.Command {
	var configFile string

	// withApp wires the services for one command and tears them down afterwards
	withApp := func(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configFile)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(cmd, a, args)
		}
	}

	root := &cobra.Command{
		Use:          "zenread",
		Short:        "A distraction-free PDF library in the terminal",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: withApp(func(_ *cobra.Command, a *app, _ []string) error {
			return a.runTUI()
		}),
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ~/.config/zenread/config.yaml)")

	root.AddCommand(
		newImportCmd(withApp),
		newListCmd(withApp),
		newRemoveCmd(withApp),
		newProgressCmd(withApp),
		newOpenCmd(withApp),
		newSyncCmd(withApp),
		newSettingsCmd(withApp),
		newConfigCmd(&configFile),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "zenread %s\n", Version)
			},
		},
	)
	return root
}

type appRunner = func(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

// signalContext cancels on interrupt so long downloads can be aborted
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func newImportCmd(withApp appRunner) *cobra.Command {
	var title, author string

	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Download a PDF into the library",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			book, err := a.importer.Import(ctx, args[0], title, author)
			if err != nil {
				return errors.New(domain.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q by %s (%s)\n", book.Title, book.Author, book.ID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "book title (required)")
	cmd.Flags().StringVarP(&author, "author", "a", "", "book author")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newListCmd(withApp appRunner) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List books with their reading progress",
		Args:    cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			books := search.Rank(filter, a.library.Books())
			if len(books) == 0 {
				if filter != "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No books match")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No books yet. Add one with: zenread import <url> --title <title>")
				}
				return nil
			}
			return writeBooks(cmd.OutOrStdout(), books)
		}),
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "fuzzy filter on title and author")
	return cmd
}

// writeBooks prints books as an aligned table
func writeBooks(out io.Writer, books []domain.Book) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tPAGE\tPROGRESS")
	for _, b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\n", b.ID, b.Title, b.Author, b.PageLabel(), b.ProgressPercent)
	}
	return w.Flush()
}

// lookupBook returns the book or a not-found error naming the id
func lookupBook(a *app, id string) (domain.Book, error) {
	book, ok := a.library.Book(id)
	if !ok {
		return domain.Book{}, fmt.Errorf("%w: %s", domain.ErrBookNotFound, id)
	}
	return book, nil
}

func newRemoveCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a book and its stored PDF",
		Args:    cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			book, err := lookupBook(a, args[0])
			if err != nil {
				return err
			}
			if err := a.library.RemoveBook(cmd.Context(), book.ID); err != nil {
				return errors.New(domain.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", book.Title)
			return nil
		}),
	}
}

func newProgressCmd(withApp appRunner) *cobra.Command {
	var total int

	cmd := &cobra.Command{
		Use:   "progress <id> <page>",
		Short: "Record the current page of a book",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			book, err := lookupBook(a, args[0])
			if err != nil {
				return err
			}
			page, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid page %q", args[1])
			}
			if !cmd.Flags().Changed("total") {
				total = book.TotalPages
			}

			if err := a.library.UpdateProgress(book.ID, page, total); err != nil {
				return errors.New(domain.Message(err))
			}
			book, _ = a.library.Book(book.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: page %s (%d%%)\n", book.Title, book.PageLabel(), book.ProgressPercent)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&total, "total", "n", 0, "total page count (default: the known count)")
	return cmd
}

func newOpenCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Open a book in the external PDF viewer at the saved page",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			session, err := a.reader.Open(cmd.Context(), args[0])
			if err != nil {
				return errors.New(domain.Message(err))
			}
			defer session.Close()

			if err := session.Show(a.viewer); err != nil {
				return fmt.Errorf("could not start a PDF viewer: %w", err)
			}

			book, _ := session.Book()
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %q at page %s\n", book.Title, book.PageLabel())

			// The viewer reads a temporary copy that is removed on exit
			if term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprint(cmd.OutOrStdout(), "Press Enter when you are done reading…")
				bufio.NewReader(os.Stdin).ReadString('\n')
			}
			return nil
		}),
	}
}

func newSyncCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <id>",
		Short: "Send a book's reading progress to Telegram",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			book, err := lookupBook(a, args[0])
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if err := a.notifier.Sync(ctx, book, book.TotalPages); err != nil {
				return errors.New(domain.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Progress sent for %q\n", book.Title)
			return nil
		}),
	}
}

func newSettingsCmd(withApp appRunner) *cobra.Command {
	var (
		chatID      string
		token       string
		promptToken bool
		darkMode    bool
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change Telegram and display settings",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			flags := cmd.Flags()

			var patch domain.SettingsPatch
			if flags.Changed("chat-id") {
				patch.TelegramChatID = &chatID
			}
			if flags.Changed("token") {
				patch.TelegramBotToken = &token
			}
			if promptToken {
				secret, err := readSecret(cmd, "Bot token: ")
				if err != nil {
					return err
				}
				patch.TelegramBotToken = &secret
			}
			if flags.Changed("dark-mode") {
				patch.DarkMode = &darkMode
			}

			if patch != (domain.SettingsPatch{}) {
				if err := a.library.UpdateSettings(patch); err != nil {
					return errors.New(domain.Message(err))
				}
			}
			printSettings(cmd.OutOrStdout(), a.library.Settings())
			return nil
		}),
	}
	cmd.Flags().StringVar(&chatID, "chat-id", "", "Telegram chat id")
	cmd.Flags().StringVar(&token, "token", "", "Telegram bot token (visible in shell history, prefer --prompt-token)")
	cmd.Flags().BoolVar(&promptToken, "prompt-token", false, "read the bot token from the terminal without echo")
	cmd.Flags().BoolVar(&darkMode, "dark-mode", false, "use the dark theme")
	cmd.MarkFlagsMutuallyExclusive("token", "prompt-token")
	return cmd
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func printSettings(out io.Writer, s domain.Settings) {
	token := "(not set)"
	if s.TelegramBotToken != "" {
		token = maskSecret(s.TelegramBotToken)
	}
	chat := s.TelegramChatID
	if chat == "" {
		chat = "(not set)"
	}
	theme := "light"
	if s.DarkMode {
		theme = "dark"
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Bot token\t%s\n", token)
	fmt.Fprintf(w, "Chat id\t%s\n", chat)
	fmt.Fprintf(w, "Theme\t%s\n", theme)
	w.Flush()
}

// maskSecret keeps the last four characters
func maskSecret(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return strings.Repeat("•", len(r))
	}
	return strings.Repeat("•", len(r)-4) + string(r[len(r)-4:])
}

func newConfigCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := *configFile
			if path == "" {
				path = filepath.Join(adapter.DefaultConfigPath(), "config.yaml")
			}

			// Start from the existing file when overwriting, defaults and env otherwise
			source := ""
			if _, err := os.Stat(path); err == nil {
				if !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				source = path
			}

			cfg, err := adapter.LoadConfig(source)
			if err != nil {
				return err
			}
			if err := adapter.SaveConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
