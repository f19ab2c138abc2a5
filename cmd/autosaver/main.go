package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"autosaver/internal/app"
	"autosaver/internal/config"
	"autosaver/internal/saver"
	"autosaver/internal/tui"
	"autosaver/internal/turn"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Watch", "Apply").
// console, when non-nil, receives a copy of the log.
func newApp(operation string, console io.Writer) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, defaults["config_path"], operation, app.Options{Console: console})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// openApp creates an App pointed at the target given by args, if any.
func openApp(operation string, console io.Writer, args []string) (*app.App, error) {
	a, err := newApp(operation, console)
	if err != nil {
		return nil, err
	}
	source, dest := targetArgs(args)
	if err := a.Open(source, dest); err != nil {
		a.Fail()
		a.Close()
		return nil, err
	}
	return a, nil
}

func targetArgs(args []string) (source, dest string) {
	if len(args) > 0 {
		source = args[0]
	}
	if len(args) > 1 {
		dest = args[1]
	}
	return source, dest
}

// splitTargetArgs separates the first n positional arguments of a row command
// from the optional SOURCE and DEST that follow them.
func splitTargetArgs(args []string, n int) (positional []string, source, dest string) {
	n = min(n, len(args))
	source, dest = targetArgs(args[n:])
	return args[:n], source, dest
}

func parseRow(s string) (int, error) {
	row, err := strconv.Atoi(s)
	if err != nil || row < 0 {
		return 0, fmt.Errorf("invalid row %q: expected a non-negative number", s)
	}
	return row, nil
}

func formatTurn(n int) string {
	switch n {
	case turn.Unknown:
		return "?"
	case turn.NoCounter:
		return "-"
	default:
		return strconv.Itoa(n)
	}
}

func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

var rootCmd = &cobra.Command{
	Use:          "autosaver",
	Short:        "Versioned backups of a game save file",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Source:       %s\n", cfg.Watch.SourcePath)
		fmt.Printf("Destination:  %s\n", cfg.Watch.Destination())
		fmt.Printf("Poll:         %s\n", cfg.Watch.PollInterval.Duration)
		fmt.Printf("Grace window: %s\n", cfg.Watch.GraceWindow.Duration)
		fmt.Printf("Journal:      %s\n", cfg.Journal.Type)
		if cfg.Mirror.Type != "" {
			fmt.Printf("Mirror:       %s (%s, encrypt=%t)\n", cfg.Mirror.Name, cfg.Mirror.Type, cfg.Mirror.Encrypt)
		}
		if cfg.Metrics.Addr != "" {
			fmt.Printf("Metrics:      %s\n", cfg.Metrics.Addr)
		}
		return nil
	},
}

// target command
var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage the watched save file",
}

var targetSetCmd = &cobra.Command{
	Use:   "set SOURCE [DEST]",
	Short: "Remember the save file to watch",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetTarget", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		source, dest := targetArgs(args)
		src, dst, err := a.SetTarget(source, dest)
		if err != nil {
			a.Fail()
			return fmt.Errorf("saving target: %w", err)
		}

		fmt.Printf("Watching %s\n", src)
		fmt.Printf("Backups in %s\n", dst)
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch [SOURCE] [DEST]",
	Short: "Back up the save file every time it is written",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		var console io.Writer
		if verbose {
			console = os.Stderr
		}

		a, err := newApp("Watch", console)
		if err != nil {
			return err
		}
		defer a.Close()

		a.Service().SetListener(saver.ListenerFuncs{
			Log: func(msg string) {
				fmt.Printf("%s  %s\n", time.Now().Format(time.TimeOnly), msg)
			},
			Error: func(err error) {
				fmt.Fprintf(os.Stderr, "%s  error: %v\n", time.Now().Format(time.TimeOnly), err)
			},
		})

		source, dest := targetArgs(args)
		if err := a.Open(source, dest); err != nil {
			a.Fail()
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := a.Watch(ctx); err != nil {
			a.Fail()
			return err
		}
		return nil
	},
}

// tui command
var tuiCmd = &cobra.Command{
	Use:   "tui [SOURCE] [DEST]",
	Short: "Browse, apply and rename snapshots while watching",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("TUI", nil, args)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := a.Service()
		widths, err := tui.Run(ctx, svc, a, tui.Options{
			Source:      svc.SourcePath(),
			Destination: svc.DestinationDir(),
			Widths:      a.Config().TUI,
		})
		if err != nil {
			a.Fail()
			return err
		}
		if widths != a.Config().TUI {
			if err := a.SaveTUI(widths); err != nil {
				return fmt.Errorf("saving column widths: %w", err)
			}
		}
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list [SOURCE] [DEST]",
	Short: "List snapshots",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("List", nil, args)
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.List()
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}

		for _, r := range rows {
			applied := " "
			if r.Applied {
				applied = "*"
			}
			fmt.Printf("%4d %s %s  %5s  %s\n",
				r.Index,
				applied,
				r.Snapshot.Timestamp.Format(saver.TimestampLayout),
				formatTurn(r.Snapshot.Turn),
				r.Snapshot.Label,
			)
		}
		return nil
	},
}

// apply command
var applyCmd = &cobra.Command{
	Use:   "apply ROW [SOURCE] [DEST]",
	Short: "Restore a snapshot over the live save file",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, source, dest := splitTargetArgs(args, 1)
		row, err := parseRow(pos[0])
		if err != nil {
			return err
		}

		a, err := openApp("Apply", nil, []string{source, dest})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Apply(row); err != nil {
			a.Fail()
			return fmt.Errorf("apply failed: %w", err)
		}

		fmt.Printf("Applied row %d to %s\n", row, a.Service().SourcePath())
		return nil
	},
}

// rename command
var renameCmd = &cobra.Command{
	Use:   "rename ROW LABEL [SOURCE] [DEST]",
	Short: "Label a snapshot",
	Args:  cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, source, dest := splitTargetArgs(args, 2)
		row, err := parseRow(pos[0])
		if err != nil {
			return err
		}

		a, err := openApp("Rename", nil, []string{source, dest})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Rename(row, pos[1]); err != nil {
			a.Fail()
			return fmt.Errorf("rename failed: %w", err)
		}

		fmt.Printf("Renamed row %d\n", row)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View activity history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp("History", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if !all {
			if err := a.Open("", ""); err != nil {
				return err
			}
		}

		entries, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No activity recorded.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s  %-18s  %s  %s\n",
				e.OccurredAt.Format("2006-01-02 15:04:05"),
				e.Kind,
				e.SnapshotName,
				e.Detail,
			)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage mirror encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("InitKeys", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		pw, err := readPassphrase("Passphrase: ")
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		if pw != confirm {
			return errors.New("passphrases do not match")
		}

		if err := a.InitKeys(pw); err != nil {
			a.Fail()
			return err
		}

		fmt.Printf("Public key:  %s\n", a.Config().Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", a.Config().Encryption.PrivateKeyPath)
		return nil
	},
}

// mirror command
var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Inspect the off-site mirror",
}

var mirrorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mirrored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MirrorList", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.MirrorList()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("Mirror is empty.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var mirrorFetchCmd = &cobra.Command{
	Use:   "fetch NAME OUT",
	Short: "Copy a mirrored snapshot to a local file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MirrorFetch", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.MirrorFetch(args[0], args[1], func() (string, error) {
			return readPassphrase("Passphrase: ")
		})
		if err != nil {
			a.Fail()
			return err
		}

		fmt.Printf("Fetched %s to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// target subcommands
	targetCmd.AddCommand(targetSetCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// mirror subcommands
	mirrorCmd.AddCommand(mirrorListCmd)
	mirrorCmd.AddCommand(mirrorFetchCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolP("verbose", "v", false, "Copy the log to stderr")
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show")
	historyCmd.Flags().BoolP("all", "a", false, "Show activity for every watch target")
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(mirrorCmd)
}
