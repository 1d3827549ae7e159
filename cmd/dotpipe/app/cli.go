package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// Domain: CLI Application Structure
// This file contains the main CLI application setup with Cobra commands and flags

// App represents the CLI application
type App struct {
	version string
	commit  string
	date    string

	rootCmd *cobra.Command

	// Flags
	configFile string
	logLevel   string

	config Config
	logger *slog.Logger
}

// NewApp creates a new CLI application
func NewApp(version, commit, date string) *App {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		config:  DefaultConfig(),
		logger:  slog.New(slog.DiscardHandler),
	}

	app.rootCmd = &cobra.Command{
		Use:   "dotpipe",
		Short: "Run pipeline macros embedded in HTML pages",
		Long: `dotpipe runs the pipeline scripts carried by the "inline" attribute of
elements in an HTML page and prints the resulting document.

Examples:
  dotpipe run page.html                  # Run every entry bound to "load"
  dotpipe run page.html counter          # Run the entry keyed "counter"
  dotpipe run site.zip --event click     # Run the click entries of a bundled page
  dotpipe run page.html --vars           # Dump entry variables as JSON
  dotpipe lint page.html                 # Report malformed segments
  dotpipe watch page.html                # Re-run on every save`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: app.setup,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	app.setupFlags()
	app.setupCommands()

	return app
}

// Execute runs the CLI application until it finishes or is interrupted
func (a *App) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.rootCmd.ExecuteContext(ctx)
}

// setupFlags sets up the persistent flags
func (a *App) setupFlags() {
	flags := a.rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", ConfigPath, "Workspace configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (default from config)")
}

// setupCommands sets up subcommands
func (a *App) setupCommands() {
	a.rootCmd.AddCommand(
		a.createRunCommand(),
		a.createWatchCommand(),
		a.createListCommand(),
		a.createLintCommand(),
		a.createInitCommand(),
		a.createSecretCommand(),
		a.createCacheCommand(),
		a.createVersionCommand(),
		a.createCompletionCommand(),
	)
}

// setup loads the workspace config and builds the logger
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(a.configFile, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logger, err := NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}
	a.config = cfg
	a.logger = logger
	return nil
}

func (a *App) runFlags(cmd *cobra.Command, opts *RunOptions) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.Event, "event", "e", "load", "Trigger event whose entries run when no key is given")
	flags.StringVarP(&opts.Member, "file-member", "m", "", "Page inside an archive (default: index.html)")
	flags.StringVarP(&opts.Script, "script", "s", "", "Starlark file whose functions the call verb can reach")
	flags.StringVar(&opts.Env, "env", "", "Also read .env.<name> files beside the page")
	flags.StringArrayVar(&opts.Set, "set", nil, "Pre-seed a variable in every entry (name=value)")
	flags.BoolVar(&opts.State, "state", false, "Restore entry variables from the last run and save them afterwards")
	flags.BoolVar(&opts.ResetState, "reset-state", false, "Forget saved entry variables before running")
	flags.BoolVar(&opts.DumpVars, "vars", false, "Print entry variables as JSON instead of the page")
	flags.DurationVarP(&opts.Timeout, "timeout", "t", 30*time.Second, "Abandon executions still suspended after this long (0 disables)")
}

func (a *App) createRunCommand() *cobra.Command {
	var opts RunOptions
	cmd := &cobra.Command{
		Use:               "run [PAGE] [KEY...]",
		Short:             "Run a page's entries and print the result",
		Args:              cobra.ArbitraryArgs,
		ValidArgsFunction: a.completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.config.page(args)
			if err != nil {
				return err
			}
			opts.Page = page
			if len(args) > 1 {
				opts.Keys = args[1:]
			}
			return ExecutePage(cmd.Context(), cmd.OutOrStdout(), a.config, opts, a.version, a.logger)
		},
	}
	a.runFlags(cmd, &opts)
	return cmd
}

func (a *App) createWatchCommand() *cobra.Command {
	var opts RunOptions
	cmd := &cobra.Command{
		Use:               "watch [PAGE] [KEY...]",
		Short:             "Run a page again every time it changes",
		Args:              cobra.ArbitraryArgs,
		ValidArgsFunction: a.completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.config.page(args)
			if err != nil {
				return err
			}
			opts.Page = page
			if len(args) > 1 {
				opts.Keys = args[1:]
			}
			return WatchPage(cmd.Context(), cmd.OutOrStdout(), a.config, opts, a.version, a.logger)
		},
	}
	a.runFlags(cmd, &opts)
	return cmd
}

func (a *App) createListCommand() *cobra.Command {
	var opts RunOptions
	cmd := &cobra.Command{
		Use:   "list [PAGE]",
		Short: "List a page's entries, their events and segments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd, args, opts)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			out := cmd.OutOrStdout()
			for _, entry := range s.Entries() {
				fmt.Fprintf(out, "%s", entry.Key)
				if len(entry.Events) > 0 {
					fmt.Fprintf(out, " (on %v)", entry.Events)
				}
				fmt.Fprintln(out)
				for i, seg := range entry.Segments {
					fmt.Fprintf(out, "  %2d  %-14s %s\n", i+1, seg.Kind, seg.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Member, "file-member", "m", "", "Page inside an archive (default: index.html)")
	return cmd
}

func (a *App) createLintCommand() *cobra.Command {
	var opts RunOptions
	cmd := &cobra.Command{
		Use:   "lint [PAGE]",
		Short: "Report malformed segments and unknown verbs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd, args, opts)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			problems := s.Lint()
			if !problems.HasErrors() {
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), problems.FormatErrors())
			return fmt.Errorf("%d problem(s) found", len(problems.Errors))
		},
	}
	cmd.Flags().StringVarP(&opts.Member, "file-member", "m", "", "Page inside an archive (default: index.html)")
	cmd.Flags().StringVarP(&opts.Script, "script", "s", "", "Starlark file whose functions the call verb can reach")
	return cmd
}

// open loads the page named by args without running anything
func (a *App) open(cmd *cobra.Command, args []string, opts RunOptions) (*Session, error) {
	page, err := a.config.page(args)
	if err != nil {
		return nil, err
	}
	opts.Page = page
	return OpenSession(cmd.Context(), a.config, opts, a.version, a.logger)
}

func (a *App) createInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a workspace configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := InitializeConfig(a.configFile, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", a.configFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")
	return cmd
}

func (a *App) createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ShowVersion(cmd.OutOrStdout(), a.version, a.commit, a.date)
		},
	}
}
