package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/specialistvlad/modbisect/internal/app"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) *ExitError {
	return &ExitError{Code: 2, Message: err.Error(), Err: err}
}

// flags holds the values of the root command's persistent flags.
type flags struct {
	configPath       string
	profileDir       string
	logLevel         string
	logFormat        string
	overrideVersions string
	lieDepends       string
	statusPort       int
	historyFile      string
}

func (f *flags) options() app.Options {
	return app.Options{
		ConfigPath:       f.configPath,
		ProfileDir:       f.profileDir,
		LogLevel:         strings.ToLower(f.logLevel),
		LogFormat:        strings.ToLower(f.logFormat),
		OverrideVersions: f.overrideVersions,
		LieDepends:       f.lieDepends,
		StatusPort:       f.statusPort,
		HistoryFile:      f.historyFile,
	}
}

func (f *flags) validate() error {
	if !slices.Contains(app.LogLevels, strings.ToLower(f.logLevel)) {
		return fmt.Errorf("invalid log-level: must be one of %s", strings.Join(app.LogLevels, ", "))
	}
	if !slices.Contains(app.LogFormats, strings.ToLower(f.logFormat)) {
		return fmt.Errorf("invalid log-format: must be one of %s", strings.Join(app.LogFormats, ", "))
	}
	if f.statusPort < 0 || f.statusPort > 65535 {
		return fmt.Errorf("invalid status-port: %d", f.statusPort)
	}
	return nil
}

// Execute runs the command line in args. Report output goes to outW and log
// output to errW. Usage and configuration errors come back as an ExitError
// with code 2, failures while running a command with code 1.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	if _, err := root.ExecuteContextC(ctx); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return usageError(err)
	}
	return nil
}

// NewRootCommand builds the modbisect command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "modbisect",
		Short: "Find the mod that breaks a Minecraft mod pack.",
		Long: `modbisect - finds the mod responsible for a crash or error in a Minecraft
mod pack by restarting the game with halves of the pack disabled.

Mods that depend on each other are switched together, so every probed
configuration is one the loader accepts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Path to a config file or a directory of .hcl files.")
	pf.StringVarP(&f.profileDir, "profile-dir", "p", "", "Game directory of the instance. Discovered from the running game when unset.")
	pf.StringVar(&f.logLevel, "log-level", "info", "Logging level: "+strings.Join(app.LogLevels, ", ")+".")
	pf.StringVar(&f.logFormat, "log-format", app.FormatAuto, "Log output format: "+strings.Join(app.LogFormats, ", ")+".")
	pf.StringVar(&f.overrideVersions, "override-versions", "", "Comma separated id=version pairs that replace declared versions.")
	pf.StringVar(&f.lieDepends, "lie-depends", "", "Comma separated mod ids whose requirements are treated as satisfied.")
	pf.IntVar(&f.statusPort, "status-port", 0, "Port for the HTTP status server during a search. 0 is disabled.")
	pf.StringVar(&f.historyFile, "history-file", "", "Write the boot history of find-error to this YAML file.")

	root.AddCommand(
		findErrorCommand(f, outW, errW),
		modInfoCommand(f, outW, errW),
		validateCommand(f, outW, errW),
		whyDependsCommand(f, outW, errW),
		modsCommand(f, outW, errW),
		cleanCommand(f, outW, errW),
	)
	return root
}

// runWith returns a RunE that builds the App from the parsed flags and hands
// it to fn. Errors from building the App are usage errors; errors from fn
// are runtime failures.
func runWith(f *flags, outW, errW io.Writer, fn func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := f.validate(); err != nil {
			return usageError(err)
		}
		a, err := app.New(outW, errW, f.options())
		if err != nil {
			return usageError(err)
		}
		if err := fn(cmd.Context(), a, args); err != nil {
			return &ExitError{Code: 1, Message: err.Error(), Err: err}
		}
		return nil
	}
}

// positional wraps a cobra argument check so its failure is a usage error.
func positional(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := check(cmd, a); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func findErrorCommand(f *flags, outW, errW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "find-error <symptom>",
		Short: "Find the mod whose presence makes the symptom appear.",
		Long: `Restarts the game repeatedly until the mod responsible for the symptom is
found. The symptom is searched for in the crash report, the game logs and the
game's output. Files are restored when the search ends.`,
		Example: `  modbisect find-error "java.lang.NoSuchMethodError"
  modbisect --profile-dir ~/.minecraft --status-port 8080 find-error "Mixin apply failed"`,
		Args: positional(cobra.ExactArgs(1)),
		RunE: runWith(f, outW, errW, func(ctx context.Context, a *app.App, args []string) error {
			return a.FindError(ctx, args[0])
		}),
	}
}

func modInfoCommand(f *flags, outW, errW io.Writer) *cobra.Command {
	var dotDir string
	cmd := &cobra.Command{
		Use:   "mod-info",
		Short: "Boot each cluster of the pack alone and report how it behaves.",
		Args:  positional(cobra.NoArgs),
		RunE: runWith(f, outW, errW, func(ctx context.Context, a *app.App, _ []string) error {
			return a.ModInfo(ctx, dotDir)
		}),
	}
	cmd.Flags().StringVar(&dotDir, "dot", "", "Write a Graphviz file per cluster into this directory.")
	return cmd
}

func validateCommand(f *flags, outW, errW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every requirement in the pack is satisfied.",
		Args:  positional(cobra.NoArgs),
		RunE: runWith(f, outW, errW, func(ctx context.Context, a *app.App, _ []string) error {
			return a.Validate(ctx)
		}),
	}
}

func whyDependsCommand(f *flags, outW, errW io.Writer) *cobra.Command {
	var onlyErrors bool
	cmd := &cobra.Command{
		Use:   "why-depends <modid>",
		Short: "Show what a mod requires and what requires it.",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: runWith(f, outW, errW, func(ctx context.Context, a *app.App, args []string) error {
			return a.WhyDepends(ctx, args[0], onlyErrors)
		}),
	}
	cmd.Flags().BoolVar(&onlyErrors, "errors", false, "Only show unsatisfied requirements.")
	return cmd
}

func modsCommand(f *flags, outW, errW io.Writer) *cobra.Command {
	mods := &cobra.Command{
		Use:   "mods",
		Short: "Enable or disable mod files.",
	}

	all := func(use, short string, enable bool) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  positional(cobra.NoArgs),
			RunE: runWith(f, outW, errW, func(ctx context.Context, a *app.App, _ []string) error {
				return a.ManageAll(ctx, enable)
			}),
		}
	}
	one := func(use, short string, enable bool) *cobra.Command {
		var permanent bool
		cmd := &cobra.Command{
			Use:   use + " <modid>",
			Short: short,
			Args:  positional(cobra.ExactArgs(1)),
			RunE: runWith(f, outW, errW, func(ctx context.Context, a *app.App, args []string) error {
				return a.Toggle(ctx, args[0], enable, permanent)
			}),
		}
		cmd.Flags().BoolVar(&permanent, "permanent", false, "Change the user's marker on this mod's file only, instead of the reversible search marker.")
		return cmd
	}

	mods.AddCommand(
		all("enable-all", "Remove the user's disabled marker from every mod file.", true),
		all("disable-all", "Give every enabled mod file the user's disabled marker.", false),
		one("enable", "Enable a mod and the mods it requires.", true),
		one("disable", "Disable a mod.", false),
	)
	return mods
}

func cleanCommand(f *flags, outW, errW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Restore mod files left disabled by an interrupted search.",
		Args:  positional(cobra.NoArgs),
		RunE: runWith(f, outW, errW, func(ctx context.Context, a *app.App, _ []string) error {
			return a.Clean(ctx)
		}),
	}
}
