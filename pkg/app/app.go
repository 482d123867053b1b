// Package app builds cobra commands whose flags are grouped into named flag
// sets and can also be supplied through the environment or a config file.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"
)

// NamedFlagSetOptions is implemented by the aggregated options of a command.
type NamedFlagSetOptions interface {
	// Flags returns the flags grouped by section.
	Flags() cliflag.NamedFlagSets
	// Complete fills defaults that depend on other fields or the environment.
	Complete() error
	// Validate reports every invalid field at once.
	Validate() error
}

// RunFunc is the entry point of a command once its options are ready.
type RunFunc func() error

// App is a cobra command plus the plumbing that loads its options.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	envPrefix   string
	envAliases  map[string][]string
	onReload    func()
	args        cobra.PositionalArgs
	subcommands []*cobra.Command

	cmd *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithOptions sets the options loaded before the run function executes.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the function executed by the root command.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithEnvAliases binds additional environment variable names to flag keys,
// for example {"sfmta.username": {"SFMTA_USERNAME"}}.
func WithEnvAliases(aliases map[string][]string) Option {
	return func(a *App) { a.envAliases = aliases }
}

// WithConfigReload is called after the config file changed on disk and was
// re-read.
func WithConfigReload(fn func()) Option {
	return func(a *App) { a.onReload = fn }
}

// WithSubcommands adds commands that share the root's flags and loading.
func WithSubcommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.subcommands = append(a.subcommands, cmds...) }
}

// NewApp creates an App named name.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{name: name, shortDesc: shortDesc, envPrefix: envPrefixFor(name)}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command returns the root command.
func (a *App) Command() *cobra.Command { return a.cmd }

// Run executes the command and exits the process on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:               a.name,
		Short:             a.shortDesc,
		Long:              a.description,
		SilenceUsage:      true,
		SilenceErrors:     false,
		Args:              a.args,
		PersistentPreRunE: a.loadOptions,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	if a.runFunc != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			if a.options != nil {
				if err := a.options.Validate(); err != nil {
					return err
				}
			}
			return a.runFunc()
		}
	}

	var fss cliflag.NamedFlagSets
	if a.options != nil {
		fss = a.options.Flags()
		fs := cmd.PersistentFlags()
		for _, f := range fss.FlagSets {
			fs.AddFlagSet(f)
		}
	}
	addConfigFlag(a.name, fss.FlagSet("global"))
	globalflag.AddGlobalFlags(fss.FlagSet("global"), cmd.Name())
	cmd.PersistentFlags().AddFlagSet(fss.FlagSet("global"))

	for _, sub := range a.subcommands {
		cmd.AddCommand(sub)
	}

	addCmdTemplate(cmd, fss)
	a.cmd = cmd
}

// loadOptions merges config file and environment into the flags and then
// completes the options. It runs before the root and every subcommand.
func (a *App) loadOptions(cmd *cobra.Command, args []string) error {
	if a.options == nil {
		return nil
	}
	if err := bindEnvironment(a.envPrefix, a.envAliases); err != nil {
		return err
	}
	if err := readConfig(a.name, a.onReload); err != nil {
		return err
	}
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.Unmarshal(a.options); err != nil {
		return fmt.Errorf("loading options: %w", err)
	}
	return a.options.Complete()
}

func addCmdTemplate(cmd *cobra.Command, fss cliflag.NamedFlagSets) {
	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cmd.SetUsageFunc(func(cmd *cobra.Command) error {
		fmt.Fprintf(cmd.OutOrStderr(), "Usage:\n  %s\n", cmd.UseLine())
		cliflag.PrintSections(cmd.OutOrStderr(), fss, cols)
		return nil
	})
	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
		if cmd.HasAvailableSubCommands() {
			fmt.Fprintf(cmd.OutOrStdout(), "\nCommands:\n")
			for _, sub := range cmd.Commands() {
				if sub.IsAvailableCommand() {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %s\n", sub.Name(), sub.Short)
				}
			}
		}
		cliflag.PrintSections(cmd.OutOrStdout(), fss, cols)
	})
}
