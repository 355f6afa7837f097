package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the dvamodel command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	var closeLog func()

	rootCmd := &cobra.Command{
		Use:   "dvamodel",
		Short: "Index dva models in JavaScript and TypeScript projects",
		Long: `dvamodel finds dva model declarations (namespace, reducers, effects)
in JavaScript and TypeScript sources and resolves dispatched action types
like "user/fetch" to the code that handles them.`,
		Version: versionString,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			closeLog = configureLogging(cmd.Name() == "ui", opts.verbose)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if closeLog != nil {
				closeLog()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: ./dvamodel.toml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "Output format (text|json|markdown)")
	_ = rootCmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "markdown"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		newParseCmd(opts),
		newScanCmd(opts),
		newLookupCmd(opts),
		newTypesCmd(opts),
		newWatchCmd(opts),
		newUICmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
