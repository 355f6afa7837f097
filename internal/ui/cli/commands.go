package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"dvamodel/internal/core/errors"
	"dvamodel/internal/core/ports"
	"dvamodel/internal/ui/report"

	"github.com/spf13/cobra"
)

// withRuntime loads configuration, runs fn and releases everything the
// runtime opened.
func withRuntime(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := newRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.Background()) }()
	return fn(ctx, rt)
}

func newParseCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>...",
		Short: "Extract the models of single files without indexing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				files := make([]ports.FileModels, 0, len(args))
				for _, arg := range args {
					path, err := filepath.Abs(arg)
					if err != nil {
						return err
					}
					models, err := rt.app.ParseFile(ctx, path)
					if err != nil {
						return err
					}
					files = append(files, ports.FileModels{File: path, Models: models})
				}
				return rt.renderer.Models(cmd.OutOrStdout(), files)
			})
		},
	}
}

func newScanCmd(opts *globalOptions) *cobra.Command {
	var (
		force bool
		list  bool
	)
	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Index every model under the given paths or the configured watch paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				res, err := rt.app.Scan(ctx, ports.ScanRequest{Paths: args, Force: force})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if list {
					return rt.renderer.Models(out, rt.app.Snapshot())
				}
				if err := rt.renderer.Scan(out, res); err != nil {
					return err
				}
				if rt.renderer.Format == report.FormatText {
					_, _ = fmt.Fprintln(out, report.Summary(res))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-parse files even when their content is unchanged")
	cmd.Flags().BoolVar(&list, "list", false, "Print the indexed models instead of the scan summary")
	return cmd
}

func newLookupCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <namespace/name>",
		Short: "Show the reducers and effects that handle an action type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				if _, err := rt.app.Scan(ctx, ports.ScanRequest{}); err != nil {
					return err
				}
				matches := rt.app.Lookup(args[0])
				if err := rt.renderer.Matches(cmd.OutOrStdout(), matches); err != nil {
					return err
				}
				if len(matches) == 0 {
					return errors.AddContext(errors.New(errors.CodeNotFound, "no reducer or effect handles this action"), "action", args[0])
				}
				return nil
			})
		},
	}
}

func newTypesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types [prefix]",
		Short: "List the dispatchable action types, optionally filtered by prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				if _, err := rt.app.Scan(ctx, ports.ScanRequest{}); err != nil {
					return err
				}
				prefix := ""
				if len(args) == 1 {
					prefix = args[0]
				}
				return rt.renderer.ActionTypes(cmd.OutOrStdout(), rt.app.ActionTypes(prefix))
			})
		},
	}
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the model index current while files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				rt.startObservability(ctx)
				return rt.app.Watch(ctx, rt.configPath)
			})
		},
	}
}

func newUICmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Browse action types in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				rt.startObservability(ctx)
				return runUI(ctx, rt.app, rt.configPath, rt.renderer.Root)
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "dvamodel v%s\n", versionString)
		},
	}
}
