package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specvital/pester/internal/ctxlog"
	"github.com/specvital/pester/pkg/config"
	"github.com/specvital/pester/pkg/runner"
)

func newDiscoverCmd() *cobra.Command {
	f := &commonFlags{}

	cmd := &cobra.Command{
		Use:   "discover [paths...]",
		Short: "List discovered tests and whether the filter selects them",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(f.configPath, func(cfg *config.Configuration) {
				f.apply(cmd.Flags(), cfg, args)
				cfg.Run.SkipRun.Set(true)
			}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := ctxlog.WithLogger(cmd.Context(), s.logger)

			containers, err := s.discover(ctx, f.workers)
			if err != nil {
				return err
			}

			run, err := runner.New(nil, runner.WithVersion(version)).Run(ctx, s.cfg, containers)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			selected := printTree(out, run)
			fmt.Fprintf(out, "Discovery found %d tests in %d containers, %d selected.\n",
				run.TotalCount, len(run.Containers), selected)
			return nil
		},
	}
	f.register(cmd.Flags())
	return cmd
}
