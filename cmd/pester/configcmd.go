package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specvital/pester/pkg/config"
)

func newConfigCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print every option with its description, value and default. Options
changed by the configuration file or environment are marked with *.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(configPath, config.Default(), func(err error) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg.ToMap())
			}
			_, err = fmt.Fprint(out, cfg.Describe())
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML, JSON or TOML)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print only modified options as JSON")
	return cmd
}
