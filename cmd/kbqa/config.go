package main

import (
	"fmt"
	"os"

	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/pkg/env"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration in .env form",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flush := setupLogger(cmd.Context(), os.Stderr)
		defer flush()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return err
		}

		sections := []struct {
			title string
			cfg   any
		}{
			{"application", config.NewAppConfig(ctx)},
			{"engine", config.NewEngineConfig(ctx)},
			{"http", config.NewHTTPConfig(ctx)},
			{"mcp server", config.NewMCPServerConfig(ctx)},
		}

		for _, s := range sections {
			out, err := env.MarshalEnv(s.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s\n", s.title, out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
