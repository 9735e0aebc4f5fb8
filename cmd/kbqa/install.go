package main

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/service/installer"
	"github.com/sandevgo/kbqa/pkg/log"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:           "install",
	Short:         "Create the runtime directory, .env and a sample knowledge base",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting installation process")

		if _, err := installer.RunWizard(); err != nil {
			return err
		}

		runtimePath := config.GetRuntimePath()
		envPath := filepath.Join(runtimePath, ".env")
		if err := godotenv.Load(envPath); err != nil {
			logger.Warn().Err(err).Str("path", envPath).Msg("failed to load .env file")
		}

		logger.Info().Msgf("initialized runtime directory at: %s", runtimePath)
		logger.Info().Msg("Installation complete! You can now run 'kbqa serve' or 'kbqa chat'.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
