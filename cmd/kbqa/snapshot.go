package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/service/memory"
	"github.com/sandevgo/kbqa/internal/storage/sqlite"
	"github.com/sandevgo/kbqa/pkg/log"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <conversation-id>",
	Short: "Print an archived conversation snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flush := setupLogger(cmd.Context(), os.Stderr)
		defer flush()

		return withSnapshots(ctx, func(repo *sqlite.SnapshotRepo) error {
			snap, err := repo.Load(ctx, args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			if exportOutput == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			return os.WriteFile(exportOutput, data, 0600)
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <snapshot.json>",
	Short: "Store a conversation snapshot in the archive",
	Long:  `Validates the snapshot and writes it to the archive. It is restored the next time the engine starts; use POST /conversation/import to load it into a running server.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flush := setupLogger(cmd.Context(), os.Stderr)
		defer flush()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var snap core.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("%w: %v", core.ErrSnapshot, err)
		}

		// A scratch store rejects malformed snapshots before they reach the archive.
		conv, err := memory.NewStore(config.DefaultEngineConfig()).Import(ctx, snap)
		if err != nil {
			return err
		}

		return withSnapshots(ctx, func(repo *sqlite.SnapshotRepo) error {
			if err := repo.Save(ctx, snap); err != nil {
				return err
			}
			log.FromCtx(ctx).Info().Str("conversation_id", conv.ID).Int("turns", len(conv.Turns)).Msg("snapshot imported")
			return nil
		})
	},
}

func withSnapshots(ctx context.Context, fn func(repo *sqlite.SnapshotRepo) error) error {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return err
	}
	appCfg := config.NewAppConfig(ctx)

	db, err := sqlite.NewDB(ctx, appCfg.GetSnapshotPath())
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(sqlite.NewSnapshotRepo(db))
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write the snapshot to a file instead of stdout")
	rootCmd.AddCommand(exportCmd, importCmd)
}
