package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"flowmap/internal/config"
	"flowmap/internal/snapshot"
	"flowmap/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Copy the committed graph to a timestamped backup",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		graphs := store.NewDiskStore(filepath.Join(cfg.DataDir, "graph.json"))
		cursor := store.NewCursorDiskStore(filepath.Join(cfg.DataDir, "cursor"))

		g, err := graphs.Load(cmd.Context())
		if err != nil {
			return err
		}
		revision, err := cursor.Load(cmd.Context())
		if err != nil {
			return err
		}
		snaps, err := snapshot.New(cfg.BackupDir, cfg.BackupKeep)
		if err != nil {
			return err
		}
		if cfg.S3.Endpoint != "" {
			sink, err := snapshot.NewS3Sink(cfg.S3)
			if err != nil {
				return err
			}
			snaps.WithMirror(sink)
		}
		if err := snaps.Take(cmd.Context(), g, revision); err != nil {
			return err
		}
		names, err := snaps.List()
		if err != nil {
			return err
		}
		fmt.Printf("snapshot written: %s\n", names[len(names)-1])
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff [older] [newer]",
	Short: "Compare two snapshots (defaults to the two most recent)",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		snaps, err := snapshot.New(cfg.BackupDir, cfg.BackupKeep)
		if err != nil {
			return err
		}

		var older, newer string
		switch len(args) {
		case 2:
			older, newer = args[0], args[1]
		default:
			names, err := snaps.List()
			if err != nil {
				return err
			}
			if len(names) < 2 {
				return fmt.Errorf("need at least two snapshots, have %d", len(names))
			}
			older, newer = names[len(names)-2], names[len(names)-1]
		}

		before, err := snaps.Load(older)
		if err != nil {
			return err
		}
		after, err := snaps.Load(newer)
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n%s", older, newer, snapshot.Diff(before, after))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(diffCmd)
}
