package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"flowmap/internal/config"
	"flowmap/internal/export"
	"flowmap/internal/store"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the committed graph as mermaid or markdown",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		graphs := store.NewDiskStore(filepath.Join(cfg.DataDir, "graph.json"))
		g, err := graphs.Load(cmd.Context())
		if err != nil {
			return err
		}
		text, err := export.Render(g, export.Format(exportFormat))
		if err != nil {
			return err
		}
		if exportOut == "" {
			fmt.Print(text)
			return nil
		}
		return os.WriteFile(exportOut, []byte(text), 0o644)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "mermaid", "output format: mermaid or markdown")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
