package cmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"flowmap/internal/config"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the status endpoint of a running daemon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr := statusAddr
		if addr == "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			addr = cfg.ServerAddr
		}
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}

		client := &http.Client{Timeout: 5 * time.Second}
		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, "http://"+addr+"/status", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("query daemon at %s: %w", addr, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
		}
		fmt.Println(strings.TrimSpace(string(body)))
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "daemon address (host:port), defaults to the configured server address")
	rootCmd.AddCommand(statusCmd)
}
