package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dialer-admin/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dialer-admin",
	Short: "Admin tool for the outbound dialer",
	Long:  "Controls the dialer (on/off, call rate, caller IDs), imports leads and blacklist numbers from CSV/XLSX, and exports successful call results.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
