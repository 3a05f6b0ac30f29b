package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dialer-admin/internal/model"
)

var resetAllConfirm bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Maintenance actions on the lead queue",
}

var resetFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "Put failed calls back in the queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.ResetFailedLeads(ctx, model.RetryableResults)
		if err != nil {
			return eris.Wrap(err, "reset failed leads")
		}
		zap.L().Info("failed leads reset", zap.Int64("count", n))
		fmt.Printf("Reset %d leads back to the queue\n", n)
		return nil
	},
}

var resetAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Delete every lead (requires --confirm)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !resetAllConfirm {
			return eris.New("refusing to wipe all leads without --confirm")
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.WipeLeads(ctx)
		if err != nil {
			return eris.Wrap(err, "wipe leads")
		}
		zap.L().Info("all leads wiped", zap.Int64("count", n))
		fmt.Printf("Deleted %d leads\n", n)
		return nil
	},
}

func init() {
	resetAllCmd.Flags().BoolVar(&resetAllConfirm, "confirm", false, "confirm deleting every lead")
	resetCmd.AddCommand(resetFailedCmd, resetAllCmd)
	rootCmd.AddCommand(resetCmd)
}
