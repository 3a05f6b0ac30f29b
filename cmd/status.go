package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dialer-admin/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dialer state and call counters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		status := store.DefaultStatus
		if s, err := st.DialerStatus(ctx); err != nil {
			zap.L().Warn("status read failed, using default", zap.Error(err))
		} else {
			status = s
		}

		speed := store.DefaultSpeed
		if v, err := st.DialerSpeed(ctx); err != nil {
			zap.L().Warn("speed read failed, using default", zap.Error(err))
		} else {
			speed = v
		}

		var callers []string
		if ids, err := st.CallerIDs(ctx); err != nil {
			zap.L().Warn("caller IDs read failed", zap.Error(err))
		} else {
			callers = ids
		}

		stats, err := st.Stats(ctx)
		if err != nil {
			zap.L().Warn("stats read failed, using zeros", zap.Error(err))
		}

		fmt.Printf("Dialer:      %s\n", status)
		fmt.Printf("Speed:       %d calls/min\n", speed)
		fmt.Printf("Caller IDs:  %s\n", formatCallers(callers))
		fmt.Printf("Successful:  %d\n", stats.Success)
		fmt.Printf("Failed:      %d\n", stats.Failed)
		fmt.Printf("In queue:    %d\n", stats.Queued)
		return nil
	},
}

func formatCallers(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
