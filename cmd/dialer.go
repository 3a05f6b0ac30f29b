package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dialer-admin/internal/model"
	"github.com/sells-group/dialer-admin/internal/store"
)

var dialerCmd = &cobra.Command{
	Use:   "dialer",
	Short: "Control the dialer switch, speed, and caller IDs",
}

var dialerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Turn the dialer on",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return setDialerStatus(cmd, model.StatusOn)
	},
}

var dialerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Turn the dialer off",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return setDialerStatus(cmd, model.StatusOff)
	},
}

func setDialerStatus(cmd *cobra.Command, status model.DialerStatus) error {
	ctx := cmd.Context()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetDialerStatus(ctx, status); err != nil {
		return eris.Wrap(err, "set dialer status")
	}
	zap.L().Info("dialer status updated", zap.String("status", string(status)))
	return nil
}

var dialerSpeedCmd = &cobra.Command{
	Use:   "speed <calls-per-minute>",
	Short: "Set the call rate (10-60 in steps of 5)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var speed int
		if _, err := fmt.Sscanf(args[0], "%d", &speed); err != nil {
			return eris.Errorf("invalid speed %q", args[0])
		}
		if !store.ValidSpeed(speed) {
			return eris.Errorf("speed %d is off scale: use 10-60 in steps of 5", speed)
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SetDialerSpeed(ctx, speed); err != nil {
			return eris.Wrap(err, "set dialer speed")
		}
		zap.L().Info("dialer speed updated", zap.Int("speed", speed))
		return nil
	},
}

var dialerCallersCmd = &cobra.Command{
	Use:   "callers [number...]",
	Short: fmt.Sprintf("Set the outbound caller IDs (max %d, none clears)", store.MaxCallerIDs),
	Args:  cobra.MaximumNArgs(store.MaxCallerIDs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SetCallerIDs(ctx, args); err != nil {
			return eris.Wrap(err, "set caller IDs")
		}
		zap.L().Info("caller IDs updated", zap.Strings("caller_ids", args))
		return nil
	},
}

func init() {
	dialerCmd.AddCommand(dialerStartCmd, dialerStopCmd, dialerSpeedCmd, dialerCallersCmd)
	rootCmd.AddCommand(dialerCmd)
}
