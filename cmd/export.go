package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dialer-admin/internal/export"
)

var (
	exportFrom string
	exportTo   string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export successful call results to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		from, to, err := parseExportRange(exportFrom, exportTo)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.SuccessfulLeads(ctx, from, to)
		if err != nil {
			return eris.Wrap(err, "load successful leads")
		}

		out := exportOut
		if out == "" {
			out = fmt.Sprintf("resultaten_%s_%s.xlsx", exportFrom, exportTo)
		}

		if err := export.WriteFile(out, leads, cfg.Export.SurveyName); err != nil {
			if errors.Is(err, export.ErrNoResults) {
				fmt.Println("No successful calls in the selected range; nothing exported.")
				return nil
			}
			return eris.Wrap(err, "write export")
		}

		zap.L().Info("export written",
			zap.String("file", out),
			zap.Int("rows", len(leads)),
		)
		fmt.Printf("Exported %d results to %s\n", len(leads), out)
		return nil
	},
}

// parseExportRange parses the from/to flags as whole days, extending the
// upper bound to the end of its day.
func parseExportRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Errorf("invalid --from date %q (use YYYY-MM-DD)", fromStr)
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Errorf("invalid --to date %q (use YYYY-MM-DD)", toStr)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, eris.New("--to date precedes --from date")
	}
	return from, to.Add(24*time.Hour - time.Second), nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "start date YYYY-MM-DD (required)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "end date YYYY-MM-DD, inclusive (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default resultaten_<from>_<to>.xlsx)")
	_ = exportCmd.MarkFlagRequired("from")
	_ = exportCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(exportCmd)
}
