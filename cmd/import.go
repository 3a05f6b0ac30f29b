package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dialer-admin/internal/importer"
	"github.com/sells-group/dialer-admin/internal/ingest"
	"github.com/sells-group/dialer-admin/internal/model"
)

var (
	importFile      string
	importDest      string
	importPhoneCol  string
	importNameCol   string
	importChunkSize int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads or blacklist numbers from a CSV/XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dest := model.ImportDestination(importDest)
		if !dest.Valid() {
			return eris.Errorf("invalid destination %q: use leads or blacklist", importDest)
		}

		tbl, err := ingest.Read(importFile)
		if err != nil {
			return eris.Wrap(err, "read import file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		chunkSize := importChunkSize
		if chunkSize == 0 {
			chunkSize = cfg.Import.ChunkSize
		}

		report, err := importer.Execute(ctx, st, tbl, importer.ExecuteOptions{
			Destination: dest,
			PhoneColumn: importPhoneCol,
			NameColumn:  importNameCol,
			ChunkSize:   chunkSize,
			Filename:    filepath.Base(importFile),
			Progress: func(done, total int) {
				fmt.Printf("\rProcessing %d/%d", done, total)
				if done == total {
					fmt.Println()
				}
			},
		})
		if err != nil {
			return eris.Wrap(err, "import")
		}

		fmt.Printf("New:         %d\n", report.Outcome.New)
		fmt.Printf("Duplicate:   %d\n", report.Outcome.Duplicate)
		if dest == model.DestLeads {
			fmt.Printf("Blacklisted: %d\n", report.Outcome.Blacklisted)
		}
		fmt.Printf("Invalid:     %d\n", report.Outcome.Invalid)
		fmt.Printf("Written:     %d\n", report.Write.Written)

		if !report.Write.OK() {
			return eris.Errorf("%d of %d chunks failed to write", len(report.Write.Failed), report.Write.Chunks)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to CSV or XLSX file (required)")
	importCmd.Flags().StringVar(&importDest, "dest", string(model.DestLeads), "destination: leads or blacklist")
	importCmd.Flags().StringVar(&importPhoneCol, "phone-col", "", "column holding phone numbers (required)")
	importCmd.Flags().StringVar(&importNameCol, "name-col", "", "column holding lead names (optional)")
	importCmd.Flags().IntVar(&importChunkSize, "chunk-size", 0, "rows per database write (default from config)")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("phone-col")
	rootCmd.AddCommand(importCmd)
}
