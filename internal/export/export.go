// Package export writes successful-call results to a spreadsheet. Each row
// merges the lead's call fields with its flattened original_data columns,
// plus the survey name and a formatted call date.
package export

import (
	"io"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/dialer-admin/internal/model"
)

// ErrNoResults is returned when the date range matched nothing; no file is
// produced in that case.
var ErrNoResults = eris.New("export: no successful leads in range")

// Injected columns: the survey this call belongs to and the call date in
// the format the downstream reporting expects.
const (
	colSurvey   = "Onderzoek"
	colCallDate = "Beldatum"

	callDateFormat = "02-01-2006"
	sheetName      = "Resultaten"
)

// baseColumns are the call fields exported for every lead, ahead of the
// original_data columns.
var baseColumns = []string{"phone", "result", "duration", "recording", "ended_at"}

// BuildWorkbook assembles the export workbook in memory.
func BuildWorkbook(leads []model.Lead, surveyName string) (*excelize.File, error) {
	if len(leads) == 0 {
		return nil, ErrNoResults
	}

	dataCols := originalDataColumns(leads)
	header := make([]string, 0, len(baseColumns)+len(dataCols)+2)
	header = append(header, baseColumns...)
	header = append(header, dataCols...)
	header = append(header, colSurvey, colCallDate)

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, eris.Wrap(err, "export: rename sheet")
	}

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, eris.Wrap(err, "export: write header")
		}
	}

	for i, lead := range leads {
		r := i + 2
		row := buildRow(lead, dataCols, surveyName)
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, eris.Wrapf(err, "export: write row %d", r)
			}
		}
	}

	return f, nil
}

// Write streams the workbook to w (the HTTP download path).
func Write(w io.Writer, leads []model.Lead, surveyName string) error {
	f, err := BuildWorkbook(leads, surveyName)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// WriteFile saves the workbook to disk (the CLI path).
func WriteFile(path string, leads []model.Lead, surveyName string) error {
	f, err := BuildWorkbook(leads, surveyName)
	if err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

// originalDataColumns returns the union of original_data keys across all
// leads, sorted so the column order is stable between exports.
func originalDataColumns(leads []model.Lead) []string {
	seen := make(map[string]struct{})
	for _, l := range leads {
		for k := range l.OriginalData {
			seen[k] = struct{}{}
		}
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func buildRow(lead model.Lead, dataCols []string, surveyName string) []any {
	row := make([]any, 0, len(baseColumns)+len(dataCols)+2)

	row = append(row, lead.Phone)
	if lead.Result != nil {
		row = append(row, string(*lead.Result))
	} else {
		row = append(row, "")
	}
	if lead.Duration != nil {
		row = append(row, *lead.Duration)
	} else {
		row = append(row, "")
	}
	row = append(row, lead.Recording)
	row = append(row, formatTime(lead.EndedAt, time.RFC3339))

	for _, col := range dataCols {
		row = append(row, lead.OriginalData[col])
	}

	row = append(row, surveyName)
	row = append(row, formatTime(lead.EndedAt, callDateFormat))

	return row
}

func formatTime(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}
