package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// parseCSV reads the whole CSV into a Table. The delimiter is detected
// from the header line: comma by default, semicolon when the comma parse
// yields a single column that still contains semicolons (the common
// Dutch-locale Excel export).
func parseCSV(data []byte) (*Table, error) {
	delim := detectDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: file is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	t := &Table{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		t.Rows = append(t.Rows, padRow(record, len(header)))
	}

	return t, nil
}

func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	reader := csv.NewReader(bytes.NewReader(line))
	reader.LazyQuotes = true
	fields, err := reader.Read()
	if err == nil && len(fields) == 1 && strings.Contains(fields[0], ";") {
		return ';'
	}
	return ','
}
