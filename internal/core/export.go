package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
)

// WriteCSV writes t in the recording layout: a header of timestampColumn
// followed by the payload names, then one record per row.
func (t *Table) WriteCSV(w io.Writer, timestampColumn string) error {
	cw := csv.NewWriter(w)
	header := append([]string{timestampColumn}, t.Payloads()...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}

	record := make([]string, len(header))
	for i := range t.Time {
		record[0] = strconv.FormatInt(t.Time[i], 10)
		for j := range t.Columns {
			record[j+1] = formatCell(t.Columns[j].Value(i))
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatCell formats a cell value so it parses back to the same value.
func formatCell(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
