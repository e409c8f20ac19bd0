package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/datastack-labs/fedsql/internal/datanode"
)

// renderResult prints query output in the requested format.
func renderResult(w io.Writer, columns []datanode.ColumnInfo, rows [][]any, format string) error {
	switch format {
	case "json":
		return renderJSON(w, columns, rows)
	case "csv":
		return renderCSV(w, columns, rows)
	default:
		return renderTable(w, columns, rows)
	}
}

func renderTable(w io.Writer, columns []datanode.ColumnInfo, rows [][]any) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = col.Name
	}
	t.AppendHeader(header)

	for _, row := range rows {
		prettyRow := make(table.Row, len(row))
		for i, v := range row {
			if v == nil {
				prettyRow[i] = "NULL"
			} else {
				prettyRow[i] = v
			}
		}
		t.AppendRow(prettyRow)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderCSV(w io.Writer, columns []datanode.ColumnInfo, rows [][]any) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderJSON(w io.Writer, columns []datanode.ColumnInfo, rows [][]any) error {
	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		record := make(map[string]any, len(columns))
		for j, col := range columns {
			if j < len(row) {
				record[col.Name] = row[j]
			}
		}
		records[i] = record
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
