package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"DRFashion-Sync/internal/logger"
	"DRFashion-Sync/internal/sync"

	"github.com/xuri/excelize/v2"
)

// Report is a flat table ready for export.
type Report struct {
	Title   string
	Columns []string
	Rows    [][]interface{}
}

// SyncReport flattens a sync result, one row per table and direction.
func SyncReport(res sync.SyncResult) Report {
	r := Report{
		Title:   "sync-" + res.Strategy,
		Columns: []string{"table", "direction", "processed", "inserted", "updated", "already_synced", "batches", "succeeded", "error"},
	}
	for _, o := range res.Outcomes {
		r.Rows = append(r.Rows, []interface{}{
			o.Table, o.Direction.String(), o.RowsProcessed, o.RowsInserted, o.RowsUpdated,
			o.RowsAlreadySynced, o.Batches, o.Succeeded, nullIfEmpty(o.Error),
		})
	}
	return r
}

// AnalyzeReport flattens a dry-run result.
func AnalyzeReport(res sync.SyncAnalyzeResult) Report {
	r := Report{
		Title:   "analyze",
		Columns: []string{"table", "direction", "key_column", "source_rows", "inserts", "updates", "message"},
	}
	for _, t := range res.Tables {
		r.Rows = append(r.Rows, []interface{}{
			t.Table, t.Direction.String(), t.KeyColumn, t.SourceRows, t.Inserts, t.Updates, nullIfEmpty(t.Message),
		})
	}
	return r
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ExportReport writes report to path. An empty format is taken from the
// file extension.
func (a *App) ExportReport(report Report, path string, format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	var err error
	switch format {
	case "xlsx":
		err = exportXLSX(report, path)
	case "csv", "json", "md":
		err = exportText(report, path, format)
	default:
		err = fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		logger.Error(err, "导出报告失败：文件=%s 格式=%s", path, format)
		return err
	}
	logger.Infof("导出报告完成：文件=%s 行数=%d", path, len(report.Rows))
	return nil
}

func exportXLSX(report Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(report.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := make([]interface{}, len(report.Columns))
	for i, c := range report.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range report.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			if v == nil {
				values[j] = "NULL"
			} else {
				values[j] = v
			}
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	if len(report.Columns) > 0 {
		last, err := excelize.ColumnNumberToName(len(report.Columns))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, 16); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// Excel limits sheet names to 31 characters.
func sheetName(title string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "report"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func exportText(report Report, path string, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeText(f, report, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// stickyWriter keeps the first write error and drops every later write.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.w.Write(p)
	s.err = err
	return n, err
}

func writeText(w io.Writer, report Report, format string) error {
	out := &stickyWriter{w: w}
	columns := report.Columns
	var csvWriter *csv.Writer
	isJsonFirstRow := true

	switch format {
	case "csv":
		out.Write([]byte{0xEF, 0xBB, 0xBF})
		csvWriter = csv.NewWriter(out)
		if err := csvWriter.Write(columns); err != nil {
			return err
		}
	case "json":
		io.WriteString(out, "[\n")
	case "md":
		fmt.Fprintf(out, "| %s |\n", strings.Join(columns, " | "))
		seps := make([]string, len(columns))
		for i := range seps {
			seps[i] = "---"
		}
		fmt.Fprintf(out, "| %s |\n", strings.Join(seps, " | "))
	}

	for _, row := range report.Rows {
		if out.err != nil {
			break
		}
		record := make([]string, len(columns))
		rowMap := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			var val interface{}
			if i < len(row) {
				val = row[i]
			}
			rowMap[col] = val
			if val == nil {
				record[i] = "NULL"
				continue
			}
			s := fmt.Sprintf("%v", val)
			if format == "md" {
				s = strings.ReplaceAll(s, "|", "\\|")
				s = strings.ReplaceAll(s, "\n", "<br>")
			}
			record[i] = s
		}

		switch format {
		case "csv":
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("write error: %w", err)
			}
		case "json":
			if !isJsonFirstRow {
				io.WriteString(out, ",\n")
			}
			b, err := json.MarshalIndent(rowMap, "  ", "  ")
			if err != nil {
				return fmt.Errorf("write error: %w", err)
			}
			io.WriteString(out, "  ")
			out.Write(b)
			isJsonFirstRow = false
		case "md":
			fmt.Fprintf(out, "| %s |\n", strings.Join(record, " | "))
		}
	}

	switch format {
	case "csv":
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	case "json":
		io.WriteString(out, "\n]\n")
	}
	if out.err != nil {
		return fmt.Errorf("write error: %w", out.err)
	}
	return nil
}
