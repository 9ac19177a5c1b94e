package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/results"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, XLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", core.ErrInvalidArgument, s)
	}
}

// FormatFromPath picks the format from a file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return XLSX
	}
	return CSV
}

// Report is what gets exported: a job's items in display order plus its summary.
type Report struct {
	JobID   string
	Summary *core.Summary
	Items   []core.ResultItem
}

var headers = []string{
	"Record ID",
	"Name",
	"Country",
	"Match",
	"Risk Score",
	"Risk Band",
	"Processed At",
}

// Write writes r in the given format.
func Write(w io.Writer, format Format, r Report) error {
	switch format {
	case XLSX:
		return WriteXLSX(w, r)
	case CSV, "":
		return WriteCSV(w, r)
	default:
		return fmt.Errorf("%w: unknown export format %q", core.ErrInvalidArgument, format)
	}
}

// WriteCSV writes one header row and one row per item.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, it := range r.Items {
		if err := cw.Write([]string{
			it.RecordID,
			it.Name,
			it.Country,
			it.MatchName,
			formatScore(it.RiskScore),
			string(results.BandOf(it.Score())),
			it.ProcessedAt,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with a Results sheet and a Summary sheet.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, it := range r.Items {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, it.RecordID)
		write(2, it.Name)
		write(3, it.Country)
		write(4, it.MatchName)
		if it.RiskScore != nil {
			write(5, *it.RiskScore)
		}
		write(6, string(results.BandOf(it.Score())))
		write(7, it.ProcessedAt)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "C", "C", 10)
	_ = f.SetColWidth(sheet, "D", "D", 32)
	_ = f.SetColWidth(sheet, "E", "F", 12)
	_ = f.SetColWidth(sheet, "G", "G", 24)

	if err := writeSummary(f, r); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, r Report) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	counts := results.CountBands(r.Items)
	rows := [][]any{
		{"Job ID", r.JobID},
		{"Exported", len(r.Items)},
		{"High", counts.High},
		{"Medium", counts.Medium},
		{"Low", counts.Low},
	}
	if r.Summary != nil {
		rows = append(rows,
			[]any{"Server Total", r.Summary.Total},
			[]any{"Truncated", r.Summary.Truncated},
		)
	}
	for i, vals := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "B", 40)
	return nil
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
