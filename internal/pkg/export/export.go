// Package export writes tabular report data as xlsx, csv or pdf files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/xuri/excelize/v2"
)

// Table is the data written by an exporter
type Table struct {
	Title       string
	Headers     []string
	Rows        [][]string
	GeneratedAt time.Time
}

// Write renders t in format to w
func Write(w io.Writer, format models.ReportFormat, t Table) error {
	switch format {
	case models.FormatXLSX:
		return WriteXLSX(w, t)
	case models.FormatCSV:
		return WriteCSV(w, t)
	case models.FormatPDF:
		return WritePDF(w, t)
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedReportFormat, format)
	}
}

// Render is Write into memory
func Render(format models.ReportFormat, t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, format, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes a header row followed by the data rows
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

const sheetName = "Report"

// WriteXLSX writes a single sheet workbook with a bold frozen header row
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E79"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	widths := columnWidths(t)
	for i, width := range widths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	if err := sw.SetPanes(&excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func columnWidths(t Table) []float64 {
	widths := make([]float64, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = float64(len(h))
	}
	for _, row := range t.Rows {
		for i, v := range row {
			if i < len(widths) && float64(len(v)) > widths[i] {
				widths[i] = float64(len(v))
			}
		}
	}
	for i := range widths {
		widths[i] += 2
		if widths[i] > 60 {
			widths[i] = 60
		}
	}
	return widths
}

// WritePDF writes a landscape A4 table with the header repeated on each page
func WritePDF(w io.Writer, t Table) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)

	generated := t.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s - page %d", generated.Format("2006-01-02 15:04"), pdf.PageNo()),
			"", 0, "R", false, 0, "")
	})

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	cols := len(t.Headers)
	if cols == 0 {
		cols = 1
	}
	colWidth := usable / float64(cols)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(31, 78, 121)
		pdf.SetTextColor(255, 255, 255)
		for _, h := range t.Headers {
			pdf.CellFormat(colWidth, 7, tr(truncate(pdf, h, colWidth)), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.SetHeaderFunc(func() {
		if t.Title != "" {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.CellFormat(0, 8, tr(t.Title), "", 1, "L", false, 0, "")
		}
		header()
	})

	pdf.AddPage()
	for i, row := range t.Rows {
		fill := i%2 == 1
		pdf.SetFillColor(235, 241, 247)
		for c := 0; c < len(t.Headers); c++ {
			v := ""
			if c < len(row) {
				v = row[c]
			}
			pdf.CellFormat(colWidth, 6, tr(truncate(pdf, v, colWidth)), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(t.Rows) == 0 {
		pdf.CellFormat(0, 6, "No rows matched the selected filters.", "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// truncate shortens s with an ellipsis so it fits in width millimetres
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	max := width - 2
	if pdf.GetStringWidth(s) <= max {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > max {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimSpace(string(runes)) + "..."
}

// FileName builds a download name such as students_20250301_1504.xlsx
func FileName(reportType string, format models.ReportFormat, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", reportType, at.Format("20060102_1504"), format)
}
