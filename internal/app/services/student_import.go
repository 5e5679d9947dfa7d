package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/placeintern/backend/internal/pkg/apperrors"
)

// importColumns are the headers a bulk student import must carry
var importColumns = []string{"roll_number", "first_name", "last_name", "email", "branch_code", "semester"}

// importRow is one data row of a bulk import keyed by lower-case header
type importRow struct {
	Line   int
	Fields map[string]string
}

func (r importRow) get(key string) string {
	return strings.TrimSpace(r.Fields[key])
}

// parseImportFile reads the rows of an .xlsx or .csv upload. Blank rows are skipped.
func parseImportFile(fileName string, r io.Reader) ([]importRow, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		records, err = readXLSX(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, apperrors.NewCustomError(apperrors.ErrUnsupportedImportFormat, "upload an .xlsx or .csv file")
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: the file is empty", apperrors.ErrValidationFailed)
	}

	header := make([]string, len(records[0]))
	present := map[string]bool{}
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		header[i] = key
		present[key] = true
	}
	var missing []string
	for _, col := range importColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing import columns",
			map[string]interface{}{"columns": strings.Join(missing, ", ")})
	}

	rows := make([]importRow, 0, len(records)-1)
	for i, record := range records[1:] {
		row := importRow{Line: i + 2, Fields: make(map[string]string, len(header))}
		blank := true
		for j, value := range record {
			if j >= len(header) {
				break
			}
			row.Fields[header[j]] = value
			if strings.TrimSpace(value) != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read spreadsheet: %v", apperrors.ErrValidationFailed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read sheet %s: %v", apperrors.ErrValidationFailed, sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read csv: %v", apperrors.ErrValidationFailed, err)
		}
		// the reader drops blank lines; pad them back so row numbers match the file
		if line, _ := reader.FieldPos(0); len(records) > 0 {
			for len(records)+1 < line {
				records = append(records, nil)
			}
		}
		records = append(records, record)
	}
	return records, nil
}
