package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var sample = Table{
	Title:   "Students",
	Headers: []string{"Roll Number", "Name", "Branch"},
	Rows: [][]string{
		{"CE-001", "Aman Singh", "Civil"},
		{"ME-014", "Harpreet, Kaur", "Mechanical"},
	},
	GeneratedAt: time.Date(2025, 3, 1, 15, 4, 0, 0, time.UTC),
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, models.FormatCSV, sample))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, sample.Headers, records[0])
	assert.Equal(t, "Harpreet, Kaur", records[2][1])
}

func TestWriteXLSX(t *testing.T) {
	data, err := Render(models.FormatXLSX, sample)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, sample.Headers, rows[0])
	assert.Equal(t, sample.Rows[1], rows[2])
}

func TestWritePDF(t *testing.T) {
	data, err := Render(models.FormatPDF, sample)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	empty, err := Render(models.FormatPDF, Table{Headers: []string{"A"}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(empty, []byte("%PDF-")))
}

func TestWriteUnsupportedFormat(t *testing.T) {
	_, err := Render(models.ReportFormat("docx"), sample)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedReportFormat)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "grievances_20250301_1504.pdf", FileName("grievances", models.FormatPDF, sample.GeneratedAt))
}
