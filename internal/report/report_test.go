package report

import (
	"bytes"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pmtrack-backend/internal/importer"
	"pmtrack-backend/internal/model"
)

func strPtr(s string) *string { return &s }

func sampleRecords(n int) []model.MachineRecord {
	records := make([]model.MachineRecord, 0, n)
	for i := 1; i <= n; i++ {
		rec := model.MachineRecord{
			ID:            int64(i),
			DisplayNumber: i,
			MachineID:     fmt.Sprintf("M%d", i),
			Address:       fmt.Sprintf("Jl. Sudirman No. %d, Jakarta Pusat", i),
			Manager:       "Bank Alpha",
			Technician:    "Budi",
			Status:        model.StatusOutstanding,
		}
		if i%2 == 0 {
			rec.PMPeriod = strPtr("2024-Q1")
			rec.PMCompletionDate = strPtr("2024-03-15")
			rec.Status = model.StatusDone
		}
		records = append(records, rec)
	}
	return records
}

func TestBuildPDF(t *testing.T) {
	generated := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		records []model.MachineRecord
	}{
		{"empty", nil},
		{"single page", sampleRecords(3)},
		{"page breaks", sampleRecords(120)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := BuildPDF("", tt.records, generated)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
		})
	}
}

func TestBuildPDF_MorePagesForMoreRows(t *testing.T) {
	generated := time.Now()
	small, err := BuildPDF(DefaultTitle, sampleRecords(3), generated)
	require.NoError(t, err)
	large, err := BuildPDF(DefaultTitle, sampleRecords(120), generated)
	require.NoError(t, err)

	pageObj := regexp.MustCompile(`/Type /Page[^s]`)
	pages := func(b []byte) int { return len(pageObj.FindAll(b, -1)) }
	assert.Equal(t, 1, pages(small))
	assert.Greater(t, pages(large), 1)
}

func TestBuildXLSX_ReimportsCleanly(t *testing.T) {
	records := sampleRecords(4)

	out, err := BuildXLSX("", records)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Data PM"}, f.GetSheetList())
	header, err := f.GetRows("Data PM")
	require.NoError(t, err)
	assert.Equal(t, append([]string{"No"}, importer.Columns...), header[0])

	rows, err := importer.ParseXLSX(bytes.NewReader(out))
	require.NoError(t, err)
	require.Len(t, rows, len(records))
	for i, row := range rows {
		v := records[i].View()
		assert.Equal(t, i+2, row.Line)
		assert.Equal(t, v.MachineID, row.MachineID)
		assert.Equal(t, v.Address, row.Address)
		assert.Equal(t, v.Manager, row.Manager)
		assert.Equal(t, v.PMPeriod, row.PMPeriod)
		assert.Equal(t, v.PMCompletionDate, row.PMCompletionDate)
		assert.Equal(t, v.Status, row.Status)
		assert.Equal(t, v.Technician, row.Technician)
	}
}

func TestBuildXLSX_Layout(t *testing.T) {
	out, err := BuildXLSX("Laporan PM", sampleRecords(2))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	props, err := f.GetDocProps()
	require.NoError(t, err)
	assert.Equal(t, "Laporan PM", props.Title)

	style, err := f.GetCellStyle("Data PM", "A1")
	require.NoError(t, err)
	assert.NotZero(t, style, "header row should be styled")

	width, err := f.GetColWidth("Data PM", "C")
	require.NoError(t, err)
	assert.Equal(t, 20.0, width)

	panes, err := f.GetPanes("Data PM")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, "A2", panes.TopLeftCell)
}

func TestRender(t *testing.T) {
	records := sampleRecords(2)

	pdf, err := Render(FormatPDF, DefaultTitle, records, time.Now())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	xlsx, err := Render(FormatXLSX, DefaultTitle, records, time.Now())
	require.NoError(t, err)
	// Workbooks are zip archives.
	assert.True(t, bytes.HasPrefix(xlsx, []byte("PK")))

	_, err = Render("csv", DefaultTitle, records, time.Now())
	assert.EqualError(t, err, `unknown export format "csv"`)
}

func TestFilenameAndContentType(t *testing.T) {
	assert.Equal(t, "data_pm_mesin.pdf", Filename(FormatPDF))
	assert.Equal(t, "data_pm_mesin.xlsx", Filename(FormatXLSX))
	assert.Equal(t, "application/pdf", ContentType(FormatPDF))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ContentType(FormatXLSX))
}
