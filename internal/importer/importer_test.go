package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pmtrack-backend/internal/lifecycle"
	"pmtrack-backend/internal/model"
	"pmtrack-backend/internal/store"
)

// buildWorkbook writes header and rows to the first sheet of a new workbook.
func buildWorkbook(t *testing.T, header []string, rows ...[]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	all := append([][]string{header}, rows...)
	for r, values := range all {
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pm.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(model.Tables()...))
	sqlDB, _ := gormDB.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return store.NewGormStore(gormDB)
}

func TestParseXLSX(t *testing.T) {
	// Column order differs from the canonical one and an extra column is present.
	header := []string{"Teknisi", "Id Msn", " Alamat ", "Pengelola", "Catatan", "Periode PM", "Tgl Selesai PM", "Status"}
	buf := buildWorkbook(t, header,
		[]string{"T1", "M1", "Jl. A", "Org1", "x", "2024-Q1", "2024-03-15", "Done"},
		[]string{},
		[]string{"T2", " M2 ", "Jl. B", "Org2"},
	)

	rows, err := ParseXLSX(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, model.ImportRow{
		Line: 2, MachineID: "M1", Address: "Jl. A", Manager: "Org1",
		PMPeriod: "2024-Q1", PMCompletionDate: "2024-03-15", Status: "Done", Technician: "T1",
	}, rows[0])
	assert.Equal(t, model.ImportRow{
		Line: 4, MachineID: "M2", Address: "Jl. B", Manager: "Org2", Technician: "T2",
	}, rows[1])
}

func TestParseXLSX_MissingColumns(t *testing.T) {
	header := []string{"Id Msn", "Alamat", "Pengelola", "Periode PM", "Tgl Selesai PM", "Teknisi"}
	buf := buildWorkbook(t, header, []string{"M1", "A", "O", "", "", "T"})

	_, err := ParseXLSX(buf)

	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"Status"}, missing.Columns)
	assert.EqualError(t, err, "missing columns: Status")
}

func TestParseXLSX_EmptySheet(t *testing.T) {
	f := excelize.NewFile()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ParseXLSX(&buf)

	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, Columns, missing.Columns)
}

func TestParseXLSX_NotAWorkbook(t *testing.T) {
	_, err := ParseXLSX(strings.NewReader("Id Msn,Alamat\nM1,A\n"))

	var wbErr *WorkbookError
	require.True(t, errors.As(err, &wbErr))
	assert.Contains(t, err.Error(), "failed to open workbook")
}

func TestImporter_Import(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	existing, err := s.Create(ctx, model.NewRecord{MachineID: "M1", Address: "Old", Manager: "Org", Technician: "T"})
	require.NoError(t, err)

	buf := buildWorkbook(t, Columns,
		[]string{"N1", "Jl. N1", "Org", "", "", "", "T"},
		[]string{"M1", "Jl. New", "Org", "2024-Q1", "", "Outstanding", "T"},
		[]string{"N2", "Jl. N2", "Org", "2024-Q1", "2024-02-02", "Done", "T"},
	)

	n, err := New(s).Import(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	m1, err := s.FindByMachineID(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, existing.DisplayNumber, m1.DisplayNumber)
	assert.Equal(t, "Jl. New", m1.Address)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "N1", all[1].MachineID)
	assert.Equal(t, "N2", all[2].MachineID)
	assert.Less(t, all[1].DisplayNumber, all[2].DisplayNumber)
	assert.Equal(t, model.StatusDone, all[2].Status)
}

func TestImporter_MissingStatusColumnWritesNothing(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	header := []string{"Id Msn", "Alamat", "Pengelola", "Periode PM", "Tgl Selesai PM", "Teknisi"}
	buf := buildWorkbook(t, header, []string{"M1", "A", "O", "", "", "T"})

	n, err := New(s).Import(ctx, buf)
	assert.Equal(t, 0, n)
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Contains(t, missing.Columns, "Status")

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImporter_InvalidRowRollsBack(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	var rows [][]string
	for i := 1; i <= 5; i++ {
		rows = append(rows, []string{fmt.Sprintf("M%d", i), "A", "O", "", "", "", "T"})
	}
	rows = append(rows, []string{"M6", "", "O", "", "", "", "T"})
	buf := buildWorkbook(t, Columns, rows...)

	_, err := New(s).Import(ctx, buf)
	var vErr *lifecycle.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 7, vErr.Line)
	assert.Equal(t, ColAddress, vErr.Field)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
