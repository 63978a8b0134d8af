// Package importer reads PM spreadsheets and hands their rows to the store's
// reconcile transaction.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"pmtrack-backend/internal/metrics"
	"pmtrack-backend/internal/model"
	"pmtrack-backend/internal/store"
)

// Spreadsheet header names, in canonical order.
const (
	ColMachineID        = "Id Msn"
	ColAddress          = "Alamat"
	ColManager          = "Pengelola"
	ColPMPeriod         = "Periode PM"
	ColPMCompletionDate = "Tgl Selesai PM"
	ColStatus           = "Status"
	ColTechnician       = "Teknisi"
)

// Columns lists every header an import file must carry.
var Columns = []string{
	ColMachineID,
	ColAddress,
	ColManager,
	ColPMPeriod,
	ColPMCompletionDate,
	ColStatus,
	ColTechnician,
}

// MissingColumnsError rejects a file whose header row lacks required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns: %s", strings.Join(e.Columns, ", "))
}

// ErrEmptyWorkbook is returned for a workbook without sheets.
var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// WorkbookError reports an upload that is not a readable .xlsx workbook.
type WorkbookError struct {
	Err error
}

func (e *WorkbookError) Error() string {
	return fmt.Sprintf("failed to open workbook: %v", e.Err)
}

func (e *WorkbookError) Unwrap() error { return e.Err }

// ParseXLSX reads the first sheet of an .xlsx workbook. The first row is the
// header; fully blank rows are skipped.
func ParseXLSX(r io.Reader) ([]model.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &WorkbookError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, &MissingColumnsError{Columns: append([]string(nil), Columns...)}
	}

	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	var out []model.ImportRow
	for i, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		get := func(col string) string {
			pos := index[col]
			if pos >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[pos])
		}
		out = append(out, model.ImportRow{
			Line:             i + 2,
			MachineID:        get(ColMachineID),
			Address:          get(ColAddress),
			Manager:          get(ColManager),
			PMPeriod:         get(ColPMPeriod),
			PMCompletionDate: get(ColPMCompletionDate),
			Status:           get(ColStatus),
			Technician:       get(ColTechnician),
		})
	}
	return out, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return index, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Importer parses spreadsheets and reconciles them against the store.
type Importer struct {
	store store.Store
}

// New creates an Importer.
func New(s store.Store) *Importer {
	return &Importer{store: s}
}

// Import parses r and applies all rows atomically. It returns the number of rows
// processed. Header problems are reported before the store is touched.
func (im *Importer) Import(ctx context.Context, r io.Reader) (n int, err error) {
	start := time.Now()
	defer func() { metrics.ObserveImport(n, err, time.Since(start)) }()

	rows, err := ParseXLSX(r)
	if err != nil {
		return 0, err
	}
	return im.store.Reconcile(ctx, rows)
}
