package report

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"pmtrack-backend/internal/importer"
	"pmtrack-backend/internal/metrics"
	"pmtrack-backend/internal/model"
)

const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"

	DefaultTitle = "Data PM Mesin"
	baseName     = "data_pm_mesin"
)

// Render builds the export in the requested format.
func Render(format, title string, records []model.MachineRecord, now time.Time) (out []byte, err error) {
	start := time.Now()
	defer func() { metrics.ObserveExport(format, err, time.Since(start)) }()

	switch format {
	case FormatPDF:
		return BuildPDF(title, records, now)
	case FormatXLSX:
		return BuildXLSX(title, records)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// Filename returns the download name for a format.
func Filename(format string) string {
	return baseName + "." + format
}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// header is the column set of both exports: the display number followed by
// the import columns, so an XLSX export can be imported again.
func header() []string {
	return append([]string{"No"}, importer.Columns...)
}

func cells(r model.MachineRecord) []string {
	v := r.View()
	return []string{
		strconv.Itoa(v.DisplayNumber),
		v.MachineID,
		v.Address,
		v.Manager,
		v.PMPeriod,
		v.PMCompletionDate,
		v.Status,
		v.Technician,
	}
}

// Column widths in mm; they add up to the printable width of A4 portrait.
var pdfWidths = []float64{10, 22, 42, 28, 22, 24, 20, 22}

const (
	rowHeight    = 6.0
	bottomMargin = 15.0
)

// BuildPDF renders the machine table as an A4 document.
func BuildPDF(title string, records []model.MachineRecord, generatedAt time.Time) ([]byte, error) {
	if title == "" {
		title = DefaultTitle
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(false, bottomMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 7)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(95, 5, fmt.Sprintf("Generated %s", generatedAt.Format("2006-01-02 15:04")), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	writePDFHeader(pdf, tr)

	_, pageHeight := pdf.GetPageSize()
	pdf.SetFont("Arial", "", 8)
	for _, rec := range records {
		if pdf.GetY()+rowHeight > pageHeight-bottomMargin {
			pdf.AddPage()
			writePDFHeader(pdf, tr)
			pdf.SetFont("Arial", "", 8)
		}
		pdf.SetFillColor(245, 245, 220)
		pdf.SetTextColor(0, 0, 0)
		for i, value := range cells(rec) {
			pdf.CellFormat(pdfWidths[i], rowHeight, fit(pdf, tr(value), pdfWidths[i]), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePDFHeader(pdf *gofpdf.Fpdf, tr func(string) string) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	for i, name := range header() {
		pdf.CellFormat(pdfWidths[i], rowHeight+2, tr(name), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// fit shortens s with an ellipsis so it fits in a cell of the given width.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	const padding = 2.0
	if pdf.GetStringWidth(s) <= width-padding {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width-padding {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// BuildXLSX renders the machine table as a workbook.
func BuildXLSX(title string, records []model.MachineRecord) ([]byte, error) {
	if title == "" {
		title = DefaultTitle
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Data PM"
	f.SetSheetName(f.GetSheetName(0), sheet)
	if err := f.SetDocProps(&excelize.DocProperties{Title: title, Creator: "pmtrack"}); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(sheet, "A1", toRow(header())); err != nil {
		return nil, err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := toRow(cells(rec))
		(*row)[0] = rec.DisplayNumber
		if err := f.SetSheetRow(sheet, cell, row); err != nil {
			return nil, err
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "F5F5F5"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"808080"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "H1", style); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", "A", 6); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "B", "H", 20); err != nil {
		return nil, err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toRow(values []string) *[]interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return &row
}
