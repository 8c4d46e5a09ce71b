// Package export renders billing statements as JSON, XLSX or PDF documents.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"takeatoll/backend/services/tolls-service/internal/models"
)

// Format is an export document type.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

const dateLayout = "2006-01-02"

// ParseFormat accepts json, xlsx or pdf in any case. Empty means JSON.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("export: unsupported format %q", raw)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// FileName suggests a download name for a statement.
func (f Format) FileName(stmt *models.BillingStatement) string {
	return fmt.Sprintf("billing_%s_%s.%s", stmt.Start.Format(dateLayout), stmt.End.Format(dateLayout), string(f))
}

// Render builds the document for stmt.
func Render(stmt *models.BillingStatement, format Format) ([]byte, error) {
	switch format {
	case FormatXLSX:
		return BuildBillingXLSX(stmt)
	case FormatPDF:
		return BuildBillingPDF(stmt)
	default:
		return BuildBillingJSON(stmt)
	}
}

// BuildBillingJSON renders the statement as indented JSON.
func BuildBillingJSON(stmt *models.BillingStatement) ([]byte, error) {
	return json.MarshalIndent(stmt, "", "  ")
}

// BuildBillingPDF renders a one-table PDF of the statement.
func BuildBillingPDF(stmt *models.BillingStatement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Toll Billing Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s - %s", stmt.Start.Format(dateLayout), stmt.End.Format(dateLayout)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", stmt.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Customers: %d", len(stmt.Lines)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Due: %.2f", stmt.Total))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Customer", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Amount Due", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range stmt.Lines {
		pdf.CellFormat(50, 6, strconv.FormatInt(line.CustomerID, 10), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%.2f", line.AmountDue), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildBillingXLSX renders a workbook with a summary sheet and one row per customer.
func BuildBillingXLSX(stmt *models.BillingStatement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	linesSheet := "customers"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Toll Billing Statement")
	_ = f.SetCellValue(summarySheet, "A3", "Start")
	_ = f.SetCellValue(summarySheet, "B3", stmt.Start.Format(dateLayout))
	_ = f.SetCellValue(summarySheet, "A4", "End")
	_ = f.SetCellValue(summarySheet, "B4", stmt.End.Format(dateLayout))
	_ = f.SetCellValue(summarySheet, "A5", "Customers")
	_ = f.SetCellValue(summarySheet, "B5", len(stmt.Lines))
	_ = f.SetCellValue(summarySheet, "A6", "Total Due")
	_ = f.SetCellValue(summarySheet, "B6", stmt.Total)
	_ = f.SetCellValue(summarySheet, "A7", "Generated")
	_ = f.SetCellValue(summarySheet, "B7", stmt.GeneratedAt.Format(time.RFC3339))

	_ = f.SetCellValue(linesSheet, "A1", "Customer")
	_ = f.SetCellValue(linesSheet, "B1", "Amount Due")
	for i, line := range stmt.Lines {
		row := i + 2
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("A%d", row), line.CustomerID)
		_ = f.SetCellValue(linesSheet, fmt.Sprintf("B%d", row), line.AmountDue)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
