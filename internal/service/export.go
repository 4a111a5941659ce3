package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"time"

	"spendlog/expense-api/internal/model"
	"spendlog/expense-api/pkg/validators"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

var statementColumns = []string{"Date", "Country", "Category", "Currency", "Amount", "Description"}

func statementRow(e *model.Expense) []string {
	return []string{
		e.Date.UTC().Format(validators.DateLayout),
		e.Country,
		e.Category,
		e.Currency,
		e.Amount.StringFixed(2),
		e.Description,
	}
}

// WriteCSV writes rows as a CSV statement with a header line.
func WriteCSV(w io.Writer, rows []model.Expense) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(statementColumns); err != nil {
		return fmt.Errorf("failed to write csv header, %w", err)
	}

	for i := range rows {
		if err := cw.Write(statementRow(&rows[i])); err != nil {
			return fmt.Errorf("failed to write csv row, %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// totalsByCurrency sums rows per currency, ordered by currency code.
func totalsByCurrency(rows []model.Expense) ([]string, map[string]decimal.Decimal) {
	sums := map[string]decimal.Decimal{}
	for _, r := range rows {
		sums[r.Currency] = sums[r.Currency].Add(r.Amount)
	}

	codes := make([]string, 0, len(sums))
	for c := range sums {
		codes = append(codes, c)
	}
	slices.Sort(codes)

	return codes, sums
}

// WritePDF renders rows as an "Expense Statement" with numbered pages.
func WritePDF(w io.Writer, rows []model.Expense, owner string, generated time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle("Expense Statement", true)
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, "Expense Statement", "", 1, "C", false, 0, "")
		pdf.Ln(2)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr(owner), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated "+generated.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{24, 30, 30, 20, 26, 60}

	pdf.SetFont("Arial", "B", 10)
	for i, col := range statementColumns {
		pdf.CellFormat(widths[i], 7, col, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	if len(rows) == 0 {
		pdf.CellFormat(0, 7, "No expenses yet.", "1", 1, "C", false, 0, "")
	}

	for i := range rows {
		for j, v := range statementRow(&rows[i]) {
			align := "L"
			if j == 4 {
				align = "R"
			}
			pdf.CellFormat(widths[j], 7, tr(truncate(v, 40)), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	codes, sums := totalsByCurrency(rows)
	if len(codes) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 11)
		for _, c := range codes {
			pdf.CellFormat(0, 7, fmt.Sprintf("Total %s: %s", c, sums[c].StringFixed(2)), "", 1, "R", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf, %w", err)
	}

	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-3]) + "..."
}
