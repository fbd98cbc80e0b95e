package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gitlab.com/yelinaung/wallet/internal/models"
)

// Sheet names in an exported statement.
const (
	SummarySheet      = "Summary"
	TransactionsSheet = "Transactions"
)

// Statement is the content of an XLSX export.
type Statement struct {
	Owner        string
	Balance      models.Balance
	Transactions []models.Transaction
	GeneratedAt  time.Time
}

// ExportXLSX writes st as a workbook with a summary sheet and a
// transactions sheet.
func ExportXLSX(w io.Writer, st Statement) (err error) {
	f := excelize.NewFile()
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeSummary(f, st); err != nil {
		return err
	}

	index, err := f.NewSheet(TransactionsSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeTransactions(f, st.Transactions); err != nil {
		return err
	}
	f.SetActiveSheet(index)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, st Statement) error {
	rows := [][]any{
		{"Owner", st.Owner},
		{"Generated", st.GeneratedAt.UTC().Format(dateTimeLayout)},
		{},
		{"Currency", "Balance"},
	}
	for _, c := range models.Currencies {
		rows = append(rows, []any{strings.ToUpper(string(c)), st.Balance.Amount(c).InexactFloat64()})
	}
	rows = append(rows, []any{"Invested", st.Balance.InvestmentBalance.InexactFloat64()})

	for i, row := range rows {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 14); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return f.SetColWidth(SummarySheet, "B", "B", 22)
}

func writeTransactions(f *excelize.File, txs []models.Transaction) error {
	header := make([]any, len(transactionHeader))
	for i, h := range transactionHeader {
		header[i] = h
	}
	if err := setRow(f, TransactionsSheet, 1, header); err != nil {
		return err
	}

	for i := range txs {
		tx := &txs[i]
		row := []any{
			tx.ID,
			tx.CreatedAt.UTC().Format(dateTimeLayout),
			string(tx.Type),
			tx.Amount.InexactFloat64(),
			strings.ToUpper(string(tx.Currency)),
			tx.Description,
			string(tx.Status),
			tx.Reference,
			tx.Recipient,
		}
		if err := setRow(f, TransactionsSheet, i+2, row); err != nil {
			return err
		}
	}

	widths := map[string]float64{"A": 38, "B": 20, "C": 12, "D": 14, "E": 9, "F": 36, "G": 11, "H": 20, "I": 16}
	for col, width := range widths {
		if err := f.SetColWidth(TransactionsSheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to resolve cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}
