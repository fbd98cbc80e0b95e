// Package report renders wallet statements as CSV, XLSX and PNG charts.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"gitlab.com/yelinaung/wallet/internal/models"
)

const dateTimeLayout = "2006-01-02 15:04:05"

var transactionHeader = []string{"ID", "Date", "Type", "Amount", "Currency", "Description", "Status", "Reference", "Recipient"}

// TransactionsCSV renders transactions as CSV with a header row.
func TransactionsCSV(txs []models.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(transactionHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range txs {
		if err := writer.Write(transactionRow(&txs[i])); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

func transactionRow(tx *models.Transaction) []string {
	return []string{
		tx.ID,
		tx.CreatedAt.UTC().Format(dateTimeLayout),
		string(tx.Type),
		tx.Amount.StringFixed(2),
		strings.ToUpper(string(tx.Currency)),
		tx.Description,
		string(tx.Status),
		tx.Reference,
		tx.Recipient,
	}
}

// Filename names an export file, e.g. "transactions_2026-03-01.csv".
func Filename(kind, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", kind, now.Format("2006-01-02"), ext)
}
