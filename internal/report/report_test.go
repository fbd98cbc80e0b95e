package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gitlab.com/yelinaung/wallet/internal/exchange"
	"gitlab.com/yelinaung/wallet/internal/models"
)

var pngMagic = []byte("\x89PNG")

func sampleTransactions() []models.Transaction {
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	return []models.Transaction{
		{
			ID:          "tx-1",
			Type:        models.TransactionRecharge,
			Amount:      decimal.NewFromInt(5000),
			Currency:    models.CurrencyDZD,
			Description: "Recharge, via RIB",
			Status:      models.TransactionCompleted,
			Reference:   "REF1",
			CreatedAt:   at,
		},
		{
			ID:          "tx-2",
			Type:        models.TransactionTransfer,
			Amount:      decimal.RequireFromString("1250.5"),
			Currency:    models.CurrencyDZD,
			Description: "Instant transfer",
			Status:      models.TransactionCompleted,
			Recipient:   "ACC123456789",
			CreatedAt:   at.Add(time.Hour),
		},
		{
			ID:          "tx-3",
			Type:        models.TransactionWithdrawal,
			Amount:      decimal.NewFromInt(20),
			Currency:    models.CurrencyEUR,
			Description: "Withdrawal",
			Status:      models.TransactionFailed,
			CreatedAt:   at.Add(2 * time.Hour),
		},
	}
}

func TestTransactionsCSV(t *testing.T) {
	t.Parallel()

	t.Run("header and rows", func(t *testing.T) {
		t.Parallel()
		data, err := TransactionsCSV(sampleTransactions())
		require.NoError(t, err)

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 4)
		require.Equal(t, transactionHeader, records[0])
		require.Equal(t, []string{
			"tx-1", "2026-03-01 10:30:00", "recharge", "5000.00", "DZD",
			"Recharge, via RIB", "completed", "REF1", "",
		}, records[1])
		require.Equal(t, "1250.50", records[2][3])
		require.Equal(t, "ACC123456789", records[2][8])
	})

	t.Run("empty list has header only", func(t *testing.T) {
		t.Parallel()
		data, err := TransactionsCSV(nil)
		require.NoError(t, err)

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 1)
	})
}

func TestFilename(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	require.Equal(t, "transactions_2026-03-01.xlsx", Filename("transactions", "xlsx", now))
}

func TestExportXLSX(t *testing.T) {
	t.Parallel()

	st := Statement{
		Owner: "user@example.com",
		Balance: models.Balance{
			DZD:               decimal.NewFromInt(15000),
			EUR:               decimal.NewFromInt(40),
			InvestmentBalance: decimal.NewFromInt(2000),
		},
		Transactions: sampleTransactions(),
		GeneratedAt:  time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(&buf, st))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	require.Equal(t, []string{SummarySheet, TransactionsSheet}, f.GetSheetList())

	owner, err := f.GetCellValue(SummarySheet, "B1")
	require.NoError(t, err)
	require.Equal(t, "user@example.com", owner)

	dzd, err := f.GetCellValue(SummarySheet, "A5")
	require.NoError(t, err)
	require.Equal(t, "DZD", dzd)

	rows, err := f.GetRows(TransactionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, transactionHeader, rows[0])
	require.Equal(t, "tx-2", rows[2][0])
	require.Equal(t, "transfer", rows[2][2])
}

type fixedRate struct {
	rate decimal.Decimal
	err  error
}

func (f fixedRate) Convert(_ context.Context, amount decimal.Decimal, _, _ string) (exchange.ConversionResult, error) {
	if f.err != nil {
		return exchange.ConversionResult{}, f.err
	}
	return exchange.ConversionResult{Amount: amount.Mul(f.rate), Rate: f.rate}, nil
}

func TestBalanceChart(t *testing.T) {
	t.Parallel()

	b := models.Balance{
		DZD:               decimal.NewFromInt(10000),
		EUR:               decimal.NewFromInt(50),
		InvestmentBalance: decimal.NewFromInt(3000),
	}

	t.Run("renders png", func(t *testing.T) {
		t.Parallel()
		png, err := BalanceChart(context.Background(), b, fixedRate{rate: decimal.NewFromInt(145)})
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(png, pngMagic))
	})

	t.Run("nil converter charts dinar only", func(t *testing.T) {
		t.Parallel()
		png, err := BalanceChart(context.Background(), models.Balance{DZD: decimal.NewFromInt(1)}, nil)
		require.NoError(t, err)
		require.NotEmpty(t, png)
	})

	t.Run("conversion failure", func(t *testing.T) {
		t.Parallel()
		_, err := BalanceChart(context.Background(), b, fixedRate{err: errors.New("offline")})
		require.ErrorContains(t, err, "failed to value eur balance")
	})

	t.Run("empty wallet", func(t *testing.T) {
		t.Parallel()
		_, err := BalanceChart(context.Background(), models.Balance{}, nil)
		require.ErrorIs(t, err, ErrNothingToChart)
	})
}

func TestActivityChart(t *testing.T) {
	t.Parallel()

	t.Run("renders png", func(t *testing.T) {
		t.Parallel()
		png, err := ActivityChart(sampleTransactions(), models.CurrencyDZD, "March")
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(png, pngMagic))
	})

	t.Run("failed transactions ignored", func(t *testing.T) {
		t.Parallel()
		_, err := ActivityChart(sampleTransactions(), models.CurrencyEUR, "")
		require.ErrorIs(t, err, ErrNothingToChart)
	})
}

func TestAggregateByType(t *testing.T) {
	t.Parallel()

	txs := append(sampleTransactions(), models.Transaction{
		Type:     models.TransactionRecharge,
		Amount:   decimal.NewFromInt(1000),
		Currency: models.CurrencyDZD,
		Status:   models.TransactionPending,
	})

	totals := aggregateByType(txs, models.CurrencyDZD)
	require.Len(t, totals, 2)
	require.True(t, totals[models.TransactionRecharge].Equal(decimal.NewFromInt(6000)))
	require.True(t, totals[models.TransactionTransfer].Equal(decimal.RequireFromString("1250.5")))
}
