package report

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-analyze/charts"
	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/wallet/internal/exchange"
	"gitlab.com/yelinaung/wallet/internal/models"
)

// ErrNothingToChart is returned when every slice of a chart would be zero.
var ErrNothingToChart = errors.New("nothing to chart")

// BalanceChart renders the wallet's holdings as a PNG pie chart, each
// currency valued in DZD. A nil converter charts only the DZD balance.
func BalanceChart(ctx context.Context, b models.Balance, conv exchange.Converter) ([]byte, error) {
	var labels []string
	var values []float64

	for _, c := range models.Currencies {
		amount := b.Amount(c)
		if !amount.IsPositive() {
			continue
		}
		if c != models.CurrencyDZD {
			if conv == nil {
				continue
			}
			res, err := conv.Convert(ctx, amount, string(c), string(models.CurrencyDZD))
			if err != nil {
				return nil, fmt.Errorf("failed to value %s balance: %w", c, err)
			}
			amount = res.Amount
		}
		labels = append(labels, strings.ToUpper(string(c)))
		values = append(values, amount.InexactFloat64())
	}
	if b.InvestmentBalance.IsPositive() {
		labels = append(labels, "Invested")
		values = append(values, b.InvestmentBalance.InexactFloat64())
	}

	return renderPie("Balance (DZD)", labels, values)
}

// ActivityChart renders the volume of transactions in one currency, broken
// down by transaction type, as a PNG pie chart. Failed transactions are
// left out.
func ActivityChart(txs []models.Transaction, currency models.Currency, period string) ([]byte, error) {
	totals := aggregateByType(txs, currency)

	labels := make([]string, 0, len(totals))
	values := make([]float64, 0, len(totals))
	for _, t := range models.TransactionTypes {
		total, ok := totals[t]
		if !ok {
			continue
		}
		labels = append(labels, string(t))
		values = append(values, total.InexactFloat64())
	}

	title := fmt.Sprintf("Activity (%s)", strings.ToUpper(string(currency)))
	if period != "" {
		title += " - " + period
	}
	return renderPie(title, labels, values)
}

func aggregateByType(txs []models.Transaction, currency models.Currency) map[models.TransactionType]decimal.Decimal {
	totals := make(map[models.TransactionType]decimal.Decimal)
	for i := range txs {
		tx := &txs[i]
		if tx.Currency != currency || tx.Status == models.TransactionFailed || !tx.Amount.IsPositive() {
			continue
		}
		totals[tx.Type] = totals[tx.Type].Add(tx.Amount)
	}
	return totals
}

func renderPie(title string, labels []string, values []float64) ([]byte, error) {
	if len(values) == 0 || !slices.ContainsFunc(values, func(v float64) bool { return v > 0 }) {
		return nil, ErrNothingToChart
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.LegendLabelsOptionFunc(labels),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}
