package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dinarCode = "DZD"
	pivotCode = "EUR"

	// rateScale is the number of decimal places kept on derived rates.
	rateScale = 10
)

// DinarConverter routes dinar pairs through a euro pivot at a configured
// DZD-per-EUR rate and delegates every other pair to inner.
type DinarConverter struct {
	inner   Converter
	perEuro decimal.Decimal
	now     func() time.Time
}

// NewDinarConverter returns a converter quoting the dinar at dzdPerEUR.
func NewDinarConverter(inner Converter, dzdPerEUR decimal.Decimal) (*DinarConverter, error) {
	if inner == nil {
		return nil, errors.New("inner exchange converter is required")
	}
	if err := validateConversionRate(dzdPerEUR); err != nil {
		return nil, fmt.Errorf("invalid DZD per EUR rate: %w", err)
	}
	return &DinarConverter{inner: inner, perEuro: dzdPerEUR, now: time.Now}, nil
}

// Convert converts amount from one currency to another.
func (d *DinarConverter) Convert(
	ctx context.Context,
	amount decimal.Decimal,
	fromCurrency, toCurrency string,
) (ConversionResult, error) {
	from, to := currencyCode(fromCurrency), currencyCode(toCurrency)
	if !amount.IsPositive() {
		return ConversionResult{}, errAmountInvalid
	}

	switch {
	case from == to:
		return ConversionResult{Amount: amount, Rate: decimal.NewFromInt(1), RateDate: d.now().UTC()}, nil
	case from != dinarCode && to != dinarCode:
		return d.inner.Convert(ctx, amount, from, to)
	case from == dinarCode:
		return d.fromDinar(ctx, amount, to)
	default:
		return d.toDinar(ctx, amount, from)
	}
}

func (d *DinarConverter) fromDinar(ctx context.Context, amount decimal.Decimal, to string) (ConversionResult, error) {
	perDinar := decimal.NewFromInt(1).DivRound(d.perEuro, rateScale)
	if to == pivotCode {
		return d.result(amount, perDinar, d.now().UTC()), nil
	}

	leg, err := d.inner.Convert(ctx, amount.Mul(perDinar), pivotCode, to)
	if err != nil {
		return ConversionResult{}, fmt.Errorf("failed to convert %s->%s via %s: %w", dinarCode, to, pivotCode, err)
	}
	return d.result(amount, perDinar.Mul(leg.Rate).Round(rateScale), leg.RateDate), nil
}

func (d *DinarConverter) toDinar(ctx context.Context, amount decimal.Decimal, from string) (ConversionResult, error) {
	if from == pivotCode {
		return d.result(amount, d.perEuro, d.now().UTC()), nil
	}

	leg, err := d.inner.Convert(ctx, amount, from, pivotCode)
	if err != nil {
		return ConversionResult{}, fmt.Errorf("failed to convert %s->%s via %s: %w", from, dinarCode, pivotCode, err)
	}
	return d.result(amount, leg.Rate.Mul(d.perEuro).Round(rateScale), leg.RateDate), nil
}

func (d *DinarConverter) result(amount, rate decimal.Decimal, date time.Time) ConversionResult {
	return ConversionResult{
		Amount:   amount.Mul(rate).Round(2),
		Rate:     rate,
		RateDate: date,
	}
}
