package exchange

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingConverter struct {
	calls atomic.Int32
	rate  decimal.Decimal
	date  time.Time
	delay time.Duration
	err   error
}

func (c *countingConverter) Convert(
	_ context.Context,
	amount decimal.Decimal,
	_, _ string,
) (ConversionResult, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return ConversionResult{}, c.err
	}
	return ConversionResult{
		Amount:   amount.Mul(c.rate).Round(2),
		Rate:     c.rate,
		RateDate: c.date,
	}, nil
}

var rateDay = time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

func TestCachedService_Convert(t *testing.T) {
	t.Parallel()

	t.Run("reuses the rate for the same pair", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{rate: decimal.RequireFromString("1.08"), date: rateDay}
		svc := NewCachedService(upstream, time.Hour)

		got1, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "EUR", "USD")
		require.NoError(t, err)
		require.True(t, got1.Amount.Equal(decimal.RequireFromString("10.80")))

		got2, err := svc.Convert(context.Background(), decimal.RequireFromString("20"), "eur", " usd ")
		require.NoError(t, err)
		require.True(t, got2.Amount.Equal(decimal.RequireFromString("21.60")))
		require.Equal(t, rateDay, got2.RateDate)
		require.EqualValues(t, 1, upstream.calls.Load())
	})

	t.Run("pairs are cached separately", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{rate: decimal.RequireFromString("0.85"), date: rateDay}
		svc := NewCachedService(upstream, time.Hour)

		_, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "EUR", "GBP")
		require.NoError(t, err)
		_, err = svc.Convert(context.Background(), decimal.RequireFromString("10"), "GBP", "EUR")
		require.NoError(t, err)
		require.EqualValues(t, 2, upstream.calls.Load())
	})

	t.Run("stale entry is refetched", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{rate: decimal.RequireFromString("1.1"), date: rateDay}
		svc := NewCachedService(upstream, time.Hour)
		now := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
		var mu sync.Mutex
		svc.now = func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}

		_, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "EUR", "USD")
		require.NoError(t, err)

		mu.Lock()
		now = now.Add(2 * time.Hour)
		mu.Unlock()

		_, err = svc.Convert(context.Background(), decimal.RequireFromString("10"), "EUR", "USD")
		require.NoError(t, err)
		require.EqualValues(t, 2, upstream.calls.Load())
	})

	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{
			rate:  decimal.RequireFromString("1.25"),
			date:  rateDay,
			delay: 30 * time.Millisecond,
		}
		svc := NewCachedService(upstream, time.Hour)

		var wg sync.WaitGroup
		for range 8 {
			wg.Go(func() {
				_, err := svc.Convert(context.Background(), decimal.RequireFromString("4"), "GBP", "USD")
				assert.NoError(t, err)
			})
		}
		wg.Wait()
		require.EqualValues(t, 1, upstream.calls.Load())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{err: errors.New("upstream down")}
		svc := NewCachedService(upstream, time.Hour)

		_, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "EUR", "USD")
		require.Error(t, err)
		_, err = svc.Convert(context.Background(), decimal.RequireFromString("10"), "EUR", "USD")
		require.Error(t, err)
		require.EqualValues(t, 2, upstream.calls.Load())
	})

	t.Run("non-positive upstream rate is rejected", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{rate: decimal.Zero, date: rateDay}
		svc := NewCachedService(upstream, time.Hour)

		_, err := svc.Convert(context.Background(), decimal.RequireFromString("10"), "EUR", "USD")
		require.ErrorIs(t, err, errInvalidNonPositiveRate)
	})

	t.Run("waiter honours its own deadline", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{
			rate:  decimal.RequireFromString("1.25"),
			date:  rateDay,
			delay: 100 * time.Millisecond,
		}
		svc := NewCachedService(upstream, time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := svc.Convert(ctx, decimal.RequireFromString("10"), "EUR", "USD")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("rejects non-positive amount without fetching", func(t *testing.T) {
		t.Parallel()
		upstream := &countingConverter{rate: decimal.RequireFromString("1.1"), date: rateDay}
		svc := NewCachedService(upstream, time.Hour)

		_, err := svc.Convert(context.Background(), decimal.NewFromInt(-5), "EUR", "USD")
		require.ErrorIs(t, err, errAmountInvalid)
		require.Zero(t, upstream.calls.Load())
	})
}
