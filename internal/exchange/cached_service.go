package exchange

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/wallet/internal/logger"
)

const (
	defaultCacheTTL    = 12 * time.Hour
	maxCleanupInterval = 5 * time.Minute
)

type cachedRate struct {
	rate      decimal.Decimal
	rateDate  time.Time
	expiresAt time.Time
}

func (r cachedRate) apply(amount decimal.Decimal) ConversionResult {
	return ConversionResult{
		Amount:   amount.Mul(r.rate).Round(2),
		Rate:     r.rate,
		RateDate: r.rateDate,
	}
}

// pendingFetch is a rate lookup shared by every caller asking for the same
// pair while it is in flight.
type pendingFetch struct {
	done chan struct{}
	rate cachedRate
	err  error
}

// CachedService wraps a Converter with an in-memory rate cache keyed by
// "FROM->TO". Only the rate is cached; amounts are always recomputed.
type CachedService struct {
	inner Converter
	ttl   time.Duration
	now   func() time.Time

	mu          sync.Mutex
	rates       map[string]cachedRate
	pending     map[string]*pendingFetch
	lastCleanup time.Time
}

// NewCachedService returns a converter that caches rates for ttl (12h when
// ttl is not positive).
func NewCachedService(inner Converter, ttl time.Duration) *CachedService {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedService{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		rates:   make(map[string]cachedRate),
		pending: make(map[string]*pendingFetch),
	}
}

func pairKey(fromCurrency, toCurrency string) string {
	return currencyCode(fromCurrency) + "->" + currencyCode(toCurrency)
}

// Convert returns the converted amount, fetching the rate from the inner
// converter only when the cached one is missing or stale.
func (s *CachedService) Convert(
	ctx context.Context,
	amount decimal.Decimal,
	fromCurrency, toCurrency string,
) (ConversionResult, error) {
	if s.inner == nil {
		return ConversionResult{}, errors.New("inner exchange converter is required")
	}
	if !amount.IsPositive() {
		return ConversionResult{}, errAmountInvalid
	}

	key := pairKey(fromCurrency, toCurrency)

	s.mu.Lock()
	if entry, ok := s.rates[key]; ok {
		if s.now().Before(entry.expiresAt) {
			s.mu.Unlock()
			return entry.apply(amount), nil
		}
		delete(s.rates, key)
	}

	fetch, waiting := s.pending[key]
	if !waiting {
		fetch = &pendingFetch{done: make(chan struct{})}
		s.pending[key] = fetch
		// Detached so a caller with a short deadline cannot fail the
		// other callers waiting on the same pair.
		go s.refresh(context.WithoutCancel(ctx), key, amount, fromCurrency, toCurrency, fetch)
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ConversionResult{}, ctx.Err()
	case <-fetch.done:
		if fetch.err != nil {
			return ConversionResult{}, fetch.err
		}
		return fetch.rate.apply(amount), nil
	}
}

func (s *CachedService) refresh(
	ctx context.Context,
	key string,
	amount decimal.Decimal,
	fromCurrency, toCurrency string,
	fetch *pendingFetch,
) {
	result, err := s.inner.Convert(ctx, amount, fromCurrency, toCurrency)
	if err == nil {
		err = validateConversionRate(result.Rate)
	}

	fetchedAt := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		logger.Log.Warn().Err(err).Str("pair", key).Msg("Failed to refresh exchange rate")
	} else {
		fetch.rate = cachedRate{
			rate:      result.Rate,
			rateDate:  result.RateDate,
			expiresAt: fetchedAt.Add(s.ttl),
		}
		s.rates[key] = fetch.rate
		s.cleanupLocked(fetchedAt)
		logger.Log.Debug().Str("pair", key).Str("rate", result.Rate.String()).Msg("Exchange rate cached")
	}
	fetch.err = err
	delete(s.pending, key)
	close(fetch.done)
}

func (s *CachedService) cleanupLocked(now time.Time) {
	interval := min(s.ttl, maxCleanupInterval)
	if !s.lastCleanup.IsZero() && now.Sub(s.lastCleanup) < interval {
		return
	}
	for key, entry := range s.rates {
		if !now.Before(entry.expiresAt) {
			delete(s.rates, key)
		}
	}
	s.lastCleanup = now
}
