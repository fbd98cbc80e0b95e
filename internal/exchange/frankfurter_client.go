package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultFrankfurterURL = "https://api.frankfurter.app"

var (
	errRateMissing   = errors.New("conversion rate missing in response")
	errAmountInvalid = errors.New("amount must be positive")
	errPairMissing   = errors.New("from and to currencies are required")
)

// FrankfurterClient reads ECB reference rates from the Frankfurter API.
// The dinar is not quoted there; DinarConverter fills that gap.
type FrankfurterClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

type frankfurterResponse struct {
	Base  string                 `json:"base"`
	Date  string                 `json:"date"`
	Rates map[string]json.Number `json:"rates"`
}

// NewFrankfurterClient creates a Frankfurter API client. An empty baseURL
// selects the public endpoint.
func NewFrankfurterClient(baseURL string, timeout time.Duration) *FrankfurterClient {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = defaultFrankfurterURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &FrankfurterClient{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

func currencyCode(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// Convert converts amount between two wallet currencies at the latest rate.
func (c *FrankfurterClient) Convert(
	ctx context.Context,
	amount decimal.Decimal,
	fromCurrency, toCurrency string,
) (ConversionResult, error) {
	if !amount.IsPositive() {
		return ConversionResult{}, errAmountInvalid
	}

	rate, date, err := c.Rate(ctx, fromCurrency, toCurrency)
	if err != nil {
		return ConversionResult{}, err
	}

	return ConversionResult{
		Amount:   amount.Mul(rate).Round(2),
		Rate:     rate,
		RateDate: date,
	}, nil
}

// Rate returns how many units of toCurrency one unit of fromCurrency buys,
// along with the publication date of the quote.
func (c *FrankfurterClient) Rate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, time.Time, error) {
	from, to := currencyCode(fromCurrency), currencyCode(toCurrency)
	if from == "" || to == "" {
		return decimal.Zero, time.Time{}, errPairMissing
	}
	if from == to {
		return decimal.NewFromInt(1), c.now().UTC(), nil
	}

	query := url.Values{"from": {from}, "to": {to}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?"+query.Encode(), nil)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to create rate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to request %s->%s rate: %w", from, to, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, time.Time{}, fmt.Errorf("exchange API returned status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var payload frankfurterResponse
	if err := decoder.Decode(&payload); err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to decode rate response: %w", err)
	}

	raw, ok := payload.Rates[to]
	if !ok {
		return decimal.Zero, time.Time{}, errRateMissing
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to parse %s->%s rate: %w", from, to, err)
	}
	if err := validateConversionRate(rate); err != nil {
		return decimal.Zero, time.Time{}, err
	}

	date, err := time.Parse(time.DateOnly, payload.Date)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to parse rate date: %w", err)
	}
	return rate, date, nil
}
