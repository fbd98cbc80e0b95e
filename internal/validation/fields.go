package validation

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/wallet/internal/models"
)

// Bounds enforced by the field validators.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MinRIBLength      = 10
)

var (
	// MaxAmount is the upper sanity bound for any single amount.
	MaxAmount = decimal.NewFromInt(1_000_000_000)
	// MinRechargeAmount is the smallest accepted recharge, in DZD.
	MinRechargeAmount = decimal.NewFromInt(1000)

	maxProfitRate = decimal.NewFromInt(100)

	accountNumberPattern = regexp.MustCompile(`^ACC\d{9}$`)
	phonePattern         = regexp.MustCompile(`^\+\d{10,15}$`)
	emailPattern         = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Field error messages.
const (
	MsgAmountInvalid       = "amount must be a valid number"
	MsgAmountNegative      = "amount must not be negative"
	MsgAmountZero          = "amount must be greater than zero"
	MsgAmountTooLarge      = "amount exceeds the maximum allowed"
	MsgCurrencyInvalid     = "currency code is invalid"
	MsgTransactionType     = "transaction type is invalid"
	MsgInvestmentType      = "investment type is invalid"
	MsgProfitRateInvalid   = "profit rate must be a valid number"
	MsgProfitRateNegative  = "profit rate must not be negative"
	MsgProfitRateTooLarge  = "profit rate must not exceed 100%"
	MsgStartDateInvalid    = "start date is invalid"
	MsgEndDateInvalid      = "end date is invalid"
	MsgEndBeforeStart      = "end date must be after start date"
	MsgAccountRequired     = "account number is required"
	MsgAccountFormat       = "account number must be ACC followed by 9 digits"
	MsgPhoneFormat         = "phone number must start with + followed by 10-15 digits"
	MsgEmailRequired       = "email is required"
	MsgEmailFormat         = "email format is invalid"
	MsgPasswordRequired    = "password is required"
	MsgPasswordTooShort    = "password must be at least 6 characters"
	MsgPasswordTooLong     = "password is too long (maximum 128 characters)"
	MsgRechargeMinimum     = "minimum recharge amount is 1000 DZD"
	MsgRIBRequired         = "bank RIB is required"
	MsgRIBFormat           = "bank RIB is invalid"
	MsgReferralRequired    = "referral code is required"
	MsgInsufficientBalance = "amount exceeds available balance"
)

// ValidateAmount checks a numeric amount: finite and in (0, MaxAmount].
func ValidateAmount(amount float64) Result[decimal.Decimal] {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fail[decimal.Decimal](MsgAmountInvalid)
	}
	return ValidateDecimalAmount(decimal.NewFromFloat(amount))
}

// ParseAmount parses raw form input and validates it as an amount.
func ParseAmount(raw string) Result[decimal.Decimal] {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fail[decimal.Decimal](MsgAmountInvalid)
	}
	return ValidateDecimalAmount(d)
}

// maxExponent bounds the decimal exponent of any value that reaches a
// comparison. Comparing rescales both sides, and "1e200000000" would otherwise
// expand to a two hundred million digit integer.
const maxExponent = 30

func inScale(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp <= maxExponent && exp >= -maxExponent
}

// scaleError reports the message for a value whose exponent is out of bounds,
// or "" when the value is safe to compare.
func scaleError(d decimal.Decimal, tooLarge, invalid string) string {
	switch {
	case inScale(d):
		return ""
	case d.Exponent() > 0:
		return tooLarge
	}
	return invalid
}

// ValidateDecimalAmount applies the amount bounds to an already typed value.
func ValidateDecimalAmount(d decimal.Decimal) Result[decimal.Decimal] {
	if d.IsNegative() {
		return fail[decimal.Decimal](MsgAmountNegative)
	}
	if d.IsZero() {
		return fail[decimal.Decimal](MsgAmountZero)
	}
	if msg := scaleError(d, MsgAmountTooLarge, MsgAmountInvalid); msg != "" {
		return fail[decimal.Decimal](msg)
	}
	if d.GreaterThan(MaxAmount) {
		return fail[decimal.Decimal](MsgAmountTooLarge)
	}
	return ok(d)
}

// ValidateCurrency accepts dzd, eur, usd and gbp in any case.
func ValidateCurrency(raw string) Result[models.Currency] {
	c, err := models.ParseCurrency(raw)
	if err != nil {
		return fail[models.Currency](MsgCurrencyInvalid)
	}
	return ok(c)
}

// ValidateTransactionType accepts the known transaction types in any case.
func ValidateTransactionType(raw string) Result[models.TransactionType] {
	t, err := models.ParseTransactionType(raw)
	if err != nil {
		return fail[models.TransactionType](MsgTransactionType)
	}
	return ok(t)
}

// ValidateInvestmentType accepts weekly, monthly, quarterly and yearly.
func ValidateInvestmentType(raw string) Result[models.InvestmentType] {
	t, err := models.ParseInvestmentType(raw)
	if err != nil {
		return fail[models.InvestmentType](MsgInvestmentType)
	}
	return ok(t)
}

// ValidateProfitRate checks a percentage in [0, 100].
func ValidateProfitRate(rate float64) Result[decimal.Decimal] {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fail[decimal.Decimal](MsgProfitRateInvalid)
	}
	return ValidateDecimalProfitRate(decimal.NewFromFloat(rate))
}

// ParseProfitRate parses raw form input and validates it as a profit rate.
func ParseProfitRate(raw string) Result[decimal.Decimal] {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fail[decimal.Decimal](MsgProfitRateInvalid)
	}
	return ValidateDecimalProfitRate(d)
}

// ValidateDecimalProfitRate applies the profit rate bounds to a typed value.
func ValidateDecimalProfitRate(d decimal.Decimal) Result[decimal.Decimal] {
	if d.IsNegative() {
		return fail[decimal.Decimal](MsgProfitRateNegative)
	}
	if d.IsZero() {
		return ok(decimal.Zero)
	}
	if msg := scaleError(d, MsgProfitRateTooLarge, MsgProfitRateInvalid); msg != "" {
		return fail[decimal.Decimal](msg)
	}
	if d.GreaterThan(maxProfitRate) {
		return fail[decimal.Decimal](MsgProfitRateTooLarge)
	}
	return ok(d)
}

// DateRange is a validated [Start, End) interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ValidateDateRange requires both dates set and end strictly after start.
func ValidateDateRange(start, end time.Time) Result[DateRange] {
	if start.IsZero() {
		return fail[DateRange](MsgStartDateInvalid)
	}
	if end.IsZero() {
		return fail[DateRange](MsgEndDateInvalid)
	}
	if !end.After(start) {
		return fail[DateRange](MsgEndBeforeStart)
	}
	return ok(DateRange{Start: start, End: end})
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps, naive timestamps and plain dates.
// Naive values are read as UTC.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, !t.IsZero()
		}
	}
	return time.Time{}, false
}

// ParseDateRange parses both ends and validates the range.
func ParseDateRange(start, end string) Result[DateRange] {
	s, okStart := ParseDate(start)
	if !okStart {
		return fail[DateRange](MsgStartDateInvalid)
	}
	e, okEnd := ParseDate(end)
	if !okEnd {
		return fail[DateRange](MsgEndDateInvalid)
	}
	return ValidateDateRange(s, e)
}

// ValidateAccountNumber requires "ACC" followed by exactly nine digits.
func ValidateAccountNumber(raw string) Result[string] {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fail[string](MsgAccountRequired)
	}
	if !accountNumberPattern.MatchString(trimmed) {
		return fail[string](MsgAccountFormat)
	}
	return ok(trimmed)
}

// ValidatePhone accepts an empty value or "+" followed by 10 to 15 digits.
func ValidatePhone(raw string) Result[string] {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ok("")
	}
	if !phonePattern.MatchString(trimmed) {
		return fail[string](MsgPhoneFormat)
	}
	return ok(trimmed)
}

// ValidateEmail requires a local@domain.tld shape and lowercases the value.
func ValidateEmail(raw string) Result[string] {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return fail[string](MsgEmailRequired)
	}
	if !emailPattern.MatchString(normalized) {
		return fail[string](MsgEmailFormat)
	}
	return ok(normalized)
}

// ValidatePassword requires between 6 and 128 characters. The password is
// returned untouched.
func ValidatePassword(password string) Result[string] {
	if password == "" {
		return fail[string](MsgPasswordRequired)
	}
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return fail[string](MsgPasswordTooShort)
	}
	if n > MaxPasswordLength {
		return fail[string](MsgPasswordTooLong)
	}
	return ok(password)
}

// ValidateRechargeAmount applies the amount rules plus the recharge minimum.
func ValidateRechargeAmount(d decimal.Decimal) Result[decimal.Decimal] {
	r := ValidateDecimalAmount(d)
	if !r.Valid {
		return r
	}
	if d.LessThan(MinRechargeAmount) {
		return fail[decimal.Decimal](MsgRechargeMinimum)
	}
	return r
}

// ValidateRIB checks the sender's bank identifier.
func ValidateRIB(raw string) Result[string] {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fail[string](MsgRIBRequired)
	}
	if utf8.RuneCountInString(trimmed) < MinRIBLength {
		return fail[string](MsgRIBFormat)
	}
	return ok(trimmed)
}

// ValidateReferralCode trims and uppercases a referral code.
func ValidateReferralCode(raw string) Result[string] {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return fail[string](MsgReferralRequired)
	}
	return ok(code)
}

// CheckSufficientFunds rejects a debit larger than the available balance in
// that currency. The value is the balance left after the debit.
func CheckSufficientFunds(balance models.Balance, currency models.Currency, amount decimal.Decimal) Result[decimal.Decimal] {
	available := balance.Amount(currency)
	if amount.GreaterThan(available) {
		return fail[decimal.Decimal](MsgInsufficientBalance)
	}
	return ok(available.Sub(amount))
}
