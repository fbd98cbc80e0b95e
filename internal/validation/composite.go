package validation

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Composite error messages.
const (
	MsgDescriptionRequired = "transaction description is required"
	MsgGoalNameRequired    = "goal name is required"
	MsgGoalTargetInvalid   = "target amount must be greater than zero"
	MsgGoalCurrentNegative = "current amount must not be negative"
	MsgGoalCurrentTooLarge = "current amount cannot exceed the target amount"
	MsgGoalDeadlinePast    = "deadline must be in the future"
	MsgFullNameRequired    = "full name is required"
	MsgPhoneRequired       = "phone number is required"
	MsgUsernameRequired    = "username is required"
	MsgUsernameTooShort    = "username must be at least 3 characters"
	MsgAddressRequired     = "address is required"
	MsgPasswordMismatch    = "passwords do not match"
	MsgReferralTooShort    = "referral code must be at least 6 characters"
	MsgCountryRequired     = "country is required"
	MsgBirthDateInvalid    = "date of birth is invalid"
	MsgPostalCodeRequired  = "postal code is required"
	MsgDocumentRequired    = "document type and number are required"
)

// Registration bounds.
const (
	MinUsernameLength     = 3
	MinReferralCodeLength = 6
)

// TransactionInput is a transaction form as entered by the user.
type TransactionInput struct {
	Amount      string
	Currency    string
	Type        string
	Description string
}

// ValidateTransaction runs every transaction rule and collects all failures.
// An empty currency defaults to dzd.
func ValidateTransaction(in TransactionInput) Report {
	var r Report

	amount := ParseAmount(in.Amount)
	r.check(amount.Valid, amount.Error)

	currency := in.Currency
	if currency == "" {
		currency = "dzd"
	}
	c := ValidateCurrency(currency)
	r.check(c.Valid, c.Error)

	typ := ValidateTransactionType(in.Type)
	r.check(typ.Valid, typ.Error)

	r.check(strings.TrimSpace(in.Description) != "", MsgDescriptionRequired)

	return r.finish()
}

// InvestmentInput is an investment form as entered by the user.
type InvestmentInput struct {
	Amount     string
	Type       string
	ProfitRate string
	StartDate  string
	EndDate    string
}

// ValidateInvestment runs every investment rule and collects all failures.
func ValidateInvestment(in InvestmentInput) Report {
	var r Report

	amount := ParseAmount(in.Amount)
	r.check(amount.Valid, amount.Error)

	typ := ValidateInvestmentType(in.Type)
	r.check(typ.Valid, typ.Error)

	rate := ParseProfitRate(in.ProfitRate)
	r.check(rate.Valid, rate.Error)

	dates := ParseDateRange(in.StartDate, in.EndDate)
	r.check(dates.Valid, dates.Error)

	return r.finish()
}

// SavingsGoalInput is a new savings goal.
type SavingsGoalInput struct {
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Deadline      time.Time
}

// ValidateSavingsGoal checks a goal at creation time against now.
func ValidateSavingsGoal(in SavingsGoalInput, now time.Time) Report {
	var r Report

	r.check(strings.TrimSpace(in.Name) != "", MsgGoalNameRequired)
	r.check(in.TargetAmount.IsPositive(), MsgGoalTargetInvalid)
	r.check(!in.CurrentAmount.IsNegative(), MsgGoalCurrentNegative)
	if in.TargetAmount.IsPositive() && in.CurrentAmount.IsPositive() {
		if inScale(in.TargetAmount) && inScale(in.CurrentAmount) {
			r.check(!in.CurrentAmount.GreaterThan(in.TargetAmount), MsgGoalCurrentTooLarge)
		} else {
			r.check(false, MsgGoalTargetInvalid)
		}
	}
	r.check(in.Deadline.After(now), MsgGoalDeadlinePast)

	return r.finish()
}

// RegistrationInput is the sign-up form.
type RegistrationInput struct {
	FullName        string
	Email           string
	Phone           string
	Username        string
	Address         string
	Password        string
	ConfirmPassword string
	ReferralCode    string
}

// ValidateRegistration checks a sign-up form. Phone is required here even
// though ValidatePhone alone accepts an empty value. The referral code is
// optional.
func ValidateRegistration(in RegistrationInput) Report {
	var r Report

	r.check(strings.TrimSpace(in.FullName) != "", MsgFullNameRequired)

	email := ValidateEmail(in.Email)
	r.check(email.Valid, email.Error)

	if strings.TrimSpace(in.Phone) == "" {
		r.check(false, MsgPhoneRequired)
	} else {
		phone := ValidatePhone(in.Phone)
		r.check(phone.Valid, phone.Error)
	}

	switch username := strings.TrimSpace(in.Username); {
	case username == "":
		r.check(false, MsgUsernameRequired)
	case utf8.RuneCountInString(username) < MinUsernameLength:
		r.check(false, MsgUsernameTooShort)
	}

	r.check(strings.TrimSpace(in.Address) != "", MsgAddressRequired)

	pw := ValidatePassword(in.Password)
	r.check(pw.Valid, pw.Error)
	r.check(in.Password == in.ConfirmPassword, MsgPasswordMismatch)

	if code := strings.TrimSpace(in.ReferralCode); code != "" {
		r.check(utf8.RuneCountInString(code) >= MinReferralCodeLength, MsgReferralTooShort)
	}

	return r.finish()
}

// VerificationInput is an identity verification form.
type VerificationInput struct {
	Country        string
	DateOfBirth    string
	FullAddress    string
	PostalCode     string
	DocumentType   string
	DocumentNumber string
}

// ValidateVerification checks an identity verification form. The date of
// birth must parse and lie before now.
func ValidateVerification(in VerificationInput, now time.Time) Report {
	var r Report

	r.check(strings.TrimSpace(in.Country) != "", MsgCountryRequired)

	dob, ok := ParseDate(in.DateOfBirth)
	r.check(ok && dob.Before(now), MsgBirthDateInvalid)

	r.check(strings.TrimSpace(in.FullAddress) != "", MsgAddressRequired)
	r.check(strings.TrimSpace(in.PostalCode) != "", MsgPostalCodeRequired)
	r.check(strings.TrimSpace(in.DocumentType) != "" && strings.TrimSpace(in.DocumentNumber) != "", MsgDocumentRequired)

	return r.finish()
}
