package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownValue is returned when a backend payload carries an enumeration
// value outside the known set.
var ErrUnknownValue = errors.New("unknown enum value")

// Currency is a lowercase ISO code held in the wallet.
type Currency string

// Supported currencies.
const (
	CurrencyDZD Currency = "dzd"
	CurrencyEUR Currency = "eur"
	CurrencyUSD Currency = "usd"
	CurrencyGBP Currency = "gbp"
)

// Currencies lists the wallet currencies in display order.
var Currencies = []Currency{CurrencyDZD, CurrencyEUR, CurrencyUSD, CurrencyGBP}

// TransactionType classifies a transaction.
type TransactionType string

// Transaction types.
const (
	TransactionRecharge   TransactionType = "recharge"
	TransactionTransfer   TransactionType = "transfer"
	TransactionBill       TransactionType = "bill"
	TransactionInvestment TransactionType = "investment"
	TransactionConversion TransactionType = "conversion"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// TransactionTypes lists every transaction type.
var TransactionTypes = []TransactionType{
	TransactionRecharge, TransactionTransfer, TransactionBill,
	TransactionInvestment, TransactionConversion, TransactionWithdrawal,
}

// TransactionStatus moves pending -> completed|failed.
type TransactionStatus string

// Transaction statuses.
const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

var transactionStatuses = []TransactionStatus{TransactionPending, TransactionCompleted, TransactionFailed}

// CanTransition reports whether a transaction may move from s to next.
func (s TransactionStatus) CanTransition(next TransactionStatus) bool {
	return s == TransactionPending && (next == TransactionCompleted || next == TransactionFailed)
}

// InvestmentType is the term of an investment.
type InvestmentType string

// Investment terms.
const (
	InvestmentWeekly    InvestmentType = "weekly"
	InvestmentMonthly   InvestmentType = "monthly"
	InvestmentQuarterly InvestmentType = "quarterly"
	InvestmentYearly    InvestmentType = "yearly"
)

// InvestmentTypes lists every investment term.
var InvestmentTypes = []InvestmentType{InvestmentWeekly, InvestmentMonthly, InvestmentQuarterly, InvestmentYearly}

// InvestmentStatus of an investment.
type InvestmentStatus string

// Investment statuses.
const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
)

// InvestmentOperation is the direction of an atomic investment adjustment.
type InvestmentOperation string

// Investment operations.
const (
	OperationInvest InvestmentOperation = "invest"
	OperationReturn InvestmentOperation = "return"
)

// SavingsGoalStatus of a savings goal.
type SavingsGoalStatus string

// Savings goal statuses.
const (
	SavingsGoalActive    SavingsGoalStatus = "active"
	SavingsGoalCompleted SavingsGoalStatus = "completed"
)

// NotificationType is the severity of a notification.
type NotificationType string

// Notification types.
const (
	NotificationSuccess  NotificationType = "success"
	NotificationError    NotificationType = "error"
	NotificationInfo     NotificationType = "info"
	NotificationWarning  NotificationType = "warning"
	NotificationSecurity NotificationType = "security"
)

var notificationTypes = []NotificationType{
	NotificationSuccess, NotificationError, NotificationInfo, NotificationWarning, NotificationSecurity,
}

// CardType distinguishes physical from virtual cards.
type CardType string

// Card types.
const (
	CardSolid   CardType = "solid"
	CardVirtual CardType = "virtual"
)

// ReferralStatus of a referral.
type ReferralStatus string

// Referral statuses.
const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)

// VerificationStatus of an identity verification.
type VerificationStatus string

// Verification statuses. The empty status means nothing was submitted.
const (
	VerificationNone     VerificationStatus = ""
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// SupportCategory groups support messages.
type SupportCategory string

// Support categories.
const (
	SupportGeneral   SupportCategory = "general"
	SupportAccount   SupportCategory = "account"
	SupportPayment   SupportCategory = "payment"
	SupportCard      SupportCategory = "card"
	SupportTechnical SupportCategory = "technical"
)

// SupportCategories lists every support category.
var SupportCategories = []SupportCategory{SupportGeneral, SupportAccount, SupportPayment, SupportCard, SupportTechnical}

// SupportPriority orders support messages.
type SupportPriority string

// Support priorities.
const (
	PriorityLow    SupportPriority = "low"
	PriorityNormal SupportPriority = "normal"
	PriorityHigh   SupportPriority = "high"
	PriorityUrgent SupportPriority = "urgent"
)

// SupportPriorities lists every support priority.
var SupportPriorities = []SupportPriority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

func parseEnum[T ~string](kind, raw string, allowed []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(allowed, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("%w: %s %q", ErrUnknownValue, kind, raw)
}

// ParseCurrency normalizes and checks a currency code.
func ParseCurrency(s string) (Currency, error) {
	return parseEnum("currency", s, Currencies)
}

// ParseTransactionType normalizes and checks a transaction type.
func ParseTransactionType(s string) (TransactionType, error) {
	return parseEnum("transaction type", s, TransactionTypes)
}

// ParseTransactionStatus normalizes and checks a transaction status.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	return parseEnum("transaction status", s, transactionStatuses)
}

// ParseInvestmentType normalizes and checks an investment term.
func ParseInvestmentType(s string) (InvestmentType, error) {
	return parseEnum("investment type", s, InvestmentTypes)
}

// ParseInvestmentStatus normalizes and checks an investment status.
func ParseInvestmentStatus(s string) (InvestmentStatus, error) {
	return parseEnum("investment status", s, []InvestmentStatus{InvestmentActive, InvestmentCompleted})
}

// ParseNotificationType normalizes and checks a notification type.
func ParseNotificationType(s string) (NotificationType, error) {
	return parseEnum("notification type", s, notificationTypes)
}

// ParseCardType normalizes and checks a card type.
func ParseCardType(s string) (CardType, error) {
	return parseEnum("card type", s, []CardType{CardSolid, CardVirtual})
}

// ParseSupportCategory normalizes and checks a support category.
func ParseSupportCategory(s string) (SupportCategory, error) {
	return parseEnum("support category", s, SupportCategories)
}

// ParseSupportPriority normalizes and checks a support priority.
func ParseSupportPriority(s string) (SupportPriority, error) {
	return parseEnum("support priority", s, SupportPriorities)
}

// UnmarshalText rejects unknown currencies when decoding.
func (c *Currency) UnmarshalText(b []byte) error {
	v, err := ParseCurrency(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// UnmarshalText rejects unknown transaction types when decoding.
func (t *TransactionType) UnmarshalText(b []byte) error {
	v, err := ParseTransactionType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalText rejects unknown transaction statuses when decoding.
func (s *TransactionStatus) UnmarshalText(b []byte) error {
	v, err := ParseTransactionStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UnmarshalText rejects unknown investment terms when decoding.
func (t *InvestmentType) UnmarshalText(b []byte) error {
	v, err := ParseInvestmentType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalText defaults a missing status to active.
func (s *InvestmentStatus) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = InvestmentActive
		return nil
	}
	v, err := ParseInvestmentStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UnmarshalText rejects unknown notification types when decoding.
func (t *NotificationType) UnmarshalText(b []byte) error {
	v, err := ParseNotificationType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalText rejects unknown card types when decoding.
func (t *CardType) UnmarshalText(b []byte) error {
	v, err := ParseCardType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
