// Package models defines the domain entities for the wallet.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTransactionDescription is used when a caller records a movement
// without a label.
const DefaultTransactionDescription = "Transaction"

// Balance is a user's multi-currency wallet state. No field may go negative.
type Balance struct {
	UserID            string          `json:"user_id,omitempty"`
	DZD               decimal.Decimal `json:"dzd"`
	EUR               decimal.Decimal `json:"eur"`
	USD               decimal.Decimal `json:"usd"`
	GBP               decimal.Decimal `json:"gbp"`
	InvestmentBalance decimal.Decimal `json:"investment_balance"`
	UpdatedAt         time.Time       `json:"updated_at,omitzero"`
}

// Amount returns the balance held in the given currency.
func (b Balance) Amount(c Currency) decimal.Decimal {
	switch c {
	case CurrencyEUR:
		return b.EUR
	case CurrencyUSD:
		return b.USD
	case CurrencyGBP:
		return b.GBP
	default:
		return b.DZD
	}
}

// WithAmount returns a copy of b with the given currency set to amount.
func (b Balance) WithAmount(c Currency, amount decimal.Decimal) Balance {
	switch c {
	case CurrencyEUR:
		b.EUR = amount
	case CurrencyUSD:
		b.USD = amount
	case CurrencyGBP:
		b.GBP = amount
	default:
		b.DZD = amount
	}
	return b
}

// IsNonNegative reports whether every field of b is zero or positive.
func (b Balance) IsNonNegative() bool {
	for _, v := range []decimal.Decimal{b.DZD, b.EUR, b.USD, b.GBP, b.InvestmentBalance} {
		if v.IsNegative() {
			return false
		}
	}
	return true
}

// Transaction is a recorded money movement. Amount is always positive; the
// direction is implied by Type.
type Transaction struct {
	ID          string            `json:"id,omitempty"`
	UserID      string            `json:"user_id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    Currency          `json:"currency"`
	Description string            `json:"description"`
	Status      TransactionStatus `json:"status"`
	Reference   string            `json:"reference,omitempty"`
	Recipient   string            `json:"recipient,omitempty"`
	CreatedAt   time.Time         `json:"created_at,omitzero"`
}

// NewTransaction is the insert payload for a transaction.
type NewTransaction struct {
	UserID      string            `json:"user_id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    Currency          `json:"currency"`
	Description string            `json:"description"`
	Status      TransactionStatus `json:"status"`
	Reference   string            `json:"reference,omitempty"`
	Recipient   string            `json:"recipient,omitempty"`
}

// Investment is a fixed-term deposit accruing profit server-side.
type Investment struct {
	ID         string           `json:"id,omitempty"`
	UserID     string           `json:"user_id"`
	Type       InvestmentType   `json:"type"`
	Amount     decimal.Decimal  `json:"amount"`
	ProfitRate decimal.Decimal  `json:"profit_rate"`
	StartDate  time.Time        `json:"start_date"`
	EndDate    time.Time        `json:"end_date"`
	Profit     decimal.Decimal  `json:"profit"`
	Status     InvestmentStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at,omitzero"`
}

// InvestmentUpdate carries the mutable investment fields. Nil fields are left
// untouched.
type InvestmentUpdate struct {
	Profit *decimal.Decimal  `json:"profit,omitempty"`
	Status *InvestmentStatus `json:"status,omitempty"`
}

// SavingsGoal is a named bucket the user deposits into.
// CurrentAmount never exceeds TargetAmount.
type SavingsGoal struct {
	ID            string            `json:"id,omitempty"`
	UserID        string            `json:"user_id"`
	Name          string            `json:"name"`
	TargetAmount  decimal.Decimal   `json:"target_amount"`
	CurrentAmount decimal.Decimal   `json:"current_amount"`
	Deadline      time.Time         `json:"deadline"`
	Category      string            `json:"category"`
	Icon          string            `json:"icon"`
	Color         string            `json:"color"`
	Status        SavingsGoalStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at,omitzero"`
}

// Remaining returns how much is left to reach the target.
func (g SavingsGoal) Remaining() decimal.Decimal {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Deposit returns CurrentAmount increased by amount, capped at the target.
func (g SavingsGoal) Deposit(amount decimal.Decimal) decimal.Decimal {
	return decimal.Min(g.CurrentAmount.Add(amount), g.TargetAmount)
}

// SavingsGoalUpdate carries the mutable savings goal fields.
type SavingsGoalUpdate struct {
	CurrentAmount *decimal.Decimal   `json:"current_amount,omitempty"`
	Status        *SavingsGoalStatus `json:"status,omitempty"`
}

// Notification is an in-app message shown to the user.
type Notification struct {
	ID        string           `json:"id,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at,omitzero"`
}

// Card is a payment card attached to the wallet.
type Card struct {
	ID            string          `json:"id,omitempty"`
	UserID        string          `json:"user_id"`
	CardType      CardType        `json:"card_type"`
	CardNumber    string          `json:"card_number"`
	IsFrozen      bool            `json:"is_frozen"`
	SpendingLimit decimal.Decimal `json:"spending_limit"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      Currency        `json:"currency,omitempty"`
	CreatedAt     time.Time       `json:"created_at,omitzero"`
}

// CardUpdate carries the mutable card fields.
type CardUpdate struct {
	IsFrozen      *bool            `json:"is_frozen,omitempty"`
	SpendingLimit *decimal.Decimal `json:"spending_limit,omitempty"`
	Balance       *decimal.Decimal `json:"balance,omitempty"`
}

// Profile is the extended user record.
type Profile struct {
	ID                 string             `json:"id,omitempty"`
	Email              string             `json:"email"`
	FullName           string             `json:"full_name"`
	Phone              string             `json:"phone"`
	Username           string             `json:"username"`
	Address            string             `json:"address"`
	AccountNumber      string             `json:"account_number"`
	ReferralCode       string             `json:"referral_code"`
	ReferralEarnings   decimal.Decimal    `json:"referral_earnings"`
	IsVerified         bool               `json:"is_verified"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	CreatedAt          time.Time          `json:"created_at,omitzero"`
}

// ProfileUpdate carries the user-editable profile fields.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Username *string `json:"username,omitempty"`
	Address  *string `json:"address,omitempty"`
}

// SignUpData is the profile metadata sent with a registration.
type SignUpData struct {
	FullName         string `json:"full_name"`
	Phone            string `json:"phone"`
	Username         string `json:"username"`
	Address          string `json:"address"`
	UsedReferralCode string `json:"used_referral_code"`
}

// Referral links a referrer to a user who signed up with their code.
type Referral struct {
	ID           string          `json:"id,omitempty"`
	ReferrerID   string          `json:"referrer_id"`
	ReferredID   string          `json:"referred_id"`
	ReferralCode string          `json:"referral_code"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
	Status       ReferralStatus  `json:"status"`
	CreatedAt    time.Time       `json:"created_at,omitzero"`
	ReferredUser *ReferredUser   `json:"referred_user,omitempty"`
}

// ReferredUser is the embedded summary of the referred account.
type ReferredUser struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// ReferralStats summarises a user's referral activity.
type ReferralStats struct {
	TotalReferrals     int             `json:"total_referrals"`
	CompletedReferrals int             `json:"completed_referrals"`
	TotalEarnings      decimal.Decimal `json:"total_earnings"`
	ThisMonthReferrals int             `json:"this_month_referrals"`
	PendingRewards     int             `json:"pending_rewards"`
}

// Referrer is the owner of a referral code.
type Referrer struct {
	ID       string `json:"id,omitempty"`
	FullName string `json:"full_name"`
}

// SupportMessage is a ticket raised by the user.
type SupportMessage struct {
	ID            string          `json:"id,omitempty"`
	UserID        string          `json:"user_id"`
	Subject       string          `json:"subject"`
	Message       string          `json:"message"`
	Category      SupportCategory `json:"category"`
	Priority      SupportPriority `json:"priority"`
	Status        string          `json:"status"`
	AdminResponse string          `json:"admin_response,omitempty"`
	CreatedAt     time.Time       `json:"created_at,omitzero"`
}

// Verification is an identity verification request.
type Verification struct {
	ID              string             `json:"id,omitempty"`
	UserID          string             `json:"user_id"`
	Country         string             `json:"country"`
	DateOfBirth     string             `json:"date_of_birth"`
	FullAddress     string             `json:"full_address"`
	PostalCode      string             `json:"postal_code"`
	DocumentType    string             `json:"document_type"`
	DocumentNumber  string             `json:"document_number"`
	Documents       []string           `json:"documents"`
	AdditionalNotes string             `json:"additional_notes,omitempty"`
	Status          VerificationStatus `json:"status"`
	SubmittedAt     time.Time          `json:"submitted_at"`
	CreatedAt       time.Time          `json:"created_at,omitzero"`
}

// InvestmentResult is the outcome of an atomic invest/return operation.
type InvestmentResult struct {
	Success              bool            `json:"success"`
	Message              string          `json:"message"`
	NewDZDBalance        decimal.Decimal `json:"new_dzd_balance"`
	NewInvestmentBalance decimal.Decimal `json:"new_investment_balance"`
}

// TransferResult is the outcome of an atomic peer-to-peer transfer.
type TransferResult struct {
	Success             bool            `json:"success"`
	Message             string          `json:"message"`
	ReferenceNumber     string          `json:"reference_number"`
	TransferID          string          `json:"transfer_id"`
	SenderNewBalance    decimal.Decimal `json:"sender_new_balance"`
	RecipientNewBalance decimal.Decimal `json:"recipient_new_balance"`
	ProcessingTimeMS    int             `json:"processing_time_ms"`
}

// TransferRequest is the input to an instant transfer.
type TransferRequest struct {
	SenderID            string
	RecipientIdentifier string
	Amount              decimal.Decimal
	Currency            Currency
	Description         string
}

// User is the authenticated account as known to the identity service.
type User struct {
	ID               string     `json:"id,omitempty"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at,omitzero"`
}

// IsConfirmed reports whether the user has verified their email address.
func (u User) IsConfirmed() bool {
	return u.EmailConfirmedAt != nil && !u.EmailConfirmedAt.IsZero()
}
