// Package backend declares the narrow service interface the wallet uses to
// reach the hosted database. Implementations map every payload to the typed
// records in models before returning.
package backend

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/wallet/internal/models"
)

// Session is an authenticated session.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"-"`
	User         models.User `json:"user"`
}

// Expired reports whether the access token is past its expiry, with skew
// subtracted so callers refresh a little early.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(s.ExpiresAt)
}

// Auth is the identity service.
type Auth interface {
	SignUp(ctx context.Context, email, password string, data models.SignUpData) (*models.User, *Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	VerifyEmail(ctx context.Context, tokenHash, kind string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, newPassword string) error
}

// ProfileStore reads and edits the extended user record.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error)
}

// BalanceUpdate is the full balance sent on update. Nil fields are left as
// they are server-side.
type BalanceUpdate struct {
	DZD               *decimal.Decimal
	EUR               *decimal.Decimal
	USD               *decimal.Decimal
	GBP               *decimal.Decimal
	InvestmentBalance *decimal.Decimal
}

// FullBalanceUpdate builds an update carrying every field of b.
func FullBalanceUpdate(b models.Balance) BalanceUpdate {
	return BalanceUpdate{
		DZD:               &b.DZD,
		EUR:               &b.EUR,
		USD:               &b.USD,
		GBP:               &b.GBP,
		InvestmentBalance: &b.InvestmentBalance,
	}
}

// BalanceStore reads and writes the per-user balance. The server clamps every
// written field to zero or more.
type BalanceStore interface {
	GetBalance(ctx context.Context, userID string) (*models.Balance, error)
	UpdateBalance(ctx context.Context, userID string, update BalanceUpdate) (*models.Balance, error)
}

// TransactionStore records and lists money movements.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx models.NewTransaction) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
}

// InvestmentStore manages investments. ProcessInvestment adjusts the dinar and
// investment balances atomically.
type InvestmentStore interface {
	InsertInvestment(ctx context.Context, inv models.Investment) (*models.Investment, error)
	ListInvestments(ctx context.Context, userID string) ([]models.Investment, error)
	UpdateInvestment(ctx context.Context, id string, update models.InvestmentUpdate) (*models.Investment, error)
	ProcessInvestment(ctx context.Context, userID string, amount decimal.Decimal, op models.InvestmentOperation) (*models.InvestmentResult, error)
}

// SavingsStore manages savings goals. Listing returns active goals only.
type SavingsStore interface {
	InsertSavingsGoal(ctx context.Context, goal models.SavingsGoal) (*models.SavingsGoal, error)
	ListSavingsGoals(ctx context.Context, userID string) ([]models.SavingsGoal, error)
	UpdateSavingsGoal(ctx context.Context, id string, update models.SavingsGoalUpdate) (*models.SavingsGoal, error)
}

// CardStore manages payment cards.
type CardStore interface {
	ListCards(ctx context.Context, userID string) ([]models.Card, error)
	UpdateCard(ctx context.Context, id string, update models.CardUpdate) (*models.Card, error)
}

// NotificationStore manages in-app notifications.
type NotificationStore interface {
	InsertNotification(ctx context.Context, userID string, n models.Notification) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error)
}

// ReferralStore manages referrals.
type ReferralStore interface {
	InsertReferral(ctx context.Context, r models.Referral) (*models.Referral, error)
	ListReferrals(ctx context.Context, userID string) ([]models.Referral, error)
	ReferralStats(ctx context.Context, userID string, now time.Time) (*models.ReferralStats, error)
	FindReferrer(ctx context.Context, code string) (*models.Referrer, error)
}

// SupportStore manages support messages.
type SupportStore interface {
	CreateSupportMessage(ctx context.Context, msg models.SupportMessage) (*models.SupportMessage, error)
	ListSupportMessages(ctx context.Context, userID string, limit int) ([]models.SupportMessage, error)
}

// VerificationStore manages identity verification requests.
// GetVerification returns nil, nil when nothing was submitted.
type VerificationStore interface {
	SubmitVerification(ctx context.Context, v models.Verification) (*models.Verification, error)
	GetVerification(ctx context.Context, userID string) (*models.Verification, error)
}

// TransferStore runs peer-to-peer transfers as a single atomic operation.
type TransferStore interface {
	ProcessInstantTransfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error)
}

// Store is the full data surface of the backend.
type Store interface {
	ProfileStore
	BalanceStore
	TransactionStore
	InvestmentStore
	SavingsStore
	CardStore
	NotificationStore
	ReferralStore
	SupportStore
	VerificationStore
	TransferStore
}
