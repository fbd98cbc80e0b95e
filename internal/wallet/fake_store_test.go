package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/exchange"
	"gitlab.com/yelinaung/wallet/internal/models"
)

var errNotStubbed = errors.New("not stubbed")

// fakeStore keeps just enough state for the wallet flows and records every
// call by name.
type fakeStore struct {
	mu    sync.Mutex
	calls []string

	balance       *models.Balance
	transactions  []models.Transaction
	notifications []models.Notification
	goals         []models.SavingsGoal
	cards         []models.Card
	investments   []models.Investment

	balanceErr      error
	updateBalanceFn func(n int, u backend.BalanceUpdate) error
	insertTxErr     error
	insertInvErr    error
	updateCardErr   error
	updateGoalErr   error
	investFn        func(amount decimal.Decimal, op models.InvestmentOperation) (*models.InvestmentResult, error)
	transferFn      func(req models.TransferRequest) (*models.TransferResult, error)
	block           chan struct{}
	updates         int
}

var _ backend.Store = (*fakeStore)(nil)

func (f *fakeStore) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeStore) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStore) GetProfile(context.Context, string) (*models.Profile, error) {
	f.record("GetProfile")
	return nil, errNotStubbed
}

func (f *fakeStore) UpdateProfile(context.Context, string, models.ProfileUpdate) (*models.Profile, error) {
	f.record("UpdateProfile")
	return nil, errNotStubbed
}

func (f *fakeStore) GetBalance(_ context.Context, userID string) (*models.Balance, error) {
	f.record("GetBalance")
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	if f.balance == nil {
		return nil, backend.NotFound("balance")
	}
	b := *f.balance
	b.UserID = userID
	return &b, nil
}

func (f *fakeStore) UpdateBalance(ctx context.Context, userID string, u backend.BalanceUpdate) (*models.Balance, error) {
	f.record("UpdateBalance")
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateBalanceFn != nil {
		if err := f.updateBalanceFn(f.updates, u); err != nil {
			return nil, err
		}
	}

	var b models.Balance
	if f.balance != nil {
		b = *f.balance
	}
	set := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil {
			*dst = decimal.Max(decimal.Zero, *v)
		}
	}
	set(&b.DZD, u.DZD)
	set(&b.EUR, u.EUR)
	set(&b.USD, u.USD)
	set(&b.GBP, u.GBP)
	set(&b.InvestmentBalance, u.InvestmentBalance)
	b.UserID = userID
	f.balance = &b
	out := b
	return &out, nil
}

func (f *fakeStore) InsertTransaction(_ context.Context, tx models.NewTransaction) (*models.Transaction, error) {
	f.record("InsertTransaction")
	if f.insertTxErr != nil {
		return nil, f.insertTxErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := models.Transaction{
		ID:          "tx-" + decimal.NewFromInt(int64(len(f.transactions)+1)).String(),
		UserID:      tx.UserID,
		Type:        tx.Type,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		Description: tx.Description,
		Status:      tx.Status,
		Recipient:   tx.Recipient,
		CreatedAt:   time.Now().UTC(),
	}
	f.transactions = append([]models.Transaction{stored}, f.transactions...)
	return &stored, nil
}

func (f *fakeStore) ListTransactions(_ context.Context, _ string, limit int) ([]models.Transaction, error) {
	f.record("ListTransactions")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]models.Transaction(nil), f.transactions...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) InsertInvestment(_ context.Context, inv models.Investment) (*models.Investment, error) {
	f.record("InsertInvestment")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertInvErr != nil {
		return nil, f.insertInvErr
	}
	inv.ID = "inv-1"
	f.investments = append(f.investments, inv)
	return &inv, nil
}

func (f *fakeStore) ListInvestments(context.Context, string) ([]models.Investment, error) {
	f.record("ListInvestments")
	return nil, errNotStubbed
}

func (f *fakeStore) UpdateInvestment(context.Context, string, models.InvestmentUpdate) (*models.Investment, error) {
	f.record("UpdateInvestment")
	return nil, errNotStubbed
}

func (f *fakeStore) ProcessInvestment(_ context.Context, _ string, amount decimal.Decimal, op models.InvestmentOperation) (*models.InvestmentResult, error) {
	f.record("ProcessInvestment")
	if f.investFn == nil {
		return nil, errNotStubbed
	}
	return f.investFn(amount, op)
}

func (f *fakeStore) InsertSavingsGoal(context.Context, models.SavingsGoal) (*models.SavingsGoal, error) {
	f.record("InsertSavingsGoal")
	return nil, errNotStubbed
}

func (f *fakeStore) ListSavingsGoals(context.Context, string) ([]models.SavingsGoal, error) {
	f.record("ListSavingsGoals")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SavingsGoal(nil), f.goals...), nil
}

func (f *fakeStore) UpdateSavingsGoal(_ context.Context, id string, u models.SavingsGoalUpdate) (*models.SavingsGoal, error) {
	f.record("UpdateSavingsGoal")
	if f.updateGoalErr != nil {
		return nil, f.updateGoalErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.goals {
		if f.goals[i].ID == id {
			if u.CurrentAmount != nil {
				f.goals[i].CurrentAmount = *u.CurrentAmount
			}
			if u.Status != nil {
				f.goals[i].Status = *u.Status
			}
			g := f.goals[i]
			return &g, nil
		}
	}
	return nil, backend.NotFound("savings goal")
}

func (f *fakeStore) ListCards(context.Context, string) ([]models.Card, error) {
	f.record("ListCards")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Card(nil), f.cards...), nil
}

func (f *fakeStore) UpdateCard(_ context.Context, id string, u models.CardUpdate) (*models.Card, error) {
	f.record("UpdateCard")
	if f.updateCardErr != nil {
		return nil, f.updateCardErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cards {
		if f.cards[i].ID == id {
			if u.Balance != nil {
				f.cards[i].Balance = *u.Balance
			}
			c := f.cards[i]
			return &c, nil
		}
	}
	return nil, backend.NotFound("card")
}

func (f *fakeStore) InsertNotification(_ context.Context, userID string, n models.Notification) (*models.Notification, error) {
	f.record("InsertNotification")
	f.mu.Lock()
	defer f.mu.Unlock()
	n.UserID = userID
	f.notifications = append([]models.Notification{n}, f.notifications...)
	return &n, nil
}

func (f *fakeStore) ListNotifications(context.Context, string) ([]models.Notification, error) {
	f.record("ListNotifications")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.notifications...), nil
}

func (f *fakeStore) MarkNotificationRead(_ context.Context, id string) (*models.Notification, error) {
	f.record("MarkNotificationRead")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].IsRead = true
			n := f.notifications[i]
			return &n, nil
		}
	}
	return nil, backend.NotFound("notification")
}

func (f *fakeStore) InsertReferral(context.Context, models.Referral) (*models.Referral, error) {
	f.record("InsertReferral")
	return nil, errNotStubbed
}

func (f *fakeStore) ListReferrals(context.Context, string) ([]models.Referral, error) {
	f.record("ListReferrals")
	return nil, errNotStubbed
}

func (f *fakeStore) ReferralStats(context.Context, string, time.Time) (*models.ReferralStats, error) {
	f.record("ReferralStats")
	return nil, errNotStubbed
}

func (f *fakeStore) FindReferrer(context.Context, string) (*models.Referrer, error) {
	f.record("FindReferrer")
	return nil, errNotStubbed
}

func (f *fakeStore) CreateSupportMessage(context.Context, models.SupportMessage) (*models.SupportMessage, error) {
	f.record("CreateSupportMessage")
	return nil, errNotStubbed
}

func (f *fakeStore) ListSupportMessages(context.Context, string, int) ([]models.SupportMessage, error) {
	f.record("ListSupportMessages")
	return nil, errNotStubbed
}

func (f *fakeStore) SubmitVerification(context.Context, models.Verification) (*models.Verification, error) {
	f.record("SubmitVerification")
	return nil, errNotStubbed
}

func (f *fakeStore) GetVerification(context.Context, string) (*models.Verification, error) {
	f.record("GetVerification")
	return nil, errNotStubbed
}

func (f *fakeStore) ProcessInstantTransfer(_ context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	f.record("ProcessInstantTransfer")
	if f.transferFn == nil {
		return nil, errNotStubbed
	}
	return f.transferFn(req)
}

// fixedConverter converts at a constant rate.
type fixedConverter struct {
	rate decimal.Decimal
	err  error
}

func (c fixedConverter) Convert(_ context.Context, amount decimal.Decimal, _, _ string) (exchange.ConversionResult, error) {
	if c.err != nil {
		return exchange.ConversionResult{}, c.err
	}
	return exchange.ConversionResult{Amount: amount.Mul(c.rate).Round(2), Rate: c.rate}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []models.Notification
}

func (r *recordingNotifier) ShowNotification(_ context.Context, n models.Notification) {
	r.mu.Lock()
	r.seen = append(r.seen, n)
	r.mu.Unlock()
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.seen))
	for _, n := range r.seen {
		out = append(out, n.Title)
	}
	return out
}
