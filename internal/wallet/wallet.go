// Package wallet holds the signed-in user's balance, recent transactions and
// notifications, and runs the money flows against the backend.
//
// The backend is the authority. Local state only changes after the backend
// accepted a write, and every read replaces what was cached.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/config"
	"gitlab.com/yelinaung/wallet/internal/exchange"
	"gitlab.com/yelinaung/wallet/internal/logger"
	"gitlab.com/yelinaung/wallet/internal/models"
	"gitlab.com/yelinaung/wallet/internal/notify"
)

const instrumentationName = "gitlab.com/yelinaung/wallet/internal/wallet"

// Sentinel errors returned by wallet operations.
var (
	ErrBalanceNotLoaded     = errors.New("balance not loaded")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrSubmissionInProgress = errors.New("submission already in progress")
	ErrNegativeBalance      = errors.New("balance must not be negative")
	ErrSameCurrency         = errors.New("source and target currency are the same")
	ErrGoalNotFound         = errors.New("savings goal not found")
	ErrGoalReached          = errors.New("savings goal already reached")
	ErrCardNotFound         = errors.New("card not found")
	ErrCardFrozen           = errors.New("card is frozen")
	ErrCurrencyMismatch     = errors.New("currency does not match the card")
	ErrNoConverter          = errors.New("currency conversion is not configured")
)

// Notifier delivers a notification outside the app. Delivery is best effort.
type Notifier interface {
	ShowNotification(ctx context.Context, n models.Notification)
}

var _ Notifier = (*notify.Dispatcher)(nil)

// Wallet is the state of one signed-in user. It is safe for concurrent use.
type Wallet struct {
	userID    string
	store     backend.Store
	converter exchange.Converter
	notifier  Notifier
	timeouts  config.Timeouts
	limit     int
	now       func() time.Time

	tracer trace.Tracer
	ops    metric.Int64Counter

	guard guard
	// flow serializes balance-changing flows so each one reads the balance
	// the previous one wrote.
	flow sync.Mutex

	mu            sync.RWMutex
	balance       *models.Balance
	transactions  []models.Transaction
	notifications []models.Notification
}

// Option configures a Wallet.
type Option func(*Wallet)

// WithConverter sets the exchange rate source used by Convert.
func WithConverter(c exchange.Converter) Option {
	return func(w *Wallet) { w.converter = c }
}

// WithNotifier sets where notifications are delivered besides the in-app list.
func WithNotifier(n Notifier) Option {
	return func(w *Wallet) { w.notifier = n }
}

// WithTimeouts overrides the per-operation timeouts. Zero fields keep their
// defaults.
func WithTimeouts(t config.Timeouts) Option {
	return func(w *Wallet) {
		if t.Session > 0 {
			w.timeouts.Session = t.Session
		}
		if t.Submit > 0 {
			w.timeouts.Submit = t.Submit
		}
		if t.Transfer > 0 {
			w.timeouts.Transfer = t.Transfer
		}
	}
}

// WithRecentLimit bounds how many recent transactions are kept.
func WithRecentLimit(n int) Option {
	return func(w *Wallet) {
		if n > 0 {
			w.limit = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Wallet) { w.now = now }
}

// New creates the wallet of userID. Nothing is fetched until Load.
func New(userID string, store backend.Store, opts ...Option) *Wallet {
	w := &Wallet{
		userID: userID,
		store:  store,
		timeouts: config.Timeouts{
			Session:  config.DefaultSessionTimeout,
			Submit:   config.DefaultSubmitTimeout,
			Transfer: config.DefaultTransferTimeout,
		},
		limit:  config.DefaultRecentTransactionsLimit,
		now:    time.Now,
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(w)
	}

	ops, err := otel.Meter(instrumentationName).Int64Counter("wallet.operations",
		metric.WithDescription("Wallet operations by name and outcome"))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create wallet operations counter")
		ops, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("wallet.operations")
	}
	w.ops = ops

	return w
}

// UserID returns the owner of the wallet.
func (w *Wallet) UserID() string {
	return w.userID
}

// Load fetches balance, recent transactions and notifications concurrently.
// A user without a balance row is not an error; the balance simply stays
// unloaded.
func (w *Wallet) Load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeouts.Session)
	defer cancel()

	var (
		balance *models.Balance
		txs     []models.Transaction
		notes   []models.Notification
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := w.store.GetBalance(gctx, w.userID)
		if backend.IsNotFound(err) {
			logger.Log.Warn().Str("user_hash", logger.HashUserID(w.userID)).Msg("No balance found for user")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load balance: %w", err)
		}
		balance = b
		return nil
	})
	g.Go(func() error {
		t, err := w.store.ListTransactions(gctx, w.userID, w.limit)
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		txs = t
		return nil
	})
	g.Go(func() error {
		n, err := w.store.ListNotifications(gctx, w.userID)
		if err != nil {
			return fmt.Errorf("failed to load notifications: %w", err)
		}
		notes = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	w.mu.Lock()
	w.balance = balance
	w.transactions = txs
	w.notifications = notes
	w.mu.Unlock()

	logger.Log.Debug().
		Str("user_hash", logger.HashUserID(w.userID)).
		Bool("balance_loaded", balance != nil).
		Int("transactions", len(txs)).
		Int("notifications", len(notes)).
		Msg("Wallet loaded")
	return nil
}

// IsBalanceLoaded reports whether a real balance has been fetched. Callers
// must not show a zero balance before this is true.
func (w *Wallet) IsBalanceLoaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balance != nil
}

// Balance returns the cached balance and whether it has been loaded.
func (w *Wallet) Balance() (models.Balance, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.balance == nil {
		return models.Balance{}, false
	}
	return *w.balance, true
}

// Transactions returns the recent transactions, newest first.
func (w *Wallet) Transactions() []models.Transaction {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.transactions)
}

// Notifications returns the in-app notifications, newest first.
func (w *Wallet) Notifications() []models.Notification {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.notifications)
}

// UnreadCount returns the number of unread notifications.
func (w *Wallet) UnreadCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for _, note := range w.notifications {
		if !note.IsRead {
			n++
		}
	}
	return n
}

// UpdateBalance sends the full balance b and replaces local state with the
// stored result. On failure local state is unchanged. There is no retry.
func (w *Wallet) UpdateBalance(ctx context.Context, b models.Balance) (*models.Balance, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeouts.Submit)
	defer cancel()
	return w.writeBalance(ctx, b)
}

func (w *Wallet) writeBalance(ctx context.Context, b models.Balance) (*models.Balance, error) {
	if !b.IsNonNegative() {
		return nil, ErrNegativeBalance
	}
	stored, err := w.store.UpdateBalance(ctx, w.userID, backend.FullBalanceUpdate(b))
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	w.mu.Lock()
	cp := *stored
	w.balance = &cp
	w.mu.Unlock()
	return stored, nil
}

// AddTransaction records a transaction for the user and puts it at the head
// of the recent list. Validation is the caller's job.
func (w *Wallet) AddTransaction(ctx context.Context, tx models.NewTransaction) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeouts.Submit)
	defer cancel()
	return w.recordTransaction(ctx, tx)
}

func (w *Wallet) recordTransaction(ctx context.Context, tx models.NewTransaction) (*models.Transaction, error) {
	tx.UserID = w.userID
	if tx.Status == "" {
		tx.Status = models.TransactionCompleted
	}
	if tx.Currency == "" {
		tx.Currency = models.CurrencyDZD
	}
	if tx.Description == "" {
		tx.Description = models.DefaultTransactionDescription
	}

	stored, err := w.store.InsertTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to add transaction: %w", err)
	}

	w.mu.Lock()
	w.transactions = append([]models.Transaction{*stored}, w.transactions...)
	if len(w.transactions) > w.limit {
		w.transactions = w.transactions[:w.limit]
	}
	w.mu.Unlock()
	return stored, nil
}

// RefreshTransactions re-reads the most recent limit transactions. A limit
// of zero or less uses the configured size.
func (w *Wallet) RefreshTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = w.limit
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeouts.Session)
	defer cancel()

	txs, err := w.store.ListTransactions(ctx, w.userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh transactions: %w", err)
	}

	w.mu.Lock()
	w.transactions = txs
	w.mu.Unlock()
	return slices.Clone(txs), nil
}

// AddNotification stores a notification for the user and shows it in the
// in-app list.
func (w *Wallet) AddNotification(ctx context.Context, n models.Notification) (*models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeouts.Submit)
	defer cancel()

	stored, err := w.store.InsertNotification(ctx, w.userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to add notification: %w", err)
	}

	w.mu.Lock()
	w.notifications = append([]models.Notification{*stored}, w.notifications...)
	w.mu.Unlock()
	return stored, nil
}

// MarkNotificationRead flags a notification as read.
func (w *Wallet) MarkNotificationRead(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeouts.Submit)
	defer cancel()

	stored, err := w.store.MarkNotificationRead(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	w.mu.Lock()
	for i := range w.notifications {
		if w.notifications[i].ID == id {
			w.notifications[i] = *stored
			break
		}
	}
	w.mu.Unlock()
	return nil
}

// announce records a notification and hands it to the notifier. Neither step
// can fail the calling flow.
func (w *Wallet) announce(ctx context.Context, kind models.NotificationType, title, message string) {
	n := notify.New(kind, title, message)
	if _, err := w.AddNotification(context.WithoutCancel(ctx), n); err != nil {
		logger.Log.Warn().Err(err).Str("title", title).Msg("Failed to store notification")
	}
	if w.notifier != nil {
		w.notifier.ShowNotification(ctx, n)
	}
}
