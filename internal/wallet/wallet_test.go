package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/models"
)

const testUser = "user-1"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func loaded(t *testing.T, store *fakeStore, opts ...Option) *Wallet {
	t.Helper()
	w := New(testUser, store, opts...)
	require.NoError(t, w.Load(context.Background()))
	return w
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("fetches everything", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{
			balance:       &models.Balance{DZD: dec("500")},
			transactions:  []models.Transaction{{ID: "t1"}, {ID: "t2"}},
			notifications: []models.Notification{{ID: "n1"}, {ID: "n2", IsRead: true}},
		}
		w := New(testUser, store)
		require.False(t, w.IsBalanceLoaded())

		require.NoError(t, w.Load(context.Background()))
		require.True(t, w.IsBalanceLoaded())

		b, ok := w.Balance()
		require.True(t, ok)
		require.True(t, b.DZD.Equal(dec("500")))
		require.Len(t, w.Transactions(), 2)
		require.Len(t, w.Notifications(), 2)
		require.Equal(t, 1, w.UnreadCount())
		require.ElementsMatch(t, []string{"GetBalance", "ListTransactions", "ListNotifications"}, store.called())
	})

	t.Run("missing balance stays unloaded", func(t *testing.T) {
		t.Parallel()

		w := loaded(t, &fakeStore{})
		require.False(t, w.IsBalanceLoaded())
		b, ok := w.Balance()
		require.False(t, ok)
		require.Equal(t, models.Balance{}, b)
	})

	t.Run("balance error fails the load", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("connection refused")
		w := New(testUser, &fakeStore{balanceErr: boom})

		err := w.Load(context.Background())
		require.ErrorIs(t, err, boom)
		require.False(t, w.IsBalanceLoaded())
	})
}

func TestUpdateBalance(t *testing.T) {
	t.Parallel()

	t.Run("replaces local state", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{balance: &models.Balance{DZD: dec("100")}}
		w := loaded(t, store)

		stored, err := w.UpdateBalance(context.Background(), models.Balance{DZD: dec("250"), EUR: dec("3")})
		require.NoError(t, err)
		require.True(t, stored.DZD.Equal(dec("250")))

		b, _ := w.Balance()
		require.True(t, b.DZD.Equal(dec("250")))
		require.True(t, b.EUR.Equal(dec("3")))
	})

	t.Run("negative field never leaves the client", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{balance: &models.Balance{DZD: dec("100")}}
		w := loaded(t, store)

		_, err := w.UpdateBalance(context.Background(), models.Balance{DZD: dec("-1")})
		require.ErrorIs(t, err, ErrNegativeBalance)
		require.NotContains(t, store.called(), "UpdateBalance")
	})

	t.Run("failure keeps local state", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("permission denied")
		store := &fakeStore{
			balance:         &models.Balance{DZD: dec("100")},
			updateBalanceFn: func(int, backend.BalanceUpdate) error { return boom },
		}
		w := loaded(t, store)

		_, err := w.UpdateBalance(context.Background(), models.Balance{DZD: dec("999")})
		require.ErrorIs(t, err, boom)

		b, _ := w.Balance()
		require.True(t, b.DZD.Equal(dec("100")))
	})
}

func TestAddTransaction(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		balance:      &models.Balance{},
		transactions: []models.Transaction{{ID: "old-1"}, {ID: "old-2"}},
	}
	w := loaded(t, store, WithRecentLimit(2))

	stored, err := w.AddTransaction(context.Background(), models.NewTransaction{
		Type:   models.TransactionBill,
		Amount: dec("12.50"),
	})
	require.NoError(t, err)
	require.Equal(t, testUser, stored.UserID)
	require.Equal(t, models.CurrencyDZD, stored.Currency)
	require.Equal(t, models.TransactionCompleted, stored.Status)
	require.Equal(t, models.DefaultTransactionDescription, stored.Description)

	txs := w.Transactions()
	require.Len(t, txs, 2)
	require.Equal(t, stored.ID, txs[0].ID)
	require.Equal(t, "old-1", txs[1].ID)
}

func TestRefreshTransactions(t *testing.T) {
	t.Parallel()

	store := &fakeStore{balance: &models.Balance{}}
	w := loaded(t, store)
	require.Empty(t, w.Transactions())

	store.transactions = []models.Transaction{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	txs, err := w.RefreshTransactions(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Len(t, w.Transactions(), 2)
}

func TestNotifications(t *testing.T) {
	t.Parallel()

	store := &fakeStore{balance: &models.Balance{}}
	w := loaded(t, store)

	n, err := w.AddNotification(context.Background(), models.Notification{
		ID:    "n-1",
		Type:  models.NotificationInfo,
		Title: "Welcome",
	})
	require.NoError(t, err)
	require.Equal(t, testUser, n.UserID)
	require.Equal(t, 1, w.UnreadCount())

	require.NoError(t, w.MarkNotificationRead(context.Background(), "n-1"))
	require.Equal(t, 0, w.UnreadCount())
	require.True(t, w.Notifications()[0].IsRead)

	err = w.MarkNotificationRead(context.Background(), "missing")
	require.True(t, backend.IsNotFound(err))
}
