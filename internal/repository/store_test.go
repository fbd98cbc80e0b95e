package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/database"
	"gitlab.com/yelinaung/wallet/internal/models"
)

func setupStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	return New(database.TestTx(t)), context.Background()
}

func createUser(t *testing.T, s *Store, ctx context.Context, p models.Profile) *models.Profile {
	t.Helper()
	created, err := s.CreateProfile(ctx, p)
	require.NoError(t, err)
	return created
}

func fund(t *testing.T, s *Store, ctx context.Context, userID string, b models.Balance) {
	t.Helper()
	_, err := s.UpdateBalance(ctx, userID, backend.FullBalanceUpdate(b))
	require.NoError(t, err)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStore_Profile(t *testing.T) {
	s, ctx := setupStore(t)

	user := createUser(t, s, ctx, models.Profile{Email: "amina@example.com", FullName: "Amina", AccountNumber: "ACC100000001"})
	require.NotEmpty(t, user.ID)

	t.Run("gets profile", func(t *testing.T) {
		got, err := s.GetProfile(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "Amina", got.FullName)
		require.Equal(t, models.VerificationNone, got.VerificationStatus)
	})

	t.Run("updates only given fields", func(t *testing.T) {
		phone := "+213555000111"
		got, err := s.UpdateProfile(ctx, user.ID, models.ProfileUpdate{Phone: &phone})
		require.NoError(t, err)
		require.Equal(t, phone, got.Phone)
		require.Equal(t, "Amina", got.FullName)
	})

	t.Run("missing profile is not found", func(t *testing.T) {
		_, err := s.GetProfile(ctx, "no-such-user")
		require.True(t, backend.IsNotFound(err))
	})
}

func TestStore_Balance(t *testing.T) {
	s, ctx := setupStore(t)
	user := createUser(t, s, ctx, models.Profile{Email: "b@example.com"})

	t.Run("starts empty", func(t *testing.T) {
		b, err := s.GetBalance(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, b.DZD.IsZero())
	})

	t.Run("clamps negative values and keeps nil fields", func(t *testing.T) {
		fund(t, s, ctx, user.ID, models.Balance{DZD: dec("500"), EUR: dec("10")})

		negative := dec("-20")
		b, err := s.UpdateBalance(ctx, user.ID, backend.BalanceUpdate{EUR: &negative})
		require.NoError(t, err)
		require.True(t, b.EUR.IsZero())
		require.True(t, b.DZD.Equal(dec("500")))
	})

	t.Run("missing balance is not found", func(t *testing.T) {
		_, err := s.GetBalance(ctx, "no-such-user")
		require.True(t, backend.IsNotFound(err))
	})
}

func TestStore_Transactions(t *testing.T) {
	s, ctx := setupStore(t)
	user := createUser(t, s, ctx, models.Profile{Email: "t@example.com"})

	for _, amount := range []string{"100", "200", "300"} {
		_, err := s.InsertTransaction(ctx, models.NewTransaction{
			UserID:      user.ID,
			Type:        models.TransactionRecharge,
			Amount:      dec(amount),
			Description: "Top up",
		})
		require.NoError(t, err)
	}

	txs, err := s.ListTransactions(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, models.CurrencyDZD, txs[0].Currency)
	require.Equal(t, models.TransactionCompleted, txs[0].Status)
	require.False(t, txs[0].CreatedAt.Before(txs[1].CreatedAt))
}

func TestStore_ProcessInvestment(t *testing.T) {
	s, ctx := setupStore(t)
	user := createUser(t, s, ctx, models.Profile{Email: "i@example.com"})
	fund(t, s, ctx, user.ID, models.Balance{DZD: dec("5000")})

	t.Run("invest moves dinars into investment balance", func(t *testing.T) {
		res, err := s.ProcessInvestment(ctx, user.ID, dec("1000"), models.OperationInvest)
		require.NoError(t, err)
		require.True(t, res.NewDZDBalance.Equal(dec("4000")))
		require.True(t, res.NewInvestmentBalance.Equal(dec("1000")))
	})

	t.Run("return moves them back", func(t *testing.T) {
		res, err := s.ProcessInvestment(ctx, user.ID, dec("400"), models.OperationReturn)
		require.NoError(t, err)
		require.True(t, res.NewDZDBalance.Equal(dec("4400")))
		require.True(t, res.NewInvestmentBalance.Equal(dec("600")))
	})

	t.Run("refuses to overdraw and leaves balances intact", func(t *testing.T) {
		_, err := s.ProcessInvestment(ctx, user.ID, dec("10000"), models.OperationInvest)
		be, ok := backend.AsError(err)
		require.True(t, ok)
		require.Equal(t, backend.CodeRejected, be.Code)
		require.Equal(t, MsgInvestInsufficient, be.Message)

		b, err := s.GetBalance(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, b.DZD.Equal(dec("4400")))
	})

	t.Run("records and lists investments", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		inv, err := s.InsertInvestment(ctx, models.Investment{
			UserID:     user.ID,
			Type:       models.InvestmentMonthly,
			Amount:     dec("1000"),
			ProfitRate: dec("5"),
			StartDate:  start,
			EndDate:    start.AddDate(0, 1, 0),
		})
		require.NoError(t, err)
		require.Equal(t, models.InvestmentActive, inv.Status)

		completed := models.InvestmentCompleted
		profit := dec("50")
		inv, err = s.UpdateInvestment(ctx, inv.ID, models.InvestmentUpdate{Profit: &profit, Status: &completed})
		require.NoError(t, err)
		require.True(t, inv.Profit.Equal(profit))

		list, err := s.ListInvestments(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
	})
}

func TestStore_SavingsGoals(t *testing.T) {
	s, ctx := setupStore(t)
	user := createUser(t, s, ctx, models.Profile{Email: "s@example.com"})

	goal, err := s.InsertSavingsGoal(ctx, models.SavingsGoal{
		UserID:       user.ID,
		Name:         "Laptop",
		TargetAmount: dec("1000"),
		Deadline:     time.Now().AddDate(0, 6, 0),
	})
	require.NoError(t, err)

	over := dec("1500")
	goal, err = s.UpdateSavingsGoal(ctx, goal.ID, models.SavingsGoalUpdate{CurrentAmount: &over})
	require.NoError(t, err)
	require.True(t, goal.CurrentAmount.Equal(dec("1000")), "current amount is capped at the target")

	done := models.SavingsGoalCompleted
	_, err = s.UpdateSavingsGoal(ctx, goal.ID, models.SavingsGoalUpdate{Status: &done})
	require.NoError(t, err)

	active, err := s.ListSavingsGoals(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestStore_Cards(t *testing.T) {
	s, ctx := setupStore(t)
	user := createUser(t, s, ctx, models.Profile{Email: "c@example.com"})

	card, err := s.InsertCard(ctx, models.Card{UserID: user.ID, CardType: models.CardVirtual, CardNumber: "9990000000000001"})
	require.NoError(t, err)

	frozen := true
	card, err = s.UpdateCard(ctx, card.ID, models.CardUpdate{IsFrozen: &frozen})
	require.NoError(t, err)
	require.True(t, card.IsFrozen)

	cards, err := s.ListCards(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	_, err = s.UpdateCard(ctx, "no-such-card", models.CardUpdate{IsFrozen: &frozen})
	require.True(t, backend.IsNotFound(err))
}

func TestStore_Notifications(t *testing.T) {
	s, ctx := setupStore(t)
	user := createUser(t, s, ctx, models.Profile{Email: "n@example.com"})

	n, err := s.InsertNotification(ctx, user.ID, models.Notification{Title: "Welcome", Message: "Hello"})
	require.NoError(t, err)
	require.Equal(t, models.NotificationInfo, n.Type)
	require.False(t, n.IsRead)

	n, err = s.MarkNotificationRead(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, n.IsRead)

	list, err := s.ListNotifications(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestStore_Referrals(t *testing.T) {
	s, ctx := setupStore(t)
	referrer := createUser(t, s, ctx, models.Profile{Email: "r@example.com", FullName: "Referrer", ReferralCode: "REF123"})
	friend := createUser(t, s, ctx, models.Profile{Email: "f@example.com", FullName: "Friend"})
	other := createUser(t, s, ctx, models.Profile{Email: "o@example.com", FullName: "Other"})

	_, err := s.InsertReferral(ctx, models.Referral{ReferrerID: referrer.ID, ReferredID: friend.ID, ReferralCode: "REF123", Status: models.ReferralCompleted})
	require.NoError(t, err)
	_, err = s.InsertReferral(ctx, models.Referral{ReferrerID: referrer.ID, ReferredID: other.ID, ReferralCode: "REF123"})
	require.NoError(t, err)

	t.Run("finds referrer by code", func(t *testing.T) {
		ref, err := s.FindReferrer(ctx, "REF123")
		require.NoError(t, err)
		require.Equal(t, referrer.ID, ref.ID)

		_, err = s.FindReferrer(ctx, "NOPE")
		require.True(t, backend.IsNotFound(err))
	})

	t.Run("lists with referred user", func(t *testing.T) {
		list, err := s.ListReferrals(ctx, referrer.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.NotNil(t, list[0].ReferredUser)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := s.ReferralStats(ctx, referrer.ID, time.Now())
		require.NoError(t, err)
		require.Equal(t, 2, stats.TotalReferrals)
		require.Equal(t, 1, stats.CompletedReferrals)
		require.Equal(t, 1, stats.PendingRewards)
		require.Equal(t, 2, stats.ThisMonthReferrals)
	})
}

func TestStore_SupportMessages(t *testing.T) {
	s, ctx := setupStore(t)
	user := createUser(t, s, ctx, models.Profile{Email: "h@example.com"})

	msg, err := s.CreateSupportMessage(ctx, models.SupportMessage{UserID: user.ID, Subject: "Help", Message: "Card blocked"})
	require.NoError(t, err)
	require.Equal(t, models.SupportGeneral, msg.Category)
	require.Equal(t, models.PriorityNormal, msg.Priority)
	require.Equal(t, "open", msg.Status)

	list, err := s.ListSupportMessages(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestStore_Verification(t *testing.T) {
	s, ctx := setupStore(t)
	user := createUser(t, s, ctx, models.Profile{Email: "v@example.com"})

	none, err := s.GetVerification(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, none)

	v, err := s.SubmitVerification(ctx, models.Verification{
		UserID:       user.ID,
		Country:      "DZ",
		DocumentType: "passport",
		Documents:    []string{"front.jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, models.VerificationPending, v.Status)

	got, err := s.GetVerification(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, v.ID, got.ID)
	require.Equal(t, []string{"front.jpg"}, got.Documents)

	p, err := s.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, models.VerificationPending, p.VerificationStatus)
}

func TestStore_ProcessInstantTransfer(t *testing.T) {
	s, ctx := setupStore(t)
	sender := createUser(t, s, ctx, models.Profile{Email: "sender@example.com", AccountNumber: "ACC200000001"})
	recipient := createUser(t, s, ctx, models.Profile{Email: "recipient@example.com", AccountNumber: "ACC200000002"})
	fund(t, s, ctx, sender.ID, models.Balance{DZD: dec("1000"), EUR: dec("50")})

	t.Run("moves money by account number", func(t *testing.T) {
		res, err := s.ProcessInstantTransfer(ctx, models.TransferRequest{
			SenderID:            sender.ID,
			RecipientIdentifier: "ACC200000002",
			Amount:              dec("250"),
			Currency:            models.CurrencyDZD,
			Description:         "Rent",
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		require.True(t, res.SenderNewBalance.Equal(dec("750")))
		require.True(t, res.RecipientNewBalance.Equal(dec("250")))
		require.NotEmpty(t, res.ReferenceNumber)

		txs, err := s.ListTransactions(ctx, recipient.ID, 10)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		require.Equal(t, res.ReferenceNumber, txs[0].Reference)
	})

	t.Run("resolves recipient by email in another currency", func(t *testing.T) {
		res, err := s.ProcessInstantTransfer(ctx, models.TransferRequest{
			SenderID:            sender.ID,
			RecipientIdentifier: "Recipient@Example.com",
			Amount:              dec("20"),
			Currency:            models.CurrencyEUR,
		})
		require.NoError(t, err)
		require.True(t, res.SenderNewBalance.Equal(dec("30")))
	})

	rejected := []struct {
		name       string
		identifier string
		amount     string
		message    string
	}{
		{"unknown recipient", "ACC999999999", "10", MsgRecipientNotFound},
		{"self transfer", "ACC200000001", "10", MsgSelfTransfer},
		{"insufficient funds", "ACC200000002", "100000", MsgTransferInsufficient},
	}
	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.ProcessInstantTransfer(ctx, models.TransferRequest{
				SenderID:            sender.ID,
				RecipientIdentifier: tc.identifier,
				Amount:              dec(tc.amount),
				Currency:            models.CurrencyDZD,
			})
			be, ok := backend.AsError(err)
			require.True(t, ok)
			require.Equal(t, tc.message, be.Message)
		})
	}

	b, err := s.GetBalance(ctx, sender.ID)
	require.NoError(t, err)
	require.True(t, b.DZD.Equal(dec("750")), "refused transfers leave the balance untouched")
}
