package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/logger"
	"gitlab.com/yelinaung/wallet/internal/models"
)

func table(name string) string {
	return restPath + "/" + name
}

func rpc(name string) string {
	return restPath + "/rpc/" + name
}

// withUpdatedAt merges an updated_at stamp into a partial update payload.
func withUpdatedAt(update any, now time.Time) (map[string]any, error) {
	buf, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("failed to encode update: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(buf, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode update: %w", err)
	}
	fields["updated_at"] = now.UTC().Format(time.RFC3339Nano)
	return fields, nil
}

func (c *Client) selectOne(ctx context.Context, name string, f *filter, out any) error {
	_, err := c.do(ctx, request{method: http.MethodGet, path: table(name), query: f.values(), single: true}, out)
	return err
}

func (c *Client) selectMany(ctx context.Context, name string, f *filter, out any) error {
	_, err := c.do(ctx, request{method: http.MethodGet, path: table(name), query: f.values()}, out)
	return err
}

func (c *Client) insertOne(ctx context.Context, name string, row, out any) error {
	_, err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      table(name),
		body:      row,
		single:    true,
		returning: true,
	}, out)
	return err
}

func (c *Client) updateByID(ctx context.Context, name, id string, update, out any) error {
	fields, err := withUpdatedAt(update, c.now())
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{
		method:    http.MethodPatch,
		path:      table(name),
		query:     newFilter().eq("id", id).values(),
		body:      fields,
		single:    true,
		returning: true,
	}, out)
	return err
}

func (c *Client) count(ctx context.Context, name string, f *filter) (int, error) {
	h, err := c.do(ctx, request{
		method: http.MethodHead,
		path:   table(name),
		query:  f.values(),
		count:  true,
	}, nil)
	if err != nil {
		return 0, err
	}
	return parseCount(h)
}

func (c *Client) callRPC(ctx context.Context, name string, params, out any) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: rpc(name), body: params}, out)
	return err
}

// GetProfile fetches the user's profile row.
func (c *Client) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := c.selectOne(ctx, "users", newFilter().sel("*").eq("id", userID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile edits the user's profile row.
func (c *Client) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	var p models.Profile
	if err := c.updateByID(ctx, "users", userID, update, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBalance fetches the user's balance row.
func (c *Client) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	var b models.Balance
	if err := c.selectOne(ctx, "balances", newFilter().sel("*").eq("user_id", userID), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func clampParam(params map[string]any, key string, v *decimal.Decimal) {
	if v == nil {
		return
	}
	params[key] = decimal.Max(*v, decimal.Zero)
}

// UpdateBalance writes the balance through the update_user_balance RPC.
// Negative values are clamped to zero before sending.
func (c *Client) UpdateBalance(ctx context.Context, userID string, update backend.BalanceUpdate) (*models.Balance, error) {
	params := map[string]any{"p_user_id": userID}
	clampParam(params, "p_dzd", update.DZD)
	clampParam(params, "p_eur", update.EUR)
	clampParam(params, "p_usd", update.USD)
	clampParam(params, "p_gbp", update.GBP)
	clampParam(params, "p_investment_balance", update.InvestmentBalance)

	var rows []models.Balance
	if err := c.callRPC(ctx, "update_user_balance", params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return c.GetBalance(ctx, userID)
	}
	return &rows[0], nil
}

// InsertTransaction records a transaction.
func (c *Client) InsertTransaction(ctx context.Context, tx models.NewTransaction) (*models.Transaction, error) {
	var out models.Transaction
	if err := c.insertOne(ctx, "transactions", tx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTransactions returns the newest transactions first.
func (c *Client) ListTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	f := newFilter().sel("*").eq("user_id", userID).order("created_at", false).limit(limit)
	if err := c.selectMany(ctx, "transactions", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertInvestment records an investment.
func (c *Client) InsertInvestment(ctx context.Context, inv models.Investment) (*models.Investment, error) {
	var out models.Investment
	if err := c.insertOne(ctx, "investments", inv, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInvestments returns the newest investments first.
func (c *Client) ListInvestments(ctx context.Context, userID string) ([]models.Investment, error) {
	var out []models.Investment
	f := newFilter().sel("*").eq("user_id", userID).order("created_at", false)
	if err := c.selectMany(ctx, "investments", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateInvestment edits an investment.
func (c *Client) UpdateInvestment(ctx context.Context, id string, update models.InvestmentUpdate) (*models.Investment, error) {
	var out models.Investment
	if err := c.updateByID(ctx, "investments", id, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessInvestment moves money between the dinar and investment balances in
// one server-side transaction.
func (c *Client) ProcessInvestment(ctx context.Context, userID string, amount decimal.Decimal, op models.InvestmentOperation) (*models.InvestmentResult, error) {
	var rows []models.InvestmentResult
	err := c.callRPC(ctx, "process_investment", map[string]any{
		"p_user_id":   userID,
		"p_amount":    amount,
		"p_operation": op,
	}, &rows)
	if err != nil {
		return nil, err
	}
	res, err := first(rows, "process_investment")
	if err != nil {
		return nil, backend.Rejected("investment processing failed")
	}
	if !res.Success {
		return nil, backend.Rejected(res.Message)
	}
	return res, nil
}

// InsertSavingsGoal creates a savings goal.
func (c *Client) InsertSavingsGoal(ctx context.Context, goal models.SavingsGoal) (*models.SavingsGoal, error) {
	var out models.SavingsGoal
	if err := c.insertOne(ctx, "savings_goals", goal, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSavingsGoals returns the active goals, newest first.
func (c *Client) ListSavingsGoals(ctx context.Context, userID string) ([]models.SavingsGoal, error) {
	var out []models.SavingsGoal
	f := newFilter().sel("*").eq("user_id", userID).eq("status", string(models.SavingsGoalActive)).order("created_at", false)
	if err := c.selectMany(ctx, "savings_goals", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSavingsGoal edits a savings goal.
func (c *Client) UpdateSavingsGoal(ctx context.Context, id string, update models.SavingsGoalUpdate) (*models.SavingsGoal, error) {
	var out models.SavingsGoal
	if err := c.updateByID(ctx, "savings_goals", id, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCards returns the user's cards.
func (c *Client) ListCards(ctx context.Context, userID string) ([]models.Card, error) {
	var out []models.Card
	if err := c.selectMany(ctx, "cards", newFilter().sel("*").eq("user_id", userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCard edits a card.
func (c *Client) UpdateCard(ctx context.Context, id string, update models.CardUpdate) (*models.Card, error) {
	var out models.Card
	if err := c.updateByID(ctx, "cards", id, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InsertNotification stores a notification for the user.
func (c *Client) InsertNotification(ctx context.Context, userID string, n models.Notification) (*models.Notification, error) {
	n.UserID = userID
	var out models.Notification
	if err := c.insertOne(ctx, "notifications", n, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNotifications returns the newest notifications first.
func (c *Client) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	var out []models.Notification
	f := newFilter().sel("*").eq("user_id", userID).order("created_at", false)
	if err := c.selectMany(ctx, "notifications", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkNotificationRead flags a notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	var out models.Notification
	_, err := c.do(ctx, request{
		method:    http.MethodPatch,
		path:      table("notifications"),
		query:     newFilter().eq("id", id).values(),
		body:      map[string]bool{"is_read": true},
		single:    true,
		returning: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// InsertReferral records a referral.
func (c *Client) InsertReferral(ctx context.Context, r models.Referral) (*models.Referral, error) {
	var out models.Referral
	if err := c.insertOne(ctx, "referrals", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReferrals returns the user's referrals with the referred user embedded.
func (c *Client) ListReferrals(ctx context.Context, userID string) ([]models.Referral, error) {
	var out []models.Referral
	f := newFilter().
		sel("*,referred_user:users!referrals_referred_id_fkey(full_name,email)").
		eq("referrer_id", userID).
		order("created_at", false)
	if err := c.selectMany(ctx, "referrals", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReferralStats counts the user's referrals. Months start at local midnight
// on the first of the month of now.
func (c *Client) ReferralStats(ctx context.Context, userID string, now time.Time) (*models.ReferralStats, error) {
	total, err := c.count(ctx, "referrals", newFilter().sel("*").eq("referrer_id", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}

	completed, err := c.count(ctx, "referrals", newFilter().sel("*").eq("referrer_id", userID).eq("status", string(models.ReferralCompleted)))
	if err != nil {
		return nil, fmt.Errorf("failed to count completed referrals: %w", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	thisMonth, err := c.count(ctx, "referrals", newFilter().sel("*").eq("referrer_id", userID).gte("created_at", monthStart.UTC().Format(time.RFC3339)))
	if err != nil {
		return nil, fmt.Errorf("failed to count this month's referrals: %w", err)
	}

	var earnings struct {
		ReferralEarnings decimal.Decimal `json:"referral_earnings"`
	}
	if err := c.selectOne(ctx, "users", newFilter().sel("referral_earnings").eq("id", userID), &earnings); err != nil {
		if !backend.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get referral earnings: %w", err)
		}
	}

	return &models.ReferralStats{
		TotalReferrals:     total,
		CompletedReferrals: completed,
		TotalEarnings:      earnings.ReferralEarnings,
		ThisMonthReferrals: thisMonth,
		PendingRewards:     total - completed,
	}, nil
}

// FindReferrer looks up the owner of a referral code.
func (c *Client) FindReferrer(ctx context.Context, code string) (*models.Referrer, error) {
	var out models.Referrer
	if err := c.selectOne(ctx, "users", newFilter().sel("id,full_name").eq("referral_code", code), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSupportMessage opens a support ticket.
func (c *Client) CreateSupportMessage(ctx context.Context, msg models.SupportMessage) (*models.SupportMessage, error) {
	var rows []models.SupportMessage
	err := c.callRPC(ctx, "create_support_message", map[string]any{
		"p_user_id":  msg.UserID,
		"p_subject":  msg.Subject,
		"p_message":  msg.Message,
		"p_category": msg.Category,
		"p_priority": msg.Priority,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &msg, nil
	}
	return &rows[0], nil
}

// ListSupportMessages returns the user's tickets.
func (c *Client) ListSupportMessages(ctx context.Context, userID string, limit int) ([]models.SupportMessage, error) {
	var out []models.SupportMessage
	err := c.callRPC(ctx, "get_user_support_messages", map[string]any{
		"p_user_id": userID,
		"p_limit":   limit,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitVerification files a verification request and marks the user as
// pending. A failure to mark the user is logged, not returned.
func (c *Client) SubmitVerification(ctx context.Context, v models.Verification) (*models.Verification, error) {
	v.Status = models.VerificationPending
	var out models.Verification
	if err := c.insertOne(ctx, "account_verifications", v, &out); err != nil {
		return nil, err
	}

	status := map[string]string{"verification_status": string(models.VerificationPending)}
	if err := c.updateByID(ctx, "users", v.UserID, status, nil); err != nil {
		logger.Log.Warn().Err(err).
			Str("user", logger.HashUserID(v.UserID)).
			Msg("Failed to mark user verification as pending")
	}
	return &out, nil
}

// GetVerification returns the latest verification request, or nil when none
// was submitted.
func (c *Client) GetVerification(ctx context.Context, userID string) (*models.Verification, error) {
	var out models.Verification
	f := newFilter().sel("*").eq("user_id", userID).order("created_at", false).limit(1)
	if err := c.selectOne(ctx, "account_verifications", f, &out); err != nil {
		if backend.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// ProcessInstantTransfer runs a peer-to-peer transfer server-side.
func (c *Client) ProcessInstantTransfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	var rows []models.TransferResult
	err := c.callRPC(ctx, "process_instant_transfer", map[string]any{
		"p_sender_id":            req.SenderID,
		"p_recipient_identifier": req.RecipientIdentifier,
		"p_amount":               req.Amount,
		"p_currency":             req.Currency,
		"p_description":          req.Description,
	}, &rows)
	if err != nil {
		return nil, err
	}
	res, err := first(rows, "process_instant_transfer")
	if err != nil {
		return nil, backend.Rejected("transfer failed")
	}
	if !res.Success {
		return nil, backend.Rejected(res.Message)
	}
	return res, nil
}
