package wallet

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/wallet/internal/cards"
	"gitlab.com/yelinaung/wallet/internal/logger"
	"gitlab.com/yelinaung/wallet/internal/models"
	"gitlab.com/yelinaung/wallet/internal/validation"
)

// Transaction descriptions written by the flows.
const (
	DescRecharge         = "Wallet recharge"
	DescWithdrawal       = "Withdrawal"
	DescSavingsDeposit   = "Savings deposit"
	DescInvestment       = "Investment"
	DescInvestmentReturn = "Investment return"
	DescCardTopUp        = "Card top-up"
)

// MsgRecipientRequired is returned when a transfer names no recipient.
const MsgRecipientRequired = "recipient is required"

// accountLike picks out recipients meant as account numbers. Anything else is
// passed through as an email or username.
var accountLike = regexp.MustCompile(`(?i)^acc\d+$`)

// Receipt is what a successful flow left behind. Transaction is nil when the
// money moved but the history entry could not be written.
type Receipt struct {
	Balance     models.Balance
	Transaction *models.Transaction
	// Investment is set by Invest, and stays nil when the funds moved but the
	// investment record was not written.
	Investment *models.Investment
	// Amount is what was credited, in the target currency for conversions.
	Amount    decimal.Decimal
	Rate      decimal.Decimal
	Reference string
}

func (w *Wallet) loadedBalance() (models.Balance, error) {
	b, ok := w.Balance()
	if !ok {
		return models.Balance{}, ErrBalanceNotLoaded
	}
	return b, nil
}

func requireFunds(b models.Balance, c models.Currency, amount decimal.Decimal) error {
	if r := validation.CheckSufficientFunds(b, c, amount); !r.Valid {
		return fmt.Errorf("%w: %s available", ErrInsufficientFunds, models.FormatAmount(b.Amount(c), c))
	}
	return nil
}

// recordBestEffort writes a history entry after money already moved. A
// failure is logged, not returned.
func (w *Wallet) recordBestEffort(ctx context.Context, tx models.NewTransaction) *models.Transaction {
	stored, err := w.recordTransaction(ctx, tx)
	if err != nil {
		logger.Log.Warn().Err(err).Str("type", string(tx.Type)).Msg("Failed to record transaction")
		return nil
	}
	return stored
}

// restore puts amount back into currency c after a later step failed. It
// runs detached from the caller's deadline.
func (w *Wallet) restore(ctx context.Context, debited models.Balance, c models.Currency, amount decimal.Decimal, cause error) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeouts.Submit)
	defer cancel()

	back := debited.WithAmount(c, debited.Amount(c).Add(amount))
	if _, err := w.writeBalance(rctx, back); err != nil {
		logger.Log.Error().
			Err(err).
			Str("user_hash", logger.HashUserID(w.userID)).
			Str("currency", string(c)).
			Str("amount", amount.String()).
			Msg("Failed to restore balance after failed operation")
		return errors.Join(cause, fmt.Errorf("failed to restore balance: %w", err))
	}
	logger.Log.Info().Str("currency", string(c)).Msg("Balance restored after failed operation")
	return cause
}

// RechargeRequest is a wallet top-up from a bank account.
type RechargeRequest struct {
	Amount decimal.Decimal
	RIB    string
}

// Recharge credits the dinar balance from the user's bank account.
func (w *Wallet) Recharge(ctx context.Context, req RechargeRequest) (*Receipt, error) {
	amount := validation.ValidateRechargeAmount(req.Amount)
	rib := validation.ValidateRIB(req.RIB)
	if err := errors.Join(amount.Err(), rib.Err()); err != nil {
		return nil, err
	}

	var receipt *Receipt
	err := w.submit(ctx, FormRecharge, w.timeouts.Submit, func(ctx context.Context) error {
		bal, err := w.loadedBalance()
		if err != nil {
			return err
		}
		stored, err := w.writeBalance(ctx, bal.WithAmount(models.CurrencyDZD, bal.DZD.Add(amount.Value)))
		if err != nil {
			return err
		}
		receipt = &Receipt{Balance: *stored, Amount: amount.Value}
		receipt.Transaction = w.recordBestEffort(ctx, models.NewTransaction{
			Type:        models.TransactionRecharge,
			Amount:      amount.Value,
			Currency:    models.CurrencyDZD,
			Description: DescRecharge,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.announce(ctx, models.NotificationSuccess, "Recharge successful",
		fmt.Sprintf("%s added to your wallet", models.FormatAmount(amount.Value, models.CurrencyDZD)))
	return receipt, nil
}

// Withdraw debits currency. An amount above the available balance is refused
// before anything is sent.
func (w *Wallet) Withdraw(ctx context.Context, currency models.Currency, amount decimal.Decimal) (*Receipt, error) {
	cur := validation.ValidateCurrency(string(currency))
	amt := validation.ValidateDecimalAmount(amount)
	if err := errors.Join(amt.Err(), cur.Err()); err != nil {
		return nil, err
	}
	bal, err := w.loadedBalance()
	if err != nil {
		return nil, err
	}
	if err := requireFunds(bal, cur.Value, amt.Value); err != nil {
		return nil, err
	}

	var receipt *Receipt
	err = w.submit(ctx, FormWithdraw, w.timeouts.Submit, func(ctx context.Context) error {
		bal, err := w.loadedBalance()
		if err != nil {
			return err
		}
		if err := requireFunds(bal, cur.Value, amt.Value); err != nil {
			return err
		}
		stored, err := w.writeBalance(ctx, bal.WithAmount(cur.Value, bal.Amount(cur.Value).Sub(amt.Value)))
		if err != nil {
			return err
		}
		receipt = &Receipt{Balance: *stored, Amount: amt.Value}
		receipt.Transaction = w.recordBestEffort(ctx, models.NewTransaction{
			Type:        models.TransactionWithdrawal,
			Amount:      amt.Value,
			Currency:    cur.Value,
			Description: DescWithdrawal,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.announce(ctx, models.NotificationSuccess, "Withdrawal successful",
		fmt.Sprintf("%s withdrawn from your wallet", models.FormatAmount(amt.Value, cur.Value)))
	return receipt, nil
}

// DepositToSavings moves dinars into a savings goal. The deposit is capped at
// what the goal still needs; a goal that reaches its target is completed.
func (w *Wallet) DepositToSavings(ctx context.Context, goalID string, amount decimal.Decimal) (*Receipt, error) {
	amt := validation.ValidateDecimalAmount(amount)
	if err := amt.Err(); err != nil {
		return nil, err
	}
	bal, err := w.loadedBalance()
	if err != nil {
		return nil, err
	}
	if err := requireFunds(bal, models.CurrencyDZD, amt.Value); err != nil {
		return nil, err
	}

	var (
		receipt *Receipt
		goal    models.SavingsGoal
	)
	err = w.submit(ctx, FormSavingsDeposit, w.timeouts.Submit, func(ctx context.Context) error {
		goals, err := w.store.ListSavingsGoals(ctx, w.userID)
		if err != nil {
			return fmt.Errorf("failed to load savings goals: %w", err)
		}
		found := false
		for _, g := range goals {
			if g.ID == goalID {
				goal, found = g, true
				break
			}
		}
		if !found {
			return ErrGoalNotFound
		}

		deposit := decimal.Min(amt.Value, goal.Remaining())
		if !deposit.IsPositive() {
			return ErrGoalReached
		}

		bal, err := w.loadedBalance()
		if err != nil {
			return err
		}
		if err := requireFunds(bal, models.CurrencyDZD, deposit); err != nil {
			return err
		}
		debited, err := w.writeBalance(ctx, bal.WithAmount(models.CurrencyDZD, bal.DZD.Sub(deposit)))
		if err != nil {
			return err
		}

		current := goal.Deposit(deposit)
		update := models.SavingsGoalUpdate{CurrentAmount: &current}
		if current.GreaterThanOrEqual(goal.TargetAmount) {
			done := models.SavingsGoalCompleted
			update.Status = &done
		}
		if _, err := w.store.UpdateSavingsGoal(ctx, goal.ID, update); err != nil {
			return w.restore(ctx, *debited, models.CurrencyDZD, deposit,
				fmt.Errorf("failed to update savings goal: %w", err))
		}

		receipt = &Receipt{Balance: *debited, Amount: deposit}
		receipt.Transaction = w.recordBestEffort(ctx, models.NewTransaction{
			Type:        models.TransactionTransfer,
			Amount:      deposit,
			Currency:    models.CurrencyDZD,
			Description: DescSavingsDeposit + ": " + goal.Name,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.announce(ctx, models.NotificationSuccess, "Savings deposit",
		fmt.Sprintf("%s added to %s", models.FormatAmount(receipt.Amount, models.CurrencyDZD), goal.Name))
	return receipt, nil
}

// InvestRequest opens a fixed-term investment.
type InvestRequest struct {
	Amount     decimal.Decimal
	Type       models.InvestmentType
	ProfitRate decimal.Decimal
}

// TermEnd returns when an investment of type t started at start matures.
func TermEnd(start time.Time, t models.InvestmentType) time.Time {
	switch t {
	case models.InvestmentWeekly:
		return start.AddDate(0, 0, 7)
	case models.InvestmentQuarterly:
		return start.AddDate(0, 3, 0)
	case models.InvestmentYearly:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// Invest moves dinars into the investment balance and opens an investment.
// The balance move is a single atomic backend operation.
func (w *Wallet) Invest(ctx context.Context, req InvestRequest) (*Receipt, error) {
	amt := validation.ValidateDecimalAmount(req.Amount)
	typ := validation.ValidateInvestmentType(string(req.Type))
	rate := validation.ValidateDecimalProfitRate(req.ProfitRate)
	if err := errors.Join(amt.Err(), typ.Err(), rate.Err()); err != nil {
		return nil, err
	}
	bal, err := w.loadedBalance()
	if err != nil {
		return nil, err
	}
	if err := requireFunds(bal, models.CurrencyDZD, amt.Value); err != nil {
		return nil, err
	}

	var receipt *Receipt
	err = w.submit(ctx, FormInvest, w.timeouts.Submit, func(ctx context.Context) error {
		res, err := w.store.ProcessInvestment(ctx, w.userID, amt.Value, models.OperationInvest)
		if err != nil {
			return fmt.Errorf("failed to invest: %w", err)
		}
		receipt = &Receipt{Balance: w.applyInvestment(res), Amount: amt.Value}

		start := w.now().UTC()
		inv, err := w.store.InsertInvestment(ctx, models.Investment{
			UserID:     w.userID,
			Type:       typ.Value,
			Amount:     amt.Value,
			ProfitRate: rate.Value,
			StartDate:  start,
			EndDate:    TermEnd(start, typ.Value),
			Profit:     decimal.Zero,
			Status:     models.InvestmentActive,
		})
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to record investment")
		} else {
			receipt.Investment = inv
		}

		receipt.Transaction = w.recordBestEffort(ctx, models.NewTransaction{
			Type:        models.TransactionInvestment,
			Amount:      amt.Value,
			Currency:    models.CurrencyDZD,
			Description: fmt.Sprintf("%s (%s)", DescInvestment, typ.Value),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.announce(ctx, models.NotificationSuccess, "Investment started",
		fmt.Sprintf("%s invested on a %s term", models.FormatAmount(amt.Value, models.CurrencyDZD), typ.Value))
	if receipt.Investment == nil {
		w.announce(ctx, models.NotificationError, "Investment not recorded",
			fmt.Sprintf("%s moved to your investment balance but the investment could not be saved. Contact support.",
				models.FormatAmount(amt.Value, models.CurrencyDZD)))
	}
	return receipt, nil
}

// ReturnInvestment moves amount from the investment balance back to dinars.
func (w *Wallet) ReturnInvestment(ctx context.Context, amount decimal.Decimal) (*Receipt, error) {
	amt := validation.ValidateDecimalAmount(amount)
	if err := amt.Err(); err != nil {
		return nil, err
	}
	bal, err := w.loadedBalance()
	if err != nil {
		return nil, err
	}
	if amt.Value.GreaterThan(bal.InvestmentBalance) {
		return nil, fmt.Errorf("%w: %s invested", ErrInsufficientFunds,
			models.FormatAmount(bal.InvestmentBalance, models.CurrencyDZD))
	}

	var receipt *Receipt
	err = w.submit(ctx, FormInvestReturn, w.timeouts.Submit, func(ctx context.Context) error {
		res, err := w.store.ProcessInvestment(ctx, w.userID, amt.Value, models.OperationReturn)
		if err != nil {
			return fmt.Errorf("failed to return investment: %w", err)
		}
		receipt = &Receipt{Balance: w.applyInvestment(res), Amount: amt.Value}
		receipt.Transaction = w.recordBestEffort(ctx, models.NewTransaction{
			Type:        models.TransactionInvestment,
			Amount:      amt.Value,
			Currency:    models.CurrencyDZD,
			Description: DescInvestmentReturn,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.announce(ctx, models.NotificationSuccess, "Investment returned",
		fmt.Sprintf("%s returned to your wallet", models.FormatAmount(amt.Value, models.CurrencyDZD)))
	return receipt, nil
}

// applyInvestment copies the balances reported by the backend into local
// state and returns the result.
func (w *Wallet) applyInvestment(res *models.InvestmentResult) models.Balance {
	w.mu.Lock()
	defer w.mu.Unlock()

	var b models.Balance
	if w.balance != nil {
		b = *w.balance
	}
	b.DZD = res.NewDZDBalance
	b.InvestmentBalance = res.NewInvestmentBalance
	w.balance = &b
	return b
}

// Convert exchanges amount of from into to at the current rate and stores
// both sides in a single balance update.
func (w *Wallet) Convert(ctx context.Context, from, to models.Currency, amount decimal.Decimal) (*Receipt, error) {
	src := validation.ValidateCurrency(string(from))
	dst := validation.ValidateCurrency(string(to))
	amt := validation.ValidateDecimalAmount(amount)
	if err := errors.Join(amt.Err(), src.Err(), dst.Err()); err != nil {
		return nil, err
	}
	if src.Value == dst.Value {
		return nil, ErrSameCurrency
	}
	if w.converter == nil {
		return nil, ErrNoConverter
	}
	bal, err := w.loadedBalance()
	if err != nil {
		return nil, err
	}
	if err := requireFunds(bal, src.Value, amt.Value); err != nil {
		return nil, err
	}

	var receipt *Receipt
	err = w.submit(ctx, FormConvert, w.timeouts.Submit, func(ctx context.Context) error {
		conv, err := w.converter.Convert(ctx, amt.Value, string(src.Value), string(dst.Value))
		if err != nil {
			return fmt.Errorf("failed to get exchange rate: %w", err)
		}

		bal, err := w.loadedBalance()
		if err != nil {
			return err
		}
		if err := requireFunds(bal, src.Value, amt.Value); err != nil {
			return err
		}
		next := bal.WithAmount(src.Value, bal.Amount(src.Value).Sub(amt.Value))
		next = next.WithAmount(dst.Value, next.Amount(dst.Value).Add(conv.Amount))
		stored, err := w.writeBalance(ctx, next)
		if err != nil {
			return err
		}

		receipt = &Receipt{Balance: *stored, Amount: conv.Amount, Rate: conv.Rate}
		receipt.Transaction = w.recordBestEffort(ctx, models.NewTransaction{
			Type:        models.TransactionConversion,
			Amount:      amt.Value,
			Currency:    src.Value,
			Description: fmt.Sprintf("Convert %s to %s", strings.ToUpper(string(src.Value)), strings.ToUpper(string(dst.Value))),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.announce(ctx, models.NotificationSuccess, "Conversion successful",
		fmt.Sprintf("%s converted to %s", models.FormatAmount(amt.Value, src.Value), models.FormatAmount(receipt.Amount, dst.Value)))
	return receipt, nil
}

// ChargeCard moves amount of currency from the main balance onto a card.
// The debit and the card credit are separate backend calls; when the credit
// fails the debit is reversed.
func (w *Wallet) ChargeCard(ctx context.Context, cardID string, currency models.Currency, amount decimal.Decimal) (*Receipt, error) {
	cur := validation.ValidateCurrency(string(currency))
	amt := validation.ValidateDecimalAmount(amount)
	if err := errors.Join(amt.Err(), cur.Err()); err != nil {
		return nil, err
	}
	bal, err := w.loadedBalance()
	if err != nil {
		return nil, err
	}
	if err := requireFunds(bal, cur.Value, amt.Value); err != nil {
		return nil, err
	}

	var (
		receipt *Receipt
		card    models.Card
	)
	err = w.submit(ctx, FormChargeCard, w.timeouts.Submit, func(ctx context.Context) error {
		list, err := w.store.ListCards(ctx, w.userID)
		if err != nil {
			return fmt.Errorf("failed to load cards: %w", err)
		}
		found := false
		for _, c := range list {
			if c.ID == cardID {
				card, found = c, true
				break
			}
		}
		switch {
		case !found:
			return ErrCardNotFound
		case card.IsFrozen:
			return ErrCardFrozen
		case card.Currency != "" && card.Currency != cur.Value:
			return fmt.Errorf("%w: card holds %s", ErrCurrencyMismatch, card.Currency)
		}

		bal, err := w.loadedBalance()
		if err != nil {
			return err
		}
		if err := requireFunds(bal, cur.Value, amt.Value); err != nil {
			return err
		}
		debited, err := w.writeBalance(ctx, bal.WithAmount(cur.Value, bal.Amount(cur.Value).Sub(amt.Value)))
		if err != nil {
			return err
		}

		credited := card.Balance.Add(amt.Value)
		if _, err := w.store.UpdateCard(ctx, card.ID, models.CardUpdate{Balance: &credited}); err != nil {
			return w.restore(ctx, *debited, cur.Value, amt.Value, fmt.Errorf("failed to credit card: %w", err))
		}

		receipt = &Receipt{Balance: *debited, Amount: amt.Value}
		receipt.Transaction = w.recordBestEffort(ctx, models.NewTransaction{
			Type:        models.TransactionTransfer,
			Amount:      amt.Value,
			Currency:    cur.Value,
			Description: DescCardTopUp,
			Recipient:   cards.Mask(card.CardNumber),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.announce(ctx, models.NotificationSuccess, "Card charged",
		fmt.Sprintf("%s moved to your %s card", models.FormatAmount(amt.Value, cur.Value), card.CardType))
	return receipt, nil
}

// TransferInput is a peer-to-peer transfer as entered by the user. Recipient
// is an account number, email or username.
type TransferInput struct {
	Recipient   string
	Amount      decimal.Decimal
	Currency    models.Currency
	Description string
}

// InstantTransfer sends money to another user in one atomic backend call.
func (w *Wallet) InstantTransfer(ctx context.Context, in TransferInput) (*Receipt, error) {
	recipient := strings.TrimSpace(in.Recipient)
	amt := validation.ValidateDecimalAmount(in.Amount)
	cur := validation.ValidateCurrency(string(in.Currency))
	errs := []error{amt.Err(), cur.Err()}
	switch {
	case recipient == "":
		errs = append(errs, &validation.Error{Messages: []string{MsgRecipientRequired}})
	case accountLike.MatchString(recipient):
		acc := validation.ValidateAccountNumber(strings.ToUpper(recipient))
		errs = append(errs, acc.Err())
		recipient = acc.Value
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	bal, err := w.loadedBalance()
	if err != nil {
		return nil, err
	}
	if err := requireFunds(bal, cur.Value, amt.Value); err != nil {
		return nil, err
	}

	var receipt *Receipt
	err = w.submit(ctx, FormInstantTransfer, w.timeouts.Transfer, func(ctx context.Context) error {
		res, err := w.store.ProcessInstantTransfer(ctx, models.TransferRequest{
			SenderID:            w.userID,
			RecipientIdentifier: recipient,
			Amount:              amt.Value,
			Currency:            cur.Value,
			Description:         strings.TrimSpace(in.Description),
		})
		if err != nil {
			return fmt.Errorf("failed to transfer: %w", err)
		}

		w.mu.Lock()
		var b models.Balance
		if w.balance != nil {
			b = *w.balance
		}
		b = b.WithAmount(cur.Value, res.SenderNewBalance)
		w.balance = &b
		w.mu.Unlock()

		receipt = &Receipt{Balance: b, Amount: amt.Value, Reference: res.ReferenceNumber}
		if _, err := w.RefreshTransactions(ctx, 0); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to refresh transactions after transfer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.announce(ctx, models.NotificationSuccess, "Transfer sent",
		fmt.Sprintf("%s sent, reference %s", models.FormatAmount(amt.Value, cur.Value), receipt.Reference))
	return receipt, nil
}
