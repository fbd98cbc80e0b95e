package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"gitlab.com/yelinaung/wallet/internal/logger"
	"gitlab.com/yelinaung/wallet/internal/validation"
)

// Form names one user-facing form. Only one submission per form may be in
// flight.
type Form string

// Forms with a submission guard.
const (
	FormRecharge        Form = "recharge"
	FormWithdraw        Form = "withdraw"
	FormSavingsDeposit  Form = "savings_deposit"
	FormInvest          Form = "invest"
	FormInvestReturn    Form = "investment_return"
	FormConvert         Form = "convert"
	FormChargeCard      Form = "charge_card"
	FormInstantTransfer Form = "instant_transfer"
)

type guard struct {
	mu       sync.Mutex
	inFlight map[Form]bool
}

// acquire marks form as submitting. The returned release must be called.
func (g *guard) acquire(form Form) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight[form] {
		return nil, fmt.Errorf("%s: %w", form, ErrSubmissionInProgress)
	}
	if g.inFlight == nil {
		g.inFlight = make(map[Form]bool)
	}
	g.inFlight[form] = true

	return func() {
		g.mu.Lock()
		delete(g.inFlight, form)
		g.mu.Unlock()
	}, nil
}

// Submitting reports whether form has a submission in flight.
func (w *Wallet) Submitting(form Form) bool {
	w.guard.mu.Lock()
	defer w.guard.mu.Unlock()
	return w.guard.inFlight[form]
}

// submit runs fn for form under the submission guard, a deadline and a span,
// and counts the outcome.
func (w *Wallet) submit(ctx context.Context, form Form, timeout time.Duration, fn func(ctx context.Context) error) error {
	release, err := w.guard.acquire(form)
	if err != nil {
		return err
	}
	defer release()

	w.flow.Lock()
	defer w.flow.Unlock()

	ctx, span := w.tracer.Start(ctx, "wallet."+string(form))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err = fn(ctx)

	outcome := outcomeOf(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		logger.Log.Warn().
			Err(err).
			Str("form", string(form)).
			Str("user_hash", logger.HashUserID(w.userID)).
			Dur("elapsed", time.Since(start)).
			Msg("Wallet operation failed")
	} else {
		logger.Log.Info().
			Str("form", string(form)).
			Str("user_hash", logger.HashUserID(w.userID)).
			Dur("elapsed", time.Since(start)).
			Msg("Wallet operation completed")
	}

	w.ops.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("operation", string(form)),
		attribute.String("outcome", outcome),
	))
	return err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientFunds), validation.IsValidationError(err):
		return "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
