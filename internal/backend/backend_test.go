package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/wallet/internal/models"
)

func TestError(t *testing.T) {
	t.Parallel()

	t.Run("message with code", func(t *testing.T) {
		t.Parallel()
		err := NewError(http.StatusBadRequest, "23505", "duplicate key")
		require.Equal(t, "duplicate key (code 23505)", err.Error())
	})

	t.Run("defaults message from status", func(t *testing.T) {
		t.Parallel()
		err := NewError(http.StatusServiceUnavailable, "", "")
		require.Equal(t, "Service Unavailable", err.Message)

		err = NewError(0, "", "")
		require.Equal(t, "unknown backend error", err.Message)
	})

	t.Run("not found survives wrapping", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("failed to get balance: %w", NotFound("balance"))
		require.True(t, IsNotFound(err))
		require.False(t, IsNotFound(errors.New("balance not found")))

		be, ok := AsError(err)
		require.True(t, ok)
		require.Equal(t, "balance not found", be.Message)
	})

	t.Run("rejected carries server message", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "daily limit exceeded (code rejected)", Rejected("daily limit exceeded").Error())
		require.Equal(t, "operation rejected", Rejected("").Message)
	})

	t.Run("unwraps cause", func(t *testing.T) {
		t.Parallel()
		err := &Error{Message: "request failed", Err: context.DeadlineExceeded}
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSessionExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	var nilSession *Session
	require.True(t, nilSession.Expired(now, 0))
	require.True(t, (&Session{}).Expired(now, 0))
	require.False(t, (&Session{AccessToken: "t"}).Expired(now, 0))
	require.False(t, (&Session{AccessToken: "t", ExpiresAt: now.Add(time.Hour)}).Expired(now, time.Minute))
	require.True(t, (&Session{AccessToken: "t", ExpiresAt: now.Add(30 * time.Second)}).Expired(now, time.Minute))
}

func TestFullBalanceUpdate(t *testing.T) {
	t.Parallel()

	b := models.Balance{DZD: decimal.NewFromInt(10), InvestmentBalance: decimal.NewFromInt(3)}
	u := FullBalanceUpdate(b)
	require.NotNil(t, u.DZD)
	require.NotNil(t, u.EUR)
	require.True(t, u.DZD.Equal(decimal.NewFromInt(10)))
	require.True(t, u.InvestmentBalance.Equal(decimal.NewFromInt(3)))
}
