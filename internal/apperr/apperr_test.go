package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/validation"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"validation", validation.ValidateEmail("").Err(), KindValidation},
		{"wrapped validation", fmt.Errorf("failed to sign in: %w", validation.ValidatePassword("x").Err()), KindValidation},
		{"deadline", fmt.Errorf("failed to load balance: %w", context.DeadlineExceeded), KindNetwork},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindNetwork},
		{"fetch message", errors.New("Failed to fetch"), KindNetwork},
		{"timeout message", errors.New("request timeout"), KindNetwork},
		{"credentials", &backend.Error{Message: "Invalid login credentials", Status: 400}, KindBusiness},
		{"not found", backend.NotFound("balance"), KindBusiness},
		{"rejected rpc", backend.Rejected("daily limit exceeded"), KindBusiness},
		{"client status", backend.NewError(http.StatusConflict, "", "conflict"), KindBusiness},
		{"server status", backend.NewError(http.StatusBadGateway, "", ""), KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestMessageSignIn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"credentials", &backend.Error{Message: "Invalid login credentials", Status: 400}, MsgInvalidCredential},
		{"unconfirmed", &backend.Error{Message: "Email not confirmed", Status: 400}, MsgEmailNotConfirmed},
		{"rate limit text", &backend.Error{Message: "Too many requests", Status: 429}, MsgTooManyRequests},
		{"unknown user", &backend.Error{Message: "User not found"}, MsgUserNotFound},
		{"logins disabled", &backend.Error{Message: "Email logins are disabled"}, MsgLoginsDisabled},
		{"disabled", &backend.Error{Message: "Signups not allowed, provider disabled"}, MsgServiceDisabled},
		{"network text", errors.New("TypeError: Failed to fetch"), MsgNetwork},
		{"timeout text", errors.New("gateway timeout"), MsgTimeout},
		{"deadline", context.DeadlineExceeded, MsgTimeout},
		{"net timeout", timeoutErr{}, MsgTimeout},
		{"dial failure", &net.OpError{Op: "dial", Err: errors.New("refused")}, MsgNetwork},
		{"status 400", backend.NewError(400, "", "weird"), MsgBadCredentialData},
		{"status 401", backend.NewError(401, "", "nope"), MsgUnauthorized},
		{"status 422", backend.NewError(422, "", "bad"), MsgUnprocessable},
		{"status 429", backend.NewError(429, "", "slow down"), MsgRateLimited},
		{"status 503", backend.NewError(503, "", "down"), MsgServer},
		{"unclassified", errors.New("boom"), MsgUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Message(OpSignIn, tt.err))
		})
	}
}

func TestMessageSignUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"duplicate", &backend.Error{Message: "User already registered", Status: 422}, MsgAlreadyRegistered},
		{"password", &backend.Error{Message: "Password should be at least 6 characters", Status: 422}, MsgWeakPassword},
		{"email", &backend.Error{Message: "Invalid email address", Status: 400}, MsgInvalidEmail},
		{"signup disabled", &backend.Error{Message: "Signup is disabled"}, MsgSignupDisabled},
		{"database", &backend.Error{Message: "Database error saving new user", Status: 500}, MsgDatabase},
		{"session", errors.New("AuthSessionMissingError: Auth session missing!"), MsgSessionMissing},
		{"status 400", backend.NewError(400, "", "bad"), MsgBadRequest},
		{"status 500", backend.NewError(500, "", "oops"), MsgServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Message(OpSignUp, tt.err))
		})
	}
}

func TestMessageGeneric(t *testing.T) {
	t.Parallel()

	require.Empty(t, Message(OpGeneric, nil))
	require.Equal(t, validation.MsgAmountZero, Message(OpGeneric, validation.ParseAmount("0").Err()))
	require.Equal(t, "recipient not found", Message(OpGeneric, backend.Rejected("recipient not found")))
	require.Equal(t, MsgNotFound, Message(OpGeneric, backend.NotFound("card")))
	require.Equal(t, MsgUnexpected, Message(OpGeneric, errors.New("boom")))
}

func TestHint(t *testing.T) {
	t.Parallel()

	require.Empty(t, Hint(OpSignIn, nil))
	require.Empty(t, Hint(OpSignUp, errors.New("x")))
	require.Equal(t, HintLoginsDisabled, Hint(OpSignIn, &backend.Error{Message: "Email logins are disabled"}))
	require.Equal(t, HintCheckInput, Hint(OpSignIn, &backend.Error{Message: "Invalid login credentials"}))
}

func TestKindString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "network", KindNetwork.String())
	require.Equal(t, "unknown", Kind(99).String())
}
