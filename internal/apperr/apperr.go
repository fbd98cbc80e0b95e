// Package apperr classifies failures and maps them to user-facing messages.
package apperr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/validation"
)

// Kind is the category of a failure.
type Kind int

// Failure categories.
const (
	KindNone Kind = iota
	KindValidation
	KindNetwork
	KindBusiness
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// Op selects the message table used for an operation.
type Op string

// Operations with dedicated messages.
const (
	OpGeneric Op = ""
	OpSignIn  Op = "sign_in"
	OpSignUp  Op = "sign_up"
)

// User-facing messages.
const (
	MsgUnexpected        = "An unexpected error occurred"
	MsgNetwork           = "Connection problem. Check your internet connection and try again"
	MsgTimeout           = "The connection timed out. Please try again"
	MsgInvalidCredential = "Incorrect email or password"
	MsgEmailNotConfirmed = "Please confirm your email using the message we sent you"
	MsgTooManyRequests   = "Too many attempts. Please wait 5 minutes before trying again"
	MsgUserNotFound      = "No account is registered with this email. Please sign up first"
	MsgLoginsDisabled    = "Email sign-in is disabled. Please contact support"
	MsgServiceDisabled   = "The service is temporarily disabled. Please try again later"
	MsgSessionMissing    = "Authentication is misconfigured. Please reload and try again"
	MsgAlreadyRegistered = "This email is already registered. Use another email or sign in"
	MsgWeakPassword      = "Password must be at least 6 characters"
	MsgInvalidEmail      = "Email address is invalid"
	MsgSignupDisabled    = "Registration is temporarily disabled. Please try again later or contact support"
	MsgDatabase          = "Database error. Please try again or contact support"
	MsgNotFound          = "The requested record was not found"
	MsgBadRequest        = "Invalid data. Check all required fields"
	MsgBadCredentialData = "Invalid data. Check your email and password"
	MsgUnauthorized      = "Sign-in details are incorrect"
	MsgUnprocessable     = "The submitted data is invalid. Please review all fields"
	MsgRateLimited       = "Too many requests. Please wait before trying again"
	MsgServer            = "Server error. Please try again later"
)

// Login hints shown under the error banner.
const (
	HintLoginsDisabled = "Email sign-in appears to be disabled on the server. Please contact support."
	HintCheckInput     = "Tip: check your email and password, or your internet connection."
)

type rule struct {
	needles []string
	message string
	kind    Kind
}

var signInRules = []rule{
	{[]string{"Invalid login credentials", "Invalid credentials", "invalid_credentials"}, MsgInvalidCredential, KindBusiness},
	{[]string{"Email not confirmed"}, MsgEmailNotConfirmed, KindBusiness},
	{[]string{"Too many requests"}, MsgTooManyRequests, KindBusiness},
	{[]string{"User not found"}, MsgUserNotFound, KindBusiness},
	{[]string{"logins are disabled"}, MsgLoginsDisabled, KindBusiness},
	{[]string{"disabled"}, MsgServiceDisabled, KindBusiness},
	{[]string{"fetch", "network", "Network"}, MsgNetwork, KindNetwork},
	{[]string{"timeout"}, MsgTimeout, KindNetwork},
}

var signUpRules = []rule{
	{[]string{"AuthSessionMissingError", "Auth session missing"}, MsgSessionMissing, KindBusiness},
	{[]string{"already registered", "already exists"}, MsgAlreadyRegistered, KindBusiness},
	{[]string{"Password"}, MsgWeakPassword, KindBusiness},
	{[]string{"Invalid email"}, MsgInvalidEmail, KindBusiness},
	{[]string{"Signup is disabled", "signup is disabled"}, MsgSignupDisabled, KindBusiness},
	{[]string{"logins are disabled"}, MsgLoginsDisabled, KindBusiness},
	{[]string{"disabled"}, MsgServiceDisabled, KindBusiness},
	{[]string{"Database error", "database"}, MsgDatabase, KindBusiness},
	{[]string{"fetch", "network", "Network"}, MsgNetwork, KindNetwork},
	{[]string{"timeout"}, MsgTimeout, KindNetwork},
}

var genericRules = []rule{
	{[]string{"Invalid login credentials", "invalid_credentials"}, MsgInvalidCredential, KindBusiness},
	{[]string{"already registered", "already exists"}, MsgAlreadyRegistered, KindBusiness},
	{[]string{"User not found"}, MsgUserNotFound, KindBusiness},
	{[]string{"logins are disabled"}, MsgLoginsDisabled, KindBusiness},
	{[]string{"disabled"}, MsgServiceDisabled, KindBusiness},
	{[]string{"Database error"}, MsgDatabase, KindBusiness},
	{[]string{"fetch", "network", "Network"}, MsgNetwork, KindNetwork},
	{[]string{"timeout"}, MsgTimeout, KindNetwork},
}

func rulesFor(op Op) []rule {
	switch op {
	case OpSignIn:
		return signInRules
	case OpSignUp:
		return signUpRules
	default:
		return genericRules
	}
}

func match(rules []rule, msg string) (rule, bool) {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(msg, n) {
				return r, true
			}
		}
	}
	return rule{}, false
}

// isTransport reports failures that never reached the backend or never came
// back from it.
func isTransport(err error) (timeout, ok bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return true, true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout(), true
	}
	return false, false
}

// Classify returns the category of err.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if validation.IsValidationError(err) {
		return KindValidation
	}
	if _, ok := isTransport(err); ok {
		return KindNetwork
	}
	if r, ok := match(genericRules, err.Error()); ok {
		return r.kind
	}
	if be, ok := backend.AsError(err); ok {
		if be.Code == backend.CodeNotFound || be.Code == backend.CodeRejected {
			return KindBusiness
		}
		if be.Status >= 400 && be.Status < 500 {
			return KindBusiness
		}
	}
	return KindUnknown
}

// Message converts err into the message shown to the user for op.
// Validation messages pass through unchanged.
func Message(op Op, err error) string {
	if err == nil {
		return ""
	}

	var ve *validation.Error
	if errors.As(err, &ve) {
		return ve.Error()
	}

	if timeout, ok := isTransport(err); ok {
		if timeout {
			return MsgTimeout
		}
		return MsgNetwork
	}

	be, isBackend := backend.AsError(err)
	text := err.Error()
	if isBackend {
		text = be.Message
	}

	if r, ok := match(rulesFor(op), text); ok {
		return r.message
	}

	if isBackend {
		if be.Code == backend.CodeRejected {
			return be.Message
		}
		if be.Code == backend.CodeNotFound {
			return MsgNotFound
		}
		if msg := statusMessage(op, be.Status); msg != "" {
			return msg
		}
	}

	return MsgUnexpected
}

func statusMessage(op Op, status int) string {
	switch {
	case status == http.StatusBadRequest:
		if op == OpSignIn {
			return MsgBadCredentialData
		}
		return MsgBadRequest
	case status == http.StatusUnauthorized:
		return MsgUnauthorized
	case status == http.StatusUnprocessableEntity:
		return MsgUnprocessable
	case status == http.StatusTooManyRequests:
		return MsgRateLimited
	case status >= http.StatusInternalServerError:
		return MsgServer
	}
	return ""
}

// Hint returns the secondary line shown under a sign-in error.
func Hint(op Op, err error) string {
	if op != OpSignIn || err == nil {
		return ""
	}
	if Message(op, err) == MsgLoginsDisabled {
		return HintLoginsDisabled
	}
	return HintCheckInput
}
