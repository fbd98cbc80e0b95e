package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/logger"
	"gitlab.com/yelinaung/wallet/internal/models"
)

// ErrNotSignedIn is returned by calls that need a session when there is none.
var ErrNotSignedIn = &backend.Error{Message: "Auth session missing", Status: http.StatusUnauthorized}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         *models.User `json:"user"`
}

func (c *Client) sessionFrom(tr tokenResponse) (*backend.Session, error) {
	s := &backend.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if tr.User != nil {
		s.User = *tr.User
	}

	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	claims, err := ParseAccessToken(tr.AccessToken, c.jwtSecret)
	if err != nil {
		if len(c.jwtSecret) > 0 {
			return nil, err
		}
		logger.Log.Debug().Err(err).Msg("Access token is not a decodable JWT")
	} else {
		if s.ExpiresAt.IsZero() {
			s.ExpiresAt = claims.Expiry()
		}
		if s.User.ID == "" {
			s.User.ID = claims.UserID()
			s.User.Email = claims.Email
		}
	}
	return s, nil
}

// SignUp registers an account. The session is nil when the project requires
// email confirmation.
func (c *Client) SignUp(ctx context.Context, email, password string, data models.SignUpData) (*models.User, *backend.Session, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/signup",
		body: map[string]any{
			"email":    email,
			"password": password,
			"data":     data,
		},
		anon: true,
	}, &raw)
	if err != nil {
		return nil, nil, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, nil, fmt.Errorf("failed to decode signup response: %w", err)
	}
	if tr.AccessToken != "" {
		s, err := c.sessionFrom(tr)
		if err != nil {
			return nil, nil, err
		}
		c.SetSession(s)
		user := s.User
		return &user, s, nil
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, nil, fmt.Errorf("failed to decode signup user: %w", err)
	}
	return &user, nil, nil
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	return c.grant(ctx, "password", map[string]string{"email": email, "password": password})
}

// Refresh exchanges the stored refresh token for a new session.
func (c *Client) Refresh(ctx context.Context) (*backend.Session, error) {
	s := c.Session()
	if s == nil || s.RefreshToken == "" {
		return nil, ErrNotSignedIn
	}
	return c.grant(ctx, "refresh_token", map[string]string{"refresh_token": s.RefreshToken})
}

func (c *Client) grant(ctx context.Context, grantType string, body any) (*backend.Session, error) {
	var tr tokenResponse
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": {grantType}},
		body:   body,
		anon:   true,
	}, &tr)
	if err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, backend.NewError(http.StatusBadGateway, "", "token response has no access token")
	}
	s, err := c.sessionFrom(tr)
	if err != nil {
		return nil, err
	}
	c.SetSession(s)
	return s, nil
}

// accessToken returns the bearer for the current session, refreshing it when
// it is about to expire. It returns "" when signed out.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	s := c.Session()
	if s == nil {
		return "", nil
	}
	if !s.Expired(c.now(), c.refreshSkew) {
		return s.AccessToken, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if s = c.Session(); s != nil && !s.Expired(c.now(), c.refreshSkew) {
		return s.AccessToken, nil
	}

	fresh, err := c.Refresh(ctx)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to refresh session")
		return "", fmt.Errorf("failed to refresh session: %w", err)
	}
	logger.Log.Debug().Str("user", logger.HashUserID(fresh.User.ID)).Msg("Session refreshed")
	return fresh.AccessToken, nil
}

// SignOut revokes the session server-side and forgets it locally. The local
// session is cleared even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	if c.Session() == nil {
		return nil
	}
	_, err := c.do(ctx, request{method: http.MethodPost, path: authPath + "/logout"}, nil)
	c.SetSession(nil)
	return err
}

// CurrentUser fetches the signed-in user.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	if c.Session() == nil {
		return nil, ErrNotSignedIn
	}
	var user models.User
	if _, err := c.do(ctx, request{method: http.MethodGet, path: authPath + "/user"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyEmail confirms an email with the token hash from the link. When the
// server answers with a session it becomes the current one.
func (c *Client) VerifyEmail(ctx context.Context, tokenHash, kind string) error {
	if kind == "" {
		kind = "signup"
	}
	var tr tokenResponse
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/verify",
		body:   map[string]string{"type": kind, "token_hash": tokenHash},
		anon:   true,
	}, &tr)
	if err != nil {
		return err
	}
	if tr.AccessToken != "" {
		s, err := c.sessionFrom(tr)
		if err != nil {
			return err
		}
		c.SetSession(s)
	}
	return nil
}

// ResendVerification sends the signup confirmation email again.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	if email == "" {
		return errors.New("email is required to resend verification")
	}
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/resend",
		body:   map[string]string{"type": "signup", "email": email},
		anon:   true,
	}, nil)
	return err
}

// RequestPasswordReset emails a reset link that lands on redirectTo.
func (c *Client) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	var q url.Values
	if redirectTo != "" {
		q = url.Values{"redirect_to": {redirectTo}}
	}
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/recover",
		query:  q,
		body:   map[string]string{"email": email},
		anon:   true,
	}, nil)
	return err
}

// UpdatePassword sets a new password for the signed-in user.
func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	if c.Session() == nil {
		return ErrNotSignedIn
	}
	_, err := c.do(ctx, request{
		method: http.MethodPut,
		path:   authPath + "/user",
		body:   map[string]string{"password": newPassword},
	}, nil)
	return err
}
