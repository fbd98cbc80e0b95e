// Package supabase implements the backend interfaces over the hosted
// service's HTTP API: GoTrue for auth and PostgREST for tables and RPCs.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/logger"
)

const (
	authPath = "/auth/v1"
	restPath = "/rest/v1"

	defaultRefreshSkew = 60 * time.Second
	maxErrorBody       = 64 << 10
)

// Client talks to one project. It holds the current session and refreshes
// it before expiry. It is safe for concurrent use.
type Client struct {
	baseURL     string
	anonKey     string
	jwtSecret   []byte
	httpClient  *http.Client
	now         func() time.Time
	refreshSkew time.Duration

	mu      sync.RWMutex
	session *backend.Session

	refreshMu sync.Mutex
}

var (
	_ backend.Auth  = (*Client)(nil)
	_ backend.Store = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithJWTSecret enables signature verification of access tokens.
func WithJWTSecret(secret string) Option {
	return func(c *Client) {
		if secret != "" {
			c.jwtSecret = []byte(secret)
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRefreshSkew sets how long before expiry a session is refreshed.
func WithRefreshSkew(d time.Duration) Option {
	return func(c *Client) { c.refreshSkew = d }
}

// New creates a client for the project at baseURL.
func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		anonKey: anonKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now:         time.Now,
		refreshSkew: defaultRefreshSkew,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a copy of the current session, or nil when signed out.
func (c *Client) Session() *backend.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// SetSession installs a previously obtained session.
func (c *Client) SetSession(s *backend.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// request describes one call to the API.
type request struct {
	method string
	path   string
	query  url.Values
	body   any

	// single asks PostgREST for exactly one object instead of an array.
	single bool
	// returning asks PostgREST to echo written rows.
	returning bool
	// count asks PostgREST for an exact row count in Content-Range.
	count bool
	// anon sends the anonymous key as bearer even when signed in.
	anon bool
}

// do executes req and decodes a successful body into out when out is not nil.
func (c *Client) do(ctx context.Context, req request, out any) (http.Header, error) {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", req.path, err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", req.path, err)
	}

	token := c.anonKey
	if !req.anon {
		t, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		if t != "" {
			token = t
		}
	}

	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.single {
		httpReq.Header.Set("Accept", "application/vnd.pgrst.object+json")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	var prefer []string
	if req.returning {
		prefer = append(prefer, "return=representation")
	}
	if req.count {
		prefer = append(prefer, "count=exact")
	}
	if len(prefer) > 0 {
		httpReq.Header.Set("Prefer", strings.Join(prefer, ","))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &backend.Error{Message: "network request failed: " + err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || req.method == http.MethodHead {
		return resp.Header, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.Header, fmt.Errorf("failed to decode %s response: %w", req.path, err)
	}
	return resp.Header, nil
}

// apiError covers both GoTrue and PostgREST error bodies.
type apiError struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Details          string `json:"details"`
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload apiError
	if err := json.Unmarshal(raw, &payload); err != nil {
		msg := strings.TrimSpace(string(raw))
		return backend.NewError(resp.StatusCode, "", msg)
	}

	msg := firstNonEmpty(payload.ErrorDescription, payload.Message, payload.Msg, payload.Error)
	code := payload.ErrorCode
	if s, ok := payload.Code.(string); ok && s != "" {
		code = s
	}
	if code == "" && payload.Error != "" && payload.Error != msg {
		code = payload.Error
	}
	return backend.NewError(resp.StatusCode, code, msg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseCount reads the total from a Content-Range header like "0-9/42" or "*/42".
func parseCount(h http.Header) (int, error) {
	cr := h.Get("Content-Range")
	_, total, ok := strings.Cut(cr, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("missing row count in Content-Range %q", cr)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("invalid row count in Content-Range %q: %w", cr, err)
	}
	return n, nil
}

var errNoRows = errors.New("no rows returned")

// first returns the first row of a set-returning RPC.
func first[T any](rows []T, fn string) (*T, error) {
	if len(rows) == 0 {
		logger.Log.Warn().Str("rpc", fn).Msg("RPC returned no rows")
		return nil, fmt.Errorf("%s: %w", fn, errNoRows)
	}
	return &rows[0], nil
}
