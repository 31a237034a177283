// Package api talks to the SidewayQR backend. Every call is a single attempt;
// retry policy belongs to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sidewayqr/internal/auth"
	"sidewayqr/internal/metrics"
	"sidewayqr/internal/model"
	"sidewayqr/internal/scan"
)

const maxBodyBytes = 1 << 20

// CredentialStore is the subset of session.Store the client needs.
type CredentialStore interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, cred string) error
	Clear(ctx context.Context) error
}

// Client calls the backend with the stored session credential attached.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Store   CredentialStore
	Metrics *metrics.Client
	Now     func() time.Time
}

// New creates a client with the given request timeout.
func New(baseURL string, store CredentialStore, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Store:   store,
		HTTP:    &http.Client{Timeout: timeout},
		Now:     time.Now,
	}
}

// Login posts credentials and persists the returned session credential.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload := map[string]string{"email": email, "password": password}
	resp, err := c.do(ctx, "login", http.MethodPost, "/login", payload, "")
	if err != nil {
		return "", &AuthError{Kind: AuthServerError, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &AuthError{Kind: AuthInvalidCredentials, StatusCode: resp.StatusCode}
	default:
		return "", &AuthError{Kind: AuthServerError, StatusCode: resp.StatusCode}
	}

	cred := credentialFrom(resp)
	if cred == "" {
		return "", &AuthError{Kind: AuthServerError, StatusCode: resp.StatusCode, Err: errors.New("response carried no credential")}
	}
	if err := c.Store.Set(ctx, cred); err != nil {
		return "", err
	}
	return cred, nil
}

// Logout forgets the stored credential. It does not call the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.Store.Clear(ctx)
}

// FetchEvents returns the caller's attended events in server order.
func (c *Client) FetchEvents(ctx context.Context) ([]model.Event, error) {
	cred, err := c.credential(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, "events", http.MethodGet, "/events", nil, cred)
	if err != nil {
		return nil, &APIError{Kind: KindServerError, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, &APIError{Kind: KindUnauthenticated, StatusCode: resp.StatusCode}
	default:
		return nil, &APIError{Kind: KindServerError, StatusCode: resp.StatusCode}
	}

	var events []model.Event
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&events); err != nil {
		return nil, &APIError{Kind: KindServerError, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode events: %w", err)}
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// SubmitAttendance posts a scanned code. An error is returned only for
// storage failures, transport failures and statuses outside the outcome table.
func (c *Client) SubmitAttendance(ctx context.Context, cmd scan.Command) (Outcome, error) {
	cred, err := c.credential(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			c.Metrics.ObserveOutcome(OutcomeUnauthenticated.String())
			return OutcomeUnauthenticated, nil
		}
		return OutcomeNone, err
	}

	path := fmt.Sprintf("/events/%d/attend", cmd.EventID)
	resp, err := c.do(ctx, "attend", http.MethodPost, path, map[string]string{"code": cmd.Code}, cred)
	if err != nil {
		return OutcomeNone, &APIError{Kind: KindServerError, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	outcome, ok := OutcomeForStatus(resp.StatusCode)
	if !ok {
		return OutcomeNone, &APIError{Kind: KindServerError, StatusCode: resp.StatusCode}
	}
	c.Metrics.ObserveOutcome(outcome.String())
	return outcome, nil
}

// credential reads the store once. A missing or locally expired credential
// is reported as unauthenticated without touching the network.
func (c *Client) credential(ctx context.Context) (string, error) {
	cred, ok, err := c.Store.Get(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &APIError{Kind: KindUnauthenticated, Err: errors.New("no stored credential")}
	}
	if auth.Expired(cred, c.now()) {
		return "", &APIError{Kind: KindUnauthenticated, Err: errors.New("stored credential expired")}
	}
	return cred, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, payload any, cred string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred != "" {
		req.Header.Set("Cookie", cred)
	}

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.Metrics.ObserveRequest(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	c.Metrics.ObserveRequest(endpoint, resp.StatusCode, time.Since(start))
	return resp, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// credentialFrom prefers Set-Cookie values, joined as a Cookie header, and
// falls back to a JSON body of the form {"token": "..."}, stored as the
// session cookie.
func credentialFrom(resp *http.Response) string {
	var pairs []string
	for _, ck := range resp.Cookies() {
		if ck.Value == "" || ck.MaxAge < 0 {
			continue
		}
		pairs = append(pairs, ck.Name+"="+ck.Value)
	}
	if len(pairs) > 0 {
		return strings.Join(pairs, "; ")
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return ""
	}
	token := strings.TrimSpace(out.Token)
	if token == "" || strings.Contains(token, "=") {
		return token
	}
	// A bare token is only readable by the server as a named cookie.
	return auth.CookieName + "=" + token
}
