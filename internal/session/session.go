package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
)

// DefaultTimeout is the fixed ceiling on the authentication handshake.
// Exceeding it cancels the handshake and surfaces ErrTimeout.
const DefaultTimeout = 35 * time.Second

var (
	// ErrTimeout reports that the handshake hit its ceiling.
	ErrTimeout = errors.New("handshake timed out")
	// ErrActionRequired reports that the service demanded an interactive
	// confirmation step, which this tool does not support.
	ErrActionRequired = errors.New("account requires interactive confirmation")
	// ErrNotAuthenticated guards the cookie step against running before a
	// successful handshake.
	ErrNotAuthenticated = errors.New("session not authenticated")
)

// Options configures one account's session.
type Options struct {
	Username     string
	Password     string
	SharedSecret string // optional TOTP secret; empty disables the code step
	Proxy        string // optional proxy address; scheme defaults to http
	BaseURL      string
	Timeout      time.Duration

	// Client overrides the HTTP client, used by tests. When nil a client
	// with a fresh cookie jar and the proxy-routed transport is built.
	Client *http.Client
}

// Client holds one account's exclusive session transport. It is owned by a
// single check and never shared across tasks.
type Client struct {
	opts          Options
	hc            *http.Client
	authenticated bool
	closeOnce     sync.Once
}

// New builds a session client. An unparsable proxy address falls back to a
// direct connection; the handshake will then fail on the service's side
// rather than here.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	hc := opts.Client
	if hc == nil {
		transport := &http.Transport{}
		if opts.Proxy != "" {
			if u, err := url.Parse(withScheme(opts.Proxy)); err == nil {
				transport.Proxy = http.ProxyURL(u)
			}
		}
		jar, _ := cookiejar.New(nil)
		hc = &http.Client{Jar: jar, Transport: transport}
	}

	return &Client{opts: opts, hc: hc}
}

// outcome is one terminal handshake event.
type outcome struct {
	status string
	err    error
}

// Login runs the multi-step handshake, racing the configured timeout. Each
// terminal event resolves the result exactly once; late duplicates are
// swallowed.
func (c *Client) Login(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	results := make(chan outcome, 1)
	go c.negotiate(ctx, results)

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	case out := <-results:
		if out.err != nil {
			return out.err
		}
		switch out.status {
		case "ok":
			c.authenticated = true
			return nil
		case "action_required":
			return ErrActionRequired
		default:
			return fmt.Errorf("unexpected handshake status %q", out.status)
		}
	}
}

func (c *Client) negotiate(ctx context.Context, results chan<- outcome) {
	// One buffered slot plus a non-blocking send guard against a step
	// resolving after the race already settled.
	deliver := func(o outcome) {
		select {
		case results <- o:
		default:
		}
	}

	var init struct {
		ChallengeID string `json:"challenge_id"`
	}
	form := url.Values{"username": {c.opts.Username}}
	if err := c.postForm(ctx, "/login/init", form, &init); err != nil {
		deliver(outcome{err: fmt.Errorf("handshake init: %w", err)})
		return
	}

	form = url.Values{
		"challenge_id": {init.ChallengeID},
		"password":     {c.opts.Password},
	}
	if c.opts.SharedSecret != "" {
		if code, err := totp.GenerateCode(c.opts.SharedSecret, time.Now()); err == nil {
			form.Set("code", code)
		}
	}

	var auth struct {
		Status string `json:"status"`
	}
	if err := c.postForm(ctx, "/login/authenticate", form, &auth); err != nil {
		deliver(outcome{err: fmt.Errorf("handshake authenticate: %w", err)})
		return
	}
	deliver(outcome{status: auth.Status})
}

// Cookies materializes the session cookies into the client's jar. It must
// only run after Login succeeded.
func (c *Client) Cookies(ctx context.Context) error {
	if !c.authenticated {
		return ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/account", nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cookie materialization: http status %d", resp.StatusCode)
	}
	return nil
}

// HTTPClient exposes the authenticated transport for signal retrieval.
func (c *Client) HTTPClient() *http.Client { return c.hc }

// Close releases the transport. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(c.hc.CloseIdleConnections)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("http status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func withScheme(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return "http://" + addr
}
