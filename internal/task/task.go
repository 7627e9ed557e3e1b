package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/farmaudit/farmaudit/internal/domain"
)

// Authenticator performs the remote session handshake for one account.
type Authenticator interface {
	// Login runs the handshake to a terminal outcome.
	Login(ctx context.Context) error
	// Cookies materializes the session cookies. Valid only after Login
	// succeeded.
	Cookies(ctx context.Context) error
	// Close releases the underlying transport. Safe to call repeatedly.
	Close()
}

// SignalFetcher retrieves the observable account signals over an
// authenticated transport.
type SignalFetcher interface {
	Bans(ctx context.Context) ([]string, error)
	Level(ctx context.Context) (int, error)
}

// Check wraps one account's end-to-end processing: handshake, cookie
// materialization, then the two signal retrievals, in strict sequence. It
// holds no retry or concurrency logic.
type Check struct {
	Account *domain.Account
	Proxy   string

	session Authenticator
	signals SignalFetcher

	bans  []string
	level int

	stopOnce sync.Once
}

// New builds a check for one account. proxy may be empty for a direct
// connection; it is recorded for logging only, routing happens inside the
// collaborators.
func New(acct *domain.Account, proxy string, session Authenticator, signals SignalFetcher) *Check {
	return &Check{
		Account: acct,
		Proxy:   proxy,
		session: session,
		signals: signals,
	}
}

// Run executes the check. The first failing step short-circuits the rest
// and the whole run reports that failure; signals gathered before the
// failing step remain readable but the caller must treat the check as
// failed.
func (c *Check) Run(ctx context.Context) error {
	if err := c.session.Login(ctx); err != nil {
		return fmt.Errorf("login %s: %w", c.Account.Username, err)
	}
	if err := c.session.Cookies(ctx); err != nil {
		return fmt.Errorf("cookies %s: %w", c.Account.Username, err)
	}

	bans, err := c.signals.Bans(ctx)
	if err != nil {
		return fmt.Errorf("ban status %s: %w", c.Account.Username, err)
	}
	c.bans = bans

	level, err := c.signals.Level(ctx)
	if err != nil {
		return fmt.Errorf("level %s: %w", c.Account.Username, err)
	}
	c.level = level

	return nil
}

// Bans returns the ban reasons observed by the last Run.
func (c *Check) Bans() []string { return c.bans }

// Level returns the profile level observed by the last Run.
func (c *Check) Level() int { return c.level }

// Stop releases the check's transport resource. Idempotent; the check's
// owner calls it exactly once per check on every exit path.
func (c *Check) Stop() {
	c.stopOnce.Do(c.session.Close)
}
