// Package session drives one authenticated browser session bound to a
// single scraping account.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/instalens/instalens/internal/accounts"
	"github.com/instalens/instalens/internal/browser"
	"github.com/instalens/instalens/internal/config"
)

// State is the session driver's lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateLoggedOut     State = "logged_out"
	StateLoggingIn     State = "logging_in"
	StateLoggedIn      State = "logged_in"
	StateExpired       State = "expired"
	StateClosed        State = "closed"
)

var (
	// ErrLoginFailed signals an ordinary authentication failure: timeout,
	// still on the login or challenge page, or a navigation error. It is
	// attributed to the account that was used.
	ErrLoginFailed = errors.New("login did not reach an authenticated state")
	// ErrInvalidState is returned when Login is called from a state other
	// than LoggedOut or Expired.
	ErrInvalidState = errors.New("login not valid from current state")
	// ErrClosed is returned when the driver has been closed.
	ErrClosed = errors.New("session is closed")
)

const (
	loginURL = "https://www.instagram.com/accounts/login/"

	usernameSelector = `input[name="username"]`
	passwordSelector = `input[name="password"]`
	submitSelector   = `button[type="submit"]`
)

// blockedURLPatterns mark URLs that mean authentication did not complete:
// still on the login surface, or bounced to a challenge flow.
var blockedURLPatterns = []string{
	"/accounts/login",
	"/challenge",
	"/two_factor",
	"/accounts/suspended",
}

// Driver owns one browser context and walks it through
// login -> authenticated -> expired transitions. It is safe for concurrent
// use, but callers are expected to serialize whole scrape flows around it.
type Driver struct {
	mu              sync.Mutex
	launcher        browser.Launcher
	page            browser.Page
	state           State
	accountID       string
	authenticatedAt time.Time
	cfg             *config.Config
	logger          *slog.Logger
	dismisser       *Dismisser
	now             func() time.Time
	pollInterval    time.Duration
}

// NewDriver creates a session driver. The browser is not launched until
// Initialize.
func NewDriver(launcher browser.Launcher, cfg *config.Config, logger *slog.Logger) *Driver {
	return &Driver{
		launcher:     launcher,
		state:        StateUninitialized,
		cfg:          cfg,
		logger:       logger,
		dismisser:    NewDismisser(logger),
		now:          time.Now,
		pollInterval: 500 * time.Millisecond,
	}
}

// Initialize allocates the browser resource. Idempotent if already
// initialized. A failure here is driver-fatal and is not attributed to any
// account.
func (d *Driver) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateClosed {
		return ErrClosed
	}
	if d.page != nil {
		return nil
	}

	d.state = StateInitializing
	page, err := d.launcher.Launch(ctx)
	if err != nil {
		d.state = StateUninitialized
		return fmt.Errorf("browser launch: %w", err)
	}

	d.page = page
	d.state = StateLoggedOut
	d.logger.Debug("session initialized")
	return nil
}

// Login authenticates the session with the given account. Valid only from
// LoggedOut or Expired (a stale LoggedIn session is treated as Expired).
// Ordinary auth failures return ErrLoginFailed and leave the state
// LoggedOut; they never panic past this boundary.
func (d *Driver) Login(ctx context.Context, acct accounts.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateClosed {
		return ErrClosed
	}
	if d.page == nil {
		return fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}

	d.expireLocked()
	if d.state != StateLoggedOut && d.state != StateExpired {
		return fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}

	d.state = StateLoggingIn
	d.logger.Info("logging in", "account_id", acct.ID, "username", acct.Username)

	if err := d.loginLocked(ctx, acct); err != nil {
		d.state = StateLoggedOut
		d.logger.Warn("login failed", "account_id", acct.ID, "error", err)
		return err
	}

	d.state = StateLoggedIn
	d.accountID = acct.ID
	d.authenticatedAt = d.now()
	d.logger.Info("login succeeded", "account_id", acct.ID)
	return nil
}

func (d *Driver) loginLocked(ctx context.Context, acct accounts.Account) error {
	timeout := d.cfg.LoginTimeout

	if err := d.page.Navigate(loginURL, timeout); err != nil {
		return fmt.Errorf("%w: navigating to login page: %v", ErrLoginFailed, err)
	}

	if res := d.page.WaitElement(usernameSelector, timeout); !res.Found {
		if res.Err != nil {
			return fmt.Errorf("%w: waiting for username field: %v", ErrLoginFailed, res.Err)
		}
		return fmt.Errorf("%w: username field never appeared", ErrLoginFailed)
	}

	if err := d.page.Input(usernameSelector, acct.Username, timeout); err != nil {
		return fmt.Errorf("%w: filling username: %v", ErrLoginFailed, err)
	}
	if err := d.page.Input(passwordSelector, acct.Password, timeout); err != nil {
		return fmt.Errorf("%w: filling password: %v", ErrLoginFailed, err)
	}
	if err := d.page.Click(submitSelector, timeout); err != nil {
		return fmt.Errorf("%w: submitting form: %v", ErrLoginFailed, err)
	}

	if err := d.waitPostLoginNavigation(ctx, timeout); err != nil {
		return err
	}

	url, err := d.page.CurrentURL()
	if err != nil {
		return fmt.Errorf("%w: reading post-login URL: %v", ErrLoginFailed, err)
	}
	if urlBlocked(url) {
		return fmt.Errorf("%w: still on login or challenge page: %s", ErrLoginFailed, url)
	}

	// Dismiss "save login info" / notification dialogs if present.
	// Absence of a dialog is not an error.
	d.dismisser.Dismiss(d.page)

	return nil
}

// waitPostLoginNavigation polls until the page leaves the login URL or the
// timeout elapses. Still being on a blocked URL at the deadline is reported
// by the caller's URL check, not here.
func (d *Driver) waitPostLoginNavigation(ctx context.Context, timeout time.Duration) error {
	deadline := d.now().Add(timeout)
	for d.now().Before(deadline) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrLoginFailed, ctx.Err())
		case <-time.After(d.pollInterval):
		}

		url, err := d.page.CurrentURL()
		if err != nil {
			return fmt.Errorf("%w: reading URL: %v", ErrLoginFailed, err)
		}
		if !urlBlocked(url) {
			return nil
		}
	}
	return nil
}

// IsSessionValid reports whether the session can be used for navigation
// right now: authenticated and within the TTL window.
func (d *Driver) IsSessionValid() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateLoggedIn {
		return false
	}
	return d.now().Sub(d.authenticatedAt) < d.cfg.SessionTTL
}

// State returns the current lifecycle state, downgrading a stale LoggedIn
// to Expired.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expireLocked()
	return d.state
}

// AccountID returns the id of the account this session authenticated as.
func (d *Driver) AccountID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accountID
}

// Page returns the underlying page handle. Only meaningful while the
// session is valid.
func (d *Driver) Page() browser.Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page
}

// Close releases the browser resource exactly once. Safe to call multiple
// times and on every exit path.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateClosed {
		return
	}
	if d.page != nil {
		if err := d.page.Close(); err != nil {
			d.logger.Warn("error closing browser", "error", err)
		}
		d.page = nil
	}
	d.state = StateClosed
	d.logger.Debug("session closed")
}

func (d *Driver) expireLocked() {
	if d.state == StateLoggedIn && d.now().Sub(d.authenticatedAt) >= d.cfg.SessionTTL {
		d.state = StateExpired
	}
}

func urlBlocked(url string) bool {
	for _, pattern := range blockedURLPatterns {
		if strings.Contains(url, pattern) {
			return true
		}
	}
	return false
}
