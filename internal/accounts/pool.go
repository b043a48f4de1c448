// Package accounts manages the pool of credentialed scraping accounts:
// rotation, failure tracking, and per-account cooldowns.
package accounts

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/instalens/instalens/internal/config"
)

var (
	// ErrNoneAvailable is returned when no account is eligible right now.
	// It is a backpressure signal, not a failure: callers should retry later.
	ErrNoneAvailable = errors.New("no eligible account available")
	// ErrAccountNotFound is returned for an unknown account id.
	ErrAccountNotFound = errors.New("account not found")
)

// Account is one credential set usable for scraping.
type Account struct {
	ID         string
	Username   string
	Password   string
	Active     bool
	FailCount  int
	LastUsedAt time.Time // zero means never used
}

// Status holds pool counts computed on demand.
type Status struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Available  int `json:"available"`
	InCooldown int `json:"inCooldown"`
}

// Pool is the single source of truth for which account may be used next.
// All mutations are serialized under one mutex; the pool is small and
// contention is rare.
type Pool struct {
	mu       sync.Mutex
	accounts []*Account
	byID     map[string]*Account
	maxFails int
	minDelay time.Duration
	store    *Store // optional persistence
	logger   *slog.Logger
	now      func() time.Time
}

// NewPool creates a pool from the configured credential list. If store is
// non-nil, persisted fail counts, active flags, and last-used stamps are
// overlaid so deactivations survive restarts.
func NewPool(cfg *config.Config, store *Store, logger *slog.Logger) (*Pool, error) {
	p := &Pool{
		byID:     make(map[string]*Account),
		maxFails: cfg.MaxFailsPerAccount,
		minDelay: cfg.MinDelayBetweenUses,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}

	var persisted map[string]PersistedAccount
	if store != nil {
		var err error
		persisted, err = store.LoadAll()
		if err != nil {
			return nil, err
		}
	}

	for _, cred := range cfg.Accounts {
		a := &Account{
			ID:       ulid.Make().String(),
			Username: cred.Username,
			Password: cred.Password,
			Active:   true,
		}
		if prev, ok := persisted[cred.Username]; ok {
			a.ID = prev.ID
			a.Active = prev.Active
			a.FailCount = prev.FailCount
			a.LastUsedAt = prev.LastUsedAt
		}
		p.accounts = append(p.accounts, a)
		p.byID[a.ID] = a
		p.persistLocked(a)
	}

	logger.Info("account pool initialized", "total", len(p.accounts))
	return p, nil
}

// Acquire returns an eligible account, stamping its LastUsedAt so a
// concurrent caller cannot acquire the same account before it starts
// working. Among eligible accounts the one with the oldest LastUsedAt wins
// (never-used counts as oldest), which maximizes inter-use spacing.
func (p *Pool) Acquire() (Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	var pick *Account
	for _, a := range p.accounts {
		if !p.eligibleLocked(a, now) {
			continue
		}
		if pick == nil || olderUse(a, pick) {
			pick = a
		}
	}

	if pick == nil {
		return Account{}, ErrNoneAvailable
	}

	pick.LastUsedAt = now
	p.persistLocked(pick)
	p.logger.Debug("account acquired", "id", pick.ID, "username", pick.Username)

	return *pick, nil
}

// ReportSuccess resets the account's fail count.
func (p *Pool) ReportSuccess(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.byID[id]
	if !ok {
		return
	}
	a.FailCount = 0
	p.persistLocked(a)
}

// ReportFailure increments the account's fail count and deactivates it once
// the limit is reached. Deactivation is one-way; only Reactivate undoes it.
func (p *Pool) ReportFailure(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.byID[id]
	if !ok {
		return
	}
	a.FailCount++
	if a.FailCount >= p.maxFails && a.Active {
		a.Active = false
		p.logger.Warn("account deactivated after repeated failures",
			"id", a.ID,
			"username", a.Username,
			"fail_count", a.FailCount,
		)
	}
	p.persistLocked(a)
}

// Reactivate re-enables a deactivated account and clears its fail count.
// This is a manual operator action.
func (p *Pool) Reactivate(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.Active = true
	a.FailCount = 0
	p.persistLocked(a)
	p.logger.Info("account reactivated", "id", a.ID, "username", a.Username)
	return nil
}

// Status recomputes eligibility for every account at call time.
func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	s := Status{Total: len(p.accounts)}
	for _, a := range p.accounts {
		if !a.Active {
			continue
		}
		s.Active++
		if p.eligibleLocked(a, now) {
			s.Available++
		}
	}
	s.InCooldown = s.Active - s.Available
	return s
}

// eligibleLocked reports whether the account may be handed out right now.
func (p *Pool) eligibleLocked(a *Account, now time.Time) bool {
	if !a.Active || a.FailCount >= p.maxFails {
		return false
	}
	if a.LastUsedAt.IsZero() {
		return true
	}
	return now.Sub(a.LastUsedAt) >= p.minDelay
}

// olderUse reports whether a was used less recently than b.
// A never-used account is treated as oldest.
func olderUse(a, b *Account) bool {
	if a.LastUsedAt.IsZero() {
		return !b.LastUsedAt.IsZero()
	}
	if b.LastUsedAt.IsZero() {
		return false
	}
	return a.LastUsedAt.Before(b.LastUsedAt)
}

func (p *Pool) persistLocked(a *Account) {
	if p.store == nil {
		return
	}
	if err := p.store.Save(&PersistedAccount{
		ID:         a.ID,
		Username:   a.Username,
		Active:     a.Active,
		FailCount:  a.FailCount,
		LastUsedAt: a.LastUsedAt,
	}); err != nil {
		p.logger.Error("failed to persist account state", "id", a.ID, "error", err)
	}
}
