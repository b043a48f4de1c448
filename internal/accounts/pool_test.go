package accounts

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/instalens/instalens/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func testConfig(creds ...config.Credential) *config.Config {
	return &config.Config{
		Accounts:            creds,
		MaxFailsPerAccount:  3,
		MinDelayBetweenUses: 5 * time.Minute,
	}
}

func newTestPool(t *testing.T, cfg *config.Config) (*Pool, *time.Time) {
	t.Helper()
	p, err := NewPool(cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("creating pool: %v", err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	return p, &now
}

func creds(usernames ...string) []config.Credential {
	var out []config.Credential
	for _, u := range usernames {
		out = append(out, config.Credential{Username: u, Password: "pw"})
	}
	return out
}

func TestAcquireRotatesOldestFirst(t *testing.T) {
	p, now := newTestPool(t, testConfig(creds("bot1", "bot2")...))

	a, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second acquire must pick the other, never-used account.
	b, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Username == b.Username {
		t.Fatalf("expected rotation, got %q twice", a.Username)
	}

	// With both in cooldown, advancing past the delay makes the first
	// used account eligible again: strict alternation.
	*now = now.Add(6 * time.Minute)
	c, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Username != a.Username {
		t.Errorf("expected %q (oldest use), got %q", a.Username, c.Username)
	}
}

func TestAcquireRespectsCooldown(t *testing.T) {
	p, now := newTestPool(t, testConfig(creds("bot1")...))

	if _, err := p.Acquire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Acquire(); !errors.Is(err, ErrNoneAvailable) {
		t.Fatalf("expected ErrNoneAvailable during cooldown, got %v", err)
	}

	// One nanosecond short of the delay is still a cooldown.
	*now = now.Add(5*time.Minute - time.Nanosecond)
	if _, err := p.Acquire(); !errors.Is(err, ErrNoneAvailable) {
		t.Fatalf("expected ErrNoneAvailable just before delay elapses, got %v", err)
	}

	*now = now.Add(time.Nanosecond)
	if _, err := p.Acquire(); err != nil {
		t.Errorf("expected eligibility at the delay boundary, got %v", err)
	}
}

func TestAcquireExhaustion(t *testing.T) {
	p, _ := newTestPool(t, testConfig(creds("bot1", "bot2", "bot3")...))

	for i := 0; i < 3; i++ {
		if _, err := p.Acquire(); err != nil {
			t.Fatalf("acquire %d: unexpected error: %v", i, err)
		}
	}
	if _, err := p.Acquire(); !errors.Is(err, ErrNoneAvailable) {
		t.Errorf("expected ErrNoneAvailable after exhausting the pool, got %v", err)
	}
}

func TestReportFailureDeactivates(t *testing.T) {
	p, _ := newTestPool(t, testConfig(creds("bot1")...))
	a, _ := p.Acquire()

	p.ReportFailure(a.ID)
	p.ReportFailure(a.ID)
	if s := p.Status(); s.Active != 1 {
		t.Fatalf("expected account still active below the limit, got %+v", s)
	}

	p.ReportFailure(a.ID)
	if s := p.Status(); s.Active != 0 {
		t.Errorf("expected deactivation at the limit, got %+v", s)
	}

	// Deactivation is one-way: success reports do not revive it.
	p.ReportSuccess(a.ID)
	if s := p.Status(); s.Active != 0 {
		t.Errorf("success on a deactivated account must not reactivate it, got %+v", s)
	}
}

func TestReportSuccessResetsFailCount(t *testing.T) {
	p, now := newTestPool(t, testConfig(creds("bot1")...))
	a, _ := p.Acquire()

	p.ReportFailure(a.ID)
	p.ReportFailure(a.ID)
	p.ReportSuccess(a.ID)
	p.ReportFailure(a.ID)

	// Two pre-success failures were wiped; one failure since is below the
	// limit of three.
	*now = now.Add(6 * time.Minute)
	if _, err := p.Acquire(); err != nil {
		t.Errorf("expected account still eligible, got %v", err)
	}
}

func TestReactivate(t *testing.T) {
	p, now := newTestPool(t, testConfig(creds("bot1")...))
	a, _ := p.Acquire()

	for i := 0; i < 3; i++ {
		p.ReportFailure(a.ID)
	}
	*now = now.Add(6 * time.Minute)
	if _, err := p.Acquire(); !errors.Is(err, ErrNoneAvailable) {
		t.Fatalf("expected deactivated account to be ineligible, got %v", err)
	}

	if err := p.Reactivate(a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Acquire(); err != nil {
		t.Errorf("expected reactivated account to be eligible, got %v", err)
	}

	if err := p.Reactivate("no-such-id"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestStatusCounts(t *testing.T) {
	p, now := newTestPool(t, testConfig(creds("bot1", "bot2", "bot3")...))

	a, _ := p.Acquire()
	for i := 0; i < 3; i++ {
		p.ReportFailure(a.ID)
	}
	b, _ := p.Acquire()
	_ = b

	s := p.Status()
	if s.Total != 3 {
		t.Errorf("expected total 3, got %d", s.Total)
	}
	if s.Active != 2 {
		t.Errorf("expected 2 active, got %d", s.Active)
	}
	if s.Available != 1 {
		t.Errorf("expected 1 available, got %d", s.Available)
	}
	if s.InCooldown != 1 {
		t.Errorf("expected 1 in cooldown, got %d", s.InCooldown)
	}

	// Counts are recomputed at call time: the cooldown lapses.
	*now = now.Add(6 * time.Minute)
	if s := p.Status(); s.Available != 2 || s.InCooldown != 0 {
		t.Errorf("expected cooldown to lapse, got %+v", s)
	}
}

func TestAcquireReturnsCopy(t *testing.T) {
	p, _ := newTestPool(t, testConfig(creds("bot1")...))

	a, _ := p.Acquire()
	a.FailCount = 99

	if s := p.Status(); s.Active != 1 {
		t.Errorf("mutating the returned account must not affect the pool, got %+v", s)
	}
}

func TestReportsOnUnknownIDAreNoOps(t *testing.T) {
	p, _ := newTestPool(t, testConfig(creds("bot1")...))

	p.ReportFailure("unknown")
	p.ReportSuccess("unknown")

	if s := p.Status(); s.Total != 1 || s.Active != 1 {
		t.Errorf("unexpected status after unknown-id reports: %+v", s)
	}
}
