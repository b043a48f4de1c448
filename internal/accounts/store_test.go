package accounts

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "accounts.db"), testLogger())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	used := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Save(&PersistedAccount{
		ID: "01ABC", Username: "bot1", Active: false, FailCount: 3, LastUsedAt: used,
	}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if err := s.Save(&PersistedAccount{ID: "01DEF", Username: "bot2", Active: true}); err != nil {
		t.Fatalf("saving: %v", err)
	}

	all, err := s.LoadAll()
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(all))
	}

	a := all["bot1"]
	if a.ID != "01ABC" || a.Active || a.FailCount != 3 {
		t.Errorf("unexpected state: %+v", a)
	}
	if !a.LastUsedAt.Equal(used) {
		t.Errorf("expected last used %v, got %v", used, a.LastUsedAt)
	}

	b := all["bot2"]
	if !b.Active || !b.LastUsedAt.IsZero() {
		t.Errorf("unexpected state: %+v", b)
	}
}

func TestStoreSaveUpserts(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save(&PersistedAccount{ID: "01ABC", Username: "bot1", Active: true}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if err := s.Save(&PersistedAccount{ID: "01ABC", Username: "bot1", Active: false, FailCount: 2}); err != nil {
		t.Fatalf("saving: %v", err)
	}

	all, err := s.LoadAll()
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 account, got %d", len(all))
	}
	if a := all["bot1"]; a.Active || a.FailCount != 2 {
		t.Errorf("expected updated state, got %+v", a)
	}
}

// Deactivation must survive a restart: a pool built over existing state
// overlays the persisted flags onto the configured credentials.
func TestPoolOverlaysPersistedState(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "accounts.db")
	cfg := testConfig(creds("bot1", "bot2")...)

	s1, err := NewStore(dbPath, testLogger())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	p1, err := NewPool(cfg, s1, testLogger())
	if err != nil {
		t.Fatalf("creating pool: %v", err)
	}

	a, err := p1.Acquire()
	if err != nil {
		t.Fatalf("acquiring: %v", err)
	}
	for i := 0; i < 3; i++ {
		p1.ReportFailure(a.ID)
	}
	s1.Close()

	// Restart.
	s2, err := NewStore(dbPath, testLogger())
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s2.Close()
	p2, err := NewPool(cfg, s2, testLogger())
	if err != nil {
		t.Fatalf("recreating pool: %v", err)
	}

	st := p2.Status()
	if st.Total != 2 || st.Active != 1 {
		t.Errorf("expected deactivation to survive restart, got %+v", st)
	}

	// The surviving identity must be stable so operators can reactivate
	// by the id they saw before the restart.
	if err := p2.Reactivate(a.ID); err != nil {
		t.Errorf("expected persisted id %q to remain valid, got %v", a.ID, err)
	}
}
