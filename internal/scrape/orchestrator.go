package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/instalens/instalens/internal/accounts"
	"github.com/instalens/instalens/internal/browser"
	"github.com/instalens/instalens/internal/models"
	"github.com/instalens/instalens/internal/session"
)

// postURLRe accepts canonical post, reel, and IGTV permalinks, with or
// without a trailing slash or query string.
var postURLRe = regexp.MustCompile(`^https?://(www\.)?instagram\.com/(p|reel|tv)/[A-Za-z0-9_-]+/?(\?.*)?$`)

// AccountPool is the slice of the pool the orchestrator needs.
type AccountPool interface {
	Acquire() (accounts.Account, error)
	ReportSuccess(id string)
	ReportFailure(id string)
	Status() accounts.Status
}

// SessionDriver is the slice of the session driver the orchestrator needs.
type SessionDriver interface {
	Initialize(ctx context.Context) error
	Login(ctx context.Context, acct accounts.Account) error
	IsSessionValid() bool
	Page() browser.Page
	Close()
}

// Extractor pulls comment records off an authenticated page.
type Extractor interface {
	Extract(ctx context.Context, page browser.Page, targetURL string) ([]models.CommentRecord, error)
}

// Result is a successful scrape outcome.
type Result struct {
	Comments []models.CommentRecord
	Debug    models.DebugInfo
}

// Orchestrator runs the full scrape flow: validate, acquire an account,
// ensure an authenticated session, extract, report the outcome back to the
// pool. One flow runs at a time; the session is a single shared resource.
type Orchestrator struct {
	mu        sync.Mutex
	pool      AccountPool
	newDriver func() SessionDriver
	driver    SessionDriver
	engine    Extractor
	breaker   *Breaker
	logger    *slog.Logger
}

// NewOrchestrator wires the scrape flow together. newDriver is called
// lazily, and again whenever a failure forced the previous session closed.
func NewOrchestrator(pool AccountPool, newDriver func() SessionDriver, engine Extractor, breaker *Breaker, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		pool:      pool,
		newDriver: newDriver,
		engine:    engine,
		breaker:   breaker,
		logger:    logger,
	}
}

// ScrapeComments runs one scrape of targetURL. On success the session is
// kept open for reuse; on any failure past validation it is closed so the
// next call starts from a clean browser. All failures come back as *Error.
func (o *Orchestrator) ScrapeComments(ctx context.Context, targetURL, filter string) (*Result, error) {
	if !postURLRe.MatchString(targetURL) {
		return nil, newError(KindInput, "not a recognizable Instagram post URL", nil)
	}

	if !o.breaker.Allow() {
		return nil, newError(KindDriverFatal,
			"scraping suspended after repeated browser failures; operator intervention required", nil)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	acct, err := o.pool.Acquire()
	if err != nil {
		st := o.pool.Status()
		return nil, newError(KindPoolExhausted,
			fmt.Sprintf("no account available right now (total %d, active %d, cooling down %d); retry later",
				st.Total, st.Active, st.InCooldown), err)
	}

	o.logger.Info("scrape started", "url", targetURL, "account_id", acct.ID)

	if o.driver == nil {
		o.driver = o.newDriver()
	}
	if err := o.driver.Initialize(ctx); err != nil {
		o.breaker.RecordFatal()
		o.teardownLocked()
		return nil, newError(KindDriverFatal, "browser automation is unavailable", err)
	}
	o.breaker.RecordHealthy()

	var debug models.DebugInfo
	if !o.driver.IsSessionValid() {
		if err := o.driver.Login(ctx, acct); err != nil {
			o.teardownLocked()
			if errors.Is(err, session.ErrLoginFailed) {
				o.pool.ReportFailure(acct.ID)
				return nil, newError(KindAuth, "could not authenticate with the selected account", err)
			}
			o.breaker.RecordFatal()
			return nil, newError(KindDriverFatal, "browser automation is unavailable", err)
		}
	}
	debug.LoginSuccess = true

	records, err := o.engine.Extract(ctx, o.driver.Page(), targetURL)
	if err != nil {
		o.pool.ReportFailure(acct.ID)
		o.teardownLocked()
		return nil, newError(KindExtraction, "could not load or read the post page", err)
	}

	o.pool.ReportSuccess(acct.ID)
	debug.PageLoaded = true
	debug.CommentsFound = len(records)

	if filter != "" {
		records = filterRecords(records, filter)
	}

	o.logger.Info("scrape finished", "url", targetURL, "found", debug.CommentsFound, "returned", len(records))
	return &Result{Comments: records, Debug: debug}, nil
}

// Close releases the live session, if any. Called on shutdown.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked()
}

func (o *Orchestrator) teardownLocked() {
	if o.driver == nil {
		return
	}
	o.driver.Close()
	o.driver = nil
}

// filterRecords keeps records whose username or text contains the filter,
// case-insensitively.
func filterRecords(records []models.CommentRecord, filter string) []models.CommentRecord {
	needle := strings.ToLower(filter)
	var out []models.CommentRecord
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Username), needle) ||
			strings.Contains(strings.ToLower(r.Text), needle) {
			out = append(out, r)
		}
	}
	return out
}
