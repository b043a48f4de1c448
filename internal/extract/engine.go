// Package extract pulls comment records out of a rendered post page:
// scroll-based incremental reveal, then prioritized selector extraction
// over an HTML snapshot.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/oklog/ulid/v2"

	"github.com/instalens/instalens/internal/browser"
	"github.com/instalens/instalens/internal/config"
	"github.com/instalens/instalens/internal/models"
)

var (
	// ErrNavigation is returned when the post page itself fails to load.
	// Distinct from a page that loads but yields zero comments, which is a
	// valid empty result.
	ErrNavigation = errors.New("post page failed to load")
	// ErrEvaluate is returned when a browser evaluation fails mid-extraction.
	ErrEvaluate = errors.New("extraction evaluation failed")
)

// contentContainer is the element whose presence confirms the post page
// actually rendered.
const contentContainer = "article, main"

// loadMoreTexts are the button labels that reveal additional comment pages.
var loadMoreTexts = []string{
	"Load more comments",
	"View more comments",
}

// minTextLen: trimmed texts at or below this length are UI fragments, not
// comments.
const minTextLen = 2

// uiChromeLabels are action labels that match the same structural selectors
// as comment bodies. Compared lowercased against the full trimmed text.
var uiChromeLabels = map[string]struct{}{
	"like":            {},
	"reply":           {},
	"see translation": {},
	"view replies":    {},
	"hide replies":    {},
	"verified":        {},
	"edited":          {},
	"follow":          {},
}

// reservedPathSegments are top-level Instagram paths that look like profile
// links but are not.
var reservedPathSegments = map[string]struct{}{
	"p": {}, "reel": {}, "reels": {}, "tv": {}, "explore": {},
	"accounts": {}, "stories": {}, "direct": {}, "about": {}, "legal": {},
}

var (
	profileHrefRe = regexp.MustCompile(`^/([A-Za-z0-9._]+)/?$`)
	likesRe       = regexp.MustCompile(`(\d[\d,]*)\s+likes?`)
)

// maxAncestorWalk bounds the upward search for the enclosing comment item.
const maxAncestorWalk = 6

// Engine reveals and extracts comments from an authenticated page.
type Engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	strategies []Strategy
}

// NewEngine creates an extraction engine with the default strategy order.
func NewEngine(cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		strategies: defaultStrategies,
	}
}

// Extract navigates to the post, reveals comments by scrolling, and parses
// the resulting document. A page that loads but contains no recognizable
// comments returns an empty slice and a nil error.
func (e *Engine) Extract(ctx context.Context, page browser.Page, targetURL string) ([]models.CommentRecord, error) {
	if err := page.Navigate(targetURL, e.cfg.NavigationTimeout); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	if res := page.WaitElement(contentContainer, e.cfg.NavigationTimeout); !res.Found {
		if res.Err != nil {
			return nil, fmt.Errorf("%w: waiting for content: %v", ErrNavigation, res.Err)
		}
		return nil, fmt.Errorf("%w: content container never appeared", ErrNavigation)
	}

	if err := e.reveal(ctx, page); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("%w: reading document: %v", ErrEvaluate, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing document: %v", ErrEvaluate, err)
	}

	records := e.extractRecords(doc)
	e.logger.Info("extraction finished", "url", targetURL, "records", len(records))
	return records, nil
}

// reveal runs the full scroll budget unconditionally. Lazy-loaded comments
// keep arriving after the scroll height stops changing, so there is no
// reliable early-exit signal.
func (e *Engine) reveal(ctx context.Context, page browser.Page) error {
	for i := 0; i < e.cfg.MaxScrollAttempts; i++ {
		if err := page.ScrollToBottom(); err != nil {
			return fmt.Errorf("%w: scrolling: %v", ErrEvaluate, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrEvaluate, ctx.Err())
		case <-time.After(e.cfg.ScrollDelay):
		}

		// Opportunistic: a load-more affordance is only sometimes present.
		for _, text := range loadMoreTexts {
			if page.ClickButtonByText(text, time.Second) {
				e.logger.Debug("clicked load-more", "text", text, "attempt", i+1)
				break
			}
		}
	}
	return nil
}

// extractRecords tries each strategy in order and returns the first
// non-empty result.
func (e *Engine) extractRecords(doc *goquery.Document) []models.CommentRecord {
	for _, st := range e.strategies {
		records := e.collect(doc, st)
		if len(records) > 0 {
			e.logger.Debug("extraction strategy matched", "strategy", st.Name, "records", len(records))
			return records
		}
	}
	return nil
}

func (e *Engine) collect(doc *goquery.Document, st Strategy) []models.CommentRecord {
	var records []models.CommentRecord
	doc.Find(st.Selector).EachWithBreak(func(i int, el *goquery.Selection) bool {
		if len(records) >= e.cfg.MaxRecords {
			return false
		}

		text, ok := st.Collect(el)
		if !ok || !usableText(text) {
			return true
		}

		username := resolveUsername(el)
		if username == "" {
			// Anonymized placeholder when no author anchor is reachable.
			username = fmt.Sprintf("user_%d", len(records)+1)
		}

		records = append(records, models.CommentRecord{
			ID:        recordID(el),
			Username:  username,
			Text:      text,
			Timestamp: resolveTimestamp(el),
			Likes:     resolveLikes(el),
		})
		return true
	})
	return records
}

// usableText filters out empty fragments and UI chrome masquerading as
// comment text.
func usableText(text string) bool {
	if len(text) <= minTextLen {
		return false
	}
	_, chrome := uiChromeLabels[strings.ToLower(text)]
	return !chrome
}

// commentScope walks up from the matched element to the enclosing list
// item, which bounds every per-comment lookup. Stopping at the item keeps
// one comment's author or like count from leaking into a sibling's record.
// Without a list-item ancestor the element itself is the scope.
func commentScope(el *goquery.Selection) *goquery.Selection {
	cur := el
	for i := 0; i <= maxAncestorWalk; i++ {
		if goquery.NodeName(cur) == "li" {
			return cur
		}
		parent := cur.Parent()
		if parent.Length() == 0 {
			break
		}
		cur = parent
	}
	return el
}

// resolveUsername looks for a profile-link anchor within the comment's
// scope. Returns "" when none is found.
func resolveUsername(el *goquery.Selection) string {
	username := ""
	commentScope(el).Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if u, ok := profileUsername(href); ok {
			username = u
			return false
		}
		return true
	})
	return username
}

// profileUsername extracts the username from a profile href like
// "/someuser/". Post, reel, and other reserved paths do not count.
func profileUsername(href string) (string, bool) {
	m := profileHrefRe.FindStringSubmatch(href)
	if m == nil {
		return "", false
	}
	if _, reserved := reservedPathSegments[strings.ToLower(m[1])]; reserved {
		return "", false
	}
	return m[1], true
}

// resolveTimestamp finds the comment's <time> element and returns its
// relative label ("3h", "2d"). Best effort.
func resolveTimestamp(el *goquery.Selection) string {
	t := commentScope(el).Find("time").First()
	if t.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(t.Text())
}

// resolveLikes finds a "N likes" label within the comment's scope. Best
// effort; missing means zero.
func resolveLikes(el *goquery.Selection) int {
	m := likesRe.FindStringSubmatch(commentScope(el).Text())
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// recordID uses the source element's id when present, otherwise synthesizes
// one.
func recordID(el *goquery.Selection) string {
	if id, ok := el.Attr("id"); ok && id != "" {
		return id
	}
	return ulid.Make().String()
}
