package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy pairs a structural selector with the way comment text is pulled
// from its matches. Strategies are alternatives for the same semantic
// target, tried in order with first-match-wins semantics; they are never
// additive.
type Strategy struct {
	Name     string
	Selector string
	// Collect extracts the comment text from one matched element.
	// Returns false when the element carries no usable text.
	Collect func(el *goquery.Selection) (string, bool)
}

// defaultStrategies are ordered from most to least specific. Instagram's
// markup carries no stable classes, so each selector is a structural guess;
// the first one that yields at least one usable record wins.
var defaultStrategies = []Strategy{
	{
		Name:     "article-list-items",
		Selector: "article ul ul li",
		Collect:  collectCommentSpan,
	},
	{
		Name:     "dialog-list-items",
		Selector: `div[role="dialog"] ul li`,
		Collect:  collectCommentSpan,
	},
	{
		Name:     "auto-direction-spans",
		Selector: `article span[dir="auto"]`,
		Collect:  collectOwnText,
	},
}

// collectCommentSpan prefers the longest span[dir="auto"] inside a list
// item: comment items also contain the author anchor and action labels, and
// the body span is reliably the longest.
func collectCommentSpan(el *goquery.Selection) (string, bool) {
	best := ""
	el.Find(`span[dir="auto"]`).Each(func(_ int, span *goquery.Selection) {
		if t := strings.TrimSpace(span.Text()); len(t) > len(best) {
			best = t
		}
	})
	if best == "" {
		return collectOwnText(el)
	}
	return best, true
}

// collectOwnText takes the element's own trimmed text.
func collectOwnText(el *goquery.Selection) (string, bool) {
	t := strings.TrimSpace(el.Text())
	return t, t != ""
}
