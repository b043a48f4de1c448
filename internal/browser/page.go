// Package browser wraps headless Chromium control for the scraping core.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// WaitResult reports the outcome of a bounded wait. A timed-out wait is not
// a driver error: Found is false and Err is nil. Err is set only for
// unrecoverable driver failures.
type WaitResult struct {
	Found bool
	Err   error
}

// Page abstracts the browser operations driven by the orchestration core.
// The rod-backed implementation is the production one; tests substitute
// fakes.
type Page interface {
	// Navigate loads the URL and waits for the load event, bounded by timeout.
	Navigate(url string, timeout time.Duration) error
	// WaitElement waits for an element matching the selector to exist.
	WaitElement(selector string, timeout time.Duration) WaitResult
	// Input types text into the element matching the selector.
	Input(selector, text string, timeout time.Duration) error
	// Click clicks the element matching the selector.
	Click(selector string, timeout time.Duration) error
	// ClickButtonByText clicks the first visible button-like element whose
	// text matches. Returns false if none was found within the timeout.
	ClickButtonByText(text string, timeout time.Duration) bool
	// ScrollToBottom scrolls the window to the bottom of the document.
	ScrollToBottom() error
	// CurrentURL returns the page's current URL.
	CurrentURL() (string, error)
	// HTML returns a snapshot of the rendered document.
	HTML() (string, error)
	// Close releases the page and its owning browser. Safe to call more
	// than once.
	Close() error
}

type rodPage struct {
	page    *rod.Page
	browser *rod.Browser
	closed  bool
}

func (p *rodPage) Navigate(url string, timeout time.Duration) error {
	page := p.page.Timeout(timeout)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) WaitElement(selector string, timeout time.Duration) WaitResult {
	_, err := p.page.Timeout(timeout).Element(selector)
	if err == nil {
		return WaitResult{Found: true}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WaitResult{}
	}
	return WaitResult{Err: err}
}

func (p *rodPage) Input(selector, text string, timeout time.Duration) error {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func (p *rodPage) Click(selector string, timeout time.Duration) error {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) ClickButtonByText(text string, timeout time.Duration) bool {
	js := `(text) => {
		const candidates = document.querySelectorAll('button, div[role="button"], a[role="button"]');
		for (const el of candidates) {
			if (el.textContent.trim() === text) {
				const rect = el.getBoundingClientRect();
				if (rect.width > 0 && rect.height > 0) {
					el.click();
					return true;
				}
			}
		}
		return false;
	}`
	result, err := p.page.Timeout(timeout).Eval(js, text)
	return err == nil && result.Value.Bool()
}

func (p *rodPage) ScrollToBottom() error {
	if _, err := p.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return err
	}
	// Nudge with End in case the document body is not the scroll container.
	return p.page.Keyboard.Press(input.End)
}

func (p *rodPage) CurrentURL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) HTML() (string, error) {
	return p.page.HTML()
}

func (p *rodPage) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	if p.page != nil {
		if err := p.page.Close(); err != nil {
			firstErr = err
		}
	}
	if p.browser != nil {
		if err := p.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
