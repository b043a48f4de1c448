package session

import (
	"log/slog"
	"time"

	"github.com/instalens/instalens/internal/browser"
)

// Post-login interstitials shown after a fresh authentication: the "save
// your login info" prompt and the notifications permission dialog. Both are
// declined; declining keeps the session stateless on Instagram's side.
var dismissTexts = []string{
	"Not Now",
	"Not now",
	"Cancel",
}

// Dismisser opportunistically closes post-login dialogs. Absence of a
// dialog is not an error.
type Dismisser struct {
	logger  *slog.Logger
	timeout time.Duration
}

// NewDismisser creates an interstitial dismisser with a short per-attempt
// timeout so a missing dialog never stalls the flow.
func NewDismisser(logger *slog.Logger) *Dismisser {
	return &Dismisser{
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

// Dismiss tries to close up to two stacked dialogs (save-login-info, then
// notifications). Returns how many were dismissed.
func (d *Dismisser) Dismiss(page browser.Page) int {
	dismissed := 0
	for round := 0; round < 2; round++ {
		if !d.dismissOne(page) {
			break
		}
		dismissed++
	}
	return dismissed
}

func (d *Dismisser) dismissOne(page browser.Page) bool {
	for _, text := range dismissTexts {
		if page.ClickButtonByText(text, d.timeout) {
			d.logger.Debug("dismissed interstitial", "text", text)
			return true
		}
	}
	return false
}
