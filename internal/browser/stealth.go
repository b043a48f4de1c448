package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// defaultUserAgent is a current desktop Chrome identity. Headless Chromium
// advertises "HeadlessChrome" in its default UA, which login pages reject
// outright.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// identityScript patches the handful of navigator properties that cheap
// bot checks probe on top of what go-rod/stealth already covers.
const identityScript = `
(function() {
    'use strict';

    Object.defineProperty(navigator, 'webdriver', {
        get: () => undefined,
        configurable: true
    });

    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(['en-US', 'en']),
        configurable: true
    });

    if (!navigator.hardwareConcurrency) {
        Object.defineProperty(navigator, 'hardwareConcurrency', {
            get: () => 8,
            configurable: true
        });
    }

    if (navigator.deviceMemory === undefined) {
        Object.defineProperty(navigator, 'deviceMemory', {
            get: () => 8,
            configurable: true
        });
    }

    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', {
            value: { runtime: {} },
            writable: true,
            configurable: false
        });
    }
})();
`

// createStealthPage creates a page with stealth patches applied.
// go-rod/stealth embeds the puppeteer-extra-plugin-stealth evasions; the
// identity script above covers the rest.
func createStealthPage(browser *rod.Browser) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, err
	}

	if _, err := page.EvalOnNewDocument(identityScript); err != nil {
		page.Close()
		return nil, err
	}

	return page, nil
}
