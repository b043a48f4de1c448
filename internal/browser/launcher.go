package browser

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/instalens/instalens/internal/config"
)

// Launcher allocates browsing contexts.
type Launcher interface {
	// Launch starts a browser and returns a stealth page with a realistic
	// device identity applied.
	Launch(ctx context.Context) (Page, error)
}

// RodLauncher launches headless Chromium through rod.
type RodLauncher struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRodLauncher creates a rod-backed launcher.
func NewRodLauncher(cfg *config.Config, logger *slog.Logger) *RodLauncher {
	return &RodLauncher{cfg: cfg, logger: logger}
}

// Launch starts a Chromium instance and returns its primary page.
// Errors here are driver-fatal: they indicate the automation environment
// itself is broken, not that a particular account or page misbehaved.
func (l *RodLauncher) Launch(ctx context.Context) (Page, error) {
	la := launcher.New()

	if l.cfg.ChromePath != "" {
		la = la.Bin(l.cfg.ChromePath)
	}

	la = la.
		Headless(l.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-infobars").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("window-size", "1440,900").
		Set("lang", "en-US,en")

	u, err := la.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, err
	}

	page, err := createStealthPage(b)
	if err != nil {
		b.Close()
		return nil, err
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      defaultUserAgent,
		AcceptLanguage: "en-US,en;q=0.9",
		Platform:       "MacIntel",
	}); err != nil {
		page.Close()
		b.Close()
		return nil, err
	}

	l.logger.Info("browser launched", "headless", l.cfg.Headless)

	return &rodPage{page: page, browser: b}, nil
}
