package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"sjsage522/pricetracker/helpers"
	"sjsage522/pricetracker/logger"
	apperrors "sjsage522/pricetracker/pkg/errors"
)

// ChromeRenderer renders pages in headless Chrome for listings that are
// filled in by JavaScript
type ChromeRenderer struct {
	ChromeBin     string
	Timeout       time.Duration
	WaitSelector  string
	SessionCookie string
	SessionToken  string
	log           *logger.Logger
}

// NewChromeRenderer creates a renderer that waits for waitSelector before
// capturing the document
func NewChromeRenderer(chromeBin string, timeout time.Duration, waitSelector string) *ChromeRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ChromeRenderer{
		ChromeBin:    chromeBin,
		Timeout:      timeout,
		WaitSelector: waitSelector,
		log:          logger.ForComponent("fetcher").WithField("renderer", "chrome"),
	}
}

// WithSession makes the renderer send a session cookie with every page
func (r *ChromeRenderer) WithSession(cookieName, token string) *ChromeRenderer {
	r.SessionCookie = cookieName
	r.SessionToken = token
	return r
}

func (r *ChromeRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(helpers.RandomUserAgent()),
	)
	if r.ChromeBin != "" {
		opts = append(opts, chromedp.ExecPath(r.ChromeBin))
	}
	return opts
}

// Fetch navigates to rawURL and returns the rendered document's outer HTML
func (r *ChromeRenderer) Fetch(ctx context.Context, rawURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.Timeout)
	defer cancelRun()

	var actions []chromedp.Action
	if r.SessionToken != "" {
		if u, err := url.Parse(rawURL); err == nil {
			actions = append(actions, network.SetCookie(r.SessionCookie, r.SessionToken).
				WithDomain(u.Hostname()).
				WithPath("/"))
		}
	}
	actions = append(actions, chromedp.Navigate(rawURL))
	if r.WaitSelector != "" {
		actions = append(actions, chromedp.WaitReady(r.WaitSelector, chromedp.ByQuery))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	r.log.Info().Str("url", rawURL).Str("wait", r.WaitSelector).Msg("Rendering page")
	start := time.Now()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", apperrors.NewFetch(rawURL, fmt.Sprintf("render timed out after %s", r.Timeout), err)
		}
		return "", apperrors.NewFetch(rawURL, "render failed", err)
	}

	r.log.Debug().Int("bytes", len(html)).Dur("elapsed", time.Since(start)).Msg("Page rendered")
	return html, nil
}
