package source

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	defaultNavigationTimeout = 60 * time.Second
	defaultWaitTimeout       = 15 * time.Second
)

// ChromeRenderer starts a headless Chromium per render and tears it down on return.
type ChromeRenderer struct {
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	ExecPath          string
}

func NewChromeRenderer(navigation, wait time.Duration) *ChromeRenderer {
	if navigation <= 0 {
		navigation = defaultNavigationTimeout
	}
	if wait <= 0 {
		wait = defaultWaitTimeout
	}
	return &ChromeRenderer{NavigationTimeout: navigation, WaitTimeout: wait}
}

func (r *ChromeRenderer) Render(ctx context.Context, pageURL, waitSelector string) (*RenderedPage, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "pt-BR"),
		chromedp.UserAgent(randomUserAgent()),
		chromedp.WindowSize(1920, 1080),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Start the browser before deriving timeouts so they do not bound its lifetime.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.NavigationTimeout+r.WaitTimeout)
	defer cancelRun()

	var page RenderedPage
	err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			navCtx, cancel := context.WithTimeout(ctx, r.NavigationTimeout)
			defer cancel()
			return chromedp.Navigate(pageURL).Do(navCtx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			waitCtx, cancel := context.WithTimeout(ctx, r.WaitTimeout)
			defer cancel()
			if err := chromedp.WaitVisible(waitSelector, chromedp.ByQuery).Do(waitCtx); err != nil {
				return fmt.Errorf("wait for %s: %w", waitSelector, err)
			}
			return nil
		}),
		chromedp.Location(&page.URL),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}
	return &page, nil
}

var _ Renderer = (*ChromeRenderer)(nil)
