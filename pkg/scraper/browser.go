package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog/log"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
)

var ErrBrowserClosed = errors.New("browser is closed")

// Browser owns a single headless Chrome. It is started on first use and all
// page work runs on one queue worker, so callers from different requests
// never drive the browser at the same time.
type Browser struct {
	cfg config.Scraper

	mu          sync.Mutex
	closed      bool
	browserCtx  context.Context
	stopBrowser context.CancelFunc

	queue  *workerpool.WorkerPool
	launch func() (context.Context, context.CancelFunc, error)
	render func(ctx context.Context, pageURL string) (string, error)
}

var _ PageSource = (*Browser)(nil)

func NewBrowser(cfg config.Scraper) *Browser {
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = defaultPageTimeout
	}

	b := &Browser{
		cfg:   cfg,
		queue: workerpool.New(1),
	}
	b.launch = b.launchChrome
	b.render = b.renderChrome

	return b
}

type fetchResult struct {
	html string
	err  error
}

func (b *Browser) Fetch(ctx context.Context, pageURL string) (string, error) {
	done := make(chan fetchResult, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return "", ErrBrowserClosed
	}

	b.queue.Submit(func() {
		if ctx.Err() != nil {
			done <- fetchResult{err: ctx.Err()}
			return
		}

		html, err := b.render(ctx, pageURL)
		done <- fetchResult{html: html, err: err}
	})
	b.mu.Unlock()

	select {
	case res := <-done:
		return res.html, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close waits for queued page loads and shuts the browser down.
func (b *Browser) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.queue.StopWait()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopBrowser != nil {
		b.stopBrowser()
		b.browserCtx, b.stopBrowser = nil, nil
		log.Info().Msg("Headless browser stopped")
	}
}

// acquire returns the running browser, starting one if there is none or the
// previous one has exited.
func (b *Browser) acquire() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		if b.browserCtx.Err() == nil {
			return b.browserCtx, nil
		}

		log.Warn().Err(b.browserCtx.Err()).Msg("Headless browser exited, restarting")
		b.stopBrowser()
		b.browserCtx, b.stopBrowser = nil, nil
	}

	browserCtx, stop, err := b.launch()
	if err != nil {
		return nil, err
	}

	b.browserCtx = browserCtx
	b.stopBrowser = stop

	return browserCtx, nil
}

func (b *Browser) launchChrome() (context.Context, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", b.cfg.Headless))
	if b.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.cfg.UserAgent))
	}
	if b.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	stop := func() {
		browserCancel()
		allocCancel()
	}

	// Run with no actions starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		stop()
		return nil, nil, fmt.Errorf("could not start browser: %w", err)
	}

	log.Info().Bool("headless", b.cfg.Headless).Msg("Headless browser started")

	return browserCtx, stop, nil
}

func (b *Browser) renderChrome(ctx context.Context, pageURL string) (string, error) {
	browserCtx, err := b.acquire()
	if err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.PageTimeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	err = chromedp.Run(tabCtx,
		page.SetLifecycleEventsEnabled(true),
		navigateUntilIdle(pageURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("could not render %s: %w", pageURL, err)
	}

	return html, nil
}

// navigateUntilIdle loads pageURL and returns once the document it started
// reports networkIdle.
func navigateUntilIdle(pageURL string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var mu sync.Mutex
		idle := map[cdp.LoaderID]bool{}
		notify := make(chan struct{}, 1)

		chromedp.ListenTarget(listenCtx, func(ev interface{}) {
			e, ok := ev.(*page.EventLifecycleEvent)
			if !ok || e.Name != "networkIdle" {
				return
			}

			mu.Lock()
			idle[e.LoaderID] = true
			mu.Unlock()

			select {
			case notify <- struct{}{}:
			default:
			}
		})

		_, loaderID, errorText, err := page.Navigate(pageURL).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("navigation failed: %s", errorText)
		}

		for {
			mu.Lock()
			done := idle[loaderID]
			mu.Unlock()

			if done {
				return nil
			}

			select {
			case <-notify:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
