package alerting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/79.0.3945.88 Safari/537.36"

// maxAlertSize caps the body read for a single alert document.
const maxAlertSize = 16 << 20

// DefaultRequestHeaders returns the headers sent with every fetch.
func DefaultRequestHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/xhtml+xml")
	h.Set("Content-Type", "application/xhtml+xml")
	h.Set("User-Agent", DefaultUserAgent)
	return h
}

// Options describe a single fetch. Headers are merged over the defaults,
// replacing any default with the same name.
type Options struct {
	URL     string
	Headers http.Header

	// Timeout bounds each request; zero leaves it to the context.
	Timeout time.Duration

	// Concurrency limits parallel alert fetches in FetchAlerts; zero or
	// negative means one goroutine per link.
	Concurrency int
}

func (o Options) withURL(u string) Options {
	o.URL = u
	return o
}

type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient returns a Client using httpClient, or http.DefaultClient when
// nil. A nil logger falls back to slog.Default().
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchAlert downloads and canonicalizes a single CAP alert.
func (c *Client) FetchAlert(ctx context.Context, opts Options) (*Alert, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	resp, err := c.get(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAlertSize))
	if err != nil {
		return nil, &TransportError{URL: opts.URL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	alert, err := ParseAlert(data)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Alert fetched", "url", opts.URL, "identifier", alert.Identifier, "hash", alert.Hash)

	return alert, nil
}

// FetchFeed downloads a feed and reads it as it streams in.
func (c *Client) FetchFeed(ctx context.Context, opts Options) (*Feed[Tree], error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	resp, err := c.get(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := NewFeedReader().Read(ctx, resp.Body)
	if err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			transportErr.URL = opts.URL
		}
		return nil, err
	}

	c.logger.Debug("Feed fetched", "url", opts.URL, "items", len(feed.Items))

	return feed, nil
}

// FetchAlerts fetches a feed and then every alert its items link to, in
// parallel. Items without a link are skipped. Alerts keep the order of the
// links; the first failed alert cancels the others and fails the call.
func (c *Client) FetchAlerts(ctx context.Context, opts Options) (*Feed[*Alert], error) {
	feed, err := c.FetchFeed(ctx, opts)
	if err != nil {
		return nil, err
	}

	links := c.resolveLinks(opts.URL, Links(feed.Items))
	alerts := make([]*Alert, len(links))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, link := range links {
		g.Go(func() error {
			alert, err := c.FetchAlert(gctx, opts.withURL(link))
			if err != nil {
				return &FetchAlertsError{FeedURL: opts.URL, URL: link, Err: err}
			}
			alerts[i] = alert
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug("Alerts fetched", "url", opts.URL, "items", len(feed.Items), "alerts", len(alerts))

	return &Feed[*Alert]{Channel: feed.Channel, Items: alerts}, nil
}

func (c *Client) get(ctx context.Context, opts Options) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, &TransportError{URL: opts.URL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header = DefaultRequestHeaders()
	for name, values := range opts.Headers {
		req.Header.Del(name)
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: opts.URL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &TransportError{URL: opts.URL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	return resp, nil
}

// resolveLinks makes relative item links absolute against the feed URL.
func (c *Client) resolveLinks(feedURL string, links []string) []string {
	base, err := url.Parse(feedURL)
	if err != nil {
		return links
	}

	resolved := make([]string, 0, len(links))
	for _, link := range links {
		ref, err := url.Parse(link)
		if err != nil {
			c.logger.Debug("Keeping unparseable item link", "url", link, "error", err)
			resolved = append(resolved, link)
			continue
		}
		resolved = append(resolved, base.ResolveReference(ref).String())
	}
	return resolved
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
