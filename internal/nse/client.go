// Package nse downloads the insider-trading (PIT) disclosure export from NSE India
package nse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"insider-radar/internal/api"
	"insider-radar/internal/logger"
)

const dateLayout = "02-01-2006"

// Client fetches the insider trading CSV. NSE rejects API calls without the
// cookies its homepage sets, so every download is preceded by a warm-up.
type Client struct {
	client      *api.Client
	baseURL     string
	insiderPath string
	period      string
	retry       *api.RetryConfig
	now         func() time.Time
}

// Option configures the NSE client
type Option func(*Client)

// WithRetry overrides the download retry policy
func WithRetry(cfg *api.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithClock fixes the clock used to compute the reporting window
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates an NSE client. period is one of 1D, 1W, 1M, 3M, 6M, 1Y.
func NewClient(baseURL, insiderPath, period string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		client: api.NewClient(
			api.WithBaseURL(strings.TrimRight(baseURL, "/")),
			api.WithTimeout(timeout),
			api.WithHeaders(api.NSEHeaders()),
			api.WithCookieJar(),
			api.WithLogging(true),
		),
		baseURL:     baseURL,
		insiderPath: insiderPath,
		period:      period,
		retry:       api.DefaultRetryConfig(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open downloads the disclosure CSV for the configured period
func (c *Client) Open(ctx context.Context) (io.ReadCloser, string, error) {
	from, to, err := Window(c.period, c.now())
	if err != nil {
		return nil, "", err
	}

	q := url.Values{}
	q.Set("index", "equities")
	q.Set("from_date", from.Format(dateLayout))
	q.Set("to_date", to.Format(dateLayout))
	q.Set("csv", "true")
	path := c.insiderPath + "?" + q.Encode()

	op := logger.StartOperation(ctx, "nse.download", "period", c.period)
	c.warmUp(op.GetContext())

	req := api.NewRequest("GET", path).WithContext(op.GetContext())
	resp, err := c.client.DoWithRetry(req, c.retry, c.warmUp)
	if err != nil {
		op.EndWithError(err)
		return nil, "", fmt.Errorf("failed to download NSE insider trading data: %w", err)
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		err := fmt.Errorf("NSE returned an empty insider trading file")
		op.EndWithError(err)
		return nil, "", err
	}
	op.End("bytes", len(body))

	logger.Info(ctx, "Downloaded NSE insider trading data",
		"from", from.Format(dateLayout), "to", to.Format(dateLayout), "bytes", len(body))

	name := fmt.Sprintf("%s%s (%s to %s)", c.baseURL, c.insiderPath, from.Format(dateLayout), to.Format(dateLayout))
	return io.NopCloser(bytes.NewReader(body)), name, nil
}

// warmUp hits the homepage so the cookie jar holds a session; failures are
// ignored and surface on the real request instead
func (c *Client) warmUp(ctx context.Context) {
	if _, err := c.client.GET(ctx, "/", api.BrowserHeaders()); err != nil {
		logger.Debug(ctx, "NSE warm-up request failed", "error", err)
	}
}

// Window converts a period like "3M" into an inclusive [from, to] date range ending at now
func Window(period string, now time.Time) (time.Time, time.Time, error) {
	p := strings.ToUpper(strings.TrimSpace(period))
	if len(p) < 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid NSE period %q", period)
	}

	n, err := strconv.Atoi(p[:len(p)-1])
	if err != nil || n <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid NSE period %q", period)
	}

	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var from time.Time
	switch p[len(p)-1] {
	case 'D':
		from = to.AddDate(0, 0, -n)
	case 'W':
		from = to.AddDate(0, 0, -7*n)
	case 'M':
		from = to.AddDate(0, -n, 0)
	case 'Y':
		from = to.AddDate(-n, 0, 0)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid NSE period %q", period)
	}
	return from, to, nil
}
