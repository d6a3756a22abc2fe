// Package portal implements the transport collaborator for the labor
// reporting portal: session-cookie authentication, report URL construction,
// and bounded fetches of raw CSV payloads.
//
// The portal owns DNS, auth and timeout behavior; everything it returns is
// treated as untrusted bytes to be classified and parsed upstream.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shiftmetrics/shift-insights/internal/constants"
	"github.com/shiftmetrics/shift-insights/internal/schema"
	"github.com/shiftmetrics/shift-insights/internal/window"
)

var (
	// ErrTransport is returned for network failures and non-200 answers.
	ErrTransport = errors.New("portal request failed")
	// ErrNoSessionCookie is returned when the cookie file has no session entry.
	ErrNoSessionCookie = errors.New("no session cookie found")
)

// maxBodyBytes caps a payload read; portal reports are a few MB at worst.
const maxBodyBytes = 64 << 20

// Client fetches raw report payloads. Safe for concurrent use: it only reads
// shared state after construction.
type Client struct {
	baseURL string
	http    *http.Client
	cookies []*http.Cookie
}

type options struct {
	cookieFile string
	timeout    time.Duration
}

// Options represents an optional function to override Client default values.
type Options func(*options)

// WithCookieFile sets the Netscape-format cookie file to authenticate with.
func WithCookieFile(path string) Options {
	return func(o *options) {
		o.cookieFile = path
	}
}

// WithTimeout overrides the per-fetch timeout.
func WithTimeout(timeout time.Duration) Options {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// New returns a Client for the portal at baseURL.
func New(baseURL string, args ...Options) (*Client, error) {
	opts := options{
		cookieFile: constants.GetDefaultCookieFile(),
		timeout:    constants.DefaultFetchTimeout,
	}
	for _, opt := range args {
		opt(&opts)
	}

	cookies, err := loadCookies(opts.cookieFile)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: opts.timeout},
		cookies: cookies,
	}, nil
}

// Fetch pulls the CSV report for one process over one window. The returned
// bytes are unvalidated; callers classify before parsing.
func (c *Client) Fetch(ctx context.Context, site string, proc schema.Process, w window.Window) ([]byte, error) {
	url := c.reportURL(site, proc, w)
	slog.Debug("Fetching portal report", "process", proc.Name, "window", w, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Join(ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Join(ErrTransport, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Join(ErrTransport, fmt.Errorf("failed to read response body: %v", err))
	}
	return body, nil
}
