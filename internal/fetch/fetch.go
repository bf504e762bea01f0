// Package fetch retrieves website content over HTTP with SSRF protection
// and extracts the readable article from the raw page.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/sitedex/sitedex/internal/log"
)

var (
	// ErrBlocked indicates the URL failed security validation. Permanent.
	ErrBlocked = errors.New("url blocked")

	// ErrNotFound indicates the page does not exist (404/410). Permanent.
	ErrNotFound = errors.New("page not found")

	// ErrTimeout indicates the request deadline was exceeded. Transient.
	ErrTimeout = errors.New("fetch timeout")

	// ErrTooLarge indicates the response body exceeded the size limit. Permanent.
	ErrTooLarge = errors.New("response too large")

	// ErrUnavailable indicates a network failure or server error. Transient.
	ErrUnavailable = errors.New("site unavailable")
)

// IsTransient reports whether a fetch error is worth retrying later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}

// Page is the fetched and extracted content of a single URL.
type Page struct {
	URL       string
	Title     string
	Content   string // readable HTML with headings preserved
	FetchedAt time.Time
}

const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize bounds the response body (10 MB).
	DefaultMaxBodySize int64 = 10 << 20

	userAgent = "sitedex/1.0 (+https://github.com/sitedex/sitedex)"
)

// Client fetches web pages. It validates every URL (and every redirect
// target) against the SSRF rules in URLValidator and extracts the readable
// article content before returning.
type Client struct {
	httpClient  *http.Client
	validator   *URLValidator
	maxBodySize int64
	logger      log.Logger
}

// Config configures a Client. Zero values fall back to defaults.
type Config struct {
	Timeout     time.Duration
	MaxBodySize int64

	// AllowPrivate disables SSRF protection for private and loopback
	// addresses. Only for deployments indexing internal sites.
	AllowPrivate bool
}

// NewClient creates a fetch client with SSRF-safe transport.
func NewClient(cfg Config, logger log.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if logger == nil {
		logger = log.NewNop()
	}

	validator := NewURLValidator()
	validator.allowPrivate = cfg.AllowPrivate
	return &Client{
		httpClient: &http.Client{
			Transport:     validator.SafeTransport(),
			Timeout:       cfg.Timeout,
			CheckRedirect: validator.ValidateRedirect,
		},
		validator:   validator,
		maxBodySize: cfg.MaxBodySize,
		logger:      logger,
	}
}

// Fetch downloads a page and extracts its readable content.
//
// The returned Page.Content is cleaned HTML with the heading structure
// preserved, suitable for structure-aware chunking. When readability
// extraction fails the raw body is returned instead.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := c.validator.Validate(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlocked, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyRequestError(rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s returned %d", ErrNotFound, rawURL, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnavailable, rawURL, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s returned %d", ErrBlocked, rawURL, resp.StatusCode)
	}

	body, err := c.readBody(resp)
	if err != nil {
		return nil, err
	}

	page := &Page{
		URL:       rawURL,
		FetchedAt: time.Now().UTC(),
	}

	parsed, _ := url.Parse(rawURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		c.logger.Debug("readable extraction failed, using raw body",
			"url", rawURL, "error", err)
		page.Content = string(body)
		return page, nil
	}

	page.Title = strings.TrimSpace(article.Title)
	page.Content = article.Content
	return page, nil
}

// readBody reads the response body up to the size limit. Reading exactly
// the limit triggers a one-byte probe to distinguish "exactly at limit"
// from "exceeds limit".
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}

	if int64(len(body)) == c.maxBodySize {
		extra := make([]byte, 1)
		if n, _ := resp.Body.Read(extra); n > 0 {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, c.maxBodySize)
		}
	}

	return body, nil
}

// classifyRequestError maps transport-level failures to sentinel errors.
func classifyRequestError(rawURL string, err error) error {
	// Redirect validation failures surface as url.Error wrapping the
	// CheckRedirect error.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, rawURL, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, rawURL, err)
	}
	if strings.Contains(err.Error(), "SSRF blocked") || strings.Contains(err.Error(), "blocked host") {
		return fmt.Errorf("%w: %s: %v", ErrBlocked, rawURL, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, rawURL, err)
}
