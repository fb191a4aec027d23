// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/typst-gather/typst-gather/pkg/typstpkg"
)

const (
	// DefaultBaseURL is the public Typst package registry.
	DefaultBaseURL = "https://packages.typst.org"

	// DefaultTimeout bounds a single archive download.
	DefaultTimeout = 60 * time.Second

	// maxArchiveBytes is the upper bound on a compressed package archive (256 MB).
	maxArchiveBytes = 256 << 20
)

// ErrPackageNotFound is returned when the registry has no archive for a package.
var ErrPackageNotFound = errors.New("package not found in registry")

type (
	// Downloader materializes a registry package into a directory.
	Downloader interface {
		Download(ctx context.Context, spec typstpkg.Spec, dir string) error
	}

	// Client downloads package archives over HTTP.
	Client struct {
		httpClient *http.Client
		baseURL    string // Registry base URL (default: DefaultBaseURL, overridable for tests)
		userAgent  string
		timeout    time.Duration
		logger     *log.Logger
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)

	// StatusError reports an unexpected HTTP status from the registry.
	StatusError struct {
		URL        string
		StatusCode int
	}
)

// Error formats the status and URL.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout bounds each request of the default HTTP client. It has no
// effect together with WithHTTPClient.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		cl.timeout = d
	}
}

// WithBaseURL overrides the registry base URL, primarily for test servers and mirrors.
func WithBaseURL(base string) ClientOption {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *log.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a Client with defaults: DefaultBaseURL, a User-Agent of
// "typst-gather/dev", and an HTTP client with DefaultTimeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: "typst-gather/dev",
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// ArchiveURL returns the download URL of the archive for spec.
func (c *Client) ArchiveURL(spec typstpkg.Spec) string {
	return fmt.Sprintf("%s/%s/%s-%s.tar.gz", c.baseURL, spec.Namespace, spec.Name, spec.Version)
}

// Download fetches the archive for spec and unpacks it into dir, which is
// created if needed. Only registry namespaces can be downloaded; any other
// namespace yields ErrPackageNotFound.
func (c *Client) Download(ctx context.Context, spec typstpkg.Spec, dir string) error {
	if !spec.Namespace.IsRegistry() {
		return fmt.Errorf("downloading %s: %w: namespace %q is not served by the registry", spec, ErrPackageNotFound, spec.Namespace)
	}

	archiveURL := c.ArchiveURL(spec)
	c.logger.Debug("Fetching archive", "url", archiveURL)

	resp, err := c.doRequest(ctx, archiveURL)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", spec, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("downloading %s: %w", spec, ErrPackageNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: %w", spec, &StatusError{URL: archiveURL, StatusCode: resp.StatusCode})
	}

	if err := Extract(io.LimitReader(resp.Body, maxArchiveBytes), dir); err != nil {
		return fmt.Errorf("unpacking %s: %w", spec, err)
	}
	return nil
}

// doRequest creates and executes a GET request with the client's headers.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}
