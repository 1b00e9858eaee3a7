package payload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a fetch when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// FetchError is returned for a non-success response.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("GET %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client fetches translation documents. A fetch is a single request; there
// is no retry.
type Client struct {
	url     string
	apiKey  string
	project string
	timeout time.Duration
	proxy   string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) ClientOption { return func(c *Client) { c.apiKey = key } }

// WithProject adds the project query parameter.
func WithProject(project string) ClientOption { return func(c *Client) { c.project = project } }

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) ClientOption { return func(c *Client) { c.timeout = d } }

// WithProxy routes requests through proxyURL instead of the environment.
func WithProxy(proxyURL string) ClientOption { return func(c *Client) { c.proxy = proxyURL } }

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption { return func(c *Client) { c.http = hc } }

// NewClient returns a client for the translations endpoint at rawURL.
func NewClient(rawURL string, opts ...ClientOption) *Client {
	c := &Client{url: rawURL, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = makeHTTPClient(c.proxy, c.timeout)
	}
	return c
}

// makeHTTPClient honours an explicit proxy, else HTTP_PROXY/HTTPS_PROXY.
func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Fetch downloads and decodes the document for every language.
func (c *Client) Fetch(ctx context.Context) (*Document, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching translations: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: endpoint, StatusCode: resp.StatusCode, Body: truncate(string(body), 500)}
	}

	return Decode(bytes.NewReader(body))
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid API URL %q: %w", c.url, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid API URL %q: scheme and host required", c.url)
	}
	if c.project != "" {
		q := u.Query()
		q.Set("project", c.project)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
