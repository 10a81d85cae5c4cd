// Package spotlight is a client for the DBpedia Spotlight annotation service.
package spotlight

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/wikiente/core/errors"
)

// DefaultServer is the public Spotlight endpoint for English.
const DefaultServer = "http://api.dbpedia-spotlight.org/en"

// DefaultTimeout bounds a single annotate request.
const DefaultTimeout = 60 * time.Second

// Client calls the /annotate endpoint of a Spotlight server.
type Client struct {
	httpClient *http.Client
	userAgent  string
	endpoint   string
	support    int
	types      string
	policy     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithTransport sets the round tripper of the HTTP client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithSupport sets the minimum number of inlinks a resource needs.
func WithSupport(n int) Option {
	return func(c *Client) {
		c.support = n
	}
}

// WithTypes restricts results to the given comma-separated types.
func WithTypes(types string) Option {
	return func(c *Client) {
		c.types = types
	}
}

// WithPolicy sets the type filter policy ("whitelist" or "blacklist").
func WithPolicy(policy string) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// NewClient creates a client for the Spotlight server at base, for example
// "http://api.dbpedia-spotlight.org/en".
func NewClient(base string, opts ...Option) (*Client, error) {
	if base == "" {
		base = DefaultServer
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.NewValidation("server", fmt.Sprintf("unsupported server URL: %s", base))
	}
	endpoint, err := url.JoinPath(base, "annotate")
	if err != nil {
		return nil, errors.Wrap(err, "building endpoint")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "wikiente/1.0",
		endpoint:   endpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the annotate URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Annotate sends text to the service and returns the mentions it found, in
// response order. A response without resources is a ServiceError; a
// request that fails or gets an HTTP error status is a TransportError.
func (c *Client) Annotate(ctx context.Context, text string, confidence float64) ([]Mention, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("confidence", strconv.FormatFloat(confidence, 'f', -1, 64))
	form.Set("support", strconv.Itoa(c.support))
	if c.types != "" {
		form.Set("types", c.types)
	}
	if c.policy != "" {
		form.Set("policy", c.policy)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &errors.TransportError{URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &errors.TransportError{URL: c.endpoint, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.TransportError{URL: c.endpoint, Err: err}
	}
	return parseResponse(body)
}
