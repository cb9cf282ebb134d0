// Package httpclient performs the outbound GET requests of all data providers.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response ends up in HTTPError.Message
const maxErrorBody = 512

// HTTPError represents a non-2xx response
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// Response is a successful response body together with the server's Date header
type Response struct {
	Body []byte
	Date time.Time
}

// Client wraps http.Client with the headers every provider request carries
type Client struct {
	client    *http.Client
	userAgent string
	now       func() time.Time
}

// New creates a client with the given request timeout and User-Agent
func New(timeout time.Duration, userAgent string) *Client {
	return &Client{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		now:       time.Now,
	}
}

// Get issues a GET request for rawURL with query parameters and extra headers.
// Any status outside 2xx is returned as *HTTPError.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values, headers http.Header) (*Response, error) {
	if len(query) > 0 {
		rawURL = rawURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", rawURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, NewHTTPError(resp.StatusCode, rawURL, msg)
	}

	date, err := http.ParseTime(resp.Header.Get("Date"))
	if err != nil {
		date = c.now()
	}

	return &Response{Body: body, Date: date.UTC()}, nil
}
