package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kava-labs/composer-proxy-service/logging"
)

// Client sends a request to a backend and returns the buffered response.
// a non-2xx status is a response, not an error
type Client interface {
	Send(req *http.Request) (*Response, error)
}

// ClientFunc adapts a function to the Client interface
type ClientFunc func(req *http.Request) (*Response, error)

// Send calls f(req)
func (f ClientFunc) Send(req *http.Request) (*Response, error) {
	return f(req)
}

// Decorator wraps a Client with additional behavior
type Decorator func(Client) Client

// Chain wraps client with decorators, the first decorator being the
// outermost one
func Chain(client Client, decorators ...Decorator) Client {
	for i := len(decorators) - 1; i >= 0; i-- {
		client = decorators[i](client)
	}
	return client
}

// StatusError is returned by callers that treat a non-2xx response as failure
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s responded with status %d", e.URL, e.StatusCode)
}

// HTTPClient sends requests with a *http.Client, buffering the whole body
// before returning so the request context may be cancelled right after
type HTTPClient struct {
	client *http.Client
	logger *logging.ServiceLogger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client backed by httpClient, or a default
// client when httpClient is nil
func NewHTTPClient(httpClient *http.Client, logger *logging.ServiceLogger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{
			// redirects are relayed to the caller, not followed
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &HTTPClient{client: httpClient, logger: logger}
}

// Send implements Client
func (c *HTTPClient) Send(req *http.Request) (*Response, error) {
	start := time.Now()

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("url", req.URL.String()).
			Dur("latency", time.Since(start)).
			Msg("backend request failed")
		return nil, fmt.Errorf("error sending %s %s: %w", req.Method, req.URL, err)
	}

	response, err := FromHTTP(res)
	if err != nil {
		return nil, err
	}

	c.logger.Trace().
		Str("url", req.URL.String()).
		Int("status", response.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend responded")

	return response, nil
}

// WithDeadline returns a copy of req whose context expires after ttl,
// a non positive ttl leaves the context untouched
func WithDeadline(req *http.Request, ttl time.Duration) (*http.Request, context.CancelFunc) {
	if ttl <= 0 {
		return req, func() {}
	}

	ctx, cancel := context.WithTimeout(req.Context(), ttl)
	return req.WithContext(ctx), cancel
}
