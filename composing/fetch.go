package composing

import (
	"context"
	"net/http"
	"time"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/composable"
	"github.com/kava-labs/composer-proxy-service/logging"
)

// FetchContext describes one fetch of included content
type FetchContext struct {
	Path     string
	Fallback string
	TTL      time.Duration
}

func NewFetchContext(path string, fallback string, ttl time.Duration) FetchContext {
	return FetchContext{Path: path, Fallback: fallback, TTL: ttl}
}

// FallbackResponse is the response used in place of content that
// could not be fetched
func (fc FetchContext) FallbackResponse() *backend.Response {
	res := backend.NewResponse(http.StatusOK, []byte(fc.Fallback))
	res.Header.Set("Content-Type", "text/html; charset=utf-8")
	return res
}

// Fetcher fetches included content. it never fails, content that
// cannot be fetched is replaced by the fallback of the FetchContext
type Fetcher interface {
	Fetch(ctx context.Context, fc FetchContext, step CompositionStep, extensions composable.ResponseComposition) *backend.Response
}

// ContentFetcher fetches content with a backend client, each call
// bounded by the ttl of its FetchContext
type ContentFetcher struct {
	client backend.Client
	logger *logging.ServiceLogger
}

var _ Fetcher = (*ContentFetcher)(nil)

func NewContentFetcher(client backend.Client, logger *logging.ServiceLogger) *ContentFetcher {
	return &ContentFetcher{client: client, logger: logger}
}

// Fetch sends a GET for fc.Path enriched by extensions. transport
// errors, non 2xx responses and timeouts yield the fallback
func (f *ContentFetcher) Fetch(ctx context.Context, fc FetchContext, step CompositionStep, extensions composable.ResponseComposition) *backend.Response {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fc.Path, nil)
	if err != nil {
		f.logger.Debug().
			Err(err).
			Str("step", step.String()).
			Msg("invalid include path, using fallback")
		return fc.FallbackResponse()
	}

	ttl := fc.TTL
	if ttl == NoTimeout {
		ttl = 0
	}

	req = extensions.Enrich(req)
	req, cancel := backend.WithDeadline(req, ttl)
	defer cancel()

	res, err := f.client.Send(req)
	switch {
	case err != nil:
		f.logger.Debug().
			Err(err).
			Str("step", step.String()).
			Dur("ttl", ttl).
			Msg("include fetch failed, using fallback")
		return fc.FallbackResponse()
	case res == nil:
		f.logger.Debug().
			Str("step", step.String()).
			Msg("include fetch returned no response, using fallback")
		return fc.FallbackResponse()
	case !res.IsSuccess():
		f.logger.Debug().
			Int("status", res.StatusCode).
			Str("step", step.String()).
			Msg("include responded with non success status, using fallback")
		return fc.FallbackResponse()
	}

	return res
}
