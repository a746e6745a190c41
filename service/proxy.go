package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/composable"
	"github.com/kava-labs/composer-proxy-service/composing"
	"github.com/kava-labs/composer-proxy-service/logging"
	"github.com/kava-labs/composer-proxy-service/routing"
	"github.com/kava-labs/composer-proxy-service/service/httpcache"
	"github.com/kava-labs/composer-proxy-service/session"
)

const htmlContentType = "text/html; charset=utf-8"

// ComposingHandler serves every request that is not a service endpoint:
// the request is resolved against the routing table, then either
// proxied to its backend or answered with a composed template
type ComposingHandler struct {
	routes              routing.Table
	client              backend.Client
	composer            *composing.Composer
	cookies             *session.CookieHandler
	allowedIncludeHosts []string
	*logging.ServiceLogger
}

// NewComposingHandler returns a handler sending every backend request
// through client. includes may only be fetched from allowedIncludeHosts,
// or from the host of their template when it is empty
func NewComposingHandler(
	routes routing.Table,
	client backend.Client,
	composer *composing.Composer,
	cookies *session.CookieHandler,
	allowedIncludeHosts []string,
	logger *logging.ServiceLogger,
) *ComposingHandler {
	return &ComposingHandler{
		routes:              routes,
		client:              client,
		composer:            composer,
		cookies:             cookies,
		allowedIncludeHosts: allowedIncludeHosts,
		ServiceLogger:       logger,
	}
}

func (h *ComposingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	outcome := requestOutcomeFrom(r.Context())

	match, err := h.routes.Resolve(r.Method, r.URL.Path)
	if err != nil {
		h.Debug().Err(err).Msg("no route for request")
		writeError(w, http.StatusNotFound, "no route matches request")
		return
	}
	outcome.routeType = string(match.RouteType)

	extensions, err := composable.New(h.cookies.FromRequest(r), httpcache.CacheStatusRoot{})
	if err != nil {
		h.Error().Err(err).Msg("error creating response composition")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ctx := backend.WithIncoming(r.Context(), r)

	var res *composable.ExtendableResponse
	switch match.RouteType {
	case routing.RouteTypeProxy:
		res, err = h.proxy(ctx, r, match, extensions)
	case routing.RouteTypeTemplate:
		res, err = h.template(ctx, r, match, extensions, outcome)
	default:
		err = fmt.Errorf("unsupported route type %s", match.RouteType)
	}
	if err != nil {
		h.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("backend", match.ExpandedBackend()).
			Msg("error serving request")
		writeError(w, http.StatusBadGateway, "bad gateway")
		return
	}

	if status, ok := res.Extensions.Get(httpcache.CacheStatusRootKey); ok {
		outcome.cacheStatus = status.(httpcache.CacheStatusRoot).Status()
	}

	if err := res.ExtendedResponse().Relay(w); err != nil {
		h.Debug().Err(err).Msg("error writing response to client")
	}
}

// proxy forwards the request to the backend of match and relays the answer
func (h *ComposingHandler) proxy(ctx context.Context, r *http.Request, match routing.RouteMatch, extensions composable.ResponseComposition) (*composable.ExtendableResponse, error) {
	target, err := targetURL(match, r.URL)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if r.ContentLength != 0 {
		body = r.Body
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = r.ContentLength

	res, err := h.send(req, match, extensions)
	if err != nil {
		return nil, err
	}

	return &composable.ExtendableResponse{
		Response:   res,
		Extensions: extensions.ComposedWithFragmentFor(res),
	}, nil
}

// template fetches the template of match and composes its includes
func (h *ComposingHandler) template(ctx context.Context, r *http.Request, match routing.RouteMatch, extensions composable.ResponseComposition, outcome *requestOutcome) (*composable.ExtendableResponse, error) {
	target, err := targetURL(match, r.URL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	template, err := h.send(req, match, extensions)
	if err != nil {
		return nil, err
	}
	if !template.IsSuccess() {
		return nil, &backend.StatusError{StatusCode: template.StatusCode, URL: target}
	}
	extensions = extensions.ComposedWithFragmentFor(template)

	fetcher := composing.NewValidatingContentFetcher(
		composing.NewContentFetcher(h.client, h.ServiceLogger),
		req.URL,
		match.Params,
		h.allowedIncludeHosts,
		h.ServiceLogger,
	)

	result := h.composer.ComposeTemplate(ctx, template, composing.RootStep(r.URL.Path), fetcher, extensions)
	outcome.includes = result.Includes

	composed := backend.NewResponse(http.StatusOK, result.Body)
	composed.Header.Set("Content-Type", htmlContentType)

	return &composable.ExtendableResponse{
		Response:   composed,
		Extensions: result.Extensions,
	}, nil
}

// send enriches req and sends it within the ttl of the route
func (h *ComposingHandler) send(req *http.Request, match routing.RouteMatch, extensions composable.ResponseComposition) (*backend.Response, error) {
	req = extensions.Enrich(req)
	req, cancel := backend.WithDeadline(req, match.TTL)
	defer cancel()

	res, err := h.client.Send(req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("backend returned no response")
	}
	return res, nil
}

// targetURL returns the expanded backend of match carrying the query of
// the incoming request
func targetURL(match routing.RouteMatch, incoming *url.URL) (string, error) {
	target, err := url.Parse(match.ExpandedBackend())
	if err != nil {
		return "", fmt.Errorf("invalid backend %s: %w", match.ExpandedBackend(), err)
	}

	switch {
	case incoming.RawQuery == "":
	case target.RawQuery == "":
		target.RawQuery = incoming.RawQuery
	default:
		target.RawQuery = target.RawQuery + "&" + incoming.RawQuery
	}

	return target.String(), nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}
