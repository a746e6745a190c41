package composing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/composable"
	"github.com/kava-labs/composer-proxy-service/logging"
	"github.com/kava-labs/composer-proxy-service/routing"
)

var ErrInvalidPath = errors.New("invalid include path")

// ValidatingContentFetcher resolves include paths against the template
// they appear in and refuses to fetch anything outside the allowed hosts
type ValidatingContentFetcher struct {
	next         Fetcher
	base         *url.URL
	params       map[string]string
	allowedHosts map[string]bool
	logger       *logging.ServiceLogger
}

var _ Fetcher = (*ValidatingContentFetcher)(nil)

// NewValidatingContentFetcher returns a fetcher resolving relative paths
// against base and expanding {name} placeholders with params. an empty
// allowedHosts only allows the host of base
func NewValidatingContentFetcher(next Fetcher, base *url.URL, params map[string]string, allowedHosts []string, logger *logging.ServiceLogger) *ValidatingContentFetcher {
	hosts := map[string]bool{}
	for _, host := range allowedHosts {
		hosts[strings.ToLower(host)] = true
	}
	if len(hosts) == 0 && base != nil {
		hosts[strings.ToLower(base.Host)] = true
	}

	return &ValidatingContentFetcher{
		next:         next,
		base:         base,
		params:       params,
		allowedHosts: hosts,
		logger:       logger,
	}
}

// Resolve returns the absolute URL the include path refers to
func (f *ValidatingContentFetcher) Resolve(path string) (string, error) {
	path = strings.TrimSpace(routing.ExpandParams(path, f.params))
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.HasPrefix(path, "//") {
		return "", fmt.Errorf("%w: protocol relative path %s", ErrInvalidPath, path)
	}

	target, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, err)
	}

	if !target.IsAbs() {
		if f.base == nil {
			return "", fmt.Errorf("%w: relative path %s without base", ErrInvalidPath, path)
		}
		target = f.base.ResolveReference(target)
	}

	if target.Scheme != "http" && target.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %s", ErrInvalidPath, target.Scheme)
	}
	if !f.allowedHosts[strings.ToLower(target.Host)] {
		return "", fmt.Errorf("%w: host %s is not allowed", ErrInvalidPath, target.Host)
	}

	return target.String(), nil
}

// Fetch validates fc.Path, rejected paths yield the fallback without a backend call
func (f *ValidatingContentFetcher) Fetch(ctx context.Context, fc FetchContext, step CompositionStep, extensions composable.ResponseComposition) *backend.Response {
	resolved, err := f.Resolve(fc.Path)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("step", step.String()).
			Msg("refusing to fetch include, using fallback")
		return fc.FallbackResponse()
	}

	fc.Path = resolved
	return f.next.Fetch(ctx, fc, step, extensions)
}
