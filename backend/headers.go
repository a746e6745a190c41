package backend

import (
	"context"
	"net/http"
	"strings"
)

const (
	// ForwardedPathHeader carries the path of the incoming request
	// to every backend called while serving it
	ForwardedPathHeader = "X-Forwarded-Path"

	// SessionHeaderPrefix marks headers holding session attributes,
	// they are only ever sent by the session composable root
	SessionHeaderPrefix = "x-rd-"
)

// hop-by-hop headers, these are removed when sent to the backend
// https://datatracker.ietf.org/doc/html/rfc2616#section-13.5.1
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

type incomingRequestKey struct{}

// WithIncoming returns a context carrying the client request that is
// being served
func WithIncoming(ctx context.Context, incoming *http.Request) context.Context {
	return context.WithValue(ctx, incomingRequestKey{}, incoming)
}

// IncomingFrom returns the client request stored in ctx, if any
func IncomingFrom(ctx context.Context) (*http.Request, bool) {
	incoming, ok := ctx.Value(incomingRequestKey{}).(*http.Request)
	return incoming, ok && incoming != nil
}

// IsHopByHopHeader reports whether name is a hop-by-hop header
func IsHopByHopHeader(name string) bool {
	for _, hop := range hopHeaders {
		if strings.EqualFold(hop, name) {
			return true
		}
	}
	return false
}

// IsSessionHeader reports whether name carries a session attribute
func IsSessionHeader(name string) bool {
	return len(name) >= len(SessionHeaderPrefix) && strings.EqualFold(name[:len(SessionHeaderPrefix)], SessionHeaderPrefix)
}

// RemoveHopByHopHeaders removes hop-by-hop headers, including any
// named by the Connection header, from h
func RemoveHopByHopHeaders(h http.Header) {
	for _, value := range h.Values("Connection") {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, hop := range hopHeaders {
		h.Del(hop)
	}
}

// ForwardedHeaders returns a decorator that copies the end-to-end headers
// of the incoming request onto every outgoing request and sets
// X-Forwarded-Path. hop-by-hop and session headers of the incoming
// request are never forwarded, headers already present on the outgoing
// request win
func ForwardedHeaders() Decorator {
	return func(next Client) Client {
		return ClientFunc(func(req *http.Request) (*Response, error) {
			incoming, ok := IncomingFrom(req.Context())
			if !ok {
				return next.Send(req)
			}

			forwarded := incoming.Header.Clone()
			if forwarded == nil {
				forwarded = http.Header{}
			}
			RemoveHopByHopHeaders(forwarded)
			// bodies are spliced as text, let the transport negotiate encoding
			forwarded.Del("Accept-Encoding")
			for name := range forwarded {
				if IsSessionHeader(name) {
					forwarded.Del(name)
				}
			}

			outgoing := req.Clone(req.Context())
			if outgoing.Header == nil {
				outgoing.Header = http.Header{}
			}
			for name, values := range forwarded {
				if _, exists := outgoing.Header[name]; exists {
					continue
				}
				outgoing.Header[name] = values
			}
			outgoing.Header.Set(ForwardedPathHeader, incoming.URL.Path)

			return next.Send(outgoing)
		})
	}
}
