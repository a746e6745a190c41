package session

import (
	"net/http"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/composable"
)

const RootKey = "session"

// Root threads the session of the incoming request through the
// composition. backends read it from and update it with x-rd- headers
type Root struct {
	data    Data
	cookies *CookieHandler
}

var _ composable.Root = Root{}

func NewRoot(data Data, cookies *CookieHandler) Root {
	return Root{data: data, cookies: cookies}
}

// FromRequest returns the root for the session of req
func (h *CookieHandler) FromRequest(req *http.Request) Root {
	return NewRoot(h.Read(req), h)
}

func (r Root) Key() string {
	return RootKey
}

func (r Root) Data() Data {
	return r.data
}

// EnrichRequest returns a copy of req carrying every attribute as an x-rd- header
func (r Root) EnrichRequest(req *http.Request) *http.Request {
	enriched := req.Clone(req.Context())
	if enriched.Header == nil {
		enriched.Header = http.Header{}
	}
	for _, name := range r.data.Names() {
		value, _ := r.data.Get(name)
		enriched.Header.Set(HeaderName(name), value)
	}
	return enriched
}

// FragmentFor returns the session attributes set by res, nil when none
func (r Root) FragmentFor(res *backend.Response) composable.Fragment {
	var updates map[string]string
	for header := range res.Header {
		name, ok := AttributeName(header)
		if !ok || name == IDAttribute {
			continue
		}
		if updates == nil {
			updates = map[string]string{}
		}
		updates[name] = res.Header.Get(header)
	}
	if updates == nil {
		return nil
	}
	return updates
}

func (r Root) ComposedWith(fragment composable.Fragment) composable.Root {
	updates, ok := fragment.(map[string]string)
	if !ok {
		return r
	}
	return Root{data: r.data.MergedWith(updates), cookies: r.cookies}
}

// WriteTo removes session headers from res and sets the session cookie
// when the session changed
func (r Root) WriteTo(res *backend.Response) *backend.Response {
	cleaned := res.Clone()
	for header := range cleaned.Header {
		if backend.IsSessionHeader(header) {
			cleaned.Header.Del(header)
		}
	}

	if !r.data.Dirty() || r.cookies == nil {
		return cleaned
	}

	written, err := r.cookies.Write(cleaned, r.data)
	if err != nil {
		r.cookies.logger.Error().Err(err).Msg("error writing session cookie")
		return cleaned
	}
	return written
}
