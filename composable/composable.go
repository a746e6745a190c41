// package composable merges cross cutting state observed in every
// backend response of a request, such as the session, back into the
// single response sent to the client
package composable

import (
	"net/http"

	"github.com/kava-labs/composer-proxy-service/backend"
)

// Fragment is the state one Root extracts from a single backend
// response, nil when the response carries nothing for it
type Fragment any

// Root accumulates one kind of cross cutting state. implementations
// must be immutable, every method returns a new value
type Root interface {
	// Key identifies the kind of root, at most one root per key takes
	// part in a composition
	Key() string
	// EnrichRequest returns req, or a copy of it, carrying the state
	// of the root to the backend
	EnrichRequest(req *http.Request) *http.Request
	// FragmentFor extracts the state contributed by res
	FragmentFor(res *backend.Response) Fragment
	// ComposedWith returns the root merged with a fragment it produced
	ComposedWith(fragment Fragment) Root
	// WriteTo writes the accumulated state onto the outer response
	WriteTo(res *backend.Response) *backend.Response
}

// Fragments holds the fragments of one response by root key
type Fragments struct {
	byKey map[string]Fragment
}

// Get returns the fragment stored for key
func (f Fragments) Get(key string) (Fragment, bool) {
	fragment, ok := f.byKey[key]
	return fragment, ok
}

// Len returns the number of non nil fragments
func (f Fragments) Len() int {
	return len(f.byKey)
}
