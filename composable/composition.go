package composable

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/kava-labs/composer-proxy-service/backend"
)

// ResponseComposition is an immutable set of roots with distinct keys.
// every fold visits the roots in key order
type ResponseComposition struct {
	roots []Root
}

// New returns a composition over roots, failing when two roots share a key
func New(roots ...Root) (ResponseComposition, error) {
	sorted := make([]Root, 0, len(roots))
	seen := make(map[string]bool, len(roots))

	for _, root := range roots {
		if root == nil {
			continue
		}
		key := root.Key()
		if seen[key] {
			return ResponseComposition{}, fmt.Errorf("duplicate composable root %q", key)
		}
		seen[key] = true
		sorted = append(sorted, root)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key() < sorted[j].Key()
	})

	return ResponseComposition{roots: sorted}, nil
}

// Get returns the root registered for key
func (c ResponseComposition) Get(key string) (Root, bool) {
	for _, root := range c.roots {
		if root.Key() == key {
			return root, true
		}
	}
	return nil, false
}

// Keys returns the keys of all roots in fold order
func (c ResponseComposition) Keys() []string {
	keys := make([]string, len(c.roots))
	for i, root := range c.roots {
		keys[i] = root.Key()
	}
	return keys
}

// Enrich passes req through the EnrichRequest of every root
func (c ResponseComposition) Enrich(req *http.Request) *http.Request {
	for _, root := range c.roots {
		req = root.EnrichRequest(req)
	}
	return req
}

// FragmentFor asks every root for its fragment of res
func (c ResponseComposition) FragmentFor(res *backend.Response) Fragments {
	byKey := make(map[string]Fragment, len(c.roots))
	if res == nil {
		return Fragments{byKey: byKey}
	}

	for _, root := range c.roots {
		if fragment := root.FragmentFor(res); fragment != nil {
			byKey[root.Key()] = fragment
		}
	}
	return Fragments{byKey: byKey}
}

// ComposedWith returns a composition where each root is merged with its
// own fragment. roots without a fragment are carried over unchanged and
// fragments without a root are ignored
func (c ResponseComposition) ComposedWith(fragments Fragments) ResponseComposition {
	if fragments.Len() == 0 {
		return c
	}

	roots := make([]Root, len(c.roots))
	for i, root := range c.roots {
		if fragment, ok := fragments.Get(root.Key()); ok {
			roots[i] = root.ComposedWith(fragment)
			continue
		}
		roots[i] = root
	}
	return ResponseComposition{roots: roots}
}

// ComposedWithFragmentFor is ComposedWith(FragmentFor(res))
func (c ResponseComposition) ComposedWithFragmentFor(res *backend.Response) ResponseComposition {
	return c.ComposedWith(c.FragmentFor(res))
}

// WriteTo folds the state of every root onto res. it must only be
// called on the response sent to the client
func (c ResponseComposition) WriteTo(res *backend.Response) *backend.Response {
	if res == nil {
		return nil
	}
	for _, root := range c.roots {
		res = root.WriteTo(res)
	}
	return res
}

// ExtendableResponse is a response paired with the composition
// accumulated while producing it
type ExtendableResponse struct {
	Response   *backend.Response
	Extensions ResponseComposition
}

// ExtendedResponse returns the response with the extensions written to it
func (e ExtendableResponse) ExtendedResponse() *backend.Response {
	return e.Extensions.WriteTo(e.Response)
}
