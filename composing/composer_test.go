package composing_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/composable"
	"github.com/kava-labs/composer-proxy-service/composing"
	"github.com/kava-labs/composer-proxy-service/logging"
)

// mapFetcher serves fragments from a map, unknown paths fall back
type mapFetcher struct {
	mu        sync.Mutex
	fragments map[string]*backend.Response
	delays    map[string]time.Duration
	fetched   []string
}

func (f *mapFetcher) Fetch(ctx context.Context, fc composing.FetchContext, step composing.CompositionStep, extensions composable.ResponseComposition) *backend.Response {
	f.mu.Lock()
	f.fetched = append(f.fetched, fc.Path)
	delay := f.delays[fc.Path]
	res, ok := f.fragments[fc.Path]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return fc.FallbackResponse()
	}
	return res
}

func (f *mapFetcher) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.fetched...)
}

func html(body string) *backend.Response {
	return backend.NewResponse(http.StatusOK, []byte(body))
}

func compose(t *testing.T, fetcher composing.Fetcher, template string) composing.Result {
	t.Helper()

	composer := composing.NewComposer(parser, 10, logging.Nop())
	extensions, err := composable.New()
	require.NoError(t, err)

	return composer.ComposeTemplate(context.Background(), html(template), composing.RootStep("http://templates/root"), fetcher, extensions)
}

func TestUnitTestComposeSplicesFetchedContent(t *testing.T) {
	fetcher := &mapFetcher{fragments: map[string]*backend.Response{"X": html("23")}}

	result := compose(t, fetcher, "42<include path=X>Fallback</include>")

	assert.Equal(t, "4223", string(result.Body))
	assert.Equal(t, 1, result.Includes)
}

func TestUnitTestComposeExtractsContentElement(t *testing.T) {
	fetcher := &mapFetcher{fragments: map[string]*backend.Response{
		"X": html("<html><body><content>23</content></body></html>"),
	}}

	result := compose(t, fetcher, "42<include path=X>Fallback</include>")

	assert.Equal(t, "4223", string(result.Body))
}

func TestUnitTestComposeUsesFallbackForFailedInclude(t *testing.T) {
	fetcher := &mapFetcher{fragments: map[string]*backend.Response{"/ok": html("OK")}}

	result := compose(t, fetcher, `<p>a</p><include path="/down">Fallback</include><p>b</p><include path="/ok">x</include>`)

	assert.Equal(t, "<p>a</p>Fallback<p>b</p>OK", string(result.Body))
}

func TestUnitTestComposeIsRecursive(t *testing.T) {
	fetcher := &mapFetcher{fragments: map[string]*backend.Response{
		"/outer": html(`[outer <include path="/inner">-</include>]`),
		"/inner": html(`(inner <include path="/leaf">-</include>)`),
		"/leaf":  html(`leaf`),
	}}

	result := compose(t, fetcher, `<include path="/outer">-</include>`)

	assert.Equal(t, "[outer (inner leaf)]", string(result.Body))
	assert.Equal(t, 3, result.Includes)
}

func TestUnitTestComposeKeepsDocumentOrderRegardlessOfCompletion(t *testing.T) {
	fetcher := &mapFetcher{
		fragments: map[string]*backend.Response{
			"/slow": html("S"),
			"/fast": html("F"),
		},
		delays: map[string]time.Duration{"/slow": 50 * time.Millisecond},
	}

	result := compose(t, fetcher, `1<include path="/slow"></include>2<include path="/fast"></include>3`)

	assert.Equal(t, "1S2F3", string(result.Body))
}

func TestUnitTestComposeFetchesSiblingsConcurrently(t *testing.T) {
	fetcher := &mapFetcher{
		fragments: map[string]*backend.Response{},
		delays:    map[string]time.Duration{},
	}
	var template strings.Builder
	for i := 0; i < 10; i++ {
		path := fmt.Sprintf("/f%d", i)
		fetcher.fragments[path] = html(fmt.Sprint(i))
		fetcher.delays[path] = 50 * time.Millisecond
		fmt.Fprintf(&template, `<include path="%s"></include>`, path)
	}

	start := time.Now()
	result := compose(t, fetcher, template.String())

	assert.Equal(t, "0123456789", string(result.Body))
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestUnitTestComposeStopsAtIncludeCycle(t *testing.T) {
	fetcher := &mapFetcher{fragments: map[string]*backend.Response{
		"/a": html(`a<include path="/b">no-b</include>`),
		"/b": html(`b<include path="/a">cycle</include>`),
	}}

	result := compose(t, fetcher, `<include path="/a">-</include>`)

	assert.Equal(t, "abcycle", string(result.Body))
	assert.Equal(t, []string{"/a", "/b"}, fetcher.Fetched())
}

func TestUnitTestComposeStopsAtMaxDepth(t *testing.T) {
	fragments := map[string]*backend.Response{}
	for i := 0; i < 5; i++ {
		fragments[fmt.Sprintf("/%d", i)] = html(fmt.Sprintf(`%d<include path="/%d">deep</include>`, i, i+1))
	}
	fetcher := &mapFetcher{fragments: fragments}

	composer := composing.NewComposer(parser, 3, logging.Nop())
	extensions, err := composable.New()
	require.NoError(t, err)

	result := composer.ComposeTemplate(context.Background(), html(`<include path="/0"></include>`), composing.RootStep("/root"), fetcher, extensions)

	assert.Equal(t, "012deep", string(result.Body))
	assert.Len(t, fetcher.Fetched(), 3)
}

func TestUnitTestComposeHoistsFragmentAssetsIntoHead(t *testing.T) {
	fetcher := &mapFetcher{fragments: map[string]*backend.Response{
		"/a": html(`<head><link href="/a.css" data-composer-asset></head><body><content>A</content></body>`),
		"/b": html(`<head><link href="/a.css" data-composer-asset><script data-composer-asset src="/b.js"></script></head><content>B</content>`),
	}}

	result := compose(t, fetcher, `<html><head><title>t</title></head><body><include path="/a"></include><include path="/b"></include></body></html>`)

	assert.Equal(t,
		`<html><head><title>t</title><link href="/a.css" data-composer-asset>`+"\n"+`<script data-composer-asset src="/b.js"></script></head><body>AB</body></html>`,
		string(result.Body))
}

// headerRoot records the X-Trace header of every response it sees
type headerRoot struct {
	seen []string
}

func (r headerRoot) Key() string { return "trace" }

func (r headerRoot) EnrichRequest(req *http.Request) *http.Request { return req }

func (r headerRoot) FragmentFor(res *backend.Response) composable.Fragment {
	if value := res.Header.Get("X-Trace"); value != "" {
		return value
	}
	return nil
}

func (r headerRoot) ComposedWith(fragment composable.Fragment) composable.Root {
	return headerRoot{seen: append(append([]string{}, r.seen...), fragment.(string))}
}

func (r headerRoot) WriteTo(res *backend.Response) *backend.Response {
	return res.WithHeader("X-Trace", strings.Join(r.seen, ","))
}

func TestUnitTestComposeMergesFragmentsInDocumentOrder(t *testing.T) {
	traced := func(body string, trace string) *backend.Response {
		res := html(body)
		res.Header.Set("X-Trace", trace)
		return res
	}
	fetcher := &mapFetcher{
		fragments: map[string]*backend.Response{
			"/first":  traced(`<include path="/nested"></include>`, "first"),
			"/nested": traced("n", "nested"),
			"/second": traced("s", "second"),
		},
		delays: map[string]time.Duration{"/first": 30 * time.Millisecond},
	}

	extensions, err := composable.New(headerRoot{})
	require.NoError(t, err)
	composer := composing.NewComposer(parser, 10, logging.Nop())

	result := composer.ComposeTemplate(context.Background(), html(`<include path="/first"></include><include path="/second"></include>`), composing.RootStep("/"), fetcher, extensions)

	out := result.Extensions.WriteTo(html(string(result.Body)))
	assert.Equal(t, "first,nested,second", out.Header.Get("X-Trace"))
}

func TestUnitTestComposeWithContentFetcherAgainstBackends(t *testing.T) {
	fragmentServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/teaser":
			fmt.Fprint(w, "<content>teaser for "+r.Header.Get(backend.ForwardedPathHeader)+"</content>")
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			fmt.Fprint(w, "too late")
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer fragmentServer.Close()

	base, err := url.Parse(fragmentServer.URL + "/page")
	require.NoError(t, err)

	client := backend.Chain(backend.NewHTTPClient(nil, logging.Nop()), backend.ForwardedHeaders())
	fetcher := composing.NewValidatingContentFetcher(
		composing.NewContentFetcher(client, logging.Nop()),
		base,
		nil,
		nil,
		logging.Nop(),
	)

	incoming := httptest.NewRequest(http.MethodGet, "http://proxy/products/1", nil)
	ctx := backend.WithIncoming(context.Background(), incoming)

	extensions, err := composable.New()
	require.NoError(t, err)
	composer := composing.NewComposer(parser, 10, logging.Nop())

	template := `<include path="/teaser">-</include>|<include path="/broken">broken</include>|<include path="/slow" ttl="20">slow</include>|<include path="//evil.example.com/x">evil</include>`
	result := composer.ComposeTemplate(ctx, html(template), composing.RootStep(base.String()), fetcher, extensions)

	assert.Equal(t, "teaser for /products/1|broken|slow|evil", string(result.Body))
}

func TestUnitTestValidatingFetcherRejectsForeignHostsAndSchemes(t *testing.T) {
	var foreignCalls int32
	foreignServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&foreignCalls, 1)
		fmt.Fprint(w, "foreign")
	}))
	defer foreignServer.Close()

	allowedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "allowed")
	}))
	defer allowedServer.Close()

	base, err := url.Parse(allowedServer.URL + "/page")
	require.NoError(t, err)

	var sent int32
	client := backend.ClientFunc(func(req *http.Request) (*backend.Response, error) {
		atomic.AddInt32(&sent, 1)
		return backend.NewHTTPClient(nil, logging.Nop()).Send(req)
	})
	fetcher := composing.NewValidatingContentFetcher(
		composing.NewContentFetcher(client, logging.Nop()),
		base,
		nil,
		[]string{base.Host},
		logging.Nop(),
	)

	extensions, err := composable.New()
	require.NoError(t, err)
	composer := composing.NewComposer(parser, 10, logging.Nop())

	template := `<include path="` + allowedServer.URL + `/ok">-</include>|` +
		`<include path="` + foreignServer.URL + `/x">foreign fallback</include>|` +
		`<include path="ftp://` + base.Host + `/x">ftp fallback</include>`
	result := composer.ComposeTemplate(context.Background(), html(template), composing.RootStep(base.String()), fetcher, extensions)

	assert.Equal(t, "allowed|foreign fallback|ftp fallback", string(result.Body))
	assert.Equal(t, int32(0), atomic.LoadInt32(&foreignCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&sent))

	for _, path := range []string{foreignServer.URL + "/x", "ftp://" + base.Host + "/x", "//" + base.Host + "/x", ""} {
		_, err := fetcher.Resolve(path)
		assert.ErrorIs(t, err, composing.ErrInvalidPath, path)
	}
}

func TestUnitTestStepString(t *testing.T) {
	step := composing.RootStep("/a").ChildWith("http://b").ChildWith("http://c")

	assert.Equal(t, "/a -> http://b -> http://c", step.String())
	assert.Equal(t, 2, step.Depth())
	assert.False(t, step.IsCycle())
	assert.True(t, step.ChildWith("http://b").IsCycle())

	parent, ok := step.Parent()
	require.True(t, ok)
	assert.Equal(t, "http://b", parent.Path())

	_, ok = composing.RootStep("/a").Parent()
	assert.False(t, ok)
}
