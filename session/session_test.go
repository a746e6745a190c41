package session_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/composable"
	"github.com/kava-labs/composer-proxy-service/logging"
	"github.com/kava-labs/composer-proxy-service/session"
)

const cookieName = "rd-session"

func newHandler() *session.CookieHandler {
	return session.NewCookieHandler(cookieName, "secret", time.Hour, logging.Nop())
}

// requestWithCookieFrom copies the session cookie set on res onto a new request
func requestWithCookieFrom(t *testing.T, res *backend.Response) *http.Request {
	t.Helper()

	setCookie := res.Header.Get("Set-Cookie")
	require.NotEmpty(t, setCookie)

	recorder := httptest.NewRecorder()
	recorder.Header().Add("Set-Cookie", setCookie)
	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "http://proxy/", nil)
	req.AddCookie(cookies[0])
	return req
}

func TestUnitTestMissingCookieStartsDirtySession(t *testing.T) {
	data := newHandler().Read(httptest.NewRequest(http.MethodGet, "http://proxy/", nil))

	assert.True(t, data.Dirty())
	assert.NotEmpty(t, data.ID())
}

func TestUnitTestCookieRoundTrip(t *testing.T) {
	handler := newHandler()
	data := session.NewData().MergedWith(map[string]string{"basket": "3"})

	res, err := handler.Write(backend.NewResponse(http.StatusOK, nil), data)
	require.NoError(t, err)
	assert.Contains(t, res.Header.Get("Set-Cookie"), "HttpOnly")

	read := handler.Read(requestWithCookieFrom(t, res))

	assert.False(t, read.Dirty())
	assert.Equal(t, data.ID(), read.ID())
	basket, ok := read.Get("basket")
	assert.True(t, ok)
	assert.Equal(t, "3", basket)
}

func TestUnitTestTamperedCookieStartsNewSession(t *testing.T) {
	res, err := newHandler().Write(backend.NewResponse(http.StatusOK, nil), session.NewData())
	require.NoError(t, err)

	other := session.NewCookieHandler(cookieName, "other-secret", time.Hour, logging.Nop())
	read := other.Read(requestWithCookieFrom(t, res))

	assert.True(t, read.Dirty())
}

func TestUnitTestMergedWith(t *testing.T) {
	data := session.DataFrom(map[string]string{"a": "1", "b": "2"})
	assert.False(t, data.Dirty())

	assert.False(t, data.MergedWith(map[string]string{"a": "1"}).Dirty())
	assert.False(t, data.MergedWith(map[string]string{"missing": ""}).Dirty())

	changed := data.MergedWith(map[string]string{"A": "10", "b": ""})
	assert.True(t, changed.Dirty())
	assert.Equal(t, map[string]string{"a": "10"}, changed.Attributes())

	// the original is unchanged
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, data.Attributes())
}

func TestUnitTestRootEnrichesRequestsWithSessionHeaders(t *testing.T) {
	root := session.NewRoot(session.DataFrom(map[string]string{session.IDAttribute: "abc", "user": "u1"}), newHandler())

	req := httptest.NewRequest(http.MethodGet, "http://fragment/", nil)
	enriched := root.EnrichRequest(req)

	assert.Equal(t, "abc", enriched.Header.Get("x-rd-session-id"))
	assert.Equal(t, "u1", enriched.Header.Get("x-rd-user"))
	assert.Empty(t, req.Header.Get("x-rd-user"))
}

func TestUnitTestRootWritesCookieOnlyWhenChanged(t *testing.T) {
	clean := session.NewRoot(session.DataFrom(map[string]string{session.IDAttribute: "abc"}), newHandler())
	composition, err := composable.New(clean)
	require.NoError(t, err)

	unchanged := backend.NewResponse(http.StatusOK, nil)
	out := composition.ComposedWithFragmentFor(unchanged).WriteTo(backend.NewResponse(http.StatusOK, nil))
	assert.Empty(t, out.Header.Get("Set-Cookie"))

	updating := backend.NewResponse(http.StatusOK, nil)
	updating.Header.Set("X-Rd-Basket", "5")
	out = composition.ComposedWithFragmentFor(updating).WriteTo(backend.NewResponse(http.StatusOK, nil))

	setCookies := out.Header.Values("Set-Cookie")
	require.Len(t, setCookies, 1)
	assert.True(t, strings.HasPrefix(setCookies[0], cookieName+"="))
}

func TestUnitTestRootNeverLeaksSessionHeadersToClient(t *testing.T) {
	root := session.NewRoot(session.DataFrom(map[string]string{session.IDAttribute: "abc"}), newHandler())

	outer := backend.NewResponse(http.StatusOK, nil)
	outer.Header.Set("X-Rd-Secret-Session", "internal")
	outer.Header.Set("X-Other", "kept")

	written := root.WriteTo(outer)

	assert.Empty(t, written.Header.Get("X-Rd-Secret-Session"))
	assert.Equal(t, "kept", written.Header.Get("X-Other"))
}

func TestUnitTestRootIgnoresSessionIDUpdates(t *testing.T) {
	root := session.NewRoot(session.DataFrom(map[string]string{session.IDAttribute: "abc"}), newHandler())

	res := backend.NewResponse(http.StatusOK, nil)
	res.Header.Set("X-Rd-Session-Id", "hijacked")

	assert.Nil(t, root.FragmentFor(res))
}
