// Package httpcache caches backend responses according to their
// Cache-Control header. it can work with any underlying storage which
// implements the cache.Store interface
//
// a response is stored under the full request URL, query included, when
// it is neither no-store nor no-cache and has a positive max-age. it
// expires max-age after it was stored and reading it never extends that.
// a request sent with Cache-Control: no-cache skips the lookup but its
// response is still offered for storage
//
// when disabled, every request goes straight to the wrapped client
package httpcache
