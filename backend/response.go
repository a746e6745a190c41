// package backend provides the buffered response type and the
// decoratable client used for every call the proxy makes to an
// origin server
package backend

import (
	"fmt"
	"io"
	"net/http"
)

// Response is a fully buffered backend response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewResponse returns a response with the given status and body
// and an empty header
func NewResponse(statusCode int, body []byte) *Response {
	return &Response{
		StatusCode: statusCode,
		Header:     http.Header{},
		Body:       body,
	}
}

// FromHTTP reads and closes the body of res, returning the buffered response
func FromHTTP(res *http.Response) (*Response, error) {
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	header := res.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	RemoveHopByHopHeaders(header)

	return &Response{
		StatusCode: res.StatusCode,
		Header:     header,
		Body:       body,
	}, nil
}

// IsSuccess reports whether the status code is 2xx
func (r *Response) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Clone returns a deep copy of the response
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}

	body := make([]byte, len(r.Body))
	copy(body, r.Body)

	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}

	return &Response{
		StatusCode: r.StatusCode,
		Header:     header,
		Body:       body,
	}
}

// WithHeader returns a copy of the response with key set to value
func (r *Response) WithHeader(key string, value string) *Response {
	copied := r.Clone()
	copied.Header.Set(key, value)
	return copied
}

// WithBody returns a copy of the response with body replaced, dropping
// any Content-Length that no longer applies
func (r *Response) WithBody(body []byte) *Response {
	copied := r.Clone()
	copied.Body = body
	copied.Header.Del("Content-Length")
	return copied
}

// Relay writes status, header and body of the response to w
func (r *Response) Relay(w http.ResponseWriter) error {
	for key, values := range r.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.WriteHeader(r.StatusCode)

	_, err := w.Write(r.Body)
	return err
}
