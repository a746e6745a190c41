// package session carries the client session through every backend
// call of a request as x-rd- headers and writes it back to the client
// as a signed cookie
package session

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kava-labs/composer-proxy-service/backend"
)

// IDAttribute is the attribute holding the session id
const IDAttribute = "session-id"

// Data is an immutable set of session attributes
type Data struct {
	attributes map[string]string
	dirty      bool
}

// NewData returns a fresh session with a random id, marked dirty so
// it is written to the client
func NewData() Data {
	return Data{
		attributes: map[string]string{IDAttribute: uuid.NewString()},
		dirty:      true,
	}
}

// DataFrom returns a clean session holding attributes
func DataFrom(attributes map[string]string) Data {
	copied := make(map[string]string, len(attributes))
	for k, v := range attributes {
		copied[strings.ToLower(k)] = v
	}
	return Data{attributes: copied}
}

func (d Data) ID() string {
	return d.attributes[IDAttribute]
}

func (d Data) Get(name string) (string, bool) {
	value, ok := d.attributes[strings.ToLower(name)]
	return value, ok
}

// Dirty reports whether the session changed since it was read from the client
func (d Data) Dirty() bool {
	return d.dirty
}

// Attributes returns a copy of all attributes
func (d Data) Attributes() map[string]string {
	copied := make(map[string]string, len(d.attributes))
	for k, v := range d.attributes {
		copied[k] = v
	}
	return copied
}

// Names returns the attribute names in sorted order
func (d Data) Names() []string {
	names := make([]string, 0, len(d.attributes))
	for name := range d.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MergedWith returns the session with updates applied, an empty value
// removes the attribute. the result is dirty when anything changed
func (d Data) MergedWith(updates map[string]string) Data {
	merged := d.Attributes()
	dirty := d.dirty

	for name, value := range updates {
		name = strings.ToLower(name)
		current, exists := merged[name]
		if value == "" {
			if exists {
				delete(merged, name)
				dirty = true
			}
			continue
		}
		if !exists || current != value {
			merged[name] = value
			dirty = true
		}
	}

	return Data{attributes: merged, dirty: dirty}
}

// HeaderName returns the session header carrying attribute name
func HeaderName(name string) string {
	return backend.SessionHeaderPrefix + name
}

// AttributeName returns the attribute carried by a session header
func AttributeName(header string) (string, bool) {
	if !backend.IsSessionHeader(header) {
		return "", false
	}
	name := strings.ToLower(header[len(backend.SessionHeaderPrefix):])
	return name, name != ""
}
