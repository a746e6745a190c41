// package routing resolves an incoming method and path
// against an ordered table of route rules
package routing

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RouteType selects how a matched request is handled
type RouteType string

const (
	// RouteTypeProxy forwards the request to the backend and relays the response
	RouteTypeProxy RouteType = "PROXY"
	// RouteTypeTemplate fetches a template from the backend and composes its includes
	RouteTypeTemplate RouteType = "TEMPLATE"
)

// ParseRouteType parses a case insensitive route type
func ParseRouteType(raw string) (RouteType, error) {
	switch RouteType(strings.ToUpper(raw)) {
	case RouteTypeProxy:
		return RouteTypeProxy, nil
	case RouteTypeTemplate:
		return RouteTypeTemplate, nil
	}
	return "", fmt.Errorf("unknown route type %q", raw)
}

// Match is the outcome of resolving a request: where to send it,
// the deadline for the backend call and how to treat the response
type Match struct {
	Backend   string
	TTL       time.Duration
	RouteType RouteType
}

// RouteMatch is a Match together with the parameters captured
// from the request path
type RouteMatch struct {
	Match
	Pattern string
	Params  map[string]string
}

// ExpandedBackend returns the backend with every {name} placeholder
// replaced by the captured parameter of the same name
func (m RouteMatch) ExpandedBackend() string {
	return ExpandParams(m.Backend, m.Params)
}

// ExpandParams replaces {name} placeholders in template with params,
// placeholders without a parameter are left untouched. params hold
// decoded path values, each of their segments is escaped again so a
// captured ? or # stays part of the path
func ExpandParams(template string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(template, "{") {
		return template
	}

	replacements := make([]string, 0, len(params)*2)
	for name, value := range params {
		replacements = append(replacements, "{"+name+"}", escapePathSegments(value))
	}

	return strings.NewReplacer(replacements...).Replace(template)
}

func escapePathSegments(value string) string {
	segments := strings.Split(value, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
