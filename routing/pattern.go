package routing

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
)

// Pattern is a parsed route path such as /products/<id>/<rest:path>.
// <name> captures exactly one non-empty path segment, <name:path>
// captures the remainder of the path and may only appear last.
// matching is delegated to a gorilla/mux route built from the pattern
type Pattern struct {
	raw   string
	route *mux.Route
	// rest names the <name:path> parameter whose capture starts with
	// the slash preceding it
	rest string
}

// ParsePattern parses raw into a Pattern
func ParsePattern(raw string) (Pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return Pattern{}, fmt.Errorf("pattern %q must start with /", raw)
	}

	var template strings.Builder
	var rest string

	parts := strings.Split(strings.TrimPrefix(raw, "/"), "/")
	for i, part := range parts {
		if !strings.HasPrefix(part, "<") || !strings.HasSuffix(part, ">") {
			if strings.ContainsAny(part, "<>{}") {
				return Pattern{}, fmt.Errorf("pattern %q has malformed segment %q", raw, part)
			}
			template.WriteString("/" + part)
			continue
		}

		name, modifier, _ := strings.Cut(part[1:len(part)-1], ":")
		if name == "" || strings.ContainsAny(name, "{}") {
			return Pattern{}, fmt.Errorf("pattern %q has unnamed parameter", raw)
		}

		switch modifier {
		case "":
			template.WriteString("/{" + name + "}")
		case "path":
			if i != len(parts)-1 {
				return Pattern{}, fmt.Errorf("pattern %q: path parameter %s must be the last segment", raw, name)
			}
			if i == 0 {
				template.WriteString("/{" + name + ":.*}")
			} else {
				// also matches the path without a trailing remainder
				template.WriteString("{" + name + ":(?:/.*)?}")
				rest = name
			}
		default:
			return Pattern{}, fmt.Errorf("pattern %q has unknown parameter modifier %q", raw, modifier)
		}
	}

	route := mux.NewRouter().NewRoute().Path(template.String())
	if err := route.GetError(); err != nil {
		return Pattern{}, fmt.Errorf("pattern %q: %w", raw, err)
	}

	return Pattern{raw: raw, route: route, rest: rest}, nil
}

// MustParsePattern is like ParsePattern but panics on error
func MustParsePattern(raw string) Pattern {
	p, err := ParsePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string {
	return p.raw
}

// Matches reports whether path matches the pattern, returning the
// captured parameters
func (p Pattern) Matches(path string) (map[string]string, bool) {
	if p.route == nil || !strings.HasPrefix(path, "/") {
		return nil, false
	}

	var match mux.RouteMatch
	if !p.route.Match(&http.Request{Method: http.MethodGet, URL: &url.URL{Path: path}}, &match) {
		return nil, false
	}

	params := make(map[string]string, len(match.Vars))
	for name, value := range match.Vars {
		params[name] = value
	}
	if p.rest != "" {
		params[p.rest] = strings.TrimPrefix(params[p.rest], "/")
	}

	return params, true
}
