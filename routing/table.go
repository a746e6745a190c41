package routing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kava-labs/composer-proxy-service/config"
)

var ErrNotFound = errors.New("no route matches request")

// Rule binds a method and path pattern to a Match
type Rule struct {
	Method  string
	Pattern Pattern
	Match   Match
}

// Table is an ordered, immutable set of rules
type Table struct {
	rules []Rule
}

// NewTable returns a table over a copy of rules, keeping their order
func NewTable(rules ...Rule) Table {
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return Table{rules: copied}
}

// TableFromConfig builds a table from the routes declared in the routes file
func TableFromConfig(routes []config.RouteConfig) (Table, error) {
	var allErrs error
	rules := make([]Rule, 0, len(routes))

	for _, route := range routes {
		pattern, err := ParsePattern(route.Path)
		if err != nil {
			allErrs = errors.Join(allErrs, err)
			continue
		}

		routeType, err := ParseRouteType(route.Type)
		if err != nil {
			allErrs = errors.Join(allErrs, fmt.Errorf("route %s: %w", route.Path, err))
			continue
		}

		rules = append(rules, Rule{
			Method:  route.Method,
			Pattern: pattern,
			Match: Match{
				Backend:   route.Target,
				TTL:       route.TTL,
				RouteType: routeType,
			},
		})
	}

	if allErrs != nil {
		return Table{}, allErrs
	}

	return NewTable(rules...), nil
}

// Len returns the number of rules in the table
func (t Table) Len() int {
	return len(t.rules)
}

// Resolve returns the first rule in declaration order whose method and
// pattern match, or ErrNotFound
func (t Table) Resolve(method string, path string) (RouteMatch, error) {
	for _, rule := range t.rules {
		if rule.Method != "" && !strings.EqualFold(rule.Method, method) {
			continue
		}

		params, ok := rule.Pattern.Matches(path)
		if !ok {
			continue
		}

		return RouteMatch{
			Match:   rule.Match,
			Pattern: rule.Pattern.String(),
			Params:  params,
		}, nil
	}

	return RouteMatch{}, fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
}
