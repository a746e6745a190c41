package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyRoutes = errors.New("routes file declares no routes")

	ValidRouteTypes = [2]string{"PROXY", "TEMPLATE"}
)

// RouteConfig is a single entry of the routes file
type RouteConfig struct {
	Path   string        `yaml:"path"`
	Method string        `yaml:"method"`
	Type   string        `yaml:"type"`
	Target string        `yaml:"target"`
	TTL    time.Duration `yaml:"-"`
}

type rawRoute struct {
	Path   string `yaml:"path"`
	Method string `yaml:"method"`
	Type   string `yaml:"type"`
	Target string `yaml:"target"`
	TTL    string `yaml:"ttl"`
}

type routesFile struct {
	Routes []rawRoute `yaml:"routes"`
}

// LoadRoutes reads and parses the routes file at path
func LoadRoutes(path string) ([]RouteConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading routes file %s: %w", path, err)
	}

	return ParseRoutes(raw)
}

// ParseRoutes parses the yaml encoded routing table, preserving
// declaration order. every route must declare a path, target, type
// and a positive ttl, method defaults to GET
func ParseRoutes(raw []byte) ([]RouteConfig, error) {
	var file routesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("invalid routes file: %w", err)
	}

	if len(file.Routes) == 0 {
		return nil, ErrEmptyRoutes
	}

	var allErrs error
	routes := make([]RouteConfig, 0, len(file.Routes))
	for i, r := range file.Routes {
		route, err := r.toRouteConfig()
		if err != nil {
			allErrs = errors.Join(allErrs, fmt.Errorf("route %d (%s): %w", i, r.Path, err))
			continue
		}
		routes = append(routes, route)
	}

	if allErrs != nil {
		return nil, allErrs
	}

	return routes, nil
}

func (r rawRoute) toRouteConfig() (RouteConfig, error) {
	var errs error

	if r.Path == "" || !strings.HasPrefix(r.Path, "/") {
		errs = errors.Join(errs, fmt.Errorf("path must start with / got %q", r.Path))
	}
	if r.Target == "" {
		errs = errors.Join(errs, errors.New("target must not be empty"))
	}

	routeType := strings.ToUpper(r.Type)
	validType := false
	for _, t := range ValidRouteTypes {
		if routeType == t {
			validType = true
			break
		}
	}
	if !validType {
		errs = errors.Join(errs, fmt.Errorf("invalid type %q, supported values are %v", r.Type, ValidRouteTypes))
	}

	method := strings.ToUpper(r.Method)
	if method == "" {
		method = "GET"
	}

	var ttl time.Duration
	if r.TTL == "" {
		errs = errors.Join(errs, errors.New("ttl must be set"))
	} else {
		parsed, err := time.ParseDuration(r.TTL)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("invalid ttl %q: %w", r.TTL, err))
		} else if parsed <= 0 {
			errs = errors.Join(errs, fmt.Errorf("ttl must be positive got %s", r.TTL))
		}
		ttl = parsed
	}

	if errs != nil {
		return RouteConfig{}, errs
	}

	return RouteConfig{
		Path:   r.Path,
		Method: method,
		Type:   routeType,
		Target: r.Target,
		TTL:    ttl,
	}, nil
}
