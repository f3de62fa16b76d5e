package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// portalPattern limits portal slugs to letters, digits and dashes.
var portalPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// Resolver extracts tenant identifier from HTTP requests.
type Resolver interface {
	// Resolve extracts the tenant identifier from the request.
	// Returns empty string if no tenant identifier is found.
	// Returns error if the extraction fails.
	Resolve(r *http.Request) (string, error)
}

// PortalResolver extracts the organization portal slug from the request host.
// Each organization serves its feedback portal from a dedicated subdomain,
// so "acme" is the portal for "acme.opinia.app".
type PortalResolver struct {
	// Suffix to strip from the host (e.g., ".opinia.app")
	// If empty, only the first subdomain part is used.
	Suffix string
}

// NewPortalResolver creates a new portal resolver.
func NewPortalResolver(suffix string) *PortalResolver {
	return &PortalResolver{Suffix: suffix}
}

// Resolve extracts the portal slug from the host subdomain.
func (r *PortalResolver) Resolve(req *http.Request) (string, error) {
	host := req.Host

	// Remove port if present
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}

	originalParts := strings.Split(host, ".")

	// Strip suffix if configured
	if r.Suffix != "" && strings.HasSuffix(host, r.Suffix) {
		// Make sure we're not stripping the entire domain
		if len(host) > len(r.Suffix) {
			host = host[:len(host)-len(r.Suffix)]
		}
	}

	parts := strings.Split(host, ".")
	if len(parts) == 0 || parts[0] == "" {
		return "", nil
	}

	// Skip www prefix
	portal := parts[0]
	if portal == "www" {
		if len(parts) > 1 {
			portal = parts[1]
		} else {
			return "", nil
		}
	}

	// A bare domain.tld host has no portal part.
	if len(originalParts) < 3 {
		return "", nil
	}

	if !portalPattern.MatchString(portal) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, portal)
	}

	return portal, nil
}

// HeaderResolver extracts tenant identifier from HTTP header.
type HeaderResolver struct {
	// HeaderName is the name of the header to read (e.g., "X-Organization-ID")
	HeaderName string
}

// NewHeaderResolver creates a new header resolver.
func NewHeaderResolver(headerName string) *HeaderResolver {
	if headerName == "" {
		headerName = "X-Organization-ID"
	}
	return &HeaderResolver{HeaderName: headerName}
}

// Resolve extracts tenant from the configured header.
func (r *HeaderResolver) Resolve(req *http.Request) (string, error) {
	value := req.Header.Get(r.HeaderName)
	if value == "" {
		return "", nil
	}
	if !portalPattern.MatchString(value) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, value)
	}
	return value, nil
}

// CompositeResolver tries multiple resolvers in order until one succeeds.
type CompositeResolver struct {
	Resolvers []Resolver
}

// NewCompositeResolver creates a new composite resolver.
func NewCompositeResolver(resolvers ...Resolver) *CompositeResolver {
	return &CompositeResolver{Resolvers: resolvers}
}

// Resolve tries each resolver in order, returning the first non-empty result.
func (c *CompositeResolver) Resolve(r *http.Request) (string, error) {
	var errs []error

	for _, resolver := range c.Resolvers {
		id, err := resolver.Resolve(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if id != "" {
			return id, nil
		}
	}

	if len(errs) > 0 {
		return "", fmt.Errorf("composite resolver errors: %w", errors.Join(errs...))
	}

	return "", nil
}

// ResolverFunc is an adapter to allow the use of ordinary functions as Resolvers.
type ResolverFunc func(r *http.Request) (string, error)

// Resolve calls the function.
func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}
