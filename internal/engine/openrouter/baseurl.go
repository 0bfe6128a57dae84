package openrouter

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://openrouter.ai"

// openRouterHosts are accepted when OPENROUTER_ALLOWED_HOSTS is empty.
var openRouterHosts = []string{"openrouter.ai", "api.openrouter.ai"}

// normalizeBaseURL trims slashes and an "/api/v1" suffix, so both the site
// root and the API root are accepted.
func normalizeBaseURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return DefaultBaseURL
	}
	return strings.TrimSuffix(base, "/api/v1")
}

// ValidateBaseURL checks that baseURL is safe to send the API key to.
// A non-empty allowedHosts replaces the openrouter.ai defaults.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	base := normalizeBaseURL(baseURL)
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("OPENROUTER_BASE_URL: %w", err)
	}
	switch {
	case !strings.EqualFold(u.Scheme, "https"):
		return fmt.Errorf("OPENROUTER_BASE_URL %q must be an https URL", base)
	case u.Hostname() == "":
		return fmt.Errorf("OPENROUTER_BASE_URL %q has no host", base)
	case u.User != nil:
		return errors.New("OPENROUTER_BASE_URL must not carry credentials")
	case u.RawQuery != "" || u.Fragment != "":
		return fmt.Errorf("OPENROUTER_BASE_URL %q must not have a query or fragment", base)
	}

	host := strings.ToLower(u.Hostname())
	hosts := hostList(allowedHosts)
	if !slices.Contains(hosts, host) {
		return fmt.Errorf("OPENROUTER_BASE_URL host %q is not in OPENROUTER_ALLOWED_HOSTS (%s)",
			host, strings.Join(hosts, ", "))
	}
	return nil
}

// hostList reduces allowed entries to bare lowercase host names.
// Entries may be written as URLs; scheme, port and path are dropped.
func hostList(allowed []string) []string {
	var out []string
	for _, h := range allowed {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, rest, ok := strings.Cut(h, "://"); ok {
			h = rest
		}
		h, _, _ = strings.Cut(h, "/")
		h, _, _ = strings.Cut(h, ":")
		if h != "" && !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return openRouterHosts
	}
	return out
}
