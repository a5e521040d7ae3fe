package domain

import (
	"net/url"
	"strings"
)

// Whitelist is the immutable set of domains citations may be drawn from.
// Constructed once from config and injected; never a package-level global, so
// tests can substitute alternate sets.
type Whitelist []string

func NewWhitelist(domains []string) Whitelist {
	out := make(Whitelist, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// AllowsHost reports whether host equals a whitelisted domain or is a
// subdomain of one. A leading "www." and any port are ignored.
func (w Whitelist) AllowsHost(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	for _, allowed := range w {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// AllowsURL parses rawURL and applies AllowsHost. Unparseable URLs are never
// allowed.
func (w Whitelist) AllowsURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return w.AllowsHost(u.Host)
}

func (w Whitelist) String() string {
	return strings.Join(w, ", ")
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.TrimPrefix(host, "www.")
}
