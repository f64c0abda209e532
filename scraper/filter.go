package scraper

import (
	"net/url"
	"strings"

	"github.com/use-agent/placescout/engine"
)

// DefaultBlockedTypes are the heavy resource types the results list never needs.
var DefaultBlockedTypes = []string{"image", "font", "media"}

// Filter decides, per outgoing request, whether the page may load it.
// It has no side effects; the session aborts what it rejects.
type Filter struct {
	blockedTypes map[engine.ResourceType]struct{}
	blockedHosts map[string]struct{}
}

// NewFilter builds a Filter from config names ("image", "Font") and host
// names. A host also blocks its subdomains.
func NewFilter(blockedTypes, blockedHosts []string) *Filter {
	f := &Filter{
		blockedTypes: make(map[engine.ResourceType]struct{}, len(blockedTypes)),
		blockedHosts: make(map[string]struct{}, len(blockedHosts)),
	}
	for _, name := range blockedTypes {
		if rt := engine.ParseResourceType(name); rt != "" {
			f.blockedTypes[rt] = struct{}{}
		}
	}
	for _, h := range blockedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			f.blockedHosts[h] = struct{}{}
		}
	}
	return f
}

// AllowType reports whether a resource type may load, ignoring the host.
func (f *Filter) AllowType(t engine.ResourceType) bool {
	_, blocked := f.blockedTypes[t]
	return !blocked
}

// Allow reports whether req may proceed. The top-level document is always
// allowed, otherwise the navigation itself would fail.
func (f *Filter) Allow(req engine.Request) bool {
	if req.Type == engine.ResourceDocument {
		return true
	}
	if !f.AllowType(req.Type) {
		return false
	}
	if len(f.blockedHosts) == 0 {
		return true
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return true
	}
	return !f.isBlockedHost(u.Hostname())
}

// isBlockedHost checks a hostname and each of its parent domains
// ("a.tile.openstreetmap.org" → "tile.openstreetmap.org" → ...).
func (f *Filter) isBlockedHost(host string) bool {
	host = strings.ToLower(host)
	for host != "" {
		if _, ok := f.blockedHosts[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
	}
	return false
}
