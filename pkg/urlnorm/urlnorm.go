// Package urlnorm normalizes URLs into deterministic duplicate keys.
//
// Two tabs are considered duplicates when their normalized URLs are equal.
// Normalization strips fragments and tracking query parameters, sorts the
// remaining parameters, lowercases the host, and removes default ports and
// trailing slashes. The result is a pure function of the input URL.
package urlnorm

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters that never change page content and are
// removed during normalization, unless a per-domain preserved list overrides.
var trackingParams = map[string]struct{}{
	"gclid":      {},
	"dclid":      {},
	"gbraid":     {},
	"wbraid":     {},
	"fbclid":     {},
	"msclkid":    {},
	"twclid":     {},
	"igshid":     {},
	"yclid":      {},
	"mc_cid":     {},
	"mc_eid":     {},
	"_hsenc":     {},
	"_hsmi":      {},
	"hsa_acc":    {},
	"vero_id":    {},
	"wickedid":   {},
	"oly_enc_id": {},
	"s_cid":      {},
	"ref_src":    {},
	"ref_url":    {},
	"spm":        {},
}

// defaultPreserved lists parameters that look like tracking noise but are
// load-bearing on specific domains.
var defaultPreserved = map[string][]string{
	"youtube.com": {"v", "t", "list"},
	"google.com":  {"q", "tbm"},
	"bing.com":    {"q"},
	"amazon.com":  {"node", "k"},
}

// Normalizer computes duplicate keys for URLs. The zero value is not usable;
// construct one with [New]. [Default] carries the built-in parameter lists.
type Normalizer struct {
	tracking  map[string]struct{}
	preserved map[string]map[string]struct{}
}

// Default is the normalizer with the built-in tracking and preserved lists.
var Default = New()

// Opt configures a [Normalizer].
type Opt func(n *Normalizer)

// WithTrackingParams adds query parameter names to the tracking list.
func WithTrackingParams(names ...string) Opt {
	return func(n *Normalizer) {
		for _, name := range names {
			n.tracking[strings.ToLower(name)] = struct{}{}
		}
	}
}

// WithPreservedParams keeps the named query parameters on the given domain
// even when they appear in the tracking list.
func WithPreservedParams(domain string, names ...string) Opt {
	return func(n *Normalizer) {
		domain = strings.ToLower(domain)
		if n.preserved[domain] == nil {
			n.preserved[domain] = map[string]struct{}{}
		}

		for _, name := range names {
			n.preserved[domain][strings.ToLower(name)] = struct{}{}
		}
	}
}

// New creates a [Normalizer] with the built-in lists plus any options.
func New(opts ...Opt) *Normalizer {
	n := &Normalizer{
		tracking:  make(map[string]struct{}, len(trackingParams)),
		preserved: make(map[string]map[string]struct{}, len(defaultPreserved)),
	}
	for name := range trackingParams {
		n.tracking[name] = struct{}{}
	}

	for domain, names := range defaultPreserved {
		WithPreservedParams(domain, names...)(n)
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// DupeKey normalizes a URL with the default normalizer.
func DupeKey(rawURL string) string {
	return Default.DupeKey(rawURL)
}

// DupeKey returns the normalized form of rawURL. URLs that cannot be parsed
// normalize to themselves, so malformed inputs still bucket deterministically.
func (n *Normalizer) DupeKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	// Special-scheme URLs (chrome://, about:, file:, ...) pass through with
	// only the fragment removed.
	if u.Scheme != "http" && u.Scheme != "https" {
		u.Fragment = ""
		u.RawFragment = ""

		return u.String()
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Host = normalizeHost(u.Scheme, u.Host)
	u.RawQuery = n.normalizeQuery(Domain(rawURL), u.Query())

	// Trailing slash carries no meaning for duplicate detection.
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""

	return u.String()
}

// Domain extracts the registrable host of a URL, lowercased and with any
// leading "www." removed. Unparsable URLs yield an empty domain.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.ToLower(u.Hostname())

	return strings.TrimPrefix(host, "www.")
}

// Origin returns the scheme://host[:port] prefix of a URL, with the host
// lowercased and default ports removed.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return ""
	}

	if u.Host == "" {
		return u.Scheme + ":"
	}

	return u.Scheme + "://" + normalizeHost(u.Scheme, u.Host)
}

func normalizeHost(scheme, host string) string {
	host = strings.ToLower(host)

	switch scheme {
	case "http":
		host = strings.TrimSuffix(host, ":80")
	case "https":
		host = strings.TrimSuffix(host, ":443")
	}

	return host
}

// normalizeQuery removes tracking parameters and re-encodes the remaining
// ones in sorted order.
func (n *Normalizer) normalizeQuery(domain string, query url.Values) string {
	preserved := n.preserved[domain]

	keys := make([]string, 0, len(query))

	for key := range query {
		if n.isTracking(key) {
			if _, keep := preserved[strings.ToLower(key)]; !keep {
				continue
			}
		}

		keys = append(keys, key)
	}

	sort.Strings(keys)

	var b strings.Builder

	for _, key := range keys {
		values := query[key]
		sort.Strings(values)

		for _, value := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}

			b.WriteString(url.QueryEscape(key))

			if value != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(value))
			}
		}
	}

	return b.String()
}

func (n *Normalizer) isTracking(name string) bool {
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "utm_") {
		return true
	}

	_, ok := n.tracking[name]

	return ok
}
