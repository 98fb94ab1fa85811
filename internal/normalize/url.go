package normalize

import (
	"net/url"
	"strings"
)

const canonicalSourceHost = "championat.com"

// URL canonicalizes an article or tag URL so that URL identity is stable
// across crawls. The result is idempotent: URL(URL(u)) == URL(u).
//
// Rules, in order: trim whitespace; scheme-relative URLs get https;
// lowercase host; strip a leading "www."; collapse any subdomain of the
// source portal to the bare host; drop every query parameter whose key
// starts with "utm_" (other parameters keep their original order); drop
// the fragment; trim a trailing "/" from the path.
func URL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "//") {
		trimmed = "https:" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return trimmed
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	if host == canonicalSourceHost || strings.HasSuffix(host, "."+canonicalSourceHost) {
		host = canonicalSourceHost
	}
	parsed.Host = host

	parsed.RawQuery = stripTrackingParams(parsed.RawQuery)
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""

	return parsed.String()
}

func stripTrackingParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	kept := make([]string, 0, 4)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			key = pair[:idx]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}
