package utils

import (
	"net/http"
	"net/url"
)

// defaultAccept mirrors what a desktop browser sends for page loads.
const (
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	defaultAcceptLanguage = "en-US,en;q=0.9"
)

// BuildHeaders creates browser-like request headers for a user agent, with
// custom headers applied last.
func BuildHeaders(userAgent string, customHeaders map[string]string) http.Header {
	headers := http.Header{}

	headers.Set("User-Agent", userAgent)
	headers.Set("Accept", defaultAccept)
	headers.Set("Accept-Language", defaultAcceptLanguage)

	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}

// IsValidURL reports whether raw is an absolute http(s) URL.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ResolveURL resolves ref against base. It returns ref unchanged when either
// cannot be parsed.
func ResolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}

	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	resolved := b.ResolveReference(r)
	resolved.Fragment = ""

	return resolved.String()
}

// Host returns the host part of raw, or "" when it has none.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return u.Host
}
