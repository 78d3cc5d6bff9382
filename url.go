package doccrawl

import (
	"net/url"
	"strings"
)

// NormalizeURL returns the identity form of an absolute http(s) URL:
// scheme and host are lowercased, default ports and the fragment are
// removed, an empty path becomes "/" and a trailing slash on any other path
// is dropped. Two URLs that normalize to the same string are the same page
// for deduplication purposes.
func NormalizeURL(rawURL string) (string, error) {
	u, err := parseAbsolute(rawURL)
	if err != nil {
		return "", err
	}
	return normalize(u).String(), nil
}

// CleanURL returns the fetchable form of an absolute URL: the fragment is
// stripped and scheme and host are lowercased, but the path is left as
// discovered so relative links on the page keep resolving correctly.
func CleanURL(rawURL string) (string, error) {
	u, err := parseAbsolute(rawURL)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = normalizeHost(u.Scheme, u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}

// HostOf returns the normalized host (lowercased, default port removed) of rawURL.
// Returns an empty string if rawURL cannot be parsed.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return normalizeHost(strings.ToLower(u.Scheme), u.Host)
}

// SameHost reports whether both URLs share the same normalized host.
// Subdomains are different hosts.
func SameHost(a, b string) bool {
	ha, hb := HostOf(a), HostOf(b)
	return ha != "" && ha == hb
}

func parseAbsolute(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, Errorf(EINVALID, "invalid URL %q: %v", rawURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, Errorf(EINVALID, "unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, Errorf(EINVALID, "URL %q has no host", rawURL)
	}
	return u, nil
}

func normalize(u *url.URL) *url.URL {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = normalizeHost(n.Scheme, n.Host)
	n.Fragment = ""
	n.RawFragment = ""
	n.User = nil
	n.ForceQuery = false
	if n.Path == "" || n.Path == "/" {
		n.Path = "/"
		n.RawPath = ""
	} else {
		n.Path = strings.TrimRight(n.Path, "/")
		n.RawPath = strings.TrimRight(n.RawPath, "/")
		if n.Path == "" {
			n.Path = "/"
			n.RawPath = ""
		}
	}
	return &n
}

func normalizeHost(scheme, host string) string {
	host = strings.ToLower(host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	}
	return host
}

// FileStem turns the host of rawURL into a filesystem-friendly stem by
// replacing dots and colons with underscores (docs.example.com → docs_example_com).
func FileStem(rawURL string) string {
	host := HostOf(rawURL)
	if host == "" {
		return "site"
	}
	return strings.NewReplacer(".", "_", ":", "_").Replace(host)
}
