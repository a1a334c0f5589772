package addrutil

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// BaseURL normalises a configured controller address into a base URL.
//
// Controllers are usually configured by bare IP ("10.0.0.1"), host:port or a full
// URL. Bare forms default to https since the management API is TLS only. Raw IPv6
// literals without brackets are treated as a host without port.
func BaseURL(addr string) (string, error) {
	a := strings.TrimSpace(addr)
	if a == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(a, "://") {
		a = "https://" + bracketIPv6(a)
	}

	u, err := url.Parse(a)
	if err != nil {
		return "", fmt.Errorf("parse address %q: %w", addr, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("address %q: unsupported scheme %q", addr, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("address %q: missing host", addr)
	}

	return u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/"), nil
}

// Host returns the host part of a base URL, for logs.
func Host(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	if h, _, err := net.SplitHostPort(u.Host); err == nil {
		return h
	}
	return strings.Trim(u.Host, "[]")
}

func bracketIPv6(a string) string {
	if strings.HasPrefix(a, "[") || strings.Count(a, ":") < 2 {
		return a
	}
	host, rest, _ := strings.Cut(a, "/")
	if ip := net.ParseIP(host); ip != nil {
		if rest != "" {
			return "[" + host + "]/" + rest
		}
		return "[" + host + "]"
	}
	return a
}
