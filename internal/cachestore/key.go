package cachestore

import (
	"net/url"
)

// ResourceKey is the lookup key for a request URL: path plus raw query.
func ResourceKey(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		return path + "?" + u.RawQuery
	}
	return path
}

// ParseResourceKey turns a manifest entry into its lookup key.
func ParseResourceKey(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return ResourceKey(u), nil
}
