package model

import (
	"path"
	"regexp"
	"strings"
)

var allowedPathChars = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)

// NormalizePath turns a client-supplied image path into a storage key prefix:
// no leading/trailing slashes, no dot segments, restricted charset.
func NormalizePath(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	p = strings.Trim(p, "/")
	if p == "" || !allowedPathChars.MatchString(p) {
		return "", ErrInvalidPath
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || seg == "." {
			return "", ErrInvalidPath
		}
	}

	p = path.Clean(p)
	if p == "." {
		return "", ErrInvalidPath
	}
	return p, nil
}

// KeyFromURL strips the public base URL (if present) so that both an object key
// and a URL returned by upload identify the same object.
func KeyFromURL(raw, baseURL string) (string, error) {
	p := strings.TrimSpace(raw)
	if baseURL != "" {
		p = strings.TrimPrefix(p, strings.TrimRight(baseURL, "/"))
	}
	return NormalizePath(p)
}
