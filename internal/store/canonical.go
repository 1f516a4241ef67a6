package store

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
)

var versionSuffix = regexp.MustCompile(`v\d+$`)

// Canonicalizer maps entity identifiers to a canonical form. URLs are
// normalized (https scheme, lowercase host, no query, fragment, trailing
// slash or version suffix) and registered aliases resolve to their
// canonical id.
type Canonicalizer struct {
	mu      sync.RWMutex
	aliases map[string]string
}

// NewCanonicalizer creates an empty canonicalizer
func NewCanonicalizer() *Canonicalizer {
	return &Canonicalizer{aliases: make(map[string]string)}
}

// Canonicalize returns the canonical form of val
func (c *Canonicalizer) Canonicalize(val string) string {
	s := normalizeID(val)
	if s == "" {
		return s
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if can, ok := c.aliases[strings.ToLower(s)]; ok {
		return can
	}
	return s
}

// AddAliases registers aliases for canonical and returns the normalized
// (alias key, canonical) pairs that were stored
func (c *Canonicalizer) AddAliases(canonical string, aliases []string) map[string]string {
	can := c.Canonicalize(canonical)
	added := make(map[string]string, len(aliases))

	for _, a := range aliases {
		key := strings.ToLower(c.Canonicalize(a))
		if key == "" {
			continue
		}
		added[key] = can
	}

	c.mu.Lock()
	for k, v := range added {
		c.aliases[k] = v
	}
	c.mu.Unlock()
	return added
}

// load installs previously persisted alias pairs
func (c *Canonicalizer) load(pairs map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range pairs {
		c.aliases[k] = v
	}
}

func normalizeID(val string) string {
	s := strings.TrimSpace(val)
	if s == "" {
		return s
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}

	scheme := u.Scheme
	if scheme == "http" || scheme == "https" {
		scheme = "https"
	}
	path := strings.TrimRight(u.Path, "/")
	path = versionSuffix.ReplaceAllString(path, "")

	out := url.URL{Scheme: scheme, Host: strings.ToLower(u.Host), Path: path}
	return out.String()
}
