// Package source models the identity of an analyzable repository source:
// where it lives, the credential used to reach it, and the requested branch.
// The identity is the sole input to cache slot addressing.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// CacheKeyLength is the number of hex characters in a derived cache key.
const CacheKeyLength = 12

// Identity describes one repository source. Immutable per request. The
// credential secret participates in key derivation and fetch-address
// construction but is never persisted.
type Identity struct {
	Location   string // clone URI as given by the caller
	Credential string // opaque secret, empty for public sources
	Branch     string // optional branch reference
}

// CacheKey derives the slot identifier for this identity: a truncated
// SHA-256 over all three fields with NUL separation, so changing any field
// (including only the branch, or only the credential) changes the key.
// Pure function; any input, including an empty branch, is valid.
func (id Identity) CacheKey() string {
	h := sha256.New()
	h.Write([]byte(id.Location))
	h.Write([]byte{0})
	h.Write([]byte(id.Credential))
	h.Write([]byte{0})
	h.Write([]byte(id.Branch))
	return hex.EncodeToString(h.Sum(nil))[:CacheKeyLength]
}

// AuthenticatedLocation returns the fetch address for this identity. With a
// credential present, https addresses gain an oauth2 userinfo section and
// scp-style git@host:path addresses are rewritten to the equivalent https
// form first. Without a credential, or for any other scheme, the location
// passes through unchanged.
func (id Identity) AuthenticatedLocation() string {
	if id.Credential == "" {
		return id.Location
	}

	if strings.HasPrefix(id.Location, "https://") {
		return "https://oauth2:" + id.Credential + "@" + strings.TrimPrefix(id.Location, "https://")
	}

	if strings.HasPrefix(id.Location, "git@") {
		rest := strings.TrimPrefix(id.Location, "git@")
		host, path, ok := strings.Cut(rest, ":")
		if ok && host != "" {
			return "https://oauth2:" + id.Credential + "@" + host + "/" + path
		}
	}

	return id.Location
}

// RedactedLocation returns the location with any userinfo stripped, safe for
// logs and the history store.
func (id Identity) RedactedLocation() string {
	return Redact(id.Location)
}

// Redact strips userinfo from a URL-shaped address. Non-URL addresses pass
// through unchanged.
func Redact(address string) string {
	if !strings.Contains(address, "://") {
		return address
	}
	u, err := url.Parse(address)
	if err != nil {
		// Fall back to cutting everything between scheme and '@'
		scheme, rest, _ := strings.Cut(address, "://")
		if at := strings.LastIndex(rest, "@"); at >= 0 {
			return scheme + "://" + rest[at+1:]
		}
		return address
	}
	u.User = nil
	return u.String()
}
