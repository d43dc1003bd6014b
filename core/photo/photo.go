// Package photo decides how a stored photo reference becomes something a
// client can display. Historical records stored references inconsistently,
// raw URLs, bucket-relative paths, and legacy device-local URIs, so the
// compatibility matrix lives here and nowhere else.
package photo

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// StoragePrefix namespaces every photo object key in the bucket.
const StoragePrefix = "readings/"

// Expiry policy: detail screens hold URLs for a day, everything else gets
// the general default.
const (
	DetailExpiry  = 24 * time.Hour
	DefaultExpiry = time.Hour
)

var httpURL = regexp.MustCompile(`^https?://`)

// Kind classifies a resolved photo reference.
type Kind int

const (
	// None means no displayable photo; the UI renders a placeholder.
	None Kind = iota
	// Direct means the value is a ready-to-use URL.
	Direct
	// Sign means the value is a storage-object path requiring a signed URL.
	Sign
)

// Ref is the outcome of resolving a stored reference against a lane's
// legacy fallback URI.
type Ref struct {
	Kind  Kind
	Value string
}

// Signer issues time-limited URLs for private storage-object paths. The
// gateway's signing primitive is the only production implementation.
type Signer interface {
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// Resolve applies the compatibility matrix, first match wins:
//  1. stored is already an http(s) URL: use directly
//  2. stored is any other non-empty string: storage path, needs signing
//  3. lane fallback carries the storage prefix: legacy path, needs signing
//  4. lane fallback is an http(s) URL: use directly
//  5. nothing displayable
func Resolve(stored, laneFallbackURI string) Ref {
	if stored != "" {
		if httpURL.MatchString(stored) {
			return Ref{Kind: Direct, Value: stored}
		}
		return Ref{Kind: Sign, Value: stored}
	}
	if strings.HasPrefix(laneFallbackURI, StoragePrefix) {
		return Ref{Kind: Sign, Value: laneFallbackURI}
	}
	if httpURL.MatchString(laneFallbackURI) {
		return Ref{Kind: Direct, Value: laneFallbackURI}
	}
	return Ref{}
}

// URL resolves a reference all the way to a displayable URL, delegating
// Sign outcomes to the signer. A signing failure yields ""; a missing
// photo must never block rendering of the rest of the reading.
func URL(ctx context.Context, signer Signer, stored, laneFallbackURI string, expiry time.Duration) string {
	ref := Resolve(stored, laneFallbackURI)
	switch ref.Kind {
	case Direct:
		return ref.Value
	case Sign:
		if signer == nil {
			return ""
		}
		url, err := signer.SignedURL(ctx, ref.Value, expiry)
		if err != nil {
			return ""
		}
		return url
	default:
		return ""
	}
}
