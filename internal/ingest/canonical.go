// Package ingest turns feed entries and manual submissions into deduplicated
// items.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonesrussell/cardpress/internal/models"
)

// CanonicalKey reduces a URL to its dedup form: lowercase scheme and host,
// no www prefix, no query, no fragment, no trailing slash. Two links that
// differ only in those parts identify the same content.
func CanonicalKey(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %s", models.ErrInvalidInput, rawURL)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: not an absolute URL: %s", models.ErrInvalidInput, rawURL)
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimSuffix(parsed.Path, "/")

	return scheme + "://" + host + path, nil
}

// TextKey derives a dedup key for raw text submissions from a digest of the
// whitespace-collapsed content.
func TextKey(content string) string {
	normalized := strings.Join(strings.Fields(content), " ")
	sum := sha256.Sum256([]byte(normalized))
	return "text:" + hex.EncodeToString(sum[:])
}
