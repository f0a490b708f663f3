package httpds

import (
	"fmt"
	"net/url"
	"path"
	"regexp"

	"github.com/zeebo/xxh3"
)

// filenameCleaner replaces sequences of unsafe characters with "_".
var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9.]+`)

// HashString returns a stable 16-char hex xxh3 digest of s.
func HashString(s string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(s))
}

// SafeFilenameFromURL derives a filesystem-safe filename from a raw URL.
//
// Preference order: the last path segment when it carries an extension
// (e.g. "sales.csv"), then the cleaned raw query, then a hash of the whole
// URL. Unsafe characters collapse into a single "_".
func SafeFilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL)
	}

	if base := path.Base(u.Path); path.Ext(base) != "" {
		if clean := filenameCleaner.ReplaceAllString(base, "_"); clean != "" && clean != "." {
			return clean
		}
	}

	clean := filenameCleaner.ReplaceAllString(u.RawQuery, "_")
	if clean == "" {
		return HashString(rawURL)
	}
	return clean
}
