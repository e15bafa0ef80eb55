// Package keys builds Redis keys for cached raw layer payloads.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const prefix = "ecomap:layer"

// Layer keys the raw payload of layer as served by the backend at origin.
// The origin hash keeps two backends sharing one Redis apart.
func Layer(origin, layer string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	layerSafe := sanitize(strings.ToLower(strings.TrimSpace(layer)))

	const maxOriginTextLen = 64
	originSafe := sanitize(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"))
	if len(originSafe) > maxOriginTextLen {
		originSafe = originSafe[:maxOriginTextLen]
	}

	sum := xxhash.Sum64String(origin)
	return fmt.Sprintf("%s:%s:o=%s:h=%016x", prefix, layerSafe, originSafe, sum)
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
