package wix

import (
	"strings"
)

// MaxIdentifierLength is the longest Id light will accept.
const MaxIdentifierLength = 72

// Normalizer turns filesystem paths into wix identifiers. Wix
// identifiers may contain ASCII letters, digits, underscores, and
// periods. They must begin with a letter or an underscore, and are
// limited to 72 characters.
//
// Truncation keeps the prefix, so two long paths sharing their first
// 72 characters normalize to the same identifier. Normalizer does not
// detect that.
type Normalizer struct {
	prefixes []string
}

// NewNormalizer returns a Normalizer that strips the first matching
// prefix from each path before converting it.
func NewNormalizer(prefixes ...string) *Normalizer {
	n := &Normalizer{}
	for _, p := range prefixes {
		p = strings.TrimRight(p, `/\`)
		if p == "" {
			continue
		}
		n.prefixes = append(n.prefixes, p)
	}
	return n
}

// Normalize returns the identifier for path.
func (n *Normalizer) Normalize(path string) string {
	path = n.stripPrefix(path)

	var b strings.Builder
	for _, r := range path {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('.')
		case isIdentifierRune(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	id := b.String()
	if id == "" || !isIdentifierStart(rune(id[0])) {
		id = "_" + id
	}

	if len(id) > MaxIdentifierLength {
		id = id[:MaxIdentifierLength]
	}

	return id
}

// stripPrefix removes the first prefix that matches path on a
// segment boundary, along with the separator that follows it.
func (n *Normalizer) stripPrefix(path string) string {
	for _, p := range n.prefixes {
		if !strings.HasPrefix(path, p) {
			continue
		}
		rest := path[len(p):]
		if rest == "" {
			return rest
		}
		if rest[0] != '/' && rest[0] != '\\' {
			continue
		}
		return strings.TrimLeft(rest, `/\`)
	}
	return path
}

// ValidIdentifier reports whether id satisfies light's identifier
// syntax.
func ValidIdentifier(id string) bool {
	if id == "" || len(id) > MaxIdentifierLength {
		return false
	}
	if !isIdentifierStart(rune(id[0])) {
		return false
	}
	for _, r := range id {
		if !isIdentifierRune(r) {
			return false
		}
	}
	return true
}

func isIdentifierStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentifierRune(r rune) bool {
	return isIdentifierStart(r) || r == '.' || (r >= '0' && r <= '9')
}
