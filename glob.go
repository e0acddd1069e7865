package cachectl

import (
	"strings"

	"github.com/gobwas/glob"
)

const matchAll = "*"

// keyMatcher applies redis-style glob patterns client side for backends
// that cannot filter keys themselves.
type keyMatcher struct {
	all bool
	g   glob.Glob
}

func compilePattern(pattern string) (keyMatcher, error) {
	if pattern == "" {
		return keyMatcher{}, invalidArgf("pattern must not be empty")
	}
	if pattern == matchAll {
		return keyMatcher{all: true}, nil
	}
	// redis negates classes with [^...], gobwas with [!...]
	g, err := glob.Compile(strings.ReplaceAll(pattern, "[^", "[!"))
	if err != nil {
		return keyMatcher{}, invalidArgf("bad pattern %q: %v", pattern, err)
	}
	return keyMatcher{g: g}, nil
}

func (m keyMatcher) Match(key string) bool {
	return m.all || m.g.Match(key)
}

// literalPrefix returns the part of pattern before the first glob metacharacter.
func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, `*?[{\`); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// appendUnique appends keys not already seen, preserving first-seen order.
func appendUnique(dst []string, seen map[string]struct{}, keys ...string) []string {
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, key)
	}
	return dst
}
