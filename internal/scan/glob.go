package scan

import (
	"path/filepath"
	"strings"
)

// Matcher filters repo-relative paths against an allow-list of glob
// patterns. Patterns use glob syntax with ** for recursive matching:
//
//   - *  matches any sequence of non-separator characters
//   - ** matches any sequence including separators
//   - ?  matches a single non-separator character
//
// An empty allow-list matches nothing: only explicitly tracked sub-trees
// feed the pipeline.
type Matcher struct {
	patterns []string
}

func NewMatcher(patterns []string) *Matcher {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(filepath.ToSlash(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return &Matcher{patterns: out}
}

// Match reports whether the path is tracked. Paths use forward slashes.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return false
	}
	path = filepath.ToSlash(path)
	for _, pattern := range m.patterns {
		if matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoublestar(pattern, path)
	}
	if ok, _ := filepath.Match(pattern, path); ok {
		return true
	}
	ok, _ := filepath.Match(pattern, filepath.Base(path))
	return ok
}

// matchDoublestar handles a single ** segment: "prefix/**/suffix",
// "prefix/**" or "**/suffix".
func matchDoublestar(pattern, path string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix != "" {
		if !strings.HasPrefix(path, prefix+"/") && path != prefix {
			return false
		}
		path = strings.TrimPrefix(strings.TrimPrefix(path, prefix), "/")
	}
	if suffix == "" {
		return true
	}
	if strings.Contains(suffix, "**") {
		return matchDoublestar(suffix, path)
	}
	// The suffix may match at any depth below the prefix.
	segs := strings.Split(path, "/")
	for i := range segs {
		candidate := strings.Join(segs[i:], "/")
		if ok, _ := filepath.Match(suffix, candidate); ok {
			return true
		}
	}
	return false
}
