package tree

import "strings"

// Path addresses a node by the names from the root down, joined with
// slashes. Example: "body/main/grid".
type Path string

// Wildcards accepted in path patterns.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator separates path segments.
	Separator = "/"
)

// String returns the path as a string.
func (p Path) String() string {
	return string(p)
}

// Segments returns the node names along the path.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), Separator)
}

// Depth returns the number of segments in the path.
func (p Path) Depth() int {
	if p == "" {
		return 0
	}
	return strings.Count(string(p), Separator) + 1
}

// Parent returns the path without its last segment, or "" for a
// single-segment path.
//
// Example: "body/main/grid" -> "body/main"
func (p Path) Parent() Path {
	s := string(p)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return ""
	}
	return Path(s[:idx])
}

// Child appends a segment.
func (p Path) Child(segment string) Path {
	if p == "" {
		return Path(segment)
	}
	return Path(string(p) + Separator + segment)
}

// Base returns the last segment.
//
// Example: "body/main/grid" -> "grid"
func (p Path) Base() string {
	s := string(p)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// HasPrefix returns true if p is prefix or lies below it.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix == "" {
		return true
	}
	s, pre := string(p), string(prefix)
	if !strings.HasPrefix(s, pre) {
		return false
	}
	// Whole segments only.
	return len(s) == len(pre) || s[len(pre)] == '/'
}

// IsPattern returns true if the path contains a wildcard.
func (p Path) IsPattern() bool {
	return strings.Contains(string(p), WildcardSingle)
}

// IsValid reports whether p is non-empty and has no empty segments.
func (p Path) IsValid() bool {
	if p == "" {
		return false
	}
	for _, seg := range p.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Matches returns true if p matches pattern. "*" matches one segment and
// "**" matches zero or more.
func (p Path) Matches(pattern Path) bool {
	return matchSegments(p.Segments(), pattern.Segments())
}

func matchSegments(path, pattern []string) bool {
	pi, qi := 0, 0

	for qi < len(pattern) {
		if pattern[qi] == WildcardMulti {
			for pi <= len(path) {
				if matchSegments(path[pi:], pattern[qi+1:]) {
					return true
				}
				pi++
			}
			return false
		}
		if pi >= len(path) {
			return false
		}
		if pattern[qi] != WildcardSingle && pattern[qi] != path[pi] {
			return false
		}
		pi++
		qi++
	}
	return pi == len(path)
}

// Join joins segments into a path.
func Join(segments ...string) Path {
	return Path(strings.Join(segments, Separator))
}
