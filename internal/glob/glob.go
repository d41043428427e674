// Package glob matches slash-separated project paths against watch and
// source patterns.
//
// Pattern conventions:
//
//   - "*" and "?" match within one segment (path.Match semantics)
//   - "**" matches zero or more whole segments
//   - "src/theme/**" matches the directory itself and everything below it
//   - a pattern without "/" matches the base name at any depth, so "*.css"
//     matches "src/assets/css/style.css"
//   - a leading "./" is ignored; a leading "!" negates the pattern in a Set
//
// Malformed patterns never match.
package glob

import (
	"path"
	"strings"
)

// Match reports whether name matches pattern.
func Match(pattern, name string) bool {
	pattern = normalize(pattern)
	name = normalize(name)

	if pattern == "" {
		return false
	}
	if pattern == "**" {
		return true
	}
	if !strings.Contains(pattern, "/") {
		return matchSegment(pattern, path.Base(name))
	}

	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

// matchSegments walks pattern and name segment by segment. A "**" segment
// tries every possible number of consumed name segments, starting with
// zero.
func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}

		if len(name) == 0 || !matchSegment(pattern[0], name[0]) {
			return false
		}
		pattern = pattern[1:]
		name = name[1:]
	}

	return len(name) == 0
}

func matchSegment(pattern, segment string) bool {
	matched, err := path.Match(pattern, segment)
	return err == nil && matched
}

// HasMeta reports whether s contains any glob metacharacters.
func HasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// Base returns the longest leading directory of pattern that contains no
// metacharacters. It is the root a walker or watcher must start from.
func Base(pattern string) string {
	pattern = normalize(strings.TrimPrefix(pattern, "!"))
	if !HasMeta(pattern) {
		return pattern
	}

	segments := strings.Split(pattern, "/")
	static := make([]string, 0, len(segments))
	for _, segment := range segments {
		if HasMeta(segment) {
			break
		}
		static = append(static, segment)
	}
	if len(static) == 0 {
		return "."
	}
	return strings.Join(static, "/")
}

// Set is a list of include patterns with "!" exclusions.
type Set struct {
	include []string
	exclude []string
}

// Compile splits patterns into includes and "!" excludes.
func Compile(patterns ...string) Set {
	var s Set
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			s.exclude = append(s.exclude, p[1:])
			continue
		}
		s.include = append(s.include, p)
	}
	return s
}

// Includes returns the positive patterns.
func (s Set) Includes() []string {
	return append([]string(nil), s.include...)
}

// Match reports whether name matches an include and no exclude.
func (s Set) Match(name string) bool {
	for _, p := range s.exclude {
		if Match(p, name) {
			return false
		}
	}
	for _, p := range s.include {
		if Match(p, name) {
			return true
		}
	}
	return false
}

// Rel returns name relative to the base of pattern, used to mirror a
// source tree into a destination directory.
func Rel(pattern, name string) string {
	base := Base(pattern)
	name = normalize(name)
	if base == "." || base == "" {
		return name
	}
	if name == base {
		return path.Base(name)
	}
	if strings.HasPrefix(name, base+"/") {
		return name[len(base)+1:]
	}
	return path.Base(name)
}

func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimSuffix(p, "/")
}
