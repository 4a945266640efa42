// Package scanner provides pattern matching utilities for file filtering.
package scanner

import (
	"path"
	"strings"
)

// PatternMatcher handles glob pattern matching for mirror file filtering.
// Paths are always slash-separated relative paths from the mirror root.
type PatternMatcher struct{}

// NewPatternMatcher creates a new pattern matcher.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// ShouldIncludeFile determines if a file should be included based on patterns.
// Exclude patterns take precedence; when any include pattern is set, the file
// must match at least one of them.
func (pm *PatternMatcher) ShouldIncludeFile(
	relPath string,
	includePatterns []string,
	excludePatterns []string,
) bool {
	for _, pattern := range excludePatterns {
		if pm.matchesPattern(relPath, pattern) {
			return false
		}
	}

	if len(includePatterns) > 0 {
		for _, pattern := range includePatterns {
			if pm.matchesPattern(relPath, pattern) {
				return true
			}
		}
		return false
	}

	return true
}

// matchesPattern checks if a relative path matches one glob pattern.
// Supported forms: plain globs matched against the full relative path and
// the base name, directory patterns ending in "/", and a single "**"
// spanning path separators.
func (pm *PatternMatcher) matchesPattern(relPath, pattern string) bool {
	// Directory pattern: everything under that directory matches.
	if strings.HasSuffix(pattern, "/") {
		dir := strings.TrimSuffix(pattern, "/")
		return relPath == dir || strings.HasPrefix(relPath, dir+"/")
	}

	if strings.Contains(pattern, "**") {
		return pm.matchesRecursive(relPath, pattern)
	}

	if ok, err := path.Match(pattern, relPath); err == nil && ok {
		return true
	}
	// A bare glob like "*.log" is commonly meant for any directory level.
	if !strings.Contains(pattern, "/") {
		if ok, err := path.Match(pattern, path.Base(relPath)); err == nil && ok {
			return true
		}
	}
	return false
}

// matchesRecursive handles a single "**" wildcard spanning separators.
func (pm *PatternMatcher) matchesRecursive(relPath, pattern string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	prefix, suffix := parts[0], parts[1]

	if !strings.HasPrefix(relPath, prefix) {
		return false
	}
	rest := strings.TrimPrefix(relPath, prefix)
	if suffix == "" {
		return true
	}
	if strings.HasPrefix(suffix, "/") {
		// "dir/**/name" also matches "dir/name".
		if ok, err := path.Match(strings.TrimPrefix(suffix, "/"), rest); err == nil && ok {
			return true
		}
	}
	if ok, err := path.Match("*"+suffix, rest); err == nil && ok {
		return true
	}
	return strings.HasSuffix(rest, suffix)
}
