// Package comparator provides file comparison strategies for mirrors.
// This includes the default size-and-mtime comparison plus cheaper and
// stricter variants.
package comparator
