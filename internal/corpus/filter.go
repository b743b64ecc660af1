package corpus

import (
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExcludePatterns match files in a reference directory that are never documents:
// hidden files, editor and office lock files, and partial downloads.
var DefaultExcludePatterns = []string{
	".*",
	"~$*",
	"*~",
	"*.tmp",
	"*.part",
	"*.crdownload",
	"*.swp",
}

// FileFilter decides which directory entries are reference documents.
type FileFilter struct {
	extensions []string
	patterns   []string
}

// NewFileFilter creates a filter accepting the given extensions (with leading dot)
// and rejecting DefaultExcludePatterns.
func NewFileFilter(extensions []string) *FileFilter {
	return NewFileFilterWithPatterns(extensions, DefaultExcludePatterns)
}

// NewFileFilterWithPatterns creates a FileFilter with custom exclusion patterns.
func NewFileFilterWithPatterns(extensions, patterns []string) *FileFilter {
	exts := make([]string, len(extensions))
	for i, ext := range extensions {
		exts[i] = strings.ToLower(ext)
	}
	return &FileFilter{
		extensions: exts,
		patterns:   patterns,
	}
}

// ShouldExclude returns true if the base name of path matches an exclusion pattern.
// Matching is case-insensitive.
func (f *FileFilter) ShouldExclude(path string) bool {
	name := strings.ToLower(filepath.Base(filepath.ToSlash(path)))
	for _, pattern := range f.patterns {
		if matched, _ := filepath.Match(strings.ToLower(pattern), name); matched {
			return true
		}
	}
	return false
}

// HasAllowedExtension reports whether path ends in an accepted extension.
func (f *FileFilter) HasAllowedExtension(path string) bool {
	return slices.Contains(f.extensions, strings.ToLower(filepath.Ext(path)))
}

// Allowed reports whether path names a reference document.
func (f *FileFilter) Allowed(path string) bool {
	return f.HasAllowedExtension(path) && !f.ShouldExclude(path)
}
