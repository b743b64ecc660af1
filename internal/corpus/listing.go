package corpus

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/sha1n/mcp-refqa-server/internal/config"
)

// ListFilenames resolves the corpus: the configured file list if any, else the
// manifest, else the sorted documents of the reference directory.
// Duplicate names are dropped, keeping the first.
func ListFilenames(settings *config.ReferencesSettings, filter *FileFilter) ([]string, error) {
	switch {
	case len(settings.Files) > 0:
		for _, name := range settings.Files {
			if err := ValidateFilename(name); err != nil {
				return nil, err
			}
		}
		return dedupe(settings.Files), nil

	case settings.Manifest != "":
		manifest, err := LoadManifest(settings.Manifest)
		if err != nil {
			return nil, err
		}
		return dedupe(manifest.Files), nil

	case settings.Dir != "":
		return ListDir(settings.Dir, filter)

	default:
		return nil, errors.New("no reference source configured")
	}
}

// ListDir returns the names of the documents directly inside dir, sorted.
func ListDir(dir string, filter *FileFilter) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !filter.Allowed(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}
