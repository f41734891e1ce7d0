// Package crawler discovers indexable files under a corpus root.
package crawler

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Crawl walks root recursively and returns the paths of regular files whose
// extension is in extensions (compared case-insensitively, leading dot
// included). An empty extensions list accepts every file. Results are sorted
// so repeated crawls of the same tree are deterministic.
func Crawl(root string, extensions []string) ([]string, error) {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories such as .git.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("crawling %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
