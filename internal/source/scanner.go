package source

import (
	"os"
	"path/filepath"
	"strings"
)

// ScanDir discovers JSONL import files under root. A root that is itself a
// file is returned as the only entry. Files come back in lexical order.
func ScanDir(root string) ([]DiscoveredFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return []DiscoveredFile{{Path: root}}, nil
	}

	var files []DiscoveredFile
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}

		rel, _ := filepath.Rel(root, filepath.Dir(path))
		if rel == "." {
			rel = ""
		}
		files = append(files, DiscoveredFile{Path: path, Batch: filepath.ToSlash(rel)})
		return nil
	})
	return files, err
}

// CountBatches returns the number of distinct batch directories.
func CountBatches(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.Batch] = struct{}{}
	}
	return len(seen)
}
