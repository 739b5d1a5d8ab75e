package loto

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DirSource reads archives (.zip or .csv) already on disk, selected by glob patterns.
// Patterns may use ** to match any number of directories.
type DirSource struct {
	Globs      []string
	DatasetDir string
}

func (s *DirSource) Discover(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range s.Globs {
		if strings.TrimSpace(g) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := expandGlobWithDoubleStar(g)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *DirSource) Fetch(ctx context.Context, location string) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RetrievalError{Location: location, Err: err}
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, &RetrievalError{Location: location, Err: err}
	}
	b, err := readArchive(data, location, s.DatasetDir)
	if err != nil {
		return nil, &RetrievalError{Location: location, Err: err}
	}
	return b, nil
}

func expandGlobWithDoubleStar(pattern string) ([]string, error) {
	// filepath.Glob has no **; walk from the part before it and match the rest.
	if !strings.Contains(pattern, "**") {
		return filepath.Glob(pattern)
	}

	idx := strings.Index(pattern, "**")
	basePart := strings.TrimRight(pattern[:idx], string(filepath.Separator)+"/")
	if basePart == "" {
		basePart = "."
	}
	basePart = filepath.Clean(basePart)

	suffix := strings.TrimLeft(pattern[idx+2:], string(filepath.Separator)+"/")
	if suffix == "" {
		suffix = "*"
	}

	baseSlash := filepath.ToSlash(basePart)
	suffixSlash := filepath.ToSlash(suffix)
	matchBasenameOnly := !strings.Contains(suffixSlash, "/")

	var matches []string
	err := filepath.WalkDir(basePart, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := strings.TrimLeft(strings.TrimPrefix(filepath.ToSlash(p), baseSlash), "/")
		candidate := rel
		if matchBasenameOnly {
			candidate = path.Base(rel)
		}
		ok, matchErr := path.Match(suffixSlash, candidate)
		if matchErr != nil {
			return matchErr
		}
		if ok {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
