package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"
)

var (
	DefaultIncludes = []string{"**/*_spec.rb"}
	DefaultExcludes = []string{"vendor/**", "node_modules/**"}
)

// Finder selects spec files by doublestar patterns relative to a root directory
type Finder struct {
	Root     string
	Includes []string
	Excludes []string
}

// NewFinder falls back to the default patterns when includes or excludes are empty
func NewFinder(root string, includes, excludes []string) *Finder {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	if len(excludes) == 0 {
		excludes = DefaultExcludes
	}
	return &Finder{Root: root, Includes: includes, Excludes: excludes}
}

// MergeExcludes adds extra patterns to the configured excludes. The defaults
// stand in for an empty configuration so extra patterns never drop them.
func MergeExcludes(configured, extra []string) []string {
	base := lo.Ternary(len(configured) > 0, configured, DefaultExcludes)
	return lo.Uniq(append(append([]string{}, base...), extra...))
}

// ValidatePatterns reports the first malformed glob
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// Find expands paths into spec files. Directories are walked and filtered by the
// include and exclude patterns; files named explicitly are kept as long as they
// are not excluded. The result is sorted and free of duplicates.
func (f *Finder) Find(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{f.Root}
	}

	var found []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", path, err)
		}
		if !info.IsDir() {
			if !f.Excluded(path) {
				found = append(found, path)
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				// Skip hidden directories
				if p != path && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				if p != path && f.Excluded(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if f.Included(p) && !f.Excluded(p) {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
	}

	found = lo.Uniq(found)
	sort.Strings(found)
	return found, nil
}

// Included reports whether path matches an include pattern
func (f *Finder) Included(path string) bool {
	return f.matchAny(f.Includes, path)
}

// Excluded reports whether path (or, for directory patterns, one of its parents) matches an exclude pattern
func (f *Finder) Excluded(path string) bool {
	return f.matchAny(f.Excludes, path)
}

func (f *Finder) matchAny(patterns []string, path string) bool {
	rel := f.relative(path)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// vendor/** also excludes the vendor directory itself
		if dir, found := strings.CutSuffix(pattern, "/**"); found {
			if ok, _ := doublestar.Match(dir, rel); ok {
				return true
			}
		}
	}
	return false
}

func (f *Finder) relative(path string) string {
	root := f.Root
	if root == "" {
		root = "."
	}
	absRoot, err1 := filepath.Abs(root)
	absPath, err2 := filepath.Abs(path)
	if err1 == nil && err2 == nil {
		if rel, err := filepath.Rel(absRoot, absPath); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(filepath.Clean(path))
}
