// Package fileset resolves the file sets tasks operate on and provides the
// small file-system helpers shared by every pipeline: staleness checks, atomic
// writes and size reports.
package fileset

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// File is one matched source file.
type File struct {
	// Path is the path on disk, as matched.
	Path string
	// Rel is Path relative to the glob base of the pattern that matched it.
	Rel string
	// Info is the stat result at match time.
	Info os.FileInfo
}

// Options controls matching.
type Options struct {
	// Dot includes files and directories whose name starts with a dot.
	Dot bool
	// Base overrides the glob base used to compute File.Rel.
	Base string
}

// Glob expands patterns into the sorted list of matching regular files.
//
// Patterns prefixed with "!" exclude matches of the remaining patterns. Files
// are grouped per positive pattern, in pattern order, and each group is sorted.
func Glob(patterns []string, opts Options) ([]File, error) {
	var include, exclude []string
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			exclude = append(exclude, filepath.ToSlash(strings.TrimPrefix(p, "!")))
			continue
		}
		include = append(include, filepath.ToSlash(p))
	}

	seen := make(map[string]bool)
	var files []File
	for _, pattern := range include {
		matches, err := doublestar.FilepathGlob(filepath.FromSlash(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)

		base := opts.Base
		if base == "" {
			base = filepath.FromSlash(GlobBase(pattern))
		}

		for _, match := range matches {
			if seen[match] {
				continue
			}
			slashed := filepath.ToSlash(match)
			if excluded(slashed, exclude) {
				continue
			}
			if !opts.Dot && hasDotSegment(slashed, pattern) {
				continue
			}
			info, err := os.Stat(match)
			if err != nil {
				return nil, err
			}
			rel, err := filepath.Rel(base, match)
			if err != nil {
				rel = filepath.Base(match)
			}
			seen[match] = true
			files = append(files, File{Path: match, Rel: rel, Info: info})
		}
	}

	return files, nil
}

// GlobBase returns the static directory prefix of a pattern, i.e. everything
// before the first path segment holding a glob meta character.
func GlobBase(pattern string) string {
	pattern = filepath.ToSlash(pattern)
	base, _ := doublestar.SplitPattern(pattern)
	if base == "" {
		return "."
	}
	return path.Clean(base)
}

// Match reports whether name matches a doublestar pattern.
func Match(pattern, name string) bool {
	ok, err := doublestar.Match(filepath.ToSlash(pattern), filepath.ToSlash(name))
	return err == nil && ok
}

func excluded(name string, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// hasDotSegment reports whether a segment below the pattern's base starts with a
// dot. Segments spelled out literally in the pattern are allowed.
func hasDotSegment(name, pattern string) bool {
	rel := name
	if base := GlobBase(pattern); base != "." {
		rel = strings.TrimPrefix(name, base+"/")
	}
	for _, segment := range strings.Split(rel, "/") {
		if strings.HasPrefix(segment, ".") && segment != "." && segment != ".." {
			return true
		}
	}
	return false
}
