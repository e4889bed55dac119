package fileset

import (
	"os"
	"time"
)

// Newer reports whether src has to be rebuilt into dest: dest is missing or
// older than src. A missing src is never newer.
func Newer(src, dest string) bool {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	destInfo, err := os.Stat(dest)
	if err != nil {
		return true
	}
	return srcInfo.ModTime().After(destInfo.ModTime())
}

// AnyNewer reports whether any of srcs is newer than dest.
func AnyNewer(srcs []string, dest string) bool {
	destInfo, err := os.Stat(dest)
	if err != nil {
		return len(srcs) > 0
	}
	return LatestModTime(srcs).After(destInfo.ModTime())
}

// LatestModTime returns the newest modification time among paths, ignoring
// paths that cannot be stat'ed.
func LatestModTime(paths []string) time.Time {
	var latest time.Time
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest
}

// Paths returns the Path of every file.
func Paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
