package watch

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Filter reports whether a slash separated path, relative to the watched
// root, should be ignored.
type Filter func(path string) bool

// VersionControlDirs are metadata directories of version control systems.
var VersionControlDirs = []string{".git", ".hg", ".svn"}

// DependencyCacheDirs are directories holding installed dependencies.
var DependencyCacheDirs = []string{"node_modules"}

// TemporarySuffixes are name suffixes used by editors for scratch files.
var TemporarySuffixes = []string{".tmp", ".swp", "~"}

// DefaultIgnore ignores version control metadata, dependency caches and
// temporary files.
var DefaultIgnore = IgnoreAll(
	IgnoreSegments(VersionControlDirs...),
	IgnoreSegments(DependencyCacheDirs...),
	IgnoreNameSuffixed(TemporarySuffixes...),
)

// IgnoreAll ignores a path when any of the filters does.
func IgnoreAll(filters ...Filter) Filter {
	if len(filters) == 1 {
		return filters[0]
	}
	return func(path string) bool {
		for _, filter := range filters {
			if filter != nil && filter(path) {
				return true
			}
		}
		return false
	}
}

// IgnoreSegments ignores paths where any directory or file name equals one
// of the names.
func IgnoreSegments(names ...string) Filter {
	list := map[string]struct{}{}
	for _, name := range names {
		list[cname(name)] = struct{}{}
	}

	return func(path string) bool {
		for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
			if _, ok := list[cname(segment)]; ok {
				return true
			}
		}
		return false
	}
}

// IgnoreNameSuffixed ignores paths whose base name ends with a suffix.
func IgnoreNameSuffixed(suffixes ...string) Filter {
	list := []string{}
	for _, suffix := range suffixes {
		list = append(list, cname(suffix))
	}

	return func(path string) bool {
		name := cname(filepath.Base(path))
		for _, suffix := range list {
			if strings.HasSuffix(name, suffix) {
				return true
			}
		}
		return false
	}
}

// IgnoreGlobs ignores paths where the base name or the full relative path
// matches one of the globs.
func IgnoreGlobs(globs ...string) Filter {
	list := []string{}
	for _, glob := range globs {
		if glob = strings.TrimSpace(glob); glob != "" {
			list = append(list, cname(filepath.ToSlash(glob)))
		}
	}

	return func(path string) bool {
		full := cname(filepath.ToSlash(path))
		name := cname(filepath.Base(path))
		for _, glob := range list {
			if ok, _ := filepath.Match(glob, name); ok {
				return true
			}
			if ok, _ := filepath.Match(glob, full); ok {
				return true
			}
		}
		return false
	}
}

func cname(name string) string {
	if runtime.GOOS == "windows" {
		return strings.ToLower(name)
	}
	return name
}
