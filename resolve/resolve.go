// Package resolve maps request URLs to files below a root directory.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

// IndexFile is served for directories and as the single-page-app entry.
const IndexFile = "index.html"

// ErrOutsideRoot is attached to outcomes whose path escapes the root.
var ErrOutsideRoot = errors.New("path escapes root directory")

// Kind is the result of resolving a request.
type Kind int

const (
	NotFound Kind = iota
	ServeFile
	ServeDirectoryListing
	SPAFallback
)

func (kind Kind) String() string {
	switch kind {
	case NotFound:
		return "not-found"
	case ServeFile:
		return "file"
	case ServeDirectoryListing:
		return "directory-listing"
	case SPAFallback:
		return "spa-fallback"
	}
	return fmt.Sprintf("Kind(%d)", int(kind))
}

// Outcome describes how a request should be answered.
type Outcome struct {
	Kind Kind
	// Path is the absolute file or directory on disk.
	Path string
	// ContentType is set for ServeFile and SPAFallback.
	ContentType ContentType
	// Err is the underlying cause when Kind is NotFound, if any.
	Err error
}

// Resolve maps requestURL to a file below root.
//
// The lookup order is: exact file, directory index.html, directory
// listing, <path>.html and <path>/index.html for extension-less paths,
// and finally the root index.html when spa is enabled.
func Resolve(root, requestURL string, spa bool) Outcome {
	raw := requestURL
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return notFound(fmt.Errorf("decode %q: %w", raw, err))
	}
	if decoded == "" {
		decoded = "/"
	}

	candidate, ok := within(root, decoded)
	if !ok {
		return notFound(ErrOutsideRoot)
	}

	info, err := os.Stat(candidate)
	switch {
	case err == nil && info.IsDir():
		index := filepath.Join(candidate, IndexFile)
		if isFile(index) {
			return file(index)
		}
		return Outcome{Kind: ServeDirectoryListing, Path: candidate}
	case err == nil:
		return file(candidate)
	case !missing(err):
		return notFound(err)
	}

	if path.Ext(decoded) == "" && !strings.HasSuffix(decoded, "/") {
		for _, alternative := range []string{decoded + ".html", path.Join(decoded, IndexFile)} {
			if p, ok := within(root, alternative); ok && isFile(p) {
				return file(p)
			}
		}
	}

	if spa {
		index := filepath.Join(root, IndexFile)
		if isFile(index) {
			return Outcome{Kind: SPAFallback, Path: index, ContentType: ContentTypeOf(index)}
		}
	}

	return notFound(nil)
}

// within joins the slash separated urlPath to root and reports whether
// the result stays inside root.
func within(root, urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	joined := filepath.Join(root, filepath.FromSlash(clean))

	rel, err := filepath.Rel(root, joined)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return joined, true
}

func file(p string) Outcome {
	return Outcome{Kind: ServeFile, Path: p, ContentType: ContentTypeOf(p)}
}

func notFound(err error) Outcome {
	return Outcome{Kind: NotFound, Err: err}
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// missing treats "a path component is a file" the same as "does not exist".
func missing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
