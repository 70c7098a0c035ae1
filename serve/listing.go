package serve

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/loov/hotserver/resolve"
)

//go:embed listing.html
var listingHTML string

var listingTemplate = template.Must(template.New("listing").Parse(listingHTML))

// hiddenEntries are never shown in a listing.
var hiddenEntries = map[string]bool{
	".DS_Store": true,
}

// Entry is a single row of a directory listing.
type Entry struct {
	Name string
	Href string
	Icon string
	Type string
	Dir  bool
}

// Listing is a rendered view of a directory.
type Listing struct {
	// Path is the request path of the directory.
	Path string
	// Parent links to the enclosing directory, empty at the root.
	Parent  string
	Entries []Entry
}

// NewListing reads dir and prepares the listing for requestPath.
// Directories are listed first, then files, each sorted by name.
func NewListing(dir, requestPath string) (*Listing, error) {
	infos, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	base := requestPath
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	listing := &Listing{Path: requestPath}
	if base != "/" {
		parent := path.Dir(strings.TrimSuffix(base, "/"))
		if parent != "/" {
			parent += "/"
		}
		listing.Parent = parent
	}

	for _, info := range infos {
		name := info.Name()
		if hiddenEntries[name] {
			continue
		}

		entry := Entry{
			Name: name,
			Href: base + url.PathEscape(name),
			Dir:  info.IsDir(),
		}
		if entry.Dir {
			entry.Href += "/"
			entry.Icon = "📁"
			entry.Type = "Folder"
		} else {
			entry.Icon = iconOf(name)
			entry.Type = strings.ToUpper(strings.TrimPrefix(filepath.Ext(name), "."))
			if entry.Type == "" {
				entry.Type = "FILE"
			}
		}
		listing.Entries = append(listing.Entries, entry)
	}

	sort.SliceStable(listing.Entries, func(i, k int) bool {
		a, b := &listing.Entries[i], &listing.Entries[k]
		if a.Dir != b.Dir {
			return a.Dir
		}
		return a.Name < b.Name
	})

	return listing, nil
}

// Render writes the listing as an HTML document.
func (listing *Listing) Render(w io.Writer) error {
	return listingTemplate.Execute(w, listing)
}

func iconOf(name string) string {
	switch t := resolve.ContentTypeOf(name); {
	case t == resolve.HTML:
		return "🌐"
	case t == resolve.CSS:
		return "🎨"
	case t == resolve.JavaScript || strings.EqualFold(filepath.Ext(name), ".ts"):
		return "📜"
	case t == resolve.JSON || t == resolve.YAML || t == resolve.TOML:
		return "🧩"
	case t == resolve.PlainText || t == resolve.Markdown:
		return "📝"
	case t >= resolve.PNG && t <= resolve.TIFF:
		return "🖼️"
	case t >= resolve.MP4 && t <= resolve.FLV:
		return "🎞️"
	case t >= resolve.MP3 && t <= resolve.Opus:
		return "🎵"
	case t >= resolve.Zip && t <= resolve.Tar:
		return "🗜️"
	}
	return "📄"
}
