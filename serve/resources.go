package serve

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ResourceKind is the kind of asset referenced by an HTML document.
type ResourceKind string

const (
	Stylesheet ResourceKind = "css"
	Script     ResourceKind = "js"
	Image      ResourceKind = "img"
)

// Resource is an asset referenced by an HTML document.
type Resource struct {
	Kind ResourceKind
	Path string
}

var (
	rxStylesheet = regexp.MustCompile(`(?i)<link[^>]*href="([^"]*\.css[^"]*)"[^>]*>`)
	rxScript     = regexp.MustCompile(`(?i)<script[^>]*src="([^"]*\.js[^"]*)"[^>]*>\s*</script>`)
	rxImage      = regexp.MustCompile(`(?i)<img[^>]*src="([^"]*)"[^>]*>`)
)

// Resources lists stylesheets, scripts and images referenced by document.
func Resources(document []byte) []Resource {
	var resources []Resource
	for _, rx := range []struct {
		kind ResourceKind
		rx   *regexp.Regexp
	}{
		{Stylesheet, rxStylesheet},
		{Script, rxScript},
		{Image, rxImage},
	} {
		for _, match := range rx.rx.FindAllSubmatch(document, -1) {
			resources = append(resources, Resource{Kind: rx.kind, Path: string(match[1])})
		}
	}
	return resources
}

// FormatBytes formats size with a binary unit, e.g. "1.5 KB".
func FormatBytes(size int64) string {
	if size <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}

	exp := int(math.Floor(math.Log(float64(size)) / math.Log(1024)))
	if exp >= len(units) {
		exp = len(units) - 1
	}
	value := float64(size) / math.Pow(1024, float64(exp))
	return fmt.Sprintf("%s %s", strconv.FormatFloat(math.Round(value*10)/10, 'f', -1, 64), units[exp])
}
