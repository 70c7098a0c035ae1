package reload

import (
	_ "embed"
	"strings"
)

//go:embed script.js
var script string

// Script returns the snippet injected into every served HTML document.
// It subscribes to endpoint and reloads the page or its stylesheets.
func Script(endpoint string) string {
	var b strings.Builder
	b.WriteString("\n<!-- injected by hotserver -->\n<script>\n")
	b.WriteString(strings.Replace(script, "{{.Endpoint}}", endpoint, -1))
	b.WriteString("</script>\n")
	return b.String()
}
