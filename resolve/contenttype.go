package resolve

import (
	"path/filepath"
	"strings"
)

// ContentType is a media type known to the server.
type ContentType int

const (
	OctetStream ContentType = iota

	// text and documents
	HTML
	CSS
	JavaScript
	JSON
	XML
	PlainText
	Markdown
	CSV
	TSV
	YAML
	TOML

	// images
	PNG
	JPEG
	GIF
	SVG
	Icon
	WebP
	BMP
	TIFF

	// video
	MP4
	WebM
	OggVideo
	AVI
	QuickTime
	WMV
	FLV

	// audio
	MP3
	WAV
	OggAudio
	AAC
	M4A
	Opus

	// fonts
	WOFF
	WOFF2
	TTF
	OTF
	EOT

	// applications and archives
	PDF
	Zip
	Gzip
	Tar
	Wasm
	WebManifest

	contentTypeCount
)

var mimeTypes = [contentTypeCount]string{
	OctetStream: "application/octet-stream",

	HTML:       "text/html; charset=utf-8",
	CSS:        "text/css; charset=utf-8",
	JavaScript: "text/javascript; charset=utf-8",
	JSON:       "application/json",
	XML:        "application/xml",
	PlainText:  "text/plain; charset=utf-8",
	Markdown:   "text/markdown; charset=utf-8",
	CSV:        "text/csv; charset=utf-8",
	TSV:        "text/tab-separated-values; charset=utf-8",
	YAML:       "application/x-yaml",
	TOML:       "application/toml",

	PNG:  "image/png",
	JPEG: "image/jpeg",
	GIF:  "image/gif",
	SVG:  "image/svg+xml",
	Icon: "image/x-icon",
	WebP: "image/webp",
	BMP:  "image/bmp",
	TIFF: "image/tiff",

	MP4:       "video/mp4",
	WebM:      "video/webm",
	OggVideo:  "video/ogg",
	AVI:       "video/x-msvideo",
	QuickTime: "video/quicktime",
	WMV:       "video/x-ms-wmv",
	FLV:       "video/x-flv",

	MP3:      "audio/mpeg",
	WAV:      "audio/wav",
	OggAudio: "audio/ogg",
	AAC:      "audio/aac",
	M4A:      "audio/mp4",
	Opus:     "audio/opus",

	WOFF:  "font/woff",
	WOFF2: "font/woff2",
	TTF:   "font/ttf",
	OTF:   "font/otf",
	EOT:   "application/vnd.ms-fontobject",

	PDF:         "application/pdf",
	Zip:         "application/zip",
	Gzip:        "application/gzip",
	Tar:         "application/x-tar",
	Wasm:        "application/wasm",
	WebManifest: "application/manifest+json",
}

var extensions = map[string]ContentType{
	".html": HTML,
	".htm":  HTML,
	".css":  CSS,
	".js":   JavaScript,
	".mjs":  JavaScript,
	".json": JSON,
	".xml":  XML,
	".txt":  PlainText,
	".md":   Markdown,
	".csv":  CSV,
	".tsv":  TSV,
	".yaml": YAML,
	".yml":  YAML,
	".toml": TOML,

	".png":  PNG,
	".jpg":  JPEG,
	".jpeg": JPEG,
	".gif":  GIF,
	".svg":  SVG,
	".ico":  Icon,
	".webp": WebP,
	".bmp":  BMP,
	".tiff": TIFF,
	".tif":  TIFF,

	".mp4":  MP4,
	".webm": WebM,
	".ogg":  OggVideo,
	".avi":  AVI,
	".mov":  QuickTime,
	".wmv":  WMV,
	".flv":  FLV,

	".mp3":  MP3,
	".wav":  WAV,
	".oga":  OggAudio,
	".aac":  AAC,
	".m4a":  M4A,
	".opus": Opus,

	".woff":  WOFF,
	".woff2": WOFF2,
	".ttf":   TTF,
	".otf":   OTF,
	".eot":   EOT,

	".pdf":         PDF,
	".zip":         Zip,
	".gz":          Gzip,
	".gzip":        Gzip,
	".tar":         Tar,
	".wasm":        Wasm,
	".webmanifest": WebManifest,
}

// ContentTypeOf returns the content type for the extension of name.
// Unknown extensions map to OctetStream.
func ContentTypeOf(name string) ContentType {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensions[ext]; ok {
		return t
	}
	return OctetStream
}

// MIME returns the value for the Content-Type header.
func (t ContentType) MIME() string {
	if t < 0 || t >= contentTypeCount {
		return mimeTypes[OctetStream]
	}
	return mimeTypes[t]
}

// IsHTML reports whether the reload script should be injected.
func (t ContentType) IsHTML() bool { return t == HTML }

func (t ContentType) String() string { return t.MIME() }
