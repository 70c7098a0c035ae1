package reload

import (
	"encoding/json"
	"path/filepath"

	"github.com/loov/hotserver/resolve"
)

// Type is the kind of message sent to browsers.
type Type string

const (
	// Connected is the handshake sent once per connection.
	Connected Type = "connected"
	// Reload asks the browser to reload the whole page.
	Reload Type = "reload"
	// Style asks the browser to re-fetch a stylesheet.
	Style Type = "style"
)

// Message is json message that is sent on changes.
type Message struct {
	Type Type   `json:"type"`
	File string `json:"file,omitempty"`
}

// Action defines how browser reacts to a specific file changing.
type Action int

const (
	// ReloadBrowser reloads the whole page.
	ReloadBrowser Action = iota
	// LiveInject re-applies the stylesheet without navigating.
	LiveInject
)

var actions = map[resolve.ContentType]Action{
	resolve.CSS: LiveInject,
}

// Classify returns the action for a changed file. Only stylesheets can be
// patched in place.
func Classify(path string) Action {
	return actions[resolve.ContentTypeOf(path)]
}

// MessageFor builds the notification for a changed file.
func MessageFor(path string) Message {
	switch Classify(path) {
	case LiveInject:
		return Message{Type: Style, File: filepath.ToSlash(path)}
	default:
		return Message{Type: Reload}
	}
}

// EventStream encodes the message as a server-sent event.
func (message Message) EventStream() []byte {
	if message.Type == Connected {
		return []byte("data: connected\n\n")
	}

	data, err := json.Marshal(message)
	if err != nil {
		data = []byte(`{"type":"reload"}`)
	}

	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	return frame
}
