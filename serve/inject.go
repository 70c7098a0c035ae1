package serve

import (
	"bytes"
)

var bodyClose = []byte("</body>")

// Inject inserts script before the last closing body tag of document.
// The tag is matched case-insensitively. Documents without one get the
// script appended.
func Inject(document []byte, script string) []byte {
	result := make([]byte, 0, len(document)+len(script))

	at := lastIndexFold(document, bodyClose)
	if at < 0 {
		result = append(result, document...)
		return append(result, script...)
	}

	result = append(result, document[:at]...)
	result = append(result, script...)
	return append(result, document[at:]...)
}

func lastIndexFold(s, sep []byte) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if bytes.EqualFold(s[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}
