//go:build !unix && !windows

package listen

import "strings"

func addrInUse(err error) bool {
	return strings.Contains(err.Error(), "address already in use")
}
