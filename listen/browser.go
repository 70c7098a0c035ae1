package listen

import (
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"
)

// browserCommand returns the command that opens url on goos.
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", "", url}
	default:
		return "xdg-open", []string{url}
	}
}

// OpenBrowser opens url with the default browser of the platform.
// It does not wait for the browser to exit.
func OpenBrowser(url string) error {
	name, args := browserCommand(runtime.GOOS, url)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open browser with %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// NetworkURLs lists the URLs under which the server is reachable from
// other machines, one per non-loopback IPv4 address.
func NetworkURLs(scheme string, port int) []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	return networkURLs(addrs, scheme, port)
}

func networkURLs(addrs []net.Addr, scheme string, port int) []string {
	var urls []string
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() || ip.To4() == nil {
			continue
		}
		urls = append(urls, scheme+"://"+net.JoinHostPort(ip.String(), strconv.Itoa(port))+"/")
	}
	return urls
}
