package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ValidPort reports whether port is usable as a TCP destination,
// i.e. strictly inside (0, 65536).
func ValidPort(port int) bool {
	return port > 0 && port < 65536
}

// ParseHostPort splits "host:port" (host optional, defaulting to
// localhost) and validates the port range.
func ParseHostPort(s string) (host string, port int, err error) {
	s = strings.TrimSpace(s)
	host = "localhost"

	portStr := s
	if strings.Contains(s, ":") {
		var h string
		h, portStr, err = net.SplitHostPort(s)
		if err != nil {
			return "", 0, fmt.Errorf("invalid address %q", s)
		}
		if h != "" {
			host = h
		}
	}

	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	if !ValidPort(port) {
		return "", 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return host, port, nil
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
