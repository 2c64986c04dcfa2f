package helpers

import (
	"net"
	"strings"
)

// HostKind classifies the host of a redirect URL.
type HostKind int

const (
	// HostDNSName is a host name other than localhost
	HostDNSName HostKind = iota
	// HostLoopback is localhost, 127.0.0.0/8 or ::1
	HostLoopback
	// HostUnspecified is 0.0.0.0 or ::, never a valid redirect target
	HostUnspecified
	// HostIPAddress is any other IP literal
	HostIPAddress
)

// String returns the kind name
func (k HostKind) String() string {
	switch k {
	case HostDNSName:
		return "dns_name"
	case HostLoopback:
		return "loopback"
	case HostUnspecified:
		return "unspecified"
	case HostIPAddress:
		return "ip_address"
	default:
		return "unknown"
	}
}

// ClassifyHost classifies hostname as returned by url.URL.Hostname().
// Bracketed IPv6 literals are accepted too. "localhost" matches case-insensitively,
// with or without the trailing root dot.
func ClassifyHost(hostname string) HostKind {
	if strings.EqualFold(strings.TrimSuffix(hostname, "."), "localhost") {
		return HostLoopback
	}

	clean := strings.TrimSuffix(strings.TrimPrefix(hostname, "["), "]")
	ip := net.ParseIP(clean)
	switch {
	case ip == nil:
		return HostDNSName
	case ip.IsUnspecified():
		return HostUnspecified
	case ip.IsLoopback():
		return HostLoopback
	default:
		return HostIPAddress
	}
}

// IsLoopbackHostname reports whether hostname names the local machine, where
// plain http redirects are acceptable (RFC 8252 section 7.3).
func IsLoopbackHostname(hostname string) bool {
	return ClassifyHost(hostname) == HostLoopback
}
