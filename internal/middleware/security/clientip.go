package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPResolver extracts the client address, honouring X-Forwarded-For and
// X-Real-IP only when the direct peer is a trusted proxy.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver trusts loopback and the private ranges.
func NewIPResolver() *IPResolver {
	r := &IPResolver{}
	for _, cidr := range []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128"} {
		_ = r.AddTrustedProxy(cidr)
	}
	return r
}

// AddTrustedProxy adds a trusted proxy network
func (d *IPResolver) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trusted = append(d.trusted, network)
	return nil
}

// ClientIP returns the address of the client that made r.
func (d *IPResolver) ClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !d.isTrusted(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *IPResolver) isTrusted(ip net.IP) bool {
	for _, network := range d.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
