package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// trustedProxy decides when X-Forwarded-For may override RemoteAddr. A nil
// *trustedProxy trusts nobody.
type trustedProxy struct {
	ip      net.IP
	network *net.IPNet
}

// parseTrustedProxy accepts a single IP or a CIDR. Empty disables forwarding.
func parseTrustedProxy(value string) (*trustedProxy, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if strings.Contains(value, "/") {
		_, network, err := net.ParseCIDR(value)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", value, err)
		}
		return &trustedProxy{network: network}, nil
	}
	ip := net.ParseIP(value)
	if ip == nil {
		return nil, fmt.Errorf("invalid trusted proxy %q", value)
	}
	return &trustedProxy{ip: ip}, nil
}

func (p *trustedProxy) trusts(ip net.IP) bool {
	if p == nil || ip == nil {
		return false
	}
	if p.network != nil {
		return p.network.Contains(ip)
	}
	return p.ip.Equal(ip)
}

// clientIP returns the peer address, or the nearest public X-Forwarded-For
// hop when the peer is the trusted proxy.
func (p *trustedProxy) clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !p.trusts(net.ParseIP(remote)) {
		return remote
	}
	parts := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(parts) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(parts[i])
		if ip := net.ParseIP(candidate); ip != nil && !isInternalIP(ip) {
			return candidate
		}
	}
	return remote
}

func isInternalIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
