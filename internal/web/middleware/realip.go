package middleware

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// TrustedRealIP rewrites RemoteAddr to the bare client IP. Forwarding headers
// are honoured only when the connection comes from one of trustedCIDRs, so a
// client cannot pick its own rate limit bucket. Entries may be CIDRs or
// single addresses.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	var trustedNets []*net.IPNet
	for _, cidr := range trustedCIDRs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			if ip := net.ParseIP(cidr); ip != nil {
				mask := net.CIDRMask(128, 128)
				if ip.To4() != nil {
					mask = net.CIDRMask(32, 32)
				}
				trustedNets = append(trustedNets, &net.IPNet{IP: ip, Mask: mask})
			} else {
				zap.L().Warn("realip: invalid trusted proxy CIDR, skipping",
					zap.String("cidr", cidr),
					zap.Error(err),
				)
			}
			continue
		}
		trustedNets = append(trustedNets, network)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r.RemoteAddr)
			if isTrusted(ip, trustedNets) {
				if fwd := forwardedIP(r.Header); fwd != nil {
					ip = fwd
				}
			}
			if ip != nil {
				r.RemoteAddr = ip.String()
			}

			next.ServeHTTP(w, r)
		})
	}
}

// forwardedIP returns the client address from X-Real-IP, falling back to the
// first entry of X-Forwarded-For. Malformed values are ignored.
func forwardedIP(h http.Header) net.IP {
	if rip := h.Get("X-Real-IP"); rip != "" {
		return net.ParseIP(strings.TrimSpace(rip))
	}
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return net.ParseIP(strings.TrimSpace(first))
	}
	return nil
}

// extractIP parses an IP address from a host:port string or plain IP.
func extractIP(addr string) net.IP {
	// Handle "host:port" format
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

// isTrusted checks if an IP is within any of the trusted networks.
func isTrusted(ip net.IP, trusted []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
