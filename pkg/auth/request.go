package auth

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the originating client address for a request, preferring
// the X-Forwarded-For header set by the load balancer.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
