package middleware

import (
	"net"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP stores the client address under CtxRealIPKey. Forwarding headers
// are honoured only when the direct peer is loopback or private, i.e. our
// own proxy or load balancer.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxRealIPKey, realIP(c))
		c.Next()
	}
}

func realIP(c *gin.Context) string {
	peer, ok := peerAddr(c.Request.RemoteAddr)
	if !ok {
		return c.ClientIP()
	}
	if !internal(peer) {
		return peer.String()
	}
	if cf, err := netip.ParseAddr(strings.TrimSpace(c.GetHeader("CF-Connecting-IP"))); err == nil {
		return cf.Unmap().String()
	}
	// right to left: the first hop that is not ours is the client
	hops := strings.Split(c.GetHeader("X-Forwarded-For"), ",")
	var leftmost string
	for i := len(hops) - 1; i >= 0; i-- {
		a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			continue
		}
		a = a.Unmap()
		if !internal(a) {
			return a.String()
		}
		leftmost = a.String()
	}
	if leftmost != "" {
		return leftmost
	}
	return peer.String()
}

func peerAddr(remote string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	a, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

func internal(a netip.Addr) bool {
	return a.IsLoopback() || a.IsPrivate()
}
