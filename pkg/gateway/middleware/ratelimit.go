package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/physickd/platform/pkg/common/logger"
	"github.com/physickd/platform/pkg/observability/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimit allows limit requests per client IP in each fixed window,
// counted in Redis so every replica shares the budget. Redis failures let the
// request through. A nil resolver keys on the socket peer alone.
func RedisRateLimit(client redis.UniversalClient, prefix string, limit int, window time.Duration, resolver *ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			key := fmt.Sprintf("%s:%s:%d", prefix, resolver.ClientIP(r), now.UnixNano()/int64(window))

			var incr *redis.IntCmd
			_, err := client.TxPipelined(r.Context(), func(pipe redis.Pipeliner) error {
				incr = pipe.Incr(r.Context(), key)
				pipe.Expire(r.Context(), key, window)
				return nil
			})
			if err != nil {
				logger.Log.WithError(err).Warn("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if incr.Val() > int64(limit) {
				metrics.ObserveRateLimited()
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds()+0.5)))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPResolver finds the address a request came from. X-Forwarded-For is
// only read when the socket peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver accepts proxies as CIDR blocks or single addresses.
func NewClientIPResolver(proxies []string) (*ClientIPResolver, error) {
	resolver := &ClientIPResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", p)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			resolver.trusted = append(resolver.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, block, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		resolver.trusted = append(resolver.trusted, block)
	}
	return resolver, nil
}

// ClientIP returns the right-most X-Forwarded-For hop that is not a trusted
// proxy, or the socket peer when that peer is not trusted itself.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if c == nil || !c.isTrusted(peer) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if net.ParseIP(hop) == nil {
			break
		}
		client = hop
		if !c.isTrusted(hop) {
			break
		}
	}
	return client
}

func (c *ClientIPResolver) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, block := range c.trusted {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
