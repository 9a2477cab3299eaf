package server

import (
	"net"
	"sync"

	"github.com/lawnchairsociety/riftsim/internal/config"
)

// LimitReason names the connection limit that refused a client.
type LimitReason string

const (
	LimitNone  LimitReason = ""
	LimitPerIP LimitReason = "per_ip"
	LimitTotal LimitReason = "total"
)

// ConnLimiter hands out simulation session slots, capped per client IP and
// across the server.
type ConnLimiter struct {
	mu       sync.Mutex
	sessions map[string]int
	active   int
	peak     int
	refused  map[LimitReason]int
	maxPerIP int
	maxTotal int
}

// ConnStats is a snapshot of the limiter for the health endpoint.
type ConnStats struct {
	Active  int                 `json:"active"`
	Clients int                 `json:"clients"`
	Peak    int                 `json:"peak"`
	Refused map[LimitReason]int `json:"refused"`
}

// Session is a held slot. Release is safe to call more than once.
type Session struct {
	limiter *ConnLimiter
	ip      string
	once    sync.Once
}

// NewConnLimiter creates a limiter; a zero limit means unlimited.
func NewConnLimiter(cfg config.ConnectionsConfig) *ConnLimiter {
	return &ConnLimiter{
		sessions: make(map[string]int),
		refused:  make(map[LimitReason]int),
		maxPerIP: cfg.MaxPerIP,
		maxTotal: cfg.MaxTotal,
	}
}

// Acquire reserves a session slot for ip. When a limit is hit it returns a
// nil session and the reason; the server-wide cap is checked first.
func (c *ConnLimiter) Acquire(ip string) (*Session, LimitReason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxTotal > 0 && c.active >= c.maxTotal {
		c.refused[LimitTotal]++
		return nil, LimitTotal
	}
	if c.maxPerIP > 0 && c.sessions[ip] >= c.maxPerIP {
		c.refused[LimitPerIP]++
		return nil, LimitPerIP
	}

	c.sessions[ip]++
	c.active++
	if c.active > c.peak {
		c.peak = c.active
	}
	return &Session{limiter: c, ip: ip}, LimitNone
}

// Release frees the slot.
func (s *Session) Release() {
	s.once.Do(func() { s.limiter.release(s.ip) })
}

// IP returns the client address the slot was reserved for.
func (s *Session) IP() string {
	return s.ip
}

func (c *ConnLimiter) release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessions[ip] > 0 {
		c.sessions[ip]--
		if c.sessions[ip] == 0 {
			delete(c.sessions, ip)
		}
	}
	if c.active > 0 {
		c.active--
	}
}

// Stats returns a copy of the current counters.
func (c *ConnLimiter) Stats() ConnStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	refused := make(map[LimitReason]int, len(c.refused))
	for reason, n := range c.refused {
		refused[reason] = n
	}
	return ConnStats{
		Active:  c.active,
		Clients: len(c.sessions),
		Peak:    c.peak,
		Refused: refused,
	}
}

// Sessions returns the number of open sessions held by ip.
func (c *ConnLimiter) Sessions(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[ip]
}

// extractIP strips the port from a host:port address.
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
