package browser

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Proxy is one upstream egress endpoint.
type Proxy struct {
	Server   string // scheme://host:port
	Username string
	Password string
}

func (p *Proxy) String() string {
	if p == nil {
		return "direct"
	}
	return p.Server
}

// ProxyRotator hands out endpoints built from a host template and a port pool.
// A zero-value or unconfigured rotator returns nil (direct connection).
type ProxyRotator struct {
	host     string
	ports    []int
	username string
	password string
	intn     func(n int) int
}

// NewProxyRotator returns a rotator over ports on host. host may carry a
// scheme; "http://" is assumed otherwise. A "{port}" placeholder in host is
// replaced by the chosen port instead of appending ":port".
func NewProxyRotator(host string, ports []int, username, password string) *ProxyRotator {
	return &ProxyRotator{
		host:     host,
		ports:    ports,
		username: username,
		password: password,
		intn:     rand.IntN,
	}
}

// Enabled reports whether any proxy is configured.
func (r *ProxyRotator) Enabled() bool {
	return r != nil && r.host != "" && len(r.ports) > 0
}

// Next picks a fresh endpoint at random from the port pool.
func (r *ProxyRotator) Next() *Proxy {
	if !r.Enabled() {
		return nil
	}
	port := r.ports[r.intn(len(r.ports))]
	return &Proxy{
		Server:   r.server(port),
		Username: r.username,
		Password: r.password,
	}
}

// NextExcluding picks an endpoint different from current when the pool allows it.
func (r *ProxyRotator) NextExcluding(current *Proxy) *Proxy {
	if !r.Enabled() {
		return nil
	}
	if current == nil {
		return r.Next()
	}
	candidates := make([]int, 0, len(r.ports))
	for _, port := range r.ports {
		if r.server(port) != current.Server {
			candidates = append(candidates, port)
		}
	}
	if len(candidates) == 0 {
		return r.Next()
	}
	return &Proxy{
		Server:   r.server(candidates[r.intn(len(candidates))]),
		Username: r.username,
		Password: r.password,
	}
}

func (r *ProxyRotator) server(port int) string {
	host := r.host
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if strings.Contains(host, "{port}") {
		return strings.ReplaceAll(host, "{port}", fmt.Sprint(port))
	}
	return fmt.Sprintf("%s:%d", host, port)
}
