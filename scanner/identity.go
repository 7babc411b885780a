package scanner

import (
	"net"
	"os"
	"strings"
	"time"
)

const (
	// FallbackHostname is used when the OS cannot report a hostname.
	FallbackHostname = "unknown-pi"
	// NullIP is reported when the outbound address cannot be determined.
	NullIP = "0.0.0.0"

	DefaultProbeAddr = "8.8.8.8:80"
	probeDialTimeout = 2 * time.Second
)

// Identity resolves the terminal's stable identifier and its best-effort
// network address. Neither lookup ever fails.
type Identity struct {
	hostname  string
	probeAddr string

	osHostname func() (string, error)
	dial       func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// NewIdentity builds an Identity from terminal config. A non-empty
// cfg.Hostname overrides the OS hostname.
func NewIdentity(cfg TerminalConfig) *Identity {
	probe := strings.TrimSpace(cfg.ProbeAddr)
	if probe == "" {
		probe = DefaultProbeAddr
	}
	return &Identity{
		hostname:   strings.TrimSpace(cfg.Hostname),
		probeAddr:  probe,
		osHostname: os.Hostname,
		dial:       net.DialTimeout,
	}
}

func (id *Identity) Hostname() string {
	if id.hostname != "" {
		return id.hostname
	}
	h, err := id.osHostname()
	if err != nil || strings.TrimSpace(h) == "" {
		return FallbackHostname
	}
	return h
}

// IP returns the local address the OS would use to reach the probe address.
// UDP dialing sends no packets; it only selects a route.
func (id *Identity) IP() string {
	conn, err := id.dial("udp", id.probeAddr, probeDialTimeout)
	if err != nil {
		return NullIP
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		return NullIP
	}
	return addr.IP.String()
}

// Resolve returns both values at once.
func (id *Identity) Resolve() (hostname string, ip string) {
	return id.Hostname(), id.IP()
}
