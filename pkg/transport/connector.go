package transport

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"slices"
)

// Connector is one network listener endpoint. Its TLS state lives in the
// owned HostConfig and is written by a Customizer before Listen; after the
// connector starts accepting, the host configuration must not change.
type Connector struct {
	hostConfig *HostConfig
	tlsEnabled bool
	alpn       []string
	listener   net.Listener
}

func NewConnector() *Connector {
	return &Connector{hostConfig: NewHostConfig()}
}

// HostConfig returns the connector's TLS parameter record.
func (c *Connector) HostConfig() *HostConfig {
	return c.hostConfig
}

// TLSEnabled reports whether a customizer has configured TLS.
func (c *Connector) TLSEnabled() bool {
	return c.tlsEnabled
}

func (c *Connector) enableTLS() {
	c.tlsEnabled = true
}

// SetALPN sets the application protocols offered on TLS connections
// (e.g. ["h2", "http/1.1"]).
func (c *Connector) SetALPN(protocols []string) {
	c.alpn = slices.Clone(protocols)
}

// Listen binds the connector to address. A TLS-enabled connector resolves
// its host configuration into a tls.Config here; key material that cannot be
// loaded surfaces now, before any connection is accepted.
func (c *Connector) Listen(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	if !c.tlsEnabled {
		c.listener = ln
		slog.Info("connector started", "address", ln.Addr())
		return nil
	}

	tlsConfig, err := BuildTLSConfig(c.hostConfig)
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to build TLS configuration: %w", err)
	}
	if len(c.alpn) > 0 {
		tlsConfig.NextProtos = slices.Clone(c.alpn)
	}

	c.listener = tls.NewListener(ln, tlsConfig)
	slog.Info("TLS connector started",
		"address", ln.Addr(),
		"client_auth", c.hostConfig.CertificateVerification())
	return nil
}

// Accept waits for the next connection.
func (c *Connector) Accept() (net.Conn, error) {
	if c.listener == nil {
		return nil, fmt.Errorf("connector is not listening")
	}
	return c.listener.Accept()
}

// Close shuts the listener down.
func (c *Connector) Close() error {
	if c.listener == nil {
		return nil
	}
	return c.listener.Close()
}

// Addr returns the bound address, nil before Listen.
func (c *Connector) Addr() net.Addr {
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}
