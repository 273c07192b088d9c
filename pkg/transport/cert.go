package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	sevenDays = 7 * 24 * time.Hour
)

// Certificate represents a TLS certificate with its private key
type Certificate struct {
	// Cert is the X.509 certificate
	Cert *x509.Certificate

	// TLSCert is the tls.Certificate for use in TLS connections
	TLSCert tls.Certificate

	// Domains is the list of domains this certificate is valid for
	Domains []string

	// NotBefore is when the certificate becomes valid
	NotBefore time.Time

	// NotAfter is when the certificate expires
	NotAfter time.Time
}

// CertificateFrom wraps a tls.Certificate, parsing its leaf and collecting
// the domains it serves.
func CertificateFrom(tlsCert tls.Certificate) (*Certificate, error) {
	leaf := tlsCert.Leaf
	if leaf == nil {
		if len(tlsCert.Certificate) == 0 {
			return nil, fmt.Errorf("certificate has no chain")
		}
		parsed, err := x509.ParseCertificate(tlsCert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse x509 certificate: %w", err)
		}
		leaf = parsed
		tlsCert.Leaf = leaf
	}

	domains := make([]string, 0, len(leaf.DNSNames)+1)
	if leaf.Subject.CommonName != "" {
		domains = append(domains, leaf.Subject.CommonName)
	}
	domains = append(domains, leaf.DNSNames...)

	return &Certificate{
		Cert:      leaf,
		TLSCert:   tlsCert,
		Domains:   domains,
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
	}, nil
}

// CertificateManager holds a connector's certificates and answers SNI lookups
type CertificateManager struct {
	mu sync.RWMutex

	// certificates maps domain names to certificates
	// Supports exact matches and wildcard patterns
	certificates map[string]*Certificate

	// defaultCert is used when no matching certificate is found
	defaultCert *Certificate
}

// NewCertificateManager creates a new certificate manager
func NewCertificateManager() *CertificateManager {
	return &CertificateManager{
		certificates: make(map[string]*Certificate),
	}
}

func (c *CertificateManager) AddCertificate(cert *Certificate, setDefault bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validate(cert); err != nil {
		return err
	}

	for _, domain := range cert.Domains {
		c.certificates[domain] = cert
	}

	if setDefault || c.defaultCert == nil {
		c.defaultCert = cert
	}

	return nil
}

// GetCertificate answers the SNI callback: exact domain match first, then a
// wildcard match, then the default certificate.
func (c *CertificateManager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := strings.ToLower(hello.ServerName)
	if cert, ok := c.certificates[name]; ok {
		return &cert.TLSCert, nil
	}

	if i := strings.Index(name, "."); i > 0 {
		if cert, ok := c.certificates["*"+name[i:]]; ok {
			return &cert.TLSCert, nil
		}
	}

	if c.defaultCert != nil {
		return &c.defaultCert.TLSCert, nil
	}
	return nil, fmt.Errorf("no certificate available for %q", hello.ServerName)
}

// Len returns the number of distinct certificates held.
func (c *CertificateManager) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[*Certificate]struct{})
	for _, cert := range c.certificates {
		seen[cert] = struct{}{}
	}
	if c.defaultCert != nil {
		seen[c.defaultCert] = struct{}{}
	}
	return len(seen)
}

func (c *CertificateManager) validate(cert *Certificate) error {
	if cert == nil {
		return fmt.Errorf("certificate is nil")
	}

	if cert.Cert == nil {
		return fmt.Errorf("certificate x509 cert is nil")
	}

	now := time.Now()
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("certificate is not valid before %s", cert.NotBefore)
	}

	if now.After(cert.NotAfter) {
		return fmt.Errorf("certificate expired at %s", cert.NotAfter)
	}

	if cert.NotAfter.Sub(now) < sevenDays {
		slog.Warn("certificate is expiring soon", "notAfter", cert.NotAfter)
	}

	return nil
}
