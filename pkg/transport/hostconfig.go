package transport

import (
	"crypto/tls"
	"slices"
	"strings"

	"github.com/embermesh/ember/pkg/keystore"
)

// HostCertificate describes one key-material entry of a HostConfig: either a
// store file on disk, a PKCS11 hardware provider reference, or in-memory
// material supplied by a StoreProvider.
type HostCertificate struct {
	KeystoreFile     string
	KeystoreType     string
	KeystoreProvider string
	KeystorePassword string
	KeyAlias         string
	KeyPassword      string

	// Keystore is in-memory key material taking precedence over KeystoreFile
	Keystore *keystore.Store
}

// HostConfig is the connector-owned record of per-listener TLS parameters.
// A Customizer populates it before the connector starts; Listen hands its
// resolved state to crypto/tls.
type HostConfig struct {
	sslProtocol             string
	ciphers                 string
	enabledProtocols        []string
	certificateVerification string

	truststoreFile     string
	truststoreType     string
	truststoreProvider string
	truststorePassword string
	truststore         *keystore.Store

	certificates []*HostCertificate
}

// NewHostConfig returns a host configuration carrying the defaults an
// untouched connector would serve with.
func NewHostConfig() *HostConfig {
	return &HostConfig{
		sslProtocol:             "TLS",
		ciphers:                 DefaultCiphers(),
		certificateVerification: "none",
	}
}

// DefaultCiphers is the platform's preferred suite list as a colon-joined
// cipher string.
func DefaultCiphers() string {
	suites := tls.CipherSuites()
	names := make([]string, 0, len(suites))
	for _, s := range suites {
		names = append(names, s.Name)
	}
	return strings.Join(names, ":")
}

// SslProtocol returns the negotiation protocol name, "TLS" by default.
func (hc *HostConfig) SslProtocol() string {
	return hc.sslProtocol
}

// Ciphers returns the enabled cipher suites as a colon-joined string.
func (hc *HostConfig) Ciphers() string {
	return hc.ciphers
}

func (hc *HostConfig) SetCiphers(ciphers string) {
	hc.ciphers = ciphers
}

// EnabledProtocols returns the accepted protocol versions. An empty result
// means the connector falls back to secure defaults.
func (hc *HostConfig) EnabledProtocols() []string {
	return slices.Clone(hc.enabledProtocols)
}

func (hc *HostConfig) SetEnabledProtocols(protocols []string) {
	hc.enabledProtocols = slices.Clone(protocols)
}

// CertificateVerification returns the client-auth mode: "none", "optional"
// or "required".
func (hc *HostConfig) CertificateVerification() string {
	return hc.certificateVerification
}

func (hc *HostConfig) SetCertificateVerification(mode string) {
	hc.certificateVerification = mode
}

func (hc *HostConfig) TruststoreFile() string     { return hc.truststoreFile }
func (hc *HostConfig) TruststoreType() string     { return hc.truststoreType }
func (hc *HostConfig) TruststoreProvider() string { return hc.truststoreProvider }
func (hc *HostConfig) TruststorePassword() string { return hc.truststorePassword }

func (hc *HostConfig) SetTruststoreFile(file string)         { hc.truststoreFile = file }
func (hc *HostConfig) SetTruststoreType(typ string)          { hc.truststoreType = typ }
func (hc *HostConfig) SetTruststoreProvider(provider string) { hc.truststoreProvider = provider }
func (hc *HostConfig) SetTruststorePassword(password string) { hc.truststorePassword = password }

// Truststore returns in-memory trust material, nil unless a StoreProvider
// supplied one.
func (hc *HostConfig) Truststore() *keystore.Store {
	return hc.truststore
}

func (hc *HostConfig) SetTruststore(store *keystore.Store) {
	hc.truststore = store
}

// AddCertificate appends a key-material entry.
func (hc *HostConfig) AddCertificate(cert *HostCertificate) {
	hc.certificates = append(hc.certificates, cert)
}

// Certificates returns the key-material entries.
func (hc *HostConfig) Certificates() []*HostCertificate {
	return slices.Clone(hc.certificates)
}
