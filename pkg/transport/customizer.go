package transport

import (
	"log/slog"
	"strings"

	"github.com/embermesh/ember/pkg/conf"
	"github.com/embermesh/ember/pkg/keystore"
)

// Customizer translates declarative SSL settings into the mutable state a
// connector needs before it starts listening. It only writes the connector's
// host configuration; starting and stopping stay with the caller.
type Customizer struct {
	connector  *Connector
	clientAuth conf.ClientAuth
}

func NewCustomizer(connector *Connector, clientAuth conf.ClientAuth) *Customizer {
	return &Customizer{connector: connector, clientAuth: clientAuth}
}

// Apply resolves TLS material for the settings and customizes the connector.
// A nil or disabled SSL config is a no-op.
func (c *Customizer) Apply(ssl *conf.SSL) error {
	bundle, err := keystore.GetBundle(ssl)
	if err != nil {
		return err
	}
	return c.Customize(bundle)
}

// Customize populates the connector's host configuration from the resolved
// bundle and marks the connector TLS-enabled. A nil bundle is a no-op.
func (c *Customizer) Customize(b *keystore.Bundle) error {
	if b == nil {
		return nil
	}

	hc := c.connector.HostConfig()
	hc.SetCertificateVerification(certificateVerification(c.clientAuth))

	if len(b.Ciphers) > 0 {
		hc.SetCiphers(strings.Join(b.Ciphers, ":"))
	}
	if len(b.Protocols) > 0 {
		hc.SetEnabledProtocols(b.Protocols)
	}

	c.configureCertificate(hc, b)
	c.configureTruststore(hc, b)

	c.connector.enableTLS()
	slog.Debug("connector TLS configured",
		"client_auth", hc.CertificateVerification(),
		"protocols", hc.EnabledProtocols())
	return nil
}

func (c *Customizer) configureCertificate(hc *HostConfig, b *keystore.Bundle) {
	cert := &HostCertificate{KeyAlias: b.KeyAlias}

	if b.KeyStore != nil {
		// Externally supplied material carries no passwords to verify.
		cert.Keystore = b.KeyStore
	} else {
		cert.KeystoreFile = b.KeyStoreFile
		cert.KeystoreType = b.KeyStoreType
		cert.KeystoreProvider = b.KeyStoreProvider
		cert.KeystorePassword = b.KeyStorePassword
		cert.KeyPassword = b.KeyPassword
	}

	hc.AddCertificate(cert)
}

func (c *Customizer) configureTruststore(hc *HostConfig, b *keystore.Bundle) {
	if b.TrustStore != nil {
		hc.SetTruststore(b.TrustStore)
		return
	}
	if b.TrustStoreFile == "" {
		return
	}
	hc.SetTruststoreFile(b.TrustStoreFile)
	hc.SetTruststoreType(b.TrustStoreType)
	hc.SetTruststoreProvider(b.TrustStoreProvider)
	hc.SetTruststorePassword(b.TrustStorePassword)
}

// certificateVerification maps the declarative client-auth mode onto the
// host configuration vocabulary.
func certificateVerification(auth conf.ClientAuth) string {
	switch auth {
	case conf.ClientAuthWant:
		return "optional"
	case conf.ClientAuthNeed:
		return "required"
	default:
		return "none"
	}
}
