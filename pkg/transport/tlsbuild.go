package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"strings"

	"github.com/embermesh/ember/pkg/keystore"
)

// BuildTLSConfig resolves a host configuration into the tls.Config the
// listener will serve with. This is where store files are actually opened
// and hardware providers consulted.
func BuildTLSConfig(hc *HostConfig) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if protocols := hc.EnabledProtocols(); len(protocols) > 0 {
		min, max, err := protocolRange(protocols)
		if err != nil {
			return nil, err
		}
		cfg.MinVersion, cfg.MaxVersion = min, max
	}

	cfg.CipherSuites = cipherSuiteIDs(hc.Ciphers())
	cfg.ClientAuth = clientAuthType(hc.CertificateVerification())

	certMgr := NewCertificateManager()
	for _, hcert := range hc.Certificates() {
		store, err := resolveKeystore(hcert)
		if err != nil {
			return nil, err
		}
		tlsCert, err := store.Certificate(hcert.KeyAlias, keyPassword(hcert))
		if err != nil {
			return nil, err
		}
		cert, err := CertificateFrom(tlsCert)
		if err != nil {
			return nil, err
		}
		if err := certMgr.AddCertificate(cert, false); err != nil {
			return nil, err
		}
	}
	if certMgr.Len() == 0 {
		return nil, fmt.Errorf("connector has no usable key material")
	}
	cfg.GetCertificate = certMgr.GetCertificate

	pool, err := resolveTruststore(hc)
	if err != nil {
		return nil, err
	}
	cfg.ClientCAs = pool

	return cfg, nil
}

func resolveKeystore(hcert *HostCertificate) (*keystore.Store, error) {
	if hcert.Keystore != nil {
		return hcert.Keystore, nil
	}

	if strings.EqualFold(hcert.KeystoreType, keystore.TypePKCS11) {
		provider, ok := keystore.Provider(hcert.KeystoreProvider)
		if !ok {
			return nil, fmt.Errorf("hardware provider %q is not registered", hcert.KeystoreProvider)
		}
		return provider.KeyStore(hcert.KeystorePassword)
	}

	if hcert.KeystoreFile == "" {
		return nil, fmt.Errorf("certificate entry has neither a keystore file nor in-memory material")
	}
	return keystore.LoadFile(hcert.KeystoreFile, hcert.KeystoreType, hcert.KeystorePassword)
}

func resolveTruststore(hc *HostConfig) (*x509.CertPool, error) {
	if store := hc.Truststore(); store != nil {
		return store.CertPool(), nil
	}

	if file := hc.TruststoreFile(); file != "" {
		store, err := keystore.LoadFile(file, hc.TruststoreType(), hc.TruststorePassword())
		if err != nil {
			return nil, err
		}
		return store.CertPool(), nil
	}

	// No explicit trust material; client verification, if any, runs against
	// the system roots.
	return nil, nil
}

func keyPassword(hcert *HostCertificate) string {
	if hcert.KeyPassword != "" {
		return hcert.KeyPassword
	}
	return hcert.KeystorePassword
}

// protocolRange collapses a protocol name set to the contiguous version range
// crypto/tls expects. The set itself stays order-insensitive on the host
// configuration.
func protocolRange(names []string) (uint16, uint16, error) {
	var min, max uint16
	for _, name := range names {
		version, err := protocolVersion(name)
		if err != nil {
			return 0, 0, err
		}
		if min == 0 || version < min {
			min = version
		}
		if version > max {
			max = version
		}
	}
	return min, max, nil
}

// protocolVersion accepts both the Java spelling ("TLSv1.2") and the short
// form ("1.2").
func protocolVersion(name string) (uint16, error) {
	trimmed := name
	if strings.HasPrefix(strings.ToUpper(trimmed), "TLSV") {
		trimmed = trimmed[4:]
	}
	switch trimmed {
	case "1", "1.0":
		return tls.VersionTLS10, nil
	case "1.1":
		return tls.VersionTLS11, nil
	case "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS protocol: %s", name)
	}
}

// cipherSuiteIDs maps a colon-joined cipher string to suite IDs. Names the
// platform does not implement are skipped, not rejected; the cipher string on
// the host configuration keeps the declared list verbatim.
func cipherSuiteIDs(ciphers string) []uint16 {
	if ciphers == "" {
		return nil
	}

	table := make(map[string]uint16)
	for _, s := range tls.CipherSuites() {
		table[s.Name] = s.ID
	}
	for _, s := range tls.InsecureCipherSuites() {
		table[s.Name] = s.ID
	}

	var ids []uint16
	for _, name := range strings.Split(ciphers, ":") {
		if id, ok := table[name]; ok {
			ids = append(ids, id)
		} else {
			slog.Debug("skipping unknown cipher suite", "name", name)
		}
	}
	return ids
}

func clientAuthType(mode string) tls.ClientAuthType {
	switch mode {
	case "optional":
		return tls.VerifyClientCertIfGiven
	case "required":
		return tls.RequireAndVerifyClientCert
	default:
		return tls.NoClientCert
	}
}
