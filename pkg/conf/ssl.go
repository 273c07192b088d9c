package conf

// ClientAuth determines the server's policy for TLS client authentication.
type ClientAuth string

const (
	// ClientAuthNone never requests a client certificate
	ClientAuthNone ClientAuth = "none"

	// ClientAuthWant requests a client certificate but does not require one
	ClientAuthWant ClientAuth = "want"

	// ClientAuthNeed requires a verified client certificate
	ClientAuthNeed ClientAuth = "need"
)

// SSL represents the declarative TLS settings for a connector. The store
// fields understand Java keystore artifacts (JKS, PKCS12) in addition to PEM,
// so existing keystore/truststore files can be reused unchanged.
type SSL struct {
	// Enabled enables TLS on the connector
	Enabled bool `yaml:"enabled"`

	// KeyStore path to the store holding the server key and certificate chain
	KeyStore string `yaml:"key_store,omitempty"`

	// KeyStoreType is "JKS", "PKCS12", "PEM" or "PKCS11" (auto-detected from
	// the file extension when empty)
	KeyStoreType string `yaml:"key_store_type,omitempty"`

	// KeyStoreProvider names a registered hardware provider; only meaningful
	// together with the PKCS11 store type
	KeyStoreProvider string `yaml:"key_store_provider,omitempty"`

	// KeyStorePassword protects the keystore as a whole
	KeyStorePassword string `yaml:"key_store_password,omitempty"`

	// KeyAlias selects the private key entry (first entry when empty)
	KeyAlias string `yaml:"key_alias,omitempty"`

	// KeyPassword protects the individual key entry (JKS allows per-entry
	// passwords; falls back to the store password when empty)
	KeyPassword string `yaml:"key_password,omitempty"`

	// TrustStore path to the store holding trusted client CA certificates
	TrustStore string `yaml:"trust_store,omitempty"`

	// TrustStoreType is "JKS", "PKCS12" or "PEM"
	TrustStoreType string `yaml:"trust_store_type,omitempty"`

	// TrustStoreProvider names a registered hardware provider for trust material
	TrustStoreProvider string `yaml:"trust_store_provider,omitempty"`

	// TrustStorePassword protects the truststore
	TrustStorePassword string `yaml:"trust_store_password,omitempty"`

	// EnabledProtocols restricts the accepted protocol versions
	// (e.g. ["TLSv1.2", "TLSv1.3"]; empty = secure defaults)
	EnabledProtocols []string `yaml:"enabled_protocols,omitempty"`

	// Ciphers restricts the enabled cipher suites by name (empty = defaults)
	Ciphers []string `yaml:"ciphers,omitempty"`

	// ClientAuth is "none", "want" or "need" (default: "none")
	ClientAuth ClientAuth `yaml:"client_auth,omitempty"`
}

// Valid reports whether the client auth mode is one of the known values.
func (c ClientAuth) Valid() bool {
	switch c {
	case "", ClientAuthNone, ClientAuthWant, ClientAuthNeed:
		return true
	default:
		return false
	}
}
