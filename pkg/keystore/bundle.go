package keystore

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/embermesh/ember/pkg/conf"
)

// ErrNoTrustMaterial is returned when SSL is enabled but neither a keystore
// nor a hardware provider can supply key material.
var ErrNoTrustMaterial = errors.New("SSL is enabled but no trust material is configured")

// Bundle is the resolved TLS material and options for one connector: the
// outcome of combining SSL settings with an optional external StoreProvider.
type Bundle struct {
	// Ciphers and Protocols are carried through from the settings
	Ciphers    []string
	Protocols  []string
	ClientAuth conf.ClientAuth

	// KeyStore is in-memory key material; when set, the file fields and
	// passwords below are not consulted
	KeyStore         *Store
	KeyStoreFile     string
	KeyStoreType     string
	KeyStoreProvider string
	KeyStorePassword string
	KeyAlias         string
	KeyPassword      string

	// TrustStore is in-memory trust material, same precedence as KeyStore
	TrustStore         *Store
	TrustStoreFile     string
	TrustStoreType     string
	TrustStoreProvider string
	TrustStorePassword string
}

// GetBundle resolves key and trust material from the SSL settings alone.
func GetBundle(ssl *conf.SSL) (*Bundle, error) {
	return GetBundleFrom(ssl, nil)
}

// GetBundleFrom resolves key and trust material from the SSL settings and an
// optional external provider. It returns nil when SSL is disabled, and fails
// fast on incoherent settings: a PKCS11 key store combined with an explicit
// store location, or no resolvable key material at all. Configuration errors
// are not transient; there is no retry path.
func GetBundleFrom(ssl *conf.SSL, provider StoreProvider) (*Bundle, error) {
	if ssl == nil || !ssl.Enabled {
		return nil, nil
	}

	pkcs11 := strings.EqualFold(ssl.KeyStoreType, TypePKCS11)
	if pkcs11 && ssl.KeyStore != "" {
		return nil, fmt.Errorf("keystore location %q must be empty or null for PKCS11 hardware key stores", ssl.KeyStore)
	}

	b := &Bundle{
		Ciphers:    slices.Clone(ssl.Ciphers),
		Protocols:  slices.Clone(ssl.EnabledProtocols),
		ClientAuth: ssl.ClientAuth,
		KeyAlias:   ssl.KeyAlias,
	}

	if provider != nil {
		ks, err := provider.KeyStore()
		if err != nil {
			return nil, fmt.Errorf("store provider failed to supply key material: %w", err)
		}
		ts, err := provider.TrustStore()
		if err != nil {
			return nil, fmt.Errorf("store provider failed to supply trust material: %w", err)
		}
		b.KeyStore = ks
		b.TrustStore = ts
	}

	if b.KeyStore == nil {
		switch {
		case pkcs11:
			b.KeyStoreType = TypePKCS11
			b.KeyStoreProvider = ssl.KeyStoreProvider
			b.KeyStorePassword = ssl.KeyStorePassword
			if hp, ok := Provider(ssl.KeyStoreProvider); ok {
				store, err := hp.KeyStore(ssl.KeyStorePassword)
				if err != nil {
					return nil, fmt.Errorf("hardware provider %q failed to open key store: %w", ssl.KeyStoreProvider, err)
				}
				b.KeyStore = store
			}
		case ssl.KeyStore != "":
			b.KeyStoreFile = ssl.KeyStore
			b.KeyStoreType = ssl.KeyStoreType
			b.KeyStoreProvider = ssl.KeyStoreProvider
			b.KeyStorePassword = ssl.KeyStorePassword
			b.KeyPassword = ssl.KeyPassword
		default:
			return nil, ErrNoTrustMaterial
		}
	}

	// An external provider owns trust material outright: when it supplies
	// none, the connector keeps its defaults rather than falling back to the
	// truststore path on the settings.
	if provider == nil && b.TrustStore == nil && ssl.TrustStore != "" {
		b.TrustStoreFile = ssl.TrustStore
		b.TrustStoreType = ssl.TrustStoreType
		b.TrustStoreProvider = ssl.TrustStoreProvider
		b.TrustStorePassword = ssl.TrustStorePassword
	}

	return b, nil
}
