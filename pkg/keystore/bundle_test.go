package keystore_test

import (
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embermesh/ember/pkg/conf"
	"github.com/embermesh/ember/pkg/keystore"
)

type stubProvider struct {
	key   *keystore.Store
	trust *keystore.Store
}

func (p stubProvider) KeyStore() (*keystore.Store, error)   { return p.key, nil }
func (p stubProvider) TrustStore() (*keystore.Store, error) { return p.trust, nil }

type stubToken struct {
	name  string
	store *keystore.Store
}

func (s stubToken) Name() string                                      { return s.name }
func (s stubToken) KeyStore(password string) (*keystore.Store, error) { return s.store, nil }

func memoryStore(t *testing.T, cn string) *keystore.Store {
	t.Helper()
	key, cert := newTestCert(t, cn)
	return keystore.NewStore(key, []*x509.Certificate{cert}, nil)
}

func TestGetBundleDisabled(t *testing.T) {
	b, err := keystore.GetBundle(nil)
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = keystore.GetBundle(&conf.SSL{Enabled: false, KeyStore: "test.jks"})
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestGetBundleNoKeyMaterial(t *testing.T) {
	_, err := keystore.GetBundle(&conf.SSL{Enabled: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, keystore.ErrNoTrustMaterial)
	assert.ErrorContains(t, err, "no trust material is configured")
}

func TestGetBundlePKCS11WithLocation(t *testing.T) {
	_, err := keystore.GetBundle(&conf.SSL{
		Enabled:          true,
		KeyStoreType:     "PKCS11",
		KeyStoreProvider: "SomeToken",
		KeyStore:         "test.jks",
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "must be empty or null for PKCS11 hardware key stores")
}

func TestGetBundlePKCS11Provider(t *testing.T) {
	store := memoryStore(t, "token-key")
	keystore.RegisterProvider(stubToken{name: "TestToken", store: store})
	defer keystore.UnregisterProvider("TestToken")

	b, err := keystore.GetBundle(&conf.SSL{
		Enabled:          true,
		KeyStoreType:     "PKCS11",
		KeyStoreProvider: "TestToken",
		KeyStorePassword: "1234",
	})
	require.NoError(t, err)
	assert.Same(t, store, b.KeyStore)
	assert.Equal(t, keystore.TypePKCS11, b.KeyStoreType)
}

func TestGetBundlePKCS11UnregisteredProvider(t *testing.T) {
	// Resolution is deferred to connector startup for unregistered providers.
	b, err := keystore.GetBundle(&conf.SSL{
		Enabled:          true,
		KeyStoreType:     "PKCS11",
		KeyStoreProvider: "AbsentToken",
	})
	require.NoError(t, err)
	assert.Nil(t, b.KeyStore)
	assert.Equal(t, "AbsentToken", b.KeyStoreProvider)
}

func TestGetBundleFileMaterial(t *testing.T) {
	ssl := &conf.SSL{
		Enabled:            true,
		KeyStore:           "server.jks",
		KeyStoreType:       "JKS",
		KeyStorePassword:   "secret",
		KeyAlias:           "web",
		KeyPassword:        "password",
		TrustStore:         "trust.p12",
		TrustStoreType:     "PKCS12",
		TrustStorePassword: "changeit",
		Ciphers:            []string{"A", "B"},
		EnabledProtocols:   []string{"TLSv1.2"},
		ClientAuth:         conf.ClientAuthNeed,
	}

	b, err := keystore.GetBundle(ssl)
	require.NoError(t, err)

	assert.Equal(t, "server.jks", b.KeyStoreFile)
	assert.Equal(t, "secret", b.KeyStorePassword)
	assert.Equal(t, "web", b.KeyAlias)
	assert.Equal(t, "password", b.KeyPassword)
	assert.Equal(t, "trust.p12", b.TrustStoreFile)
	assert.Equal(t, "changeit", b.TrustStorePassword)
	assert.Equal(t, []string{"A", "B"}, b.Ciphers)
	assert.Equal(t, []string{"TLSv1.2"}, b.Protocols)
	assert.Equal(t, conf.ClientAuthNeed, b.ClientAuth)

	// the bundle owns its slices
	ssl.Ciphers[0] = "mutated"
	assert.Equal(t, "A", b.Ciphers[0])
}

func TestGetBundleFromProvider(t *testing.T) {
	keyStore := memoryStore(t, "provided-key")
	trustStore := keystore.NewStore(nil, nil, nil)

	t.Run("provider material wins over settings", func(t *testing.T) {
		b, err := keystore.GetBundleFrom(&conf.SSL{
			Enabled:          true,
			KeyStore:         "server.jks",
			KeyStorePassword: "secret",
			TrustStore:       "trust.jks",
		}, stubProvider{key: keyStore, trust: trustStore})
		require.NoError(t, err)

		assert.Same(t, keyStore, b.KeyStore)
		assert.Same(t, trustStore, b.TrustStore)
		assert.Empty(t, b.KeyStorePassword, "provider material carries no password")
	})

	t.Run("truststore path ignored when provider present", func(t *testing.T) {
		b, err := keystore.GetBundleFrom(&conf.SSL{
			Enabled:    true,
			TrustStore: "trust.jks",
		}, stubProvider{key: keyStore})
		require.NoError(t, err)

		assert.Nil(t, b.TrustStore)
		assert.Empty(t, b.TrustStoreFile)
	})

	t.Run("keystore path still used when provider has no key material", func(t *testing.T) {
		b, err := keystore.GetBundleFrom(&conf.SSL{
			Enabled:          true,
			KeyStore:         "server.jks",
			KeyStorePassword: "secret",
		}, stubProvider{trust: trustStore})
		require.NoError(t, err)

		assert.Nil(t, b.KeyStore)
		assert.Equal(t, "server.jks", b.KeyStoreFile)
		assert.Same(t, trustStore, b.TrustStore)
	})
}
