package transport

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	jks "github.com/pavlo-v-chernykh/keystore-go/v4"

	"github.com/embermesh/ember/pkg/keystore"
)

// writeJKS generates a self-signed localhost certificate and stores it as a
// JKS private key entry under the alias "server".
func writeJKS(t *testing.T, storePassword, keyPassword string) (string, *Certificate) {
	t.Helper()

	cert, err := GenerateSelfSignedCertificate([]string{"localhost"})
	if err != nil {
		t.Fatalf("failed to generate certificate: %v", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(cert.TLSCert.PrivateKey)
	if err != nil {
		t.Fatalf("failed to marshal key: %v", err)
	}

	ks := jks.New()
	entry := jks.PrivateKeyEntry{
		CreationTime: time.Now(),
		PrivateKey:   keyDER,
		CertificateChain: []jks.Certificate{
			{Type: "X.509", Content: cert.Cert.Raw},
		},
	}
	if err := ks.SetPrivateKeyEntry("server", entry, []byte(keyPassword)); err != nil {
		t.Fatalf("failed to add key entry: %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.jks")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create keystore file: %v", err)
	}
	defer f.Close()

	if err := ks.Store(f, []byte(storePassword)); err != nil {
		t.Fatalf("failed to store keystore: %v", err)
	}
	return path, cert
}

// memoryKeyStore returns in-memory key material, as a StoreProvider would
// supply it.
func memoryKeyStore(t *testing.T) *keystore.Store {
	t.Helper()

	cert, err := GenerateSelfSignedCertificate([]string{"localhost"})
	if err != nil {
		t.Fatalf("failed to generate certificate: %v", err)
	}
	return keystore.NewStore(cert.TLSCert.PrivateKey, []*x509.Certificate{cert.Cert}, nil)
}

// memoryTrustStore returns in-memory trust material.
func memoryTrustStore(t *testing.T) *keystore.Store {
	t.Helper()

	cert, err := GenerateSelfSignedCertificate([]string{"trusted-ca"})
	if err != nil {
		t.Fatalf("failed to generate certificate: %v", err)
	}
	return keystore.NewStore(nil, nil, []*x509.Certificate{cert.Cert})
}

type stubProvider struct {
	key   *keystore.Store
	trust *keystore.Store
}

func (p stubProvider) KeyStore() (*keystore.Store, error)   { return p.key, nil }
func (p stubProvider) TrustStore() (*keystore.Store, error) { return p.trust, nil }

// mockToken stands in for a PKCS11 hardware provider.
type mockToken struct {
	name  string
	store *keystore.Store
}

func (m mockToken) Name() string { return m.name }

func (m mockToken) KeyStore(password string) (*keystore.Store, error) {
	return m.store, nil
}
