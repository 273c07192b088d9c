package keystore_test

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	jks "github.com/pavlo-v-chernykh/keystore-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/embermesh/ember/pkg/keystore"
)

func newTestCert(t *testing.T, cn string) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		DNSNames:              []string{cn},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return key, cert
}

func encodeJKS(t *testing.T, key *rsa.PrivateKey, cert *x509.Certificate, storePassword, keyPassword string) []byte {
	t.Helper()

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	ks := jks.New()
	err = ks.SetPrivateKeyEntry("server", jks.PrivateKeyEntry{
		CreationTime: time.Now(),
		PrivateKey:   keyDER,
		CertificateChain: []jks.Certificate{
			{Type: "X.509", Content: cert.Raw},
		},
	}, []byte(keyPassword))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ks.Store(&buf, []byte(storePassword)))
	return buf.Bytes()
}

func TestLoadJKS(t *testing.T) {
	key, cert := newTestCert(t, "localhost")
	data := encodeJKS(t, key, cert, "secret", "password")

	store, err := keystore.Load(data, keystore.TypeJKS, "secret")
	require.NoError(t, err)
	assert.Equal(t, keystore.TypeJKS, store.Type())
	assert.Equal(t, []string{"server"}, store.Aliases())

	tlsCert, err := store.Certificate("server", "password")
	require.NoError(t, err)
	require.NotNil(t, tlsCert.Leaf)
	assert.Equal(t, "localhost", tlsCert.Leaf.Subject.CommonName)
	assert.NotNil(t, tlsCert.PrivateKey)

	// first key entry is picked when no alias is given
	tlsCert, err = store.Certificate("", "password")
	require.NoError(t, err)
	assert.Equal(t, "localhost", tlsCert.Leaf.Subject.CommonName)
}

func TestLoadJKSTrustedEntries(t *testing.T) {
	_, cert := newTestCert(t, "trusted-ca")

	ks := jks.New()
	err := ks.SetTrustedCertificateEntry("ca", jks.TrustedCertificateEntry{
		CreationTime: time.Now(),
		Certificate:  jks.Certificate{Type: "X.509", Content: cert.Raw},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ks.Store(&buf, []byte("changeit")))

	store, err := keystore.Load(buf.Bytes(), keystore.TypeJKS, "changeit")
	require.NoError(t, err)

	trusted := store.TrustedCertificates()
	require.Len(t, trusted, 1)
	assert.Equal(t, "trusted-ca", trusted[0].Subject.CommonName)
	assert.NotNil(t, store.CertPool())

	_, err = store.Certificate("", "")
	assert.Error(t, err, "a truststore has no key entry to resolve")
}

func TestLoadJKSPasswordFallback(t *testing.T) {
	key, cert := newTestCert(t, "localhost")
	data := encodeJKS(t, key, cert, "", "password")

	// wrong store password falls back to the empty password
	store, err := keystore.Load(data, keystore.TypeJKS, "wrong")
	require.NoError(t, err)
	assert.Equal(t, []string{"server"}, store.Aliases())
}

func TestLoadPKCS12(t *testing.T) {
	key, cert := newTestCert(t, "localhost")

	data, err := pkcs12.Modern.Encode(key, cert, nil, "secret")
	require.NoError(t, err)

	store, err := keystore.Load(data, keystore.TypePKCS12, "secret")
	require.NoError(t, err)
	assert.Equal(t, keystore.TypePKCS12, store.Type())

	tlsCert, err := store.Certificate("", "")
	require.NoError(t, err)
	assert.Equal(t, "localhost", tlsCert.Leaf.Subject.CommonName)
}

func TestLoadPKCS12TrustStore(t *testing.T) {
	_, cert := newTestCert(t, "trusted-ca")

	data, err := pkcs12.Passwordless.EncodeTrustStoreEntries(
		[]pkcs12.TrustStoreEntry{{Cert: cert, FriendlyName: "ca"}}, "")
	require.NoError(t, err)

	store, err := keystore.Load(data, keystore.TypePKCS12, "")
	require.NoError(t, err)

	trusted := store.TrustedCertificates()
	require.Len(t, trusted, 1)
	assert.Equal(t, "trusted-ca", trusted[0].Subject.CommonName)
}

func TestLoadPEM(t *testing.T) {
	key, cert := newTestCert(t, "localhost")

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
	require.NoError(t, pem.Encode(&buf, &pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))

	store, err := keystore.Load(buf.Bytes(), keystore.TypePEM, "")
	require.NoError(t, err)

	tlsCert, err := store.Certificate("", "")
	require.NoError(t, err)
	assert.Equal(t, "localhost", tlsCert.Leaf.Subject.CommonName)

	t.Run("certificates only become trust anchors", func(t *testing.T) {
		var certOnly bytes.Buffer
		require.NoError(t, pem.Encode(&certOnly, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))

		store, err := keystore.Load(certOnly.Bytes(), keystore.TypePEM, "")
		require.NoError(t, err)
		assert.Len(t, store.TrustedCertificates(), 1)
	})
}

func TestLoadFileDetectsType(t *testing.T) {
	key, cert := newTestCert(t, "localhost")
	dir := t.TempDir()

	jksPath := filepath.Join(dir, "store")
	require.NoError(t, os.WriteFile(jksPath, encodeJKS(t, key, cert, "secret", "secret"), 0600))

	store, err := keystore.LoadFile(jksPath, "", "secret")
	require.NoError(t, err)
	assert.Equal(t, keystore.TypeJKS, store.Type())

	pemPath := filepath.Join(dir, "bundle.pem")
	var buf bytes.Buffer
	require.NoError(t, pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
	require.NoError(t, os.WriteFile(pemPath, buf.Bytes(), 0600))

	store, err = keystore.LoadFile(pemPath, "", "")
	require.NoError(t, err)
	assert.Equal(t, keystore.TypePEM, store.Type())
}

func TestLoadErrors(t *testing.T) {
	_, err := keystore.Load([]byte("garbage"), "JKS", "secret")
	assert.Error(t, err)

	_, err = keystore.Load([]byte("garbage"), "NOPE", "")
	assert.ErrorContains(t, err, "unsupported store type")

	_, err = keystore.Load([]byte("garbage"), keystore.TypePKCS11, "")
	assert.ErrorContains(t, err, "hardware provider")

	_, err = keystore.LoadFile(filepath.Join(t.TempDir(), "missing.jks"), "", "")
	assert.Error(t, err)
}
