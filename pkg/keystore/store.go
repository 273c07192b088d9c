package keystore

import (
	"bytes"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jks "github.com/pavlo-v-chernykh/keystore-go/v4"
	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Store types understood by Load. TypePKCS11 never loads from disk; it routes
// to a registered HardwareProvider instead.
const (
	TypeJKS    = "JKS"
	TypePKCS12 = "PKCS12"
	TypePEM    = "PEM"
	TypePKCS11 = "PKCS11"
)

// jksMagic is the four-byte header of the JKS file format.
var jksMagic = []byte{0xfe, 0xed, 0xfe, 0xed}

// Store holds key and trust material loaded from a Java-style store or
// supplied in memory by a StoreProvider.
type Store struct {
	storeType string

	// set for JKS stores; key entries stay encrypted until Certificate is called
	ks         *jks.KeyStore
	ksPassword []byte

	// set for PKCS12, PEM and in-memory stores
	key   crypto.PrivateKey
	chain []*x509.Certificate

	trusted []*x509.Certificate
}

// NewStore builds an in-memory store from already parsed material. Either the
// key/chain pair or the trusted list may be empty.
func NewStore(key crypto.PrivateKey, chain []*x509.Certificate, trusted []*x509.Certificate) *Store {
	return &Store{key: key, chain: chain, trusted: trusted}
}

// LoadFile reads and decodes the store at path. storeType may be empty, in
// which case it is detected from the file content and extension.
func LoadFile(path, storeType, password string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", path, err)
	}

	if storeType == "" {
		storeType = detectType(data, path)
	}

	store, err := Load(data, storeType, password)
	if err != nil {
		return nil, fmt.Errorf("failed to load store %s: %w", path, err)
	}
	return store, nil
}

// Load decodes store bytes of the given type.
func Load(data []byte, storeType, password string) (*Store, error) {
	switch strings.ToUpper(storeType) {
	case TypeJKS:
		return loadJKS(data, password)
	case TypePKCS12:
		return loadPKCS12(data, password)
	case TypePEM:
		return loadPEM(data)
	case TypePKCS11:
		return nil, fmt.Errorf("PKCS11 stores are supplied by a hardware provider, not loaded from bytes")
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}

// Type returns the store type, or the empty string for in-memory stores.
func (s *Store) Type() string {
	return s.storeType
}

// Aliases lists the entry aliases of a JKS store. Other store types have no
// alias concept and return nil.
func (s *Store) Aliases() []string {
	if s.ks == nil {
		return nil
	}
	return s.ks.Aliases()
}

// Certificate resolves the server certificate and private key. alias selects
// a JKS private key entry (first one when empty); keyPassword unlocks the
// entry, falling back to the store password when empty.
func (s *Store) Certificate(alias, keyPassword string) (tls.Certificate, error) {
	if s.ks != nil {
		return s.jksCertificate(alias, keyPassword)
	}

	if s.key == nil || len(s.chain) == 0 {
		return tls.Certificate{}, fmt.Errorf("store holds no private key entry")
	}

	raw := make([][]byte, 0, len(s.chain))
	for _, cert := range s.chain {
		raw = append(raw, cert.Raw)
	}
	return tls.Certificate{Certificate: raw, PrivateKey: s.key, Leaf: s.chain[0]}, nil
}

func (s *Store) jksCertificate(alias, keyPassword string) (tls.Certificate, error) {
	if alias == "" {
		for _, a := range s.ks.Aliases() {
			if s.ks.IsPrivateKeyEntry(a) {
				alias = a
				break
			}
		}
	}
	if alias == "" {
		return tls.Certificate{}, fmt.Errorf("keystore holds no private key entry")
	}

	password := []byte(keyPassword)
	if keyPassword == "" {
		password = s.ksPassword
	}

	entry, err := s.ks.GetPrivateKeyEntry(alias, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read key entry %q: %w", alias, err)
	}

	key, err := parsePrivateKey(entry.PrivateKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse key of entry %q: %w", alias, err)
	}

	raw := make([][]byte, 0, len(entry.CertificateChain))
	var leaf *x509.Certificate
	for i, c := range entry.CertificateChain {
		raw = append(raw, c.Content)
		if i == 0 {
			if leaf, err = x509.ParseCertificate(c.Content); err != nil {
				return tls.Certificate{}, fmt.Errorf("failed to parse certificate of entry %q: %w", alias, err)
			}
		}
	}
	if len(raw) == 0 {
		return tls.Certificate{}, fmt.Errorf("key entry %q has no certificate chain", alias)
	}

	return tls.Certificate{Certificate: raw, PrivateKey: key, Leaf: leaf}, nil
}

// TrustedCertificates returns the trust anchors of the store: trusted
// certificate entries plus the leaf certificate of each key entry, which is
// how Java trust managers treat a keystore used as a truststore.
func (s *Store) TrustedCertificates() []*x509.Certificate {
	certs := make([]*x509.Certificate, 0, len(s.trusted)+1)
	certs = append(certs, s.trusted...)

	if s.ks != nil {
		for _, alias := range s.ks.Aliases() {
			if !s.ks.IsPrivateKeyEntry(alias) {
				continue
			}
			if leaf := s.jksKeyEntryLeaf(alias); leaf != nil {
				certs = append(certs, leaf)
			}
		}
	} else if len(s.chain) > 0 {
		certs = append(certs, s.chain[0])
	}

	return certs
}

func (s *Store) jksKeyEntryLeaf(alias string) *x509.Certificate {
	entry, err := s.ks.GetPrivateKeyEntry(alias, s.ksPassword)
	if err != nil || len(entry.CertificateChain) == 0 {
		return nil
	}
	leaf, err := x509.ParseCertificate(entry.CertificateChain[0].Content)
	if err != nil {
		return nil
	}
	return leaf
}

// CertPool builds a certificate pool from the store's trust anchors.
func (s *Store) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()
	for _, cert := range s.TrustedCertificates() {
		pool.AddCert(cert)
	}
	return pool
}

func loadJKS(data []byte, password string) (*Store, error) {
	ks, actualPassword, err := loadJKSWithFallback(data, password)
	if err != nil {
		return nil, err
	}

	store := &Store{storeType: TypeJKS, ks: ks, ksPassword: actualPassword}
	for _, alias := range ks.Aliases() {
		if !ks.IsTrustedCertificateEntry(alias) {
			continue
		}
		entry, err := ks.GetTrustedCertificateEntry(alias)
		if err != nil {
			return nil, fmt.Errorf("failed to read trusted entry %q: %w", alias, err)
		}
		cert, err := x509.ParseCertificate(entry.Certificate.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse trusted entry %q: %w", alias, err)
		}
		store.trusted = append(store.trusted, cert)
	}
	return store, nil
}

// loadJKSWithFallback tries the given password first, then the empty password
// used by password-less stores.
func loadJKSWithFallback(data []byte, password string) (*jks.KeyStore, []byte, error) {
	ks := jks.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err == nil {
		return &ks, []byte(password), nil
	}

	if password != "" {
		ks = jks.New()
		if err := ks.Load(bytes.NewReader(data), []byte{}); err == nil {
			return &ks, []byte{}, nil
		}
	}

	ks = jks.New()
	err := ks.Load(bytes.NewReader(data), []byte(password))
	return nil, nil, fmt.Errorf("failed to decode keystore: %w", err)
}

func loadPKCS12(data []byte, password string) (*Store, error) {
	key, leaf, caCerts, err := pkcs12.DecodeChain(data, password)
	if err == nil {
		chain := append([]*x509.Certificate{leaf}, caCerts...)
		return &Store{storeType: TypePKCS12, key: key, chain: chain}, nil
	}

	// A PKCS12 truststore has no key entry; retry as certificates only.
	trusted, trustErr := pkcs12.DecodeTrustStore(data, password)
	if trustErr != nil {
		return nil, fmt.Errorf("failed to decode PKCS12 store: %w", err)
	}
	return &Store{storeType: TypePKCS12, trusted: trusted}, nil
}

func loadPEM(data []byte) (*Store, error) {
	store := &Store{storeType: TypePEM}
	var certs []*x509.Certificate

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch {
		case block.Type == "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse PEM certificate: %w", err)
			}
			certs = append(certs, cert)
		case strings.Contains(block.Type, "PRIVATE KEY"):
			key, err := parsePrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			store.key = key
		}
	}

	if len(certs) == 0 && store.key == nil {
		return nil, fmt.Errorf("no PEM blocks found")
	}

	if store.key != nil {
		store.chain = certs
	} else {
		store.trusted = certs
	}
	return store, nil
}

func parsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("unsupported private key format")
}

func detectType(data []byte, path string) string {
	if bytes.HasPrefix(data, jksMagic) {
		return TypeJKS
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----")) {
		return TypePEM
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		return TypePKCS12
	case ".pem", ".crt", ".key":
		return TypePEM
	default:
		return TypePKCS12
	}
}
