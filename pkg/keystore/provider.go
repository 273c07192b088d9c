package keystore

import "sync"

// StoreProvider supplies externally managed key and trust material, taking
// precedence over any store locations and passwords on the SSL settings.
// Either method may return nil when the provider has nothing for that role.
type StoreProvider interface {
	// KeyStore returns the store holding the server key and certificate chain
	KeyStore() (*Store, error)

	// TrustStore returns the store holding trusted CA certificates
	TrustStore() (*Store, error)
}

// HardwareProvider supplies key material from a cryptographic token (PKCS11).
// The token owns the keys; there is never an on-disk store file.
type HardwareProvider interface {
	// Name identifies the provider in SSL settings
	Name() string

	// KeyStore opens the token with the given PIN/password
	KeyStore(password string) (*Store, error)
}

var (
	providersMu sync.RWMutex
	providers   = make(map[string]HardwareProvider)
)

// RegisterProvider makes a hardware provider resolvable by name. Registering
// a second provider under the same name replaces the first.
func RegisterProvider(p HardwareProvider) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[p.Name()] = p
}

// UnregisterProvider removes a previously registered provider.
func UnregisterProvider(name string) {
	providersMu.Lock()
	defer providersMu.Unlock()
	delete(providers, name)
}

// Provider looks up a registered hardware provider by name.
func Provider(name string) (HardwareProvider, bool) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	p, ok := providers[name]
	return p, ok
}
