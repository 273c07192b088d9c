package conf

import (
	"fmt"
	"net"
	"os"
	"strings"

	"go.yaml.in/yaml/v2"
)

type Config struct {
	// Listen address (e.g., ":8443" or "0.0.0.0:8443")
	Listen string `yaml:"listen"`

	// SSL configuration for the connector (optional)
	SSL *SSL `yaml:"ssl,omitempty"`

	// HTTP configuration
	HTTP *HTTPConfig `yaml:"http,omitempty"`

	// Guard configuration for request admission (optional)
	Guard *GuardConfig `yaml:"guard,omitempty"`

	// Timeouts configuration
	Timeouts TimeoutConfig `yaml:"timeouts"`

	// Log configuration
	Log LogConfig `yaml:"log"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.SSL != nil && c.SSL.Enabled {
		if !c.SSL.ClientAuth.Valid() {
			return fmt.Errorf("invalid client_auth: %s (must be 'none', 'want' or 'need')", c.SSL.ClientAuth)
		}
		if kt := c.SSL.KeyStoreType; !strings.EqualFold(kt, "PKCS11") && c.SSL.KeyStoreProvider != "" {
			return fmt.Errorf("key_store_provider is only valid with key_store_type PKCS11")
		}
	}

	if c.Guard != nil {
		if rl := c.Guard.RateLimit; rl != nil && rl.Enabled {
			if rl.RequestsPerSecond <= 0 {
				return fmt.Errorf("rate limit requests_per_second must be positive")
			}
			if rl.BurstSize <= 0 {
				return fmt.Errorf("rate limit burst_size must be positive")
			}
		}

		for i, entry := range c.Guard.Blocklist {
			if _, _, err := net.ParseCIDR(entry); err == nil {
				continue
			}
			if net.ParseIP(entry) == nil {
				return fmt.Errorf("blocklist entry %d is neither an IP nor a CIDR: %s", i, entry)
			}
		}
	}

	return nil
}
