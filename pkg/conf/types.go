package conf

import "time"

// TimeoutConfig represents timeout settings
type TimeoutConfig struct {
	// Read timeout for reading requests
	Read time.Duration `yaml:"read"`

	// Write timeout for writing responses
	Write time.Duration `yaml:"write"`

	// Idle timeout for keep-alive connections
	Idle time.Duration `yaml:"idle"`

	// Shutdown is the grace period for draining connections on stop
	Shutdown time.Duration `yaml:"shutdown"`
}

// HTTPConfig represents HTTP-specific configuration
type HTTPConfig struct {
	// EnableHTTP2 enables HTTP/2 support on TLS connectors
	EnableHTTP2 bool `yaml:"enable_http2"`

	// MaxHeaderBytes limits the size of request headers (0 = 1 MB default)
	MaxHeaderBytes int `yaml:"max_header_bytes,omitempty"`
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	// Enabled enables per-client rate limiting
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained per-client request rate
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`

	// BurstSize is the maximum burst per client
	BurstSize int64 `yaml:"burst_size,omitempty"`
}

// GuardConfig represents request admission configuration
type GuardConfig struct {
	// RateLimit configuration
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`

	// Blocklist is a list of denied client IPs or CIDR ranges
	Blocklist []string `yaml:"blocklist,omitempty"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error" (default: "info")
	Level string `yaml:"level,omitempty"`
}
