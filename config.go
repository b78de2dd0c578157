package noisecore

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NonceEncodingLittleEndian4_11 is the only nonce encoding this core
// implements: a 12-octet ChaCha20-Poly1305 nonce with 4 zero octets
// followed by the counter little-endian in octets 4..11, per the
// Recommended encoding in spec.md §4.6/§9 and nonceBytes in cipher.go.
// Config carries this as an explicit, validated field rather than a bare
// compile-time constant so a deployment's config file documents which
// encoding both peers must agree on, per §4.6's "verify both peers use the
// same one" requirement.
const NonceEncodingLittleEndian4_11 = "little_endian_4_11"

// Config is the ambient configuration for a noisecore endpoint: handshake
// timing, transport read behavior, nonce encoding, and logging, following
// this corpus's convention of a single YAML-backed config struct with
// sensible defaults.
type Config struct {
	IdentityPath     string `yaml:"identity_path"`
	HandshakeTimeout int    `yaml:"handshake_timeout_seconds"`
	ReadTimeout      int    `yaml:"read_timeout_seconds"`
	NonceEncoding    string `yaml:"nonce_encoding"`
	LogLevel         string `yaml:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		IdentityPath:     "/etc/noisecore/identity.key",
		HandshakeTimeout: 10,
		ReadTimeout:      30,
		NonceEncoding:    NonceEncodingLittleEndian4_11,
		LogLevel:         "info",
	}
}

// LoadConfig loads config from a YAML file, falling back to
// DefaultConfig's values for any field the file omits, and validates the
// loaded NonceEncoding before returning.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := ValidateNonceEncoding(cfg.NonceEncoding); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// ValidateNonceEncoding rejects any nonce encoding other than the one
// nonceBytes implements. A deployment whose config file names a different
// encoding than its peer (or than this binary) must fail fast here rather
// than produce interop-only MacErrors deep in the handshake or channel,
// per the nonce-encoding hazard called out in spec.md §9.
func ValidateNonceEncoding(encoding string) error {
	if encoding != NonceEncodingLittleEndian4_11 {
		return fmt.Errorf("unsupported nonce_encoding %q: this build only implements %q", encoding, NonceEncodingLittleEndian4_11)
	}
	return nil
}

// HandshakeTimeoutDuration returns the configured handshake timeout as a
// time.Duration.
func (c *Config) HandshakeTimeoutDuration() time.Duration {
	return time.Duration(c.HandshakeTimeout) * time.Second
}

// ReadTimeoutDuration returns the configured transport read timeout as a
// time.Duration.
func (c *Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}
