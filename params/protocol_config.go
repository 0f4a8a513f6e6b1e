package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMaxProposalSizeBytes bounds the canonical serialized size of a
// block proposal together with its referenced blobs.
const DefaultMaxProposalSizeBytes = 13_000_000

// String implements the stringer interface, returning the protocol
// configuration name.
func (c *ProtocolConfig) String() string {
	return "protocol"
}

// ProtocolConfig is the chain protocol configuration used by genesis
// files. The round/timeout fields are read by the consensus driver; the
// core consumes Version and MaxProposalSizeBytes.
type ProtocolConfig struct {
	Version              uint8  `json:"version" yaml:"version"`
	MaxProposalSizeBytes uint64 `json:"maxProposalSizeBytes" yaml:"maxProposalSizeBytes"`
	RoundTimeout         uint64 `json:"roundTimeout" yaml:"roundTimeout"`
	RoundTimeoutInterval uint64 `json:"roundTimeoutInterval" yaml:"roundTimeoutInterval"`
	MaxTimeout           uint64 `json:"maxTimeout" yaml:"maxTimeout"`
	Crypto               string `json:"crypto" yaml:"crypto"`
	// The name of the leader rotation algorithm to use.
	LeaderRotation string `json:"leaderRotation" yaml:"leaderRotation"`
	// Epoch length to reset votes and checkpoint
	Epoch uint64 `json:"epoch" yaml:"epoch"`
}

// DefaultProtocolConfig returns the stock configuration.
func DefaultProtocolConfig() *ProtocolConfig {
	return &ProtocolConfig{
		Version:              1,
		MaxProposalSizeBytes: DefaultMaxProposalSizeBytes,
		RoundTimeout:         10_000,
		RoundTimeoutInterval: 1_000,
		MaxTimeout:           60_000,
		Crypto:               "secp256k1",
		LeaderRotation:       "round-robin",
		Epoch:                10_000,
	}
}

// Validate checks the configuration for values the protocol cannot run with.
func (c *ProtocolConfig) Validate() error {
	if c.Version == 0 {
		return fmt.Errorf("protocol version must be positive")
	}
	if c.MaxProposalSizeBytes == 0 {
		return fmt.Errorf("maxProposalSizeBytes must be positive")
	}
	if c.Crypto != "secp256k1" {
		return fmt.Errorf("unsupported crypto scheme %q", c.Crypto)
	}
	return nil
}

// LoadProtocolConfig reads and validates a YAML configuration file.
func LoadProtocolConfig(path string) (*ProtocolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading protocol config: %w", err)
	}
	cfg := DefaultProtocolConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing protocol config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
