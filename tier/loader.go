package tier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk tier table.
//
// Example:
//
//	default_tier: free
//	tiers:
//	  - name: free
//	    algorithm: fixed_window
//	    limit: 100
//	    window: 1m
//	  - name: pro
//	    algorithm: token_bucket
//	    limit: 1000
//	    window: 1h
//	    capacity: 50
//	    refill_rate: 10
//	assignments:
//	  acme-corp: pro
type Config struct {
	DefaultTier string            `yaml:"default_tier"`
	Tiers       []Tier            `yaml:"tiers"`
	Assignments map[string]string `yaml:"assignments"`
}

// Load reads a tier table from a YAML file and builds a validated resolver.
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tier config: %w", err)
	}
	return Parse(data)
}

// Parse builds a validated resolver from YAML bytes.
func Parse(data []byte) (*Static, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}
	if len(cfg.Tiers) == 0 {
		return nil, fmt.Errorf("%w: no tiers defined", ErrMisconfigured)
	}
	return NewStatic(cfg.Tiers, cfg.Assignments, cfg.DefaultTier)
}
