// MIT License
//
// # Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// go/src/common/config.go
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sphinx-core/stark-pqc/src/core/budget"
	"github.com/sphinx-core/stark-pqc/src/core/stark/zk"
	"gopkg.in/yaml.v2"
)

const (
	// DataDir is the default data directory.
	DataDir = "data"

	// ConfigFile is looked up inside the data directory when no path is given.
	ConfigFile = "config.yaml"
)

// ProofConfig mirrors zk.ProofOptions for YAML.
type ProofConfig struct {
	NumQueries         uint8 `yaml:"num_queries"`
	BlowupFactor       uint8 `yaml:"blowup_factor"`
	GrindingFactor     uint8 `yaml:"grinding_factor"`
	MaxRemainderDegree uint8 `yaml:"max_remainder_degree"`
}

// Options converts the section to proof options.
func (p ProofConfig) Options() zk.ProofOptions {
	return zk.ProofOptions{
		NumQueries:         p.NumQueries,
		BlowupFactor:       p.BlowupFactor,
		GrindingFactor:     p.GrindingFactor,
		MaxRemainderDegree: p.MaxRemainderDegree,
	}
}

// Config is the node configuration.
type Config struct {
	DataDir        string      `yaml:"data_dir"`
	Backend        string      `yaml:"backend"`
	Checksums      bool        `yaml:"checksums"`
	HTTPAddr       string      `yaml:"http_addr"`
	TLSCert        string      `yaml:"tls_cert,omitempty"`
	TLSKey         string      `yaml:"tls_key,omitempty"`
	MaxWorkPerCall uint64      `yaml:"max_work_per_call"`
	QueueSize      int         `yaml:"queue_size"`
	LogLevel       string      `yaml:"log_level"`
	Proof          ProofConfig `yaml:"proof"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	o := zk.DefaultOptions()
	return &Config{
		DataDir:        DataDir,
		Backend:        "leveldb",
		Checksums:      true,
		HTTPAddr:       "127.0.0.1:8645",
		MaxWorkPerCall: budget.DefaultMaxWorkPerCall,
		QueueSize:      256,
		LogLevel:       "info",
		Proof: ProofConfig{
			NumQueries:         o.NumQueries,
			BlowupFactor:       o.BlowupFactor,
			GrindingFactor:     o.GrindingFactor,
			MaxRemainderDegree: o.MaxRemainderDegree,
		},
	}
}

// LoadConfig reads path over the defaults. An empty path falls back to
// data/config.yaml and a missing default file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = filepath.Join(DataDir, ConfigFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Backend {
	case "leveldb", "badger", "memory":
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.MaxWorkPerCall == 0 {
		return errors.New("config: max_work_per_call must be positive")
	}
	if c.QueueSize <= 0 {
		return errors.New("config: queue_size must be positive")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("config: tls_cert and tls_key must be set together")
	}
	if err := c.Proof.Options().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// StorePath is where the selected backend keeps its files.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, c.Backend)
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
