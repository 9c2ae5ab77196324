// Package policy loads project-level secret policy from config.yaml:
// which keys are protected from casual reveal, and which keys must match
// a validation pattern before they can be set.
package policy

import (
	"fmt"
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds the policy settings for a single project manifest.
type ProjectConfig struct {
	// ProtectedKeys lists variable names that require explicit confirmation
	// (e.g. --reveal) before their plaintext value is printed or logged.
	ProtectedKeys []string `yaml:"protected_keys"`

	// Validation maps a variable name to a regular expression its value
	// must match on SetVariable.
	Validation map[string]string `yaml:"validation"`

	compileOnce  sync.Once
	compiled     map[string]*regexp.Regexp
	compileErr   error
	protectOnce  sync.Once
	protectedM   map[string]struct{}
}

// Load reads and parses a policy file from path.
func Load(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(data)
}

// Parse parses policy YAML from raw bytes.
func Parse(data []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault reads a policy file at path, returning an empty ProjectConfig
// (no protected keys, no validation rules) if the file does not exist.
func LoadOrDefault(path string) *ProjectConfig {
	cfg, err := Load(path)
	if err != nil {
		return &ProjectConfig{}
	}
	return cfg
}

// CompiledValidation compiles and caches the Validation patterns. Compilation
// happens once per ProjectConfig instance; subsequent calls return the cached
// result (or cached error).
func (c *ProjectConfig) CompiledValidation() (map[string]*regexp.Regexp, error) {
	c.compileOnce.Do(func() {
		compiled := make(map[string]*regexp.Regexp, len(c.Validation))
		for name, pattern := range c.Validation {
			re, err := regexp.Compile(pattern)
			if err != nil {
				c.compileErr = fmt.Errorf("compile validation pattern for %q: %w", name, err)
				return
			}
			compiled[name] = re
		}
		c.compiled = compiled
	})
	return c.compiled, c.compileErr
}

// Validate checks value against the compiled pattern for name, if one exists.
// A key with no configured pattern always validates.
func (c *ProjectConfig) Validate(name, value string) error {
	compiled, err := c.CompiledValidation()
	if err != nil {
		return err
	}
	re, ok := compiled[name]
	if !ok {
		return nil
	}
	if !re.MatchString(value) {
		return fmt.Errorf("value for %q does not match required pattern", name)
	}
	return nil
}

// IsProtected reports whether name is in ProtectedKeys.
func (c *ProjectConfig) IsProtected(name string) bool {
	c.protectOnce.Do(func() {
		c.protectedM = make(map[string]struct{}, len(c.ProtectedKeys))
		for _, k := range c.ProtectedKeys {
			c.protectedM[k] = struct{}{}
		}
	})
	_, ok := c.protectedM[name]
	return ok
}
