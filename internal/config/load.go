package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the project file looked up when no path is given.
const DefaultFile = "bundlr.yaml"

// Load reads the YAML project file at path over the defaults for mode and
// validates the result. A missing file is not an error: the defaults are
// returned as is. Relative paths in the config are resolved against root.
func Load(path, root, mode string) (*Config, error) {
	cfg := Default(mode)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := decode(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.resolvePaths(root)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// decode applies data over cfg. Maps given in the file replace the default
// maps instead of being merged into them.
func decode(data []byte, cfg *Config) error {
	entries, alias := cfg.Entries, cfg.Resolve.Alias
	cfg.Entries, cfg.Resolve.Alias = nil, nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if cfg.Entries == nil {
		cfg.Entries = entries
	}
	if cfg.Resolve.Alias == nil {
		cfg.Resolve.Alias = alias
	}
	return nil
}

func (c *Config) resolvePaths(root string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}

	c.Output.Dir = abs(c.Output.Dir)
	c.DevServer.Static.Directory = abs(c.DevServer.Static.Directory)

	for name, dir := range c.Resolve.Alias {
		c.Resolve.Alias[name] = abs(dir)
	}
	for name, path := range c.Entries {
		c.Entries[name] = abs(path)
	}
}
