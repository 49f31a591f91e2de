package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/fleet/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Configer reads and writes config.toml in a resolved .fleet/ directory.
type Configer struct {
	path string
}

// Entry is a key and its current value as shown by `fleet config list`.
type Entry struct {
	Key   string
	Value string
}

// NewConfiger resolves the .fleet/ directory, preferring override when set.
// The directory is created if missing; config.toml is not.
func NewConfiger(override string) (*Configer, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return &Configer{path: path}, nil
}

// ValidConfigKeys returns every supported key in the order of the TOML
// sections.
func ValidConfigKeys() []string {
	names := make([]string, len(configKeys))
	for i, k := range configKeys {
		names[i] = k.name
	}
	return names
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := keyIndex[key]
	return ok
}

// Path returns the config.toml path, which may not exist yet.
func (c *Configer) Path() string {
	return c.path
}

// Exists reports whether config.toml was written.
func (c *Configer) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// LoadConfig reads config.toml on top of NewDefaultConfig(). A missing file
// yields the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfigTOML(data)
}

// SaveConfig writes cfg to config.toml. The file is replaced atomically so a
// concurrent reader never sees a partial config.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), configFile+".*")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SetConfigValue parses value for key and saves it.
func (c *Configer) SetConfigValue(key string, value string) error {
	return c.update(key, func(k configKey, cfg *Config) error {
		return k.set(cfg, value)
	})
}

// UnsetConfigValue restores the default of key and saves it.
func (c *Configer) UnsetConfigValue(key string) error {
	return c.update(key, func(k configKey, cfg *Config) error {
		k.reset(cfg, NewDefaultConfig())
		return nil
	})
}

// GetConfigValue returns the string form of key. Unset integer keys read as
// the empty string.
func (c *Configer) GetConfigValue(key string) (string, error) {
	k, err := lookup(key)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return k.get(cfg), nil
}

// Entries returns every key with its current value, loading the file once.
func (c *Configer) Entries() ([]Entry, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(configKeys))
	for i, k := range configKeys {
		entries[i] = Entry{Key: k.name, Value: k.get(cfg)}
	}
	return entries, nil
}

func (c *Configer) update(key string, fn func(k configKey, cfg *Config) error) error {
	k, err := lookup(key)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := fn(k, cfg); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

func lookup(key string) (configKey, error) {
	k, ok := keyIndex[key]
	if !ok {
		return configKey{}, fmt.Errorf("unknown config key: %q", key)
	}
	return k, nil
}

// ParseConfigTOML decodes data on top of NewDefaultConfig(). Keys fleet does
// not know about and versions other than CurrentV are errors.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return nil, fmt.Errorf("unknown keys in config TOML: %s", strings.Join(keys, ", "))
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
