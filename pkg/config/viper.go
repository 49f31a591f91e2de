package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/fleet/pkg/dotdir"
)

// InitViper layers the sources of every config key, highest first:
//
//	flags bound with BindRegisteredFlags
//	FLEET_<SECTION>_<KEY> environment variables
//	config.toml in the resolved .fleet/ directory
//	NewDefaultConfig()
//
// A missing config.toml is fine. A config.toml with another version is not.
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if version := v.GetInt("version"); version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d in %s (expected %d)", version, v.ConfigFileUsed(), CurrentV)
	}

	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers every config key with its NewDefaultConfig()
// value.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	for _, k := range configKeys {
		v.SetDefault(k.name, k.value(d))
	}
}
