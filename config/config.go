package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Workdir string `mapstructure:"workdir"`

	Relation struct {
		Name string `mapstructure:"name"`
		Size int    `mapstructure:"size"`
	} `mapstructure:"relation"`

	Buffer struct {
		PoolSize int `mapstructure:"pool_size"`
	} `mapstructure:"buffer"`
}

// Default is the configuration the driver runs with when no config file is
// given.
func Default() *Config {
	cfg := &Config{Workdir: "."}
	cfg.Relation.Name = "relA"
	cfg.Relation.Size = 5000
	cfg.Buffer.PoolSize = 100
	return cfg
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("workdir", ".")
	v.SetDefault("relation.name", "relA")
	v.SetDefault("relation.size", 5000)
	v.SetDefault("buffer.pool_size", 100)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
