package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	// DataDir holds one directory per publisher, each containing IATI XML files.
	DataDir string `mapstructure:"data_dir" validate:"required"`
	// ReferenceDir holds the codelists and static reference sheets.
	ReferenceDir string `mapstructure:"reference_dir" validate:"required"`
	RatesFile    string `mapstructure:"rates_file"`
	ClampYear    int    `mapstructure:"clamp_year"`
	Workers      int    `mapstructure:"workers"`
	Addr         string `mapstructure:"addr"`
}

// LoadConfig loads engine configuration from the specified file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("clamp_year", 2014)
	v.SetDefault("addr", ":8080")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse engine config: %w", err)
	}
	return &cfg, nil
}
