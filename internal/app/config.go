package app

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"ec2-pricing/internal/document"
	"ec2-pricing/internal/instancetypes"
)

// Output formats.
const (
	TableFormat  = "table"
	JSONFormat   = "json"
	PrettyFormat = "pretty"
)

type Config struct {
	Source       string
	CacheDir     string
	CacheTTL     time.Duration
	RedisAddr    string
	Kubeconfig   string
	Region       string
	Output       string
	Replacements int
	Families     map[string]instancetypes.FamilyRule
}

func setDefaults() {
	viper.SetDefault("source", document.DefaultSourceURL)
	viper.SetDefault("cacheDir", "")
	viper.SetDefault("cacheTTL", 24*time.Hour)
	viper.SetDefault("redisAddr", "")
	viper.SetDefault("kubeconfig", "")
	viper.SetDefault("region", "us-east-1")
	viper.SetDefault("output", TableFormat)
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("debug", false)
	viper.SetDefault("replacements", 3)
}

// LoadConfig reads the settings bound to viper from flags, environment
// (EC2PRICING_*) and the config file.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Source:       viper.GetString("source"),
		CacheDir:     viper.GetString("cacheDir"),
		CacheTTL:     viper.GetDuration("cacheTTL"),
		RedisAddr:    viper.GetString("redisAddr"),
		Kubeconfig:   viper.GetString("kubeconfig"),
		Region:       viper.GetString("region"),
		Output:       viper.GetString("output"),
		Replacements: viper.GetInt("replacements"),
	}
	if err := viper.UnmarshalKey("families", &cfg.Families); err != nil {
		return nil, errors.Wrap(err, "invalid families")
	}

	if cfg.Source == "" {
		return nil, errors.New("source is required")
	}
	switch cfg.Output {
	case TableFormat, JSONFormat, PrettyFormat:
	default:
		return nil, errors.Errorf("invalid output %q, allowed values: table, json, pretty", cfg.Output)
	}
	if cfg.Replacements < 0 {
		return nil, errors.Errorf("invalid replacements %d", cfg.Replacements)
	}
	for family, rule := range cfg.Families {
		if rule.CoreFactor < 0 || rule.DriveCount < 0 {
			return nil, errors.Errorf("invalid rule for family %q", family)
		}
	}
	return cfg, nil
}
