// Package authzconfig configures cmd/authzcheck. It is not used by
// internal/authz itself, which takes its cache size as a plain constructor
// argument; this package only exists for the ambient CLI layer.
//
// Grounded in the teacher's cmd/server/main.go (loadConfig/bindWithDefaults):
// viper bound to cobra flags, an env prefix, and godotenv for a local .env.
package authzconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	DefaultCacheSize   = 4
	DefaultRulesSource = "authz.yaml"
	DefaultLogFormat   = "tint"
	DefaultAuditLog    = ""
	envPrefix          = "AUTHZCHECK"
)

// Config is the resolved CLI configuration: where the rule file lives, how
// large the per-(user,repository) tree cache should be, how to render logs,
// and where (if anywhere) denied-access decisions are additionally audited.
type Config struct {
	RulesSource string `mapstructure:"rules_source"`
	CacheSize   int    `mapstructure:"cache_size"`
	LogFormat   string `mapstructure:"log_format"`
	AuditLog    string `mapstructure:"audit_log"`
}

// LoadDotenv loads a local .env file if present, matching the teacher's
// init()-time behavior. A missing file is not an error; any other failure
// is fatal to the caller.
func LoadDotenv() (loaded bool, err error) {
	if err := godotenv.Load(".env"); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("authzconfig: loading .env: %w", err)
	}
	return true, nil
}

// Load reads configuration from (in ascending priority) defaults, an
// optional config file, AUTHZCHECK_*-prefixed environment variables, and
// cmd's bound flags.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	if f := cmd.Flag("config"); f != nil && f.Changed {
		v.SetConfigFile(f.Value.String())
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("authzcheck")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindDefaults(v, cmd)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("authzconfig: reading %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("authzconfig: unmarshal: %w", err)
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	return &cfg, nil
}

func bindDefaults(v *viper.Viper, cmd *cobra.Command) {
	v.BindPFlag("rules_source", cmd.Flags().Lookup("rules"))
	v.BindPFlag("cache_size", cmd.Flags().Lookup("cache-size"))
	v.BindPFlag("log_format", cmd.Flags().Lookup("log-format"))
	v.BindPFlag("audit_log", cmd.Flags().Lookup("audit-log"))

	v.SetDefault("rules_source", DefaultRulesSource)
	v.SetDefault("cache_size", DefaultCacheSize)
	v.SetDefault("log_format", DefaultLogFormat)
	v.SetDefault("audit_log", DefaultAuditLog)
}
