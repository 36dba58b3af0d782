package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Backend struct {
		Kind    string `mapstructure:"kind"` // local | bolt | remote
		Datadir string `mapstructure:"datadir"`
		DB      string `mapstructure:"db"`
		Addr    string `mapstructure:"addr"` // remote only
	} `mapstructure:"backend"`

	Server struct {
		ListenAddr  string `mapstructure:"listen_addr"`
		MetricsPort int    `mapstructure:"metrics_port"`
	} `mapstructure:"server"`

	Sweep struct {
		TTL  time.Duration `mapstructure:"ttl"`
		Dirs []string      `mapstructure:"dirs"`
	} `mapstructure:"sweep"`
}

func Load(path string) (*Config, error) {
	v := viper.New()

	// YAML file (optional)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// ENV overrides — e.g. CLOG_BACKEND_KIND=bolt
	v.SetEnvPrefix("CLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Hard defaults
	v.SetDefault("backend.kind", "local")
	v.SetDefault("backend.datadir", "data")
	v.SetDefault("backend.db", "commitlog.db")
	v.SetDefault("backend.addr", "localhost:50051")
	v.SetDefault("server.listen_addr", ":50051")
	v.SetDefault("server.metrics_port", 9102)
	v.SetDefault("sweep.ttl", "24h")
	v.SetDefault("sweep.dirs", []string{""})

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
