package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Fathom   FathomConfig   `mapstructure:"fathom"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	HubSpot  HubSpotConfig  `mapstructure:"hubspot"`
	Apollo   ApolloConfig   `mapstructure:"apollo"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Team     TeamConfig     `mapstructure:"team"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type FathomConfig struct {
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	BaseURL       string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type HubSpotConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	PipelineID string `mapstructure:"pipeline_id"`
	StageID    string `mapstructure:"stage_id"`
}

type ApolloConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type PipelineConfig struct {
	APIKey string `mapstructure:"api_key"` // 内部管道接口的静态 Bearer Key
}

type WorkerConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec"`
	MaxAttempts     int `mapstructure:"max_attempts"`
	LeaseTimeoutSec int `mapstructure:"lease_timeout_sec"`
	MaxWorkers      int `mapstructure:"max_workers"`
}

// TeamConfig 我方公司名与销售团队名单（注入式配置，不用硬编码常量）
type TeamConfig struct {
	Company string   `mapstructure:"company"`
	Roster  []string `mapstructure:"roster"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Worker.PollIntervalSec <= 0 {
		cfg.Worker.PollIntervalSec = 5
	}
	if cfg.Worker.MaxAttempts <= 0 {
		cfg.Worker.MaxAttempts = 3
	}
	if cfg.Worker.LeaseTimeoutSec <= 0 {
		cfg.Worker.LeaseTimeoutSec = 900
	}
	if cfg.Worker.MaxWorkers <= 0 {
		cfg.Worker.MaxWorkers = 1
	}
	if cfg.Fathom.BaseURL == "" {
		cfg.Fathom.BaseURL = "https://api.fathom.ai/external/v1"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o"
	}
	if cfg.HubSpot.BaseURL == "" {
		cfg.HubSpot.BaseURL = "https://api.hubapi.com"
	}
	if cfg.Apollo.BaseURL == "" {
		cfg.Apollo.BaseURL = "https://api.apollo.io"
	}
}
