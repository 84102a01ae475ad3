package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Storage struct {
		Root string `mapstructure:"root"`
	} `mapstructure:"storage"`
	Transform struct {
		TopKeywords int `mapstructure:"top_keywords"`
	} `mapstructure:"transform"`
	LLM struct {
		Enabled     bool   `mapstructure:"enabled"`
		BaseURL     string `mapstructure:"base_url"`
		APIKey      string `mapstructure:"api_key"`
		Model       string `mapstructure:"model"`
		MaxAttempts int    `mapstructure:"max_attempts"`
		MetiersFile string `mapstructure:"metiers_file"`
	} `mapstructure:"llm"`
	Runs struct {
		HistoryLimit  int `mapstructure:"history_limit"`
		MaxConcurrent int `mapstructure:"max_concurrent"`
	} `mapstructure:"runs"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from a file and the environment. The
// config file is optional; every setting has a default. envFile, if not
// empty, points at a .env file loaded before viper reads the environment.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, err
		}
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("pdfworkflow")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("storage.root", "./data/results")
	viper.SetDefault("transform.top_keywords", 10)
	viper.SetDefault("llm.enabled", false)
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.max_attempts", 3)
	viper.SetDefault("llm.metiers_file", "")
	viper.SetDefault("runs.history_limit", 1000)
	viper.SetDefault("runs.max_concurrent", 8)
	viper.SetDefault("tls.enable", false)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
