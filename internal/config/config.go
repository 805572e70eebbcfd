// Package config loads application settings from the environment and an
// optional aquachat.yaml file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds all externally supplied configuration.
type Settings struct {
	AppName    string
	AppEnv     string
	ListenAddr string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	LLMTimeout         time.Duration
	TokenBufferSize    int
	TokenFlushInterval time.Duration

	APIAuthToken string
	RedisURL     string
	CORSOrigins  []string
}

// Load reads settings with the AQUA_ env prefix, falling back to an optional
// aquachat.yaml in the working directory or /etc/aquachat.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("AQUA")
	v.AutomaticEnv()

	v.SetDefault("app_name", "aquachat")
	v.SetDefault("app_env", "dev")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("openai_base_url", "https://api.openai.com")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("llm_timeout_secs", 60)
	v.SetDefault("token_buffer_size", 48)
	v.SetDefault("token_flush_interval_ms", 50)
	v.SetDefault("cors_origins", "*")

	v.SetConfigName("aquachat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/aquachat")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	s := &Settings{
		AppName:            v.GetString("app_name"),
		AppEnv:             v.GetString("app_env"),
		ListenAddr:         v.GetString("listen_addr"),
		OpenAIAPIKey:       v.GetString("openai_api_key"),
		OpenAIBaseURL:      v.GetString("openai_base_url"),
		OpenAIModel:        v.GetString("openai_model"),
		LLMTimeout:         time.Duration(v.GetInt("llm_timeout_secs")) * time.Second,
		TokenBufferSize:    v.GetInt("token_buffer_size"),
		TokenFlushInterval: time.Duration(v.GetInt("token_flush_interval_ms")) * time.Millisecond,
		APIAuthToken:       v.GetString("api_auth_token"),
		RedisURL:           v.GetString("redis_url"),
		CORSOrigins:        splitOrigins(v.GetString("cors_origins")),
	}
	return s, nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}
