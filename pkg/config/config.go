package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bustravel/payrelay/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Approval  ApprovalConfig  `yaml:"approval"`
	Redis     RedisConfig     `yaml:"redis"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logger    logger.Config   `yaml:"logger"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`

	// PublicBaseURL, when set, is used to register the Telegram webhook.
	// When empty the bot falls back to long polling.
	PublicBaseURL string `yaml:"public_base_url"`
}

type TelegramConfig struct {
	// BotToken empty means notifications go to the log only.
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type ApprovalConfig struct {
	CodeTTL       Duration `yaml:"code_ttl"`
	SessionTTL    Duration `yaml:"session_ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
	VerifiedGrace Duration `yaml:"verified_grace"`
}

type RedisConfig struct {
	// Addr empty means sessions live in process memory.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebSocketConfig struct {
	ReadBufferSize  int  `yaml:"read_buffer_size"`
	WriteBufferSize int  `yaml:"write_buffer_size"`
	CheckOrigin     bool `yaml:"check_origin"`
}

func Load() (*Config, error) {
	// .env is a development convenience, not a requirement.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var config Config
	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	applyEnvOverrides(&config)

	if config.Server.Port == "" {
		config.Server.Port = "3000"
	}

	return &config, nil
}

// applyEnvOverrides lets deployment environments inject secrets and
// endpoints without editing config.yaml.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		config.Telegram.BotToken = v
	}
	if v := os.Getenv("ADMIN_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Telegram.AdminChatID = id
		}
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		config.Server.PublicBaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.Redis.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		config.Server.Port = v
	}
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
