package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		JWTIssuer string        `mapstructure:"jwt_issuer"`
		JWTTTL    time.Duration `mapstructure:"jwt_ttl"`
	} `mapstructure:"auth"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
		// branch code -> group chat ID for shift reports
		BranchChats map[string]int64 `mapstructure:"branch_chats"`
	} `mapstructure:"telegram"`

	Delivery struct {
		PollInterval time.Duration `mapstructure:"poll_interval"`
		BatchSize    int           `mapstructure:"batch_size"`
		MaxAttempts  int           `mapstructure:"max_attempts"`
	} `mapstructure:"delivery"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	// values can be overridden via ENV (APP_*) when deploying
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	return c, c.validate()
}

func applyDefaults(c *Config) {
	if c.Delivery.PollInterval <= 0 {
		c.Delivery.PollInterval = 3 * time.Second
	}
	if c.Delivery.BatchSize <= 0 {
		c.Delivery.BatchSize = 20
	}
	if c.Delivery.MaxAttempts <= 0 {
		c.Delivery.MaxAttempts = 3
	}
	if c.Auth.JWTTTL <= 0 {
		c.Auth.JWTTTL = 12 * time.Hour
	}
	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = "shiftdesk"
	}
}

func (c Config) validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("config: postgres.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret is required")
	}
	return nil
}
