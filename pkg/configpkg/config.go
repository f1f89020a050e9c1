// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Token types accepted by TOKEN_TYPE.
const (
	TokenTypePaseto = "paseto"
	TokenTypeJWT    = "jwt"
)

// EnvDevelopment is the GO_ENV value that enables development only features.
const EnvDevelopment = "development"

var (
	// ErrInvalidTANLength indicates TAN_LENGTH outside of the supported range.
	ErrInvalidTANLength = errors.New("TAN_LENGTH must be between 4 and 10")
	// ErrDebugEchoOutsideDevelopment indicates TAN_DEBUG_ECHO enabled outside of development.
	ErrDebugEchoOutsideDevelopment = errors.New("TAN_DEBUG_ECHO is only allowed when GO_ENV=development")
	// ErrUnsupportedTokenType indicates unknown TOKEN_TYPE.
	ErrUnsupportedTokenType = errors.New("TOKEN_TYPE must be paseto or jwt")
)

// Config stores all configuration of the application.
//
// The values are read by viper fron a config file or environement variables.
type Config struct {
	DBDriver          string `mapstructure:"DB_DRIVER"`
	DBSource          string `mapstructure:"DB_SOURCE"`
	DBTxRetries       int    `mapstructure:"DB_TX_RETRIES"`
	ServerAddress     string `mapstructure:"SERVER_ADDRESS"`
	TokenSymmetricKey string `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	TokenType         string `mapstructure:"TOKEN_TYPE"`
	Environement      string `mapstructure:"GO_ENV"`

	TANLength    int           `mapstructure:"TAN_LENGTH"`
	TANTTL       time.Duration `mapstructure:"TAN_TTL"`
	TANDebugEcho bool          `mapstructure:"TAN_DEBUG_ECHO"`

	StandingOrderInterval  time.Duration `mapstructure:"STANDING_ORDER_INTERVAL"`
	StandingOrderLease     time.Duration `mapstructure:"STANDING_ORDER_LEASE"`
	ChallengeSweepInterval time.Duration `mapstructure:"CHALLENGE_SWEEP_INTERVAL"`
	SchedulerInstanceID    string        `mapstructure:"SCHEDULER_INSTANCE_ID"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_TX_RETRIES", 3)
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("TOKEN_TYPE", TokenTypePaseto)
	v.SetDefault("TAN_LENGTH", 6)
	v.SetDefault("TAN_TTL", 5*time.Minute)
	v.SetDefault("TAN_DEBUG_ECHO", false)
	v.SetDefault("STANDING_ORDER_INTERVAL", time.Hour)
	v.SetDefault("STANDING_ORDER_LEASE", 2*time.Minute)
	v.SetDefault("CHALLENGE_SWEEP_INTERVAL", time.Minute)
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	if c.SchedulerInstanceID == "" {
		c.SchedulerInstanceID = defaultInstanceID()
	}

	if err := c.Validate(); err != nil {
		return c, err
	}

	return c, nil
}

// Validate checks cross field constraints of the configuration.
func (c Config) Validate() error {
	if c.TANLength < 4 || c.TANLength > 10 {
		return ErrInvalidTANLength
	}

	if c.TANDebugEcho && c.Environement != EnvDevelopment {
		return ErrDebugEchoOutsideDevelopment
	}

	if c.TokenType != TokenTypePaseto && c.TokenType != TokenTypeJWT {
		return ErrUnsupportedTokenType
	}

	if c.TANTTL <= 0 {
		return fmt.Errorf("TAN_TTL must be positive, got %v", c.TANTTL)
	}

	return nil
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "scheduler"
	}

	return host + "-" + uuid.NewString()[:8]
}
