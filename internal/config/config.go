package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	DriverDynamoDB = "dynamodb"
	DriverBadger   = "badger"
)

// Config is the service configuration. An empty DynamoDBEndpoint uses the AWS
// endpoint resolver; set it for DynamoDB Local.
type Config struct {
	Host                string        `env:"HOST,default=0.0.0.0"`
	Port                int           `env:"PORT,default=3001"`
	StoreDriver         string        `env:"STORE_DRIVER,default=dynamodb"`
	DynamoDBEndpoint    string        `env:"DYNAMODB_ENDPOINT"`
	DynamoDBTable       string        `env:"DYNAMODB_TABLE,default=records"`
	DynamoDBCreateTable bool          `env:"DYNAMODB_CREATE_TABLE,default=false"`
	AWSRegion           string        `env:"AWS_REGION,default=us-east-1"`
	BadgerPath          string        `env:"BADGER_PATH,default=./data/records"`
	LogLevel            string        `env:"LOG_LEVEL,default=info"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT,default=5s"`
	CORSAllowOrigins    string        `env:"CORS_ALLOW_ORIGINS,default=*"`
	ParamPrefix         string        `env:"PARAM_PREFIX"`
	NATSURL             string        `env:"NATS_URL"`
	NATSStream          string        `env:"NATS_STREAM,default=RECORDS"`
	NATSSubjectPrefix   string        `env:"NATS_SUBJECT_PREFIX,default=records"`
	LambdaFunctionName  string        `env:"AWS_LAMBDA_FUNCTION_NAME"`
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env file: %w", err)
	}
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverDynamoDB:
		if strings.TrimSpace(c.DynamoDBTable) == "" {
			return errors.New("config: DYNAMODB_TABLE must not be empty")
		}
	case DriverBadger:
		if strings.TrimSpace(c.BadgerPath) == "" {
			return errors.New("config: BADGER_PATH must not be empty")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT out of range: %d", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Overlay applies parameters fetched from Parameter Store. Unknown keys are ignored.
func (c Config) Overlay(values map[string]string) Config {
	if v := strings.TrimSpace(values["dynamodb_table"]); v != "" {
		c.DynamoDBTable = v
	}
	if v := strings.TrimSpace(values["cors_allow_origins"]); v != "" {
		c.CORSAllowOrigins = v
	}
	if v := strings.TrimSpace(values["nats_url"]); v != "" {
		c.NATSURL = v
	}
	if v := strings.TrimSpace(values["log_level"]); v != "" {
		if _, err := ParseLevel(v); err == nil {
			c.LogLevel = v
		}
	}
	return c
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) RunningInLambda() bool {
	return c.LambdaFunctionName != ""
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

// NewLogger builds the process logger: JSON to stderr at the configured level.
func (c Config) NewLogger() *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
