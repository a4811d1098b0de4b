package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server  Server  `mapstructure:"server"`
	Camera  Camera  `mapstructure:"camera"`
	AI      AI      `mapstructure:"ai"`
	Storage Storage `mapstructure:"storage"`
	Redis   Redis   `mapstructure:"redis"`
	Queue   Queue   `mapstructure:"queue"`
	Kafka   Kafka   `mapstructure:"kafka"`
	Retry   Retry   `mapstructure:"retry"`
	Export  Export  `mapstructure:"export"`
	Desk    Desk    `mapstructure:"desk"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort       string        `mapstructure:"http_port"` // HTTP port to listen on
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// Camera holds the snapshot endpoints of the live feeds.
type Camera struct {
	UserURL        string        `mapstructure:"user_url"`        // front-facing camera
	EnvironmentURL string        `mapstructure:"environment_url"` // rear-facing camera
	Timeout        time.Duration `mapstructure:"timeout"`
	Attempts       uint          `mapstructure:"attempts"` // tries while the camera warms up
	Delay          time.Duration `mapstructure:"delay"`
}

// AI selects and configures the generative model backend.
type AI struct {
	Provider    string        `mapstructure:"provider"` // gemini, ollama or none
	APIKey      string        `mapstructure:"api_key"`
	VisionModel string        `mapstructure:"vision_model"`
	ImageModel  string        `mapstructure:"image_model"`
	OllamaURL   string        `mapstructure:"ollama_url"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Storage holds configuration for the file storage backend.
type Storage struct {
	Driver     string `mapstructure:"driver"` // minio or local
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	LocalDir   string `mapstructure:"local_dir"`
}

// Redis holds the connection used for the onboarding flag. An empty address keeps the flag in memory.
type Redis struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Queue selects how enrichment tasks travel.
type Queue struct {
	Driver  string `mapstructure:"driver"`  // local or kafka
	Workers int    `mapstructure:"workers"` // local driver only
	Buffer  int    `mapstructure:"buffer"`  // local driver only
}

// Kafka holds configuration for the Kafka message queue.
type Kafka struct {
	GroupID string   `mapstructure:"group_id"` // Consumer group ID
	Topic   string   `mapstructure:"topic"`    // Kafka topic name
	Brokers []string `mapstructure:"brokers"`  // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Export configures desk exports.
type Export struct {
	TargetPixels int           `mapstructure:"target_pixels"` // long edge of the exported PNG
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Desk configures editor previews.
type Desk struct {
	PreviewMaxSide int `mapstructure:"preview_max_side"`
}

// envBindings maps secrets to the environment variables that carry them.
var envBindings = map[string]string{
	"ai.api_key":         "GEMINI_API_KEY",
	"storage.access_key": "MINIO_ACCESS_KEY",
	"storage.secret_key": "MINIO_SECRET_KEY",
	"redis.password":     "REDIS_PASSWORD",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", "8080")
	v.SetDefault("server.max_upload_bytes", 20<<20)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("camera.timeout", 5*time.Second)
	v.SetDefault("camera.attempts", 3)
	v.SetDefault("camera.delay", 300*time.Millisecond)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.vision_model", "gemini-2.5-flash")
	v.SetDefault("ai.image_model", "gemini-2.5-flash-image")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "./data")
	v.SetDefault("storage.bucket_name", "retro-booth")
	v.SetDefault("queue.driver", "local")
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.buffer", 64)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", time.Second)
	v.SetDefault("retry.backoff", 2.0)
	v.SetDefault("export.target_pixels", 3840)
	v.SetDefault("export.timeout", 2*time.Minute)
	v.SetDefault("desk.preview_max_side", 1024)
}

// Load reads the configuration file at path, overlaid with the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Queue.Driver {
	case "local":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("invalid config: kafka queue needs brokers and a topic")
		}
	default:
		return fmt.Errorf("invalid config: unknown queue driver %q", c.Queue.Driver)
	}

	switch c.Storage.Driver {
	case "local", "minio":
	default:
		return fmt.Errorf("invalid config: unknown storage driver %q", c.Storage.Driver)
	}

	switch c.AI.Provider {
	case "gemini", "ollama", "none":
	default:
		return fmt.Errorf("invalid config: unknown ai provider %q", c.AI.Provider)
	}

	return nil
}
