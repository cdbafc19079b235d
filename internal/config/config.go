package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultVisionEndpoint = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	DefaultModel          = "qwen-vl-max-latest"
	DefaultPrompt         = "What scene is depicted in the image?"
	DefaultSystemPrompt   = "You are a helpful assistant."
)

type Config struct {
	Server   ServerConfig
	Vision   VisionConfig
	Batch    BatchConfig
	Storage  StorageConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowOrigins    []string
}

// VisionConfig describes the upstream inference endpoint. APIKey is the
// process-wide default credential; requests may override it.
type VisionConfig struct {
	Endpoint     string
	APIKey       string
	Model        string
	Prompt       string
	SystemPrompt string
	Timeout      time.Duration
}

type BatchConfig struct {
	Workers int
}

type StorageConfig struct {
	MaxUploadSize     int64
	StagingDir        string
	MaxImageDimension int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "5000"),
			ReadTimeout:     getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDuration("WRITE_TIMEOUT", 180*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowOrigins:    getEnvAsSlice("CORS_ALLOW_ORIGINS", "*"),
		},
		Vision: VisionConfig{
			Endpoint:     getEnv("VISION_ENDPOINT", DefaultVisionEndpoint),
			APIKey:       getEnv("DASHSCOPE_API_KEY", ""),
			Model:        getEnv("VISION_MODEL", DefaultModel),
			Prompt:       getEnv("VISION_PROMPT", DefaultPrompt),
			SystemPrompt: getEnv("VISION_SYSTEM_PROMPT", DefaultSystemPrompt),
			Timeout:      getDuration("VISION_TIMEOUT", 60*time.Second),
		},
		Batch: BatchConfig{
			Workers: getEnvAsInt("BATCH_WORKERS", 5),
		},
		Storage: StorageConfig{
			MaxUploadSize:     getEnvAsInt64("MAX_UPLOAD_SIZE", 50*1024*1024), // 50MB
			StagingDir:        getEnv("STAGING_DIR", os.TempDir()),
			MaxImageDimension: getEnvAsInt("MAX_IMAGE_DIMENSION", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the pipeline cannot run with. A missing default
// credential is allowed because callers may supply their own.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vision.Endpoint) == "" {
		return fmt.Errorf("VISION_ENDPOINT must not be empty")
	}
	if c.Vision.Timeout <= 0 {
		return fmt.Errorf("VISION_TIMEOUT must be positive, got %s", c.Vision.Timeout)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.Storage.MaxUploadSize)
	}
	if c.Storage.MaxImageDimension < 0 {
		return fmt.Errorf("MAX_IMAGE_DIMENSION must not be negative, got %d", c.Storage.MaxImageDimension)
	}
	return nil
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func (c *Config) RabbitMQEnabled() bool {
	return c.RabbitMQ.URL != ""
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsSlice(key, defaultVal string) []string {
	var values []string
	for _, part := range strings.Split(getEnv(key, defaultVal), ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
