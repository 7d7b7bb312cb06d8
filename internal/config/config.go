package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Artifact   ArtifactConfig
	Batch      BatchConfig
	Database   DatabaseConfig
	Kubernetes KubernetesConfig
	Redis      RedisConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type ArtifactConfig struct {
	Ref              string
	Watch            bool
	HTTPTimeout      time.Duration
	StrictValidation bool
}

type BatchConfig struct {
	MaxSize        int
	MaxWait        time.Duration
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ReportWorkers   int
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	DefaultNS      string
}

type RedisConfig struct {
	Enabled       bool
	Addr          string
	Password      string
	DB            int
	ReloadChannel string
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.SetDefault("ARTIFACT_REF", "")
	v.SetDefault("ARTIFACT_WATCH", false)
	v.SetDefault("ARTIFACT_HTTP_TIMEOUT", "30s")
	v.SetDefault("VALIDATION_STRICT", false)

	v.SetDefault("BATCH_MAX_SIZE", 8)
	v.SetDefault("BATCH_MAX_WAIT", "20ms")
	v.SetDefault("REQUEST_TIMEOUT", "2s")

	v.SetDefault("DATABASE_ENABLED", false)
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_NAME", "prediction_service")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("REPORTS_WORKERS", 2)

	v.SetDefault("KUBERNETES_ENABLED", false)
	v.SetDefault("KUBERNETES_IN_CLUSTER", false)
	v.SetDefault("KUBERNETES_KUBECONFIG", "")
	v.SetDefault("KUBERNETES_DEFAULT_NAMESPACE", "model-serving")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_RELOAD_CHANNEL", "artifact:reload")

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: duration(v, "SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  list(v, "CORS_ALLOWED_ORIGINS"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Artifact: ArtifactConfig{
			Ref:              v.GetString("ARTIFACT_REF"),
			Watch:            v.GetBool("ARTIFACT_WATCH"),
			HTTPTimeout:      duration(v, "ARTIFACT_HTTP_TIMEOUT", 30*time.Second),
			StrictValidation: v.GetBool("VALIDATION_STRICT"),
		},
		Batch: BatchConfig{
			MaxSize:        v.GetInt("BATCH_MAX_SIZE"),
			MaxWait:        duration(v, "BATCH_MAX_WAIT", 20*time.Millisecond),
			RequestTimeout: duration(v, "REQUEST_TIMEOUT", 2*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("DATABASE_ENABLED"),
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Name:            v.GetString("DATABASE_NAME"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: duration(v, "DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ReportWorkers:   v.GetInt("REPORTS_WORKERS"),
		},
		Kubernetes: KubernetesConfig{
			Enabled:        v.GetBool("KUBERNETES_ENABLED"),
			InCluster:      v.GetBool("KUBERNETES_IN_CLUSTER"),
			KubeConfigPath: v.GetString("KUBERNETES_KUBECONFIG"),
			DefaultNS:      v.GetString("KUBERNETES_DEFAULT_NAMESPACE"),
		},
		Redis: RedisConfig{
			Enabled:       v.GetBool("REDIS_ENABLED"),
			Addr:          v.GetString("REDIS_ADDR"),
			Password:      v.GetString("REDIS_PASSWORD"),
			DB:            v.GetInt("REDIS_DB"),
			ReloadChannel: v.GetString("REDIS_RELOAD_CHANNEL"),
		},
	}

	if cfg.Batch.MaxSize <= 0 {
		return nil, fmt.Errorf("BATCH_MAX_SIZE must be positive, got %d", cfg.Batch.MaxSize)
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS entry %q must be \"*\" or start with http:// or https://", origin)
		}
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// list splits a comma separated value, dropping empty entries.
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range strings.Split(v.GetString(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
