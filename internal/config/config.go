package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Registry   RegistryConfig
	Model      ModelConfig
	Serving    ServingConfig
	Artifacts  ArtifactConfig
	GithubHook GithubHookConfig
	Logger     LoggerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RegistryConfig selects the registry store backend. "memory" keeps the
// registry in-process, useful for local runs without Postgres.
type RegistryConfig struct {
	Backend string
	Timeout time.Duration
}

// ModelConfig names the model this process serves and the promotion policy
// applied to its candidates.
type ModelConfig struct {
	Name           string
	TargetMetric   string
	HigherIsBetter bool
	// RecognizedTags enumerates the tag keys registration accepts.
	RecognizedTags []string
}

// ServingConfig bounds serving-side staleness and artifact loading.
// ReloadTTL is the maximum age of a loaded predictor before the next
// prediction re-resolves against the registry; 0 reloads before every
// prediction.
type ServingConfig struct {
	ReloadTTL         time.Duration
	ArtifactTimeout   time.Duration
	PositiveThreshold float64
}

// ArtifactConfig configures remote artifact access. GCS is optional;
// without it only local artifact paths are served.
type ArtifactConfig struct {
	GCSEnabled         bool
	GCSCredentialsFile string
}

// GithubHookConfig drives the post-promotion workflow dispatch. Disabled by
// default; redeployment stays the CI system's job.
type GithubHookConfig struct {
	Enabled      bool
	APIBaseURL   string
	RepoOwner    string
	RepoName     string
	WorkflowFile string
	Ref          string
	Token        string
	Timeout      time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "model_registry")
	v.SetDefault("DB_PASSWORD", "model_registry")
	v.SetDefault("DB_NAME", "model_registry")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("REGISTRY_BACKEND", "postgres")
	v.SetDefault("REGISTRY_TIMEOUT", "10s")
	v.SetDefault("MODEL_NAME", "noshow-prediction-model")
	v.SetDefault("MODEL_TARGET_METRIC", "auc")
	v.SetDefault("MODEL_HIGHER_IS_BETTER", true)
	v.SetDefault("MODEL_RECOGNIZED_TAGS", "trained_by,dataset,git_commit,framework")
	v.SetDefault("SERVING_RELOAD_TTL", "30s")
	v.SetDefault("SERVING_ARTIFACT_TIMEOUT", "15s")
	v.SetDefault("SERVING_POSITIVE_THRESHOLD", 0.5)
	v.SetDefault("ARTIFACT_GCS_ENABLED", false)
	v.SetDefault("ARTIFACT_GCS_CREDENTIALS_FILE", "")
	v.SetDefault("GITHUB_HOOK_ENABLED", false)
	v.SetDefault("GITHUB_API_URL", "https://api.github.com")
	v.SetDefault("GITHUB_REPO_OWNER", "")
	v.SetDefault("GITHUB_REPO_NAME", "")
	v.SetDefault("GITHUB_WORKFLOW_FILE", "model-promotion.yml")
	v.SetDefault("GITHUB_REF", "main")
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("GITHUB_HOOK_TIMEOUT", "10s")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: durationOr(v, "DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Registry: RegistryConfig{
			Backend: v.GetString("REGISTRY_BACKEND"),
			Timeout: durationOr(v, "REGISTRY_TIMEOUT", 10*time.Second),
		},
		Model: ModelConfig{
			Name:           v.GetString("MODEL_NAME"),
			TargetMetric:   v.GetString("MODEL_TARGET_METRIC"),
			HigherIsBetter: v.GetBool("MODEL_HIGHER_IS_BETTER"),
			RecognizedTags: splitKeys(v.GetString("MODEL_RECOGNIZED_TAGS")),
		},
		Serving: ServingConfig{
			ReloadTTL:         durationOr(v, "SERVING_RELOAD_TTL", 30*time.Second),
			ArtifactTimeout:   durationOr(v, "SERVING_ARTIFACT_TIMEOUT", 15*time.Second),
			PositiveThreshold: v.GetFloat64("SERVING_POSITIVE_THRESHOLD"),
		},
		Artifacts: ArtifactConfig{
			GCSEnabled:         v.GetBool("ARTIFACT_GCS_ENABLED"),
			GCSCredentialsFile: v.GetString("ARTIFACT_GCS_CREDENTIALS_FILE"),
		},
		GithubHook: GithubHookConfig{
			Enabled:      v.GetBool("GITHUB_HOOK_ENABLED"),
			APIBaseURL:   v.GetString("GITHUB_API_URL"),
			RepoOwner:    v.GetString("GITHUB_REPO_OWNER"),
			RepoName:     v.GetString("GITHUB_REPO_NAME"),
			WorkflowFile: v.GetString("GITHUB_WORKFLOW_FILE"),
			Ref:          v.GetString("GITHUB_REF"),
			Token:        v.GetString("GITHUB_TOKEN"),
			Timeout:      durationOr(v, "GITHUB_HOOK_TIMEOUT", 10*time.Second),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	if cfg.GithubHook.Enabled && (cfg.GithubHook.RepoOwner == "" || cfg.GithubHook.RepoName == "") {
		return nil, fmt.Errorf("github hook enabled but GITHUB_REPO_OWNER/GITHUB_REPO_NAME not set")
	}

	return cfg, nil
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
