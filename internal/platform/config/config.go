package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultFile = "config.yaml"

// Config junta toda la configuración del servicio. Se arma con el YAML (si
// existe) y después se pisan los valores que vengan por env.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	S3       S3Config       `yaml:"s3"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig: DSN vacío = modo in-memory. GeoRefresh es cada cuánto se
// recarga el índice geo desde la base (0 = solo al arrancar).
type DatabaseConfig struct {
	DSN        string        `yaml:"dsn"`
	GeoRefresh time.Duration `yaml:"geo_refresh"`
}

// JWTConfig: Secret vacío = modo dev (headers X-Debug-*).
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	StatsTTL time.Duration `yaml:"stats_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	App    string `yaml:"app"`
}

type GeocoderConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// S3Config: Bucket vacío = image store en memoria.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
	PublicURL string `yaml:"public_url"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{GeoRefresh: time.Minute},
		Redis:    RedisConfig{StatsTTL: 30 * time.Second},
		Log:   LogConfig{Level: "info", Format: "text", App: "pet-adoption"},
		Geocoder: GeocoderConfig{
			Timeout: 5 * time.Second,
		},
		S3: S3Config{Region: "us-east-1"},
	}
}

// Load lee CONFIG_FILE (o config.yaml si existe) y aplica overrides por env.
// Un archivo explícito que no existe es error; el default puede faltar.
func Load() (Config, error) {
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		p, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = p
	}

	str("DB_DSN", &cfg.Database.DSN)
	str("JWT_SECRET", &cfg.JWT.Secret)
	str("REDIS_URL", &cfg.Redis.URL)
	if err := duration("GEO_REFRESH_INTERVAL", &cfg.Database.GeoRefresh); err != nil {
		return err
	}
	if err := duration("STATS_CACHE_TTL", &cfg.Redis.StatsTTL); err != nil {
		return err
	}

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("APP_NAME", &cfg.Log.App)

	str("GEOCODER_URL", &cfg.Geocoder.URL)
	if err := boolean("GEOCODER_ENABLED", &cfg.Geocoder.Enabled); err != nil {
		return err
	}

	str("S3_BUCKET", &cfg.S3.Bucket)
	str("S3_REGION", &cfg.S3.Region)
	str("S3_ENDPOINT", &cfg.S3.Endpoint)
	str("S3_ACCESS_KEY", &cfg.S3.AccessKey)
	str("S3_SECRET_KEY", &cfg.S3.SecretKey)
	str("S3_PUBLIC_URL", &cfg.S3.PublicURL)
	if err := boolean("S3_PATH_STYLE", &cfg.S3.PathStyle); err != nil {
		return err
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
