package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	SiteID   string

	DBDriver string
	DBDSN    string

	BlobDriver   string // fs|minio
	BlobBasePath string // for fs

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	CORSOrigins []string

	LogLevel string
	LogFile  string

	RateLimitRPS   float64
	RateLimitBurst int

	NumericTolerance    float64
	TextMaxEditDistance int
	SamplerSeed         int64

	ShutdownTimeout time.Duration
}

// env names, keyed by viper path
var bindings = map[string]string{
	"mode":                    "MODE",
	"http_addr":               "HTTP_ADDR",
	"site_id":                 "SITE_ID",
	"db.driver":               "DB_DRIVER",
	"db.dsn":                  "DB_DSN",
	"blob.driver":             "BLOB_DRIVER",
	"blob.base_path":          "BLOB_BASE_PATH",
	"minio.endpoint":          "MINIO_ENDPOINT",
	"minio.access_key":        "MINIO_ACCESS_KEY",
	"minio.secret_key":        "MINIO_SECRET_KEY",
	"minio.bucket":            "MINIO_BUCKET",
	"minio.use_ssl":           "MINIO_USE_SSL",
	"cors.origins":            "CORS_ORIGINS",
	"log.level":               "LOG_LEVEL",
	"log.file":                "LOG_FILE",
	"rate_limit.rps":          "RATE_LIMIT_RPS",
	"rate_limit.burst":        "RATE_LIMIT_BURST",
	"grading.tolerance":       "NUMERIC_TOLERANCE",
	"grading.max_edit":        "TEXT_MAX_EDIT_DISTANCE",
	"sampler.seed":            "SAMPLER_SEED",
	"server.shutdown_timeout": "SHUTDOWN_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("site_id", "local")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "")
	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.base_path", "./data")
	v.SetDefault("minio.bucket", "quizd")
	v.SetDefault("cors.origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/quizd.log")
	v.SetDefault("rate_limit.rps", 5.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("grading.tolerance", 0.0)
	v.SetDefault("grading.max_edit", 0)
	v.SetDefault("sampler.seed", 0)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
}

// Load reads .env (if present), then an optional config.yaml under dir,
// then the environment. Later sources win.
func Load(dir string) (Config, error) {
	_ = godotenv.Load() // missing .env is fine

	v := viper.New()
	setDefaults(v)
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, err
		}
	}
	if dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Mode:                Mode(strings.ToLower(v.GetString("mode"))),
		HTTPAddr:            v.GetString("http_addr"),
		SiteID:              v.GetString("site_id"),
		DBDriver:            strings.ToLower(v.GetString("db.driver")),
		DBDSN:               v.GetString("db.dsn"),
		BlobDriver:          strings.ToLower(v.GetString("blob.driver")),
		BlobBasePath:        v.GetString("blob.base_path"),
		MinioEndpoint:       v.GetString("minio.endpoint"),
		MinioAccessKey:      v.GetString("minio.access_key"),
		MinioSecretKey:      v.GetString("minio.secret_key"),
		MinioBucket:         v.GetString("minio.bucket"),
		MinioUseSSL:         v.GetBool("minio.use_ssl"),
		CORSOrigins:         splitCSV(v.Get("cors.origins")),
		LogLevel:            v.GetString("log.level"),
		LogFile:             v.GetString("log.file"),
		RateLimitRPS:        v.GetFloat64("rate_limit.rps"),
		RateLimitBurst:      v.GetInt("rate_limit.burst"),
		NumericTolerance:    v.GetFloat64("grading.tolerance"),
		TextMaxEditDistance: v.GetInt("grading.max_edit"),
		SamplerSeed:         v.GetInt64("sampler.seed"),
		ShutdownTimeout:     v.GetDuration("server.shutdown_timeout"),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.BlobDriver {
	case "fs":
	case "minio":
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			return errors.New("config: BLOB_DRIVER=minio needs MINIO_ENDPOINT and MINIO_BUCKET")
		}
	default:
		return fmt.Errorf("config: unsupported BLOB_DRIVER %q", c.BlobDriver)
	}
	if c.NumericTolerance < 0 || c.TextMaxEditDistance < 0 {
		return errors.New("config: grading tolerances must not be negative")
	}
	return nil
}

// splitCSV accepts a comma separated string (env) or a list (yaml).
func splitCSV(raw any) []string {
	var parts []string
	switch t := raw.(type) {
	case string:
		parts = strings.Split(t, ",")
	case []string:
		parts = t
	case []any:
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
