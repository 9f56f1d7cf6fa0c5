package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	ODS      DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Records  RecordsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the HS256 secret bearer tokens are checked against. An
// empty secret leaves the record routes open, which only development allows.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RecordsConfig tunes the record catalog and the guarded clean path.
type RecordsConfig struct {
	CacheTTL    time.Duration
	LoadTimeout time.Duration
	ExportDir   string

	// EnvironmentQuery must return a single row with a single column; the
	// trimmed value has to read TEST before any table is cleaned.
	EnvironmentQuery string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = databaseConfig(v, "DB_")
	cfg.ODS = databaseConfig(v, "ODS_DB_")

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Records = RecordsConfig{
		CacheTTL:         parseDuration(v.GetString("RECORDS_CACHE_TTL"), 5*time.Minute),
		LoadTimeout:      parseDuration(v.GetString("RECORDS_LOAD_TIMEOUT"), 2*time.Minute),
		ExportDir:        v.GetString("RECORDS_EXPORT_DIR"),
		EnvironmentQuery: strings.TrimSpace(v.GetString("RECORDS_ENVIRONMENT_QUERY")),
	}

	return cfg
}

func databaseConfig(v *viper.Viper, prefix string) DatabaseConfig {
	return DatabaseConfig{
		Host:         v.GetString(prefix + "HOST"),
		Port:         v.GetInt(prefix + "PORT"),
		User:         v.GetString(prefix + "USER"),
		Password:     v.GetString(prefix + "PASSWORD"),
		Name:         v.GetString(prefix + "NAME"),
		SSLMode:      v.GetString(prefix + "SSL_MODE"),
		MaxOpenConns: v.GetInt(prefix + "MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt(prefix + "MAX_IDLE_CONNS"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	for prefix, name := range map[string]string{"DB_": "sis_legacy", "ODS_DB_": "sis_ods"} {
		v.SetDefault(prefix+"HOST", "localhost")
		v.SetDefault(prefix+"PORT", 5432)
		v.SetDefault(prefix+"USER", "postgres")
		v.SetDefault(prefix+"PASSWORD", "postgres")
		v.SetDefault(prefix+"NAME", name)
		v.SetDefault(prefix+"SSL_MODE", "disable")
		v.SetDefault(prefix+"MAX_OPEN_CONNS", 10)
		v.SetDefault(prefix+"MAX_IDLE_CONNS", 5)
	}

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RECORDS_CACHE_TTL", "5m")
	v.SetDefault("RECORDS_LOAD_TIMEOUT", "2m")
	v.SetDefault("RECORDS_EXPORT_DIR", "./exports")
	v.SetDefault("RECORDS_ENVIRONMENT_QUERY", "SELECT environment FROM sys_descriptor")
}

// Validate reports every setting that cannot work, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	for label, db := range map[string]DatabaseConfig{"DB": c.Database, "ODS_DB": c.ODS} {
		if db.Host == "" || db.Name == "" {
			errs = append(errs, fmt.Errorf("%s_HOST and %s_NAME are required", label, label))
		}
	}
	if c.Database.Host == c.ODS.Host && c.Database.Port == c.ODS.Port && c.Database.Name == c.ODS.Name {
		errs = append(errs, errors.New("legacy and ODS settings point at the same database"))
	}
	if c.Env == EnvProduction && c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if c.Records.EnvironmentQuery == "" {
		errs = append(errs, errors.New("RECORDS_ENVIRONMENT_QUERY must not be empty"))
	}
	return errors.Join(errs...)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
