package config

import (
	"errors"
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

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Invigilation InvigilationConfig
	Exports      ExportsConfig
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
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
	// TokenTTL bounds tokens minted by the invigilate CLI.
	TokenTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// InvigilationConfig holds the assignment policy defaults and the run caches.
type InvigilationConfig struct {
	Enabled              bool
	SpecialtyMode        string
	SecondaryRule        string
	DefaultDailyCapacity int
	SectionDailyCapacity int
	DefaultNeeded        int
	// Tier2Grades lists grades whose later slots come from the section pool.
	Tier2Grades  []string
	DefaultTier  int
	ProposalTTL  time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
	MaxUploadMB  int64
	// PolicyFile optionally points to a YAML file with alias, tier, section
	// and timetable tables.
	PolicyFile string
}

// ExportsConfig configures asynchronous roster exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	FontPath          string
	SchoolName        string
	AcademicYear      string
	Semester          string
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		TokenTTL: parseDuration(v.GetString("JWT_TOKEN_TTL"), 8*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Invigilation = InvigilationConfig{
		Enabled:              v.GetBool("ENABLE_INVIGILATION"),
		SpecialtyMode:        v.GetString("INVIGILATION_SPECIALTY_MODE"),
		SecondaryRule:        v.GetString("INVIGILATION_SECONDARY_RULE"),
		DefaultDailyCapacity: v.GetInt("INVIGILATION_DAILY_CAPACITY"),
		SectionDailyCapacity: v.GetInt("INVIGILATION_SECTION_DAILY_CAPACITY"),
		DefaultNeeded:        v.GetInt("INVIGILATION_SUPERVISORS_NEEDED"),
		Tier2Grades:          splitAndTrim(v.GetString("INVIGILATION_TIER2_GRADES")),
		DefaultTier:          v.GetInt("INVIGILATION_DEFAULT_TIER"),
		ProposalTTL:          parseDuration(v.GetString("INVIGILATION_PROPOSAL_TTL"), 30*time.Minute),
		CacheEnabled:         v.GetBool("INVIGILATION_CACHE_ENABLED"),
		CacheTTL:             parseDuration(v.GetString("INVIGILATION_CACHE_TTL"), 15*time.Minute),
		MaxUploadMB:          v.GetInt64("INVIGILATION_MAX_UPLOAD_MB"),
		PolicyFile:           v.GetString("INVIGILATION_POLICY_FILE"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
		FontPath:          v.GetString("EXPORTS_PDF_FONT_PATH"),
		SchoolName:        v.GetString("SCHOOL_NAME"),
		AcademicYear:      v.GetString("ACADEMIC_YEAR"),
		Semester:          v.GetString("SEMESTER"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "invigilation")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_TOKEN_TTL", "8h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_INVIGILATION", true)
	v.SetDefault("INVIGILATION_SPECIALTY_MODE", "deprioritize")
	v.SetDefault("INVIGILATION_SECONDARY_RULE", "teacher")
	v.SetDefault("INVIGILATION_DAILY_CAPACITY", 0)
	v.SetDefault("INVIGILATION_SECTION_DAILY_CAPACITY", 3)
	v.SetDefault("INVIGILATION_SUPERVISORS_NEEDED", 1)
	v.SetDefault("INVIGILATION_TIER2_GRADES", "")
	v.SetDefault("INVIGILATION_DEFAULT_TIER", 1)
	v.SetDefault("INVIGILATION_PROPOSAL_TTL", "30m")
	v.SetDefault("INVIGILATION_CACHE_ENABLED", true)
	v.SetDefault("INVIGILATION_CACHE_TTL", "15m")
	v.SetDefault("INVIGILATION_MAX_UPLOAD_MB", 10)
	v.SetDefault("INVIGILATION_POLICY_FILE", "")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)
	v.SetDefault("EXPORTS_PDF_FONT_PATH", "")
	v.SetDefault("SCHOOL_NAME", "")
	v.SetDefault("ACADEMIC_YEAR", "")
	v.SetDefault("SEMESTER", "")
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
