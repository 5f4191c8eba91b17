package config

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	Upload   UploadConfig   `koanf:"upload"`
	Seed     SeedConfig     `koanf:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string          `koanf:"host"`
	Port       int             `koanf:"port"`
	Mode       string          `koanf:"mode"`
	CSRFSecret string          `koanf:"csrf_secret"`
	Timeout    string          `koanf:"timeout"`
	CORS       CORSConfig      `koanf:"cors"`
	RateLimit  RateLimitConfig `koanf:"rate_limit"`
	Cache      CacheConfig     `koanf:"cache"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// RateLimitConfig holds per-client rate limiting settings for the API.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// CacheConfig holds the dashboard metrics cache settings.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	TTL     string `koanf:"ttl"`
	MaxSize int    `koanf:"max_size"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// AuthConfig holds staff authentication settings.
type AuthConfig struct {
	Enabled     bool     `koanf:"enabled"`
	JWTSecret   string   `koanf:"jwt_secret"`
	TokenExpiry string   `koanf:"token_expiry"`
	PublicPaths []string `koanf:"public_paths"`
}

// UploadConfig holds profile-picture storage settings.
type UploadConfig struct {
	Dir       string `koanf:"dir"`
	URLPrefix string `koanf:"url_prefix"`
	MaxSizeMB int    `koanf:"max_size_mb"`
}

// SeedConfig controls demo data creation at startup.
type SeedConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__UPLOAD__MAX_SIZE_MB=10 overrides upload.max_size_mb.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints and supported values, normalizing
// whitespace and applying defaults in place.
func (c *Config) Validate() error {
	for _, step := range []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateAuth,
		c.validateUpload,
		c.validateSeed,
		c.validateLog,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	// Whitespace-only durations mean unset.
	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	c.Server.CORS.MaxAge = strings.TrimSpace(c.Server.CORS.MaxAge)
	c.Server.Cache.TTL = strings.TrimSpace(c.Server.Cache.TTL)

	if err := optionalPositiveDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	if err := optionalPositiveDuration("server.cors.max_age", c.Server.CORS.MaxAge); err != nil {
		return err
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("invalid server.rate_limit.rps %v: must be positive when rate limiting is enabled", c.Server.RateLimit.RPS)
		}
		if c.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid server.rate_limit.burst %d: must be positive when rate limiting is enabled", c.Server.RateLimit.Burst)
		}
	}

	if c.Server.Cache.Enabled {
		if err := requiredPositiveDuration("server.cache.ttl", c.Server.Cache.TTL); err != nil {
			return err
		}
		if c.Server.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid server.cache.max_size %d: must be positive when caching is enabled", c.Server.Cache.MaxSize)
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite":
		path := strings.TrimSpace(c.Database.SQLite.Path)
		if path == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		c.Database.SQLite.Path = path
	case "postgres":
		if err := c.validatePostgres(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", c.Database.Driver, "sqlite", "postgres")
	}

	c.Database.Pool.ConnMaxLifetime = strings.TrimSpace(c.Database.Pool.ConnMaxLifetime)
	return optionalPositiveDuration("database.pool.conn_max_lifetime", c.Database.Pool.ConnMaxLifetime)
}

func (c *Config) validatePostgres() error {
	pg := &c.Database.Postgres
	pg.Host = strings.TrimSpace(pg.Host)
	pg.User = strings.TrimSpace(pg.User)
	pg.DBName = strings.TrimSpace(pg.DBName)
	sslMode := strings.TrimSpace(pg.SSLMode)

	if pg.Host == "" {
		return fmt.Errorf("database.postgres.host is required when driver is postgres")
	}
	if pg.Port < 1 || pg.Port > 65535 {
		return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
	}
	if pg.User == "" {
		return fmt.Errorf("database.postgres.user is required when driver is postgres")
	}
	if pg.DBName == "" {
		return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
	}

	switch sslMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("invalid database.postgres.sslmode %q: must be one of disable, allow, prefer, require, verify-ca, verify-full", pg.SSLMode)
	}
	if c.Server.Mode == gin.ReleaseMode {
		switch sslMode {
		case "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of require, verify-ca, verify-full", pg.SSLMode, gin.ReleaseMode)
		}
	}
	pg.SSLMode = sslMode
	return nil
}

func (c *Config) validateAuth() error {
	if !c.Auth.Enabled {
		return nil
	}

	secret := strings.TrimSpace(c.Auth.JWTSecret)
	if secret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	if len(secret) < 32 {
		return fmt.Errorf("invalid auth.jwt_secret: must be at least 32 characters")
	}
	if c.Server.Mode == gin.ReleaseMode && CountSecretClasses(secret) < 3 {
		return fmt.Errorf("auth.jwt_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
	}
	c.Auth.JWTSecret = secret

	expiry := strings.TrimSpace(c.Auth.TokenExpiry)
	if expiry == "" {
		return fmt.Errorf("auth.token_expiry is required when auth is enabled")
	}
	if err := requiredPositiveDuration("auth.token_expiry", expiry); err != nil {
		return err
	}
	c.Auth.TokenExpiry = expiry

	paths := make([]string, 0, len(c.Auth.PublicPaths))
	seen := make(map[string]struct{}, len(c.Auth.PublicPaths))
	for idx, p := range c.Auth.PublicPaths {
		normalized := strings.TrimSpace(p)
		if normalized == "" {
			return fmt.Errorf("auth.public_paths[%d] cannot be empty when auth is enabled", idx)
		}
		if !strings.HasPrefix(normalized, "/") {
			return fmt.Errorf("invalid auth.public_paths[%d] %q: must start with '/'", idx, p)
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		paths = append(paths, normalized)
	}
	for _, required := range []string{"/api/v1/auth/login", "/api/v1/auth/register"} {
		if _, ok := seen[required]; !ok {
			return fmt.Errorf("auth.public_paths must include %q when auth is enabled", required)
		}
	}
	c.Auth.PublicPaths = paths
	return nil
}

func (c *Config) validateUpload() error {
	c.Upload.Dir = strings.TrimSpace(c.Upload.Dir)
	if c.Upload.Dir == "" {
		c.Upload.Dir = "data/uploads"
	}

	prefix := strings.TrimSpace(c.Upload.URLPrefix)
	if prefix == "" {
		prefix = "/uploads"
	}
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("invalid upload.url_prefix %q: must start with '/'", c.Upload.URLPrefix)
	}
	c.Upload.URLPrefix = strings.TrimRight(prefix, "/")

	if c.Upload.MaxSizeMB == 0 {
		c.Upload.MaxSizeMB = 5
	}
	if c.Upload.MaxSizeMB < 0 {
		return fmt.Errorf("invalid upload.max_size_mb %d: must be positive", c.Upload.MaxSizeMB)
	}
	return nil
}

func (c *Config) validateSeed() error {
	if !c.Seed.Enabled {
		return nil
	}
	c.Seed.AdminEmail = strings.ToLower(strings.TrimSpace(c.Seed.AdminEmail))
	if c.Seed.AdminEmail == "" {
		return fmt.Errorf("seed.admin_email is required when seeding is enabled")
	}
	if len(c.Seed.AdminPassword) < 6 {
		return fmt.Errorf("invalid seed.admin_password: must be at least 6 characters")
	}
	if c.Server.Mode == gin.ReleaseMode {
		return fmt.Errorf("seed.enabled must be false in release mode")
	}
	return nil
}

func (c *Config) validateLog() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}
	return nil
}

// optionalPositiveDuration validates a duration field that may be left empty.
func optionalPositiveDuration(name, value string) error {
	if value == "" {
		return nil
	}
	return requiredPositiveDuration(name, value)
}

func requiredPositiveDuration(name, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, value)
	}
	return nil
}

// TokenTTL returns the parsed auth.token_expiry, or 24h when unset.
func (a AuthConfig) TokenTTL() time.Duration {
	if d, err := time.ParseDuration(a.TokenExpiry); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

// MaxBytes returns the upload ceiling in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxSizeMB) << 20
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in the given secret string.
func CountSecretClasses(secret string) int {
	var lower, upper, digit, symbol bool
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	classes := 0
	for _, present := range []bool{lower, upper, digit, symbol} {
		if present {
			classes++
		}
	}
	return classes
}

// RequestTimeout returns the parsed server.timeout, or zero when unset.
func (s ServerConfig) RequestTimeout() time.Duration {
	d, _ := time.ParseDuration(s.Timeout)
	return d
}

// MaxAgeDuration returns the parsed preflight cache duration, or zero when unset.
func (c CORSConfig) MaxAgeDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxAge)
	return d
}

// TTLDuration returns the parsed cache TTL, or zero when unset.
func (c CacheConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}
