package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type AppConfig struct {
	ServiceName string `validate:"required"`
	Version     string
	Env         string `validate:"oneof=production development test"`
	Port        string `validate:"required,numeric"`

	IdentityProvider IdentityProviderConfig
	Token            TokenConfig
	KeyCache         KeyCacheConfig
	Cookie           CookieConfig

	DatabaseURL  string
	DatabaseName string
	RedisConfig  RedisConfig
	KafkaConfig  KafkaConfig
	LoggerConfig LoggerConfig
}

// IdentityProviderConfig describes the user pool the gateway fronts.
type IdentityProviderConfig struct {
	Region       string `validate:"required"`
	UserPoolID   string `validate:"required"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	// Endpoint overrides the provider base URL (local emulators, tests).
	Endpoint string `validate:"omitempty,url"`
	Issuer   string `validate:"required,url"`
	JwksURL  string `validate:"required,url"`
	// Timeout bounds a single provider call; calls are not retried.
	Timeout time.Duration `validate:"gt=0"`
}

type TokenConfig struct {
	// Algorithm is the single asymmetric algorithm accepted on inbound tokens.
	Algorithm string        `validate:"oneof=RS256 RS384 RS512 ES256 ES384 ES512"`
	Leeway    time.Duration `validate:"gte=0"`
	// RequireClientID makes the verifier match aud/client_id against ClientID.
	RequireClientID bool
}

type KeyCacheConfig struct {
	TTL          time.Duration `validate:"gt=0"`
	FetchTimeout time.Duration `validate:"gt=0"`
	SharedPrefix string
}

type CookieConfig struct {
	AuthTokenName    string `validate:"required"`
	RefreshTokenName string `validate:"required"`
	EmailName        string `validate:"required"`
	Path             string `validate:"required"`
	Secure           bool
	AuthTokenTTL     time.Duration `validate:"gt=0"`
	RefreshTokenTTL  time.Duration `validate:"gt=0"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type KafkaConfig struct {
	Brokers          []string
	AuditTopic       string
	SASLMechanism    string
	SASLUser         string
	SASLPassword     string
	SecurityProtocol string
	TLS              KafkaTLSConfig
}

type KafkaTLSConfig struct {
	CertFile, KeyFile, CACertFile string
	InsecureSkipVerify            bool
}

type LogOutputConfig struct {
	Path    string
	Console bool
	File    bool
}

// RotationConfig defines log rotation settings
type RotationConfig struct {
	MaxSize    int64 // Maximum size in bytes before rotation (default: 100MB)
	MaxAge     int   // Maximum number of days to retain old logs (default: 30)
	MaxBackups int   // Maximum number of backup files to keep (default: 10)
	Compress   bool  // Whether to compress rotated files (default: true)
}

type LoggerConfig struct {
	Summary  LogOutputConfig
	Detail   LogOutputConfig
	Rotation RotationConfig
}

func NewConfigManager() *AppConfig {
	logPath := getEnv("LOG_PATH", "./logs")
	logFile := getBool("LOG_FILE", false)

	cfg := &AppConfig{
		ServiceName:  getEnv("SERVICE_NAME", "auth-gateway"),
		Version:      getEnv("VERSION", "1.0.0"),
		Env:          getEnv("APP_ENV", EnvDevelopment),
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  os.Getenv("MONGO_URI"),
		DatabaseName: getEnv("MONGO_DATABASE", "auth_gateway"),
		IdentityProvider: IdentityProviderConfig{
			Region:       os.Getenv("COGNITO_REGION"),
			UserPoolID:   os.Getenv("COGNITO_USER_POOL_ID"),
			ClientID:     os.Getenv("COGNITO_CLIENT_ID"),
			ClientSecret: os.Getenv("COGNITO_CLIENT_SECRET"),
			Endpoint:     os.Getenv("COGNITO_ENDPOINT"),
			Issuer:       os.Getenv("TOKEN_ISSUER"),
			JwksURL:      os.Getenv("JWKS_URL"),
			Timeout:      getDuration("IDP_TIMEOUT", 10*time.Second),
		},
		Token: TokenConfig{
			Algorithm:       getEnv("TOKEN_ALGORITHM", "RS256"),
			Leeway:          getDuration("TOKEN_LEEWAY", 0),
			RequireClientID: getBool("TOKEN_REQUIRE_CLIENT_ID", true),
		},
		KeyCache: KeyCacheConfig{
			TTL:          getDuration("KEY_CACHE_TTL", 24*time.Hour),
			FetchTimeout: getDuration("KEY_FETCH_TIMEOUT", 5*time.Second),
			SharedPrefix: getEnv("KEY_CACHE_REDIS_PREFIX", "auth_gateway:jwks"),
		},
		Cookie: CookieConfig{
			AuthTokenName:    getEnv("AUTH_COOKIE_NAME", "auth_token"),
			RefreshTokenName: getEnv("REFRESH_COOKIE_NAME", "refresh_token"),
			EmailName:        getEnv("EMAIL_COOKIE_NAME", "email"),
			Path:             "/",
			AuthTokenTTL:     12 * time.Hour,
			RefreshTokenTTL:  7 * 24 * time.Hour,
		},
		KafkaConfig: KafkaConfig{
			Brokers:          splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:       getEnv("KAFKA_AUDIT_TOPIC", "auth.audit"),
			SASLMechanism:    os.Getenv("KAFKA_SASL_MECHANISM"),
			SASLUser:         os.Getenv("KAFKA_SASL_USER"),
			SASLPassword:     os.Getenv("KAFKA_SASL_PASSWORD"),
			SecurityProtocol: getEnv("KAFKA_SECURITY_PROTOCOL", "PLAINTEXT"),
			TLS: KafkaTLSConfig{
				CertFile:           os.Getenv("KAFKA_TLS_CERT_FILE"),
				KeyFile:            os.Getenv("KAFKA_TLS_KEY_FILE"),
				CACertFile:         os.Getenv("KAFKA_TLS_CA_FILE"),
				InsecureSkipVerify: getBool("KAFKA_TLS_INSECURE", false),
			},
		},
		LoggerConfig: LoggerConfig{
			Summary: LogOutputConfig{Path: logPath + "/summary/", Console: true, File: logFile},
			Detail:  LogOutputConfig{Path: logPath + "/detail/", Console: true, File: logFile},
			Rotation: RotationConfig{
				MaxSize:    50 * 1024 * 1024, // 50MB
				MaxAge:     7,                // 7 days
				MaxBackups: 5,
				Compress:   true,
			},
		},
	}

	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.RedisConfig = RedisConfig{
			Addr:     redisHost,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		}
	}

	cfg.Cookie.Secure = getBool("COOKIE_SECURE", cfg.IsProduction())

	return cfg
}

// LoadDefaults derives the issuer and key endpoint from the user pool when they
// are not set explicitly.
func (cfg *AppConfig) LoadDefaults() error {
	idp := &cfg.IdentityProvider
	if idp.Issuer == "" && idp.Region != "" && idp.UserPoolID != "" {
		idp.Issuer = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", idp.Region, idp.UserPoolID)
	}
	if idp.JwksURL == "" && idp.Issuer != "" {
		idp.JwksURL = strings.TrimSuffix(idp.Issuer, "/") + "/.well-known/jwks.json"
	}
	if cfg.Token.Algorithm == "" {
		cfg.Token.Algorithm = "RS256"
	}
	if cfg.KeyCache.TTL <= 0 {
		cfg.KeyCache.TTL = 24 * time.Hour
	}
	if cfg.KeyCache.FetchTimeout <= 0 {
		cfg.KeyCache.FetchTimeout = 5 * time.Second
	}
	if cfg.IdentityProvider.Timeout <= 0 {
		cfg.IdentityProvider.Timeout = 10 * time.Second
	}
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/"
	}
	return nil
}

func (cfg *AppConfig) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+":"+fe.Tag())
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

func (cfg *AppConfig) IsProduction() bool {
	return cfg.Env == EnvProduction
}

// DefaultRotationConfig returns default rotation settings
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    100 * 1024 * 1024, // 100MB
		MaxAge:     30,                // 30 days
		MaxBackups: 10,
		Compress:   true,
	}
}

func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Summary: LogOutputConfig{
			Path:    "./logs/summary/",
			Console: true,
			File:    false,
		},
		Detail: LogOutputConfig{
			Path:    "./logs/detail/",
			Console: true,
			File:    false,
		},
		Rotation: DefaultRotationConfig(),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
