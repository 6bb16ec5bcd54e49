package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("COGNITO_REGION", "ap-southeast-1")
	t.Setenv("COGNITO_USER_POOL_ID", "ap-southeast-1_AbCdEf")
	t.Setenv("COGNITO_CLIENT_ID", "client-123")
	t.Setenv("COGNITO_CLIENT_SECRET", "s3cr3t")
}

func TestNewConfigManagerDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := NewConfigManager()
	if err := cfg.LoadDefaults(); err != nil {
		t.Fatal(err)
	}

	wantIssuer := "https://cognito-idp.ap-southeast-1.amazonaws.com/ap-southeast-1_AbCdEf"
	if cfg.IdentityProvider.Issuer != wantIssuer {
		t.Errorf("Issuer = %q, want %q", cfg.IdentityProvider.Issuer, wantIssuer)
	}
	if cfg.IdentityProvider.JwksURL != wantIssuer+"/.well-known/jwks.json" {
		t.Errorf("JwksURL = %q", cfg.IdentityProvider.JwksURL)
	}
	if cfg.KeyCache.TTL != 24*time.Hour {
		t.Errorf("KeyCache.TTL = %v, want 24h", cfg.KeyCache.TTL)
	}
	if cfg.IdentityProvider.Timeout != 10*time.Second {
		t.Errorf("IdentityProvider.Timeout = %v, want 10s", cfg.IdentityProvider.Timeout)
	}
	if cfg.Token.Algorithm != "RS256" {
		t.Errorf("Token.Algorithm = %q", cfg.Token.Algorithm)
	}
	if cfg.Cookie.AuthTokenName != "auth_token" || cfg.Cookie.AuthTokenTTL != 12*time.Hour {
		t.Errorf("unexpected cookie config %+v", cfg.Cookie)
	}
	if cfg.Cookie.Secure {
		t.Error("cookies should not be Secure outside production by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestExplicitEndpointsWin(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_ISSUER", "http://localhost:9229/local_pool")
	t.Setenv("JWKS_URL", "http://localhost:9229/local_pool/jwks")

	cfg := NewConfigManager()
	_ = cfg.LoadDefaults()

	if cfg.IdentityProvider.Issuer != "http://localhost:9229/local_pool" {
		t.Errorf("Issuer = %q", cfg.IdentityProvider.Issuer)
	}
	if cfg.IdentityProvider.JwksURL != "http://localhost:9229/local_pool/jwks" {
		t.Errorf("JwksURL = %q", cfg.IdentityProvider.JwksURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("KEY_CACHE_TTL", "1h")
	t.Setenv("TOKEN_LEEWAY", "30s")
	t.Setenv("IDP_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_HOST", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	cfg := NewConfigManager()

	if !cfg.IsProduction() || !cfg.Cookie.Secure {
		t.Error("production should default to Secure cookies")
	}
	if cfg.KeyCache.TTL != time.Hour || cfg.Token.Leeway != 30*time.Second {
		t.Errorf("durations not parsed: %v %v", cfg.KeyCache.TTL, cfg.Token.Leeway)
	}
	if cfg.IdentityProvider.Timeout != 3*time.Second {
		t.Errorf("IdentityProvider.Timeout = %v, want 3s", cfg.IdentityProvider.Timeout)
	}
	if len(cfg.KafkaConfig.Brokers) != 2 || cfg.KafkaConfig.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers = %v", cfg.KafkaConfig.Brokers)
	}
	if cfg.RedisConfig.Addr != "localhost:6379" || cfg.RedisConfig.DB != 2 {
		t.Errorf("RedisConfig = %+v", cfg.RedisConfig)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*AppConfig)
		wantField string
	}{
		{name: "missing client secret", mutate: func(c *AppConfig) { c.IdentityProvider.ClientSecret = "" }, wantField: "ClientSecret"},
		{name: "symmetric algorithm", mutate: func(c *AppConfig) { c.Token.Algorithm = "HS256" }, wantField: "Algorithm"},
		{name: "zero ttl", mutate: func(c *AppConfig) { c.KeyCache.TTL = 0 }, wantField: "TTL"},
		{name: "negative provider timeout", mutate: func(c *AppConfig) { c.IdentityProvider.Timeout = -time.Second }, wantField: "Timeout"},
		{name: "bad port", mutate: func(c *AppConfig) { c.Port = "http" }, wantField: "Port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			cfg := NewConfigManager()
			_ = cfg.LoadDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not name %s", err, tt.wantField)
			}
		})
	}
}
