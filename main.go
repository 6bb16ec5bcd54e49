package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/sing3demons/authgateway/internal/audit"
	"github.com/sing3demons/authgateway/internal/auth"
	"github.com/sing3demons/authgateway/internal/config"
	"github.com/sing3demons/authgateway/internal/cookie"
	"github.com/sing3demons/authgateway/internal/database"
	"github.com/sing3demons/authgateway/internal/health"
	"github.com/sing3demons/authgateway/internal/identity"
	"github.com/sing3demons/authgateway/internal/keycache"
	"github.com/sing3demons/authgateway/internal/session"
	"github.com/sing3demons/authgateway/internal/verifier"
	"github.com/sing3demons/authgateway/pkg/kafka"
	"github.com/sing3demons/authgateway/pkg/kp"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.NewConfigManager()
	if err := cfg.LoadDefaults(); err != nil {
		log.Fatalf("failed to load defaults: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	startup := logger.NewLoggerWithConfig(cfg.ServiceName, cfg.Version, &cfg.LoggerConfig)
	startup.SetUseCase("startup")
	ctx := logger.SetLogger(context.Background(), startup)

	app := kp.NewMicroservice(cfg)
	app.Use(kp.RecoverMiddleware)
	app.Use(kp.LoggerMiddleware(cfg))

	checks := map[string]health.Check{}

	cacheOpts := []keycache.Option{
		keycache.WithTTL(cfg.KeyCache.TTL),
		keycache.WithFetchTimeout(cfg.KeyCache.FetchTimeout),
	}
	if cfg.RedisConfig.Addr != "" {
		rdb, err := database.NewRedis(ctx, &cfg.RedisConfig)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		app.OnShutdown(func(context.Context) error { return rdb.Close() })
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		cacheOpts = append(cacheOpts, keycache.WithSharedStore(keycache.NewRedisStore(rdb, cfg.KeyCache.SharedPrefix)))
	}

	keys := keycache.New(keycache.NewHTTPSource(cfg.IdentityProvider.JwksURL, cfg.KeyCache.FetchTimeout), cacheOpts...)
	if _, err := keys.Keys(ctx); err != nil {
		// not fatal: the cache retries on the first request
		startup.Warn(logAction.BUSINESS("initial key fetch failed"), err.Error())
	}

	verifierCfg := verifier.Config{
		Issuer:    cfg.IdentityProvider.Issuer,
		Algorithm: cfg.Token.Algorithm,
		Leeway:    cfg.Token.Leeway,
	}
	if cfg.Token.RequireClientID {
		verifierCfg.ClientID = cfg.IdentityProvider.ClientID
	}
	tokens, err := verifier.New(keys, verifierCfg)
	if err != nil {
		log.Fatalf("failed to create token verifier: %v", err)
	}

	idp, err := identity.New(ctx, cfg.IdentityProvider)
	if err != nil {
		log.Fatalf("failed to create identity client: %v", err)
	}

	var (
		recorders []audit.Recorder
		activity  auth.ActivityStore
	)
	if cfg.DatabaseURL != "" {
		db, err := database.NewDatabase(ctx, cfg.DatabaseURL, cfg.DatabaseName)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		app.OnShutdown(db.Close)
		checks["mongo"] = db.Ping

		repo := audit.NewMongoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			startup.Warn(logAction.BUSINESS("audit index creation failed"), err.Error())
		}
		recorders = append(recorders, repo)
		activity = repo
	}
	if len(cfg.KafkaConfig.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.Config{
			Brokers:          cfg.KafkaConfig.Brokers,
			Topic:            cfg.KafkaConfig.AuditTopic,
			SASLMechanism:    cfg.KafkaConfig.SASLMechanism,
			SASLUser:         cfg.KafkaConfig.SASLUser,
			SASLPassword:     cfg.KafkaConfig.SASLPassword,
			SecurityProtocol: cfg.KafkaConfig.SecurityProtocol,
			TLS: kafka.TLSConfig{
				CertFile:           cfg.KafkaConfig.TLS.CertFile,
				KeyFile:            cfg.KafkaConfig.TLS.KeyFile,
				CACertFile:         cfg.KafkaConfig.TLS.CACertFile,
				InsecureSkipVerify: cfg.KafkaConfig.TLS.InsecureSkipVerify,
			},
		})
		if err != nil {
			log.Fatalf("failed to create kafka producer: %v", err)
		}
		app.OnShutdown(func(context.Context) error { return producer.Close() })
		recorders = append(recorders, audit.NewKafkaPublisher(producer))
	}

	jar := cookie.NewJar(cfg.Cookie)
	resolver := session.NewResolver(tokens, jar.AuthTokenName())

	auth.NewHandler(idp, jar, tokens, audit.Multi(recorders...), activity).
		Register(app, resolver.Middleware(jar.Clear))
	health.NewHandler(cfg.ServiceName, cfg.Version, keys, checks).Register(app)

	app.Start()
}
