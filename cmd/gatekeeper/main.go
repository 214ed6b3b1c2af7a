package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/gatekeeper/adapters/captcha"
	"github.com/layer-3/gatekeeper/adapters/directory"
	"github.com/layer-3/gatekeeper/adapters/events"
	"github.com/layer-3/gatekeeper/adapters/store"
	"github.com/layer-3/gatekeeper/adapters/tokenizer"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/internal/config"
	"github.com/layer-3/gatekeeper/internal/logger"
	"github.com/layer-3/gatekeeper/internal/metrics"
	"github.com/layer-3/gatekeeper/ports"
	"github.com/layer-3/gatekeeper/service"
	transport "github.com/layer-3/gatekeeper/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, log); err != nil {
		log.Error("gatekeeper stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.UsesDevSigningKey() {
		log.Warn("using the built-in development signing key, set JWT_SIGNING_KEY in production")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var redisClient *redis.Client
	if cfg.Store.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}

	var (
		revocations ports.RevocationStore
		challenges  ports.ChallengeStore
	)
	if cfg.Store.Backend == "redis" {
		revocations = store.NewRedisStore(redisClient)
		challenges = store.NewRedisChallengeStore(redisClient)
	} else {
		memRevocations := store.NewMemoryStore()
		memChallenges := store.NewMemoryChallengeStore()
		m.TrackStoreSize("revocations", memRevocations.Len)
		m.TrackStoreSize("challenges", memChallenges.Len)
		revocations, challenges = memRevocations, memChallenges
	}

	users, closeUsers, err := openDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeUsers()

	if err := seedAdmin(ctx, cfg, users, log); err != nil {
		return err
	}

	publisher, subscriber, err := newPubSub(redisClient, watermill.NewSlogLogger(log))
	if err != nil {
		return err
	}
	defer publisher.Close()

	captchaService := service.NewCaptchaService(
		challenges,
		captcha.NewImageRenderer(cfg.Captcha.Width, cfg.Captcha.Height),
		log,
		service.WithCaptchaTTL(cfg.Captcha.TTL.Duration),
		service.WithCaptchaLength(cfg.Captcha.Length),
		service.WithCaptchaMetrics(m),
	)
	credentials, err := service.NewCredentialVerifier(users, cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens := service.NewTokenService(
		tokenizer.NewJWTTokenizer([]byte(cfg.Token.SigningKey), tokenizer.WithIssuer(cfg.Token.Issuer)),
		revocations,
		log,
		service.WithTokenTTL(cfg.Token.TTL.Duration),
		service.WithTokenMetrics(m),
	)
	authService := service.NewAuthService(captchaService, credentials, tokens, users, events.NewWatermillPublisher(publisher), log, m)
	userService := service.NewUserService(users, cfg.BcryptCost, log)
	guard := service.NewGuard(tokens, log)

	handlers := transport.NewHandlers(authService, captchaService, userService, reg, log)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           transport.SetupRouter(handlers, guard, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweeper := service.NewSweeper(cfg.Store.SweepInterval.Duration, log, m, revocations, challenges)
	log.Info("sweeper configured", "stores", sweeper.Len(), "interval", cfg.Store.SweepInterval.Duration)
	consumer := events.NewRevocationConsumer(subscriber, revocations, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("gatekeeper listening", "addr", cfg.Addr, "store", cfg.Store.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		return consumer.Run(gctx)
	})

	return g.Wait()
}

// openDirectory returns the postgres directory when a database is configured and an
// in-memory one otherwise
func openDirectory(ctx context.Context, cfg *config.Config) (ports.UserDirectory, func(), error) {
	if cfg.DatabaseURL == "" {
		return directory.NewMemoryDirectory(), func() {}, nil
	}

	pg, err := directory.NewPostgresDirectory(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

// seedAdmin creates the configured admin account unless it already exists
func seedAdmin(ctx context.Context, cfg *config.Config, users ports.UserDirectory, log *slog.Logger) error {
	if cfg.Admin.Username == "" {
		return nil
	}

	_, err := users.FindByUsername(ctx, cfg.Admin.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	_, err = service.NewUserService(users, cfg.BcryptCost, log).Register(ctx, core.Identity{}, core.NewUser{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
		Roles:    []string{"admin"},
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	return nil
}

// newPubSub carries logout events over redis streams when redis is configured, so every
// instance sees every logout. Without redis a single process uses an in-memory channel.
func newPubSub(client *redis.Client, wlog watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	if client == nil {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wlog)
		return pubSub, pubSub, nil
	}

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wlog)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}
	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{Client: client}, wlog)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis subscriber: %w", err)
	}
	return publisher, subscriber, nil
}
