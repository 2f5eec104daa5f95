package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"illyrian_project/internal/bot"
	"illyrian_project/internal/config"
	"illyrian_project/internal/db"
	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
	httpServer "illyrian_project/internal/http"
	"illyrian_project/internal/http/handlers"
	"illyrian_project/internal/http/middleware"
	"illyrian_project/internal/logger"
	"illyrian_project/internal/notify"
	"illyrian_project/internal/realtime"
	"illyrian_project/internal/repository"
	"illyrian_project/internal/service"
	"illyrian_project/internal/worker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", "error", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.JSON)
	service.InitJWT(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, audits, pool := openStores(ctx, cfg)
	if pool != nil {
		defer pool.Close()
	}

	checks := map[string]handlers.Pinger{"store": users}

	var bus realtime.Bus = realtime.NewLocalBus()
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		bus = realtime.NewRedisBus(rdb)
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	middleware.InitRedisRateLimiter(rdb)

	notifier, closeNotifier := buildNotifier(cfg.Notify)
	defer closeNotifier()
	dispatcher := notify.NewDispatcher(notifier, cfg.Notify.Timeout, logger.Component("notify"))
	defer dispatcher.Wait()

	audit := service.NewAuditService(audits)
	referrals := service.NewReferralService(users, bus, dispatcher, audit)
	eng := engine.New(users,
		engine.WithPublisher(bus),
		engine.WithDispatcher(dispatcher),
		engine.WithAuditor(audit),
		engine.WithLogger(logger.Component("engine")),
	)
	accounts := service.NewAccountService(users, bus, audit, eng.Clock())
	hub := realtime.NewHub(users, bus, eng, cfg.Timers.Tick)

	sweeper := worker.NewExpirySweeper(users, eng, eng.Clock(), cfg.Timers.Sweep)
	go sweeper.Start(ctx)

	if stats, ok := users.(domain.StatsStore); ok && cfg.Notify.TelegramBotToken != "" && len(cfg.Notify.TelegramAdminIDs) > 0 {
		adminBot, err := bot.NewAdminBot(cfg.Notify.TelegramBotToken, service.NewAdminService(users, stats, eng.Clock()), sweeper, cfg.Notify.TelegramAdminIDs)
		if err != nil {
			logger.Error("admin bot disabled", "error", err)
		} else {
			go func() {
				if err := adminBot.Start(ctx); err != nil {
					logger.Error("admin bot stopped", "error", err)
				}
			}()
		}
	}

	h := handlers.NewHandler(accounts, referrals, eng, hub, cfg.AllowedOrigin)
	health := handlers.NewHealthHandler(version, checks)
	r := httpServer.NewRouter(h, health, cfg.RateLimit, cfg.AllowedOrigin)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Warn("realtime sessions did not close in time", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

func openStores(ctx context.Context, cfg *config.Config) (domain.UserStore, domain.AuditStore, *pgxpool.Pool) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryUserStore(), repository.NewMemoryAuditStore(), nil
	}

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(ctx, cfg.Database.URL); err != nil {
			logger.Fatal("migrations failed", "error", err)
		}
	}
	pool := db.Connect(cfg.Database.URL)
	return repository.NewUserRepository(pool), repository.NewAuditRepository(pool), pool
}

// buildNotifier combines every configured operator sink. It returns nil when
// none is configured. The returned func releases sink connections and must
// run after the dispatcher has drained.
func buildNotifier(cfg config.Notify) (notify.Notifier, func()) {
	var sinks notify.Multi
	closeFn := func() {}
	if cfg.DiscordWebhookURL != "" {
		sinks = append(sinks, notify.NewDiscord(cfg.DiscordWebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramBot(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			logger.Error("telegram notifier disabled", "error", err)
		} else {
			sinks = append(sinks, tg)
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.KafkaBrokers)
		sinks = append(sinks, notify.NewKafka(writer, cfg.KafkaTopic))
		closeFn = func() {
			if err := writer.Close(); err != nil {
				logger.Warn("kafka writer close failed", "error", err)
			}
		}
	}

	if len(sinks) == 0 {
		logger.Warn("no operator notification sink configured")
		return nil, closeFn
	}
	return sinks, closeFn
}
