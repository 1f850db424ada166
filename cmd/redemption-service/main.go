package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"

	"github.com/pribylovaa/go-loyalty-redemption/internal/auth"
	"github.com/pribylovaa/go-loyalty-redemption/internal/config"
	"github.com/pribylovaa/go-loyalty-redemption/internal/events"
	"github.com/pribylovaa/go-loyalty-redemption/internal/interceptors"
	"github.com/pribylovaa/go-loyalty-redemption/internal/ratelimit"
	"github.com/pribylovaa/go-loyalty-redemption/internal/service"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage/memory"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage/postgres"
	redemptiongrpc "github.com/pribylovaa/go-loyalty-redemption/internal/transport/grpc"
	redemptionhttp "github.com/pribylovaa/go-loyalty-redemption/internal/transport/http"

	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

var errNotReady = errors.New("not ready")

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	str, pingStorage, err := openStorage(rootCtx, cfg)
	if err != nil {
		log.Error("storage_open_failed", slog.String("driver", cfg.Storage.Driver), slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	log.Info("storage_opened", slog.String("driver", cfg.Storage.Driver))

	srvc := service.New(str, cfg.Redemption)

	var closers []func()
	checks := []func(context.Context) error{pingStorage}

	// Счётчики лимитов: по умолчанию в хранилище, опционально в Redis.
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		rc, err := ratelimit.NewRedisCounter(cfg.Redis.RedisURL, cfg.Redis.Prefix)
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			rootCancel()
			str.Close()
			os.Exit(1)
		}
		srvc.SetLimiter(ratelimit.New(rc))
		checks = append(checks, rc.Ping)
		closers = append(closers, func() { _ = rc.Close() })
		log.Info("redis_connected")
	}

	// Доменные события: Kafka, если заданы брокеры.
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		srvc.SetPublisher(pub)
		closers = append(closers, func() { _ = pub.Close() })
		log.Info("kafka_publisher_enabled", slog.String("topic", cfg.Kafka.Topic))
	}
	log.Info("service_initialized")

	var ready int32 // 0 — not ready; 1 — ready
	readiness := func(ctx context.Context) error {
		if atomic.LoadInt32(&ready) == 0 {
			return errNotReady
		}
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	verifier := auth.NewVerifier(cfg.Auth)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr: httpAddr,
		Handler: redemptionhttp.NewRouter(srvc, redemptionhttp.Options{
			Logger:   log,
			Timeout:  cfg.Timeouts.Service,
			Verifier: verifier,
			Ready:    readiness,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http_listen_start", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}()

	grpc_prometheus.EnableHandlingTimeHistogram()

	// gRPC-сервер и интерсепторы.
	grpcOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(log),
			interceptors.UnaryLoggingInterceptor(log),
			interceptors.Authenticate(verifier),
			interceptors.WithTimeout(cfg.Timeouts.Service),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			grpc_prometheus.StreamServerInterceptor,
		),
	}
	grpcServer := grpc.NewServer(grpcOpts...)

	// Health-check сервис.
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	redemptiongrpc.RegisterRedemptionServiceServer(grpcServer, redemptiongrpc.NewRedemptionServer(srvc))

	// Рефлексия — только в local/dev.
	if cfg.Env == envLocal || cfg.Env == envDev {
		reflection.Register(grpcServer)
	}

	// Фоновая очистка просроченных непогашенных токенов.
	startTokenJanitor(rootCtx, srvc, log, cfg.Janitor.Period, cfg.Janitor.Retention)

	addr := cfg.GRPC.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("grpc_listen_failed",
			slog.String("addr", addr),
			slog.String("err", err.Error()),
		)
		rootCancel()
		closeAll(closers)
		str.Close()
		os.Exit(1)
	}
	log.Info("grpc_listen_start", slog.String("addr", addr))

	grpc_prometheus.Register(grpcServer)

	// Сервис готов: health -> SERVING и readiness=1
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(redemptiongrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	atomic.StoreInt32(&ready, 1)

	serveErrCh := make(chan error, 1)
	go func() {
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("grpc_serve_failed", slog.String("err", err.Error()))
		}
	}

	// Переводим в NOT_SERVING и снимаем ready.
	hs.Shutdown()
	atomic.StoreInt32(&ready, 0)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc_stopped")
	case <-shutdownCtx.Done():
		log.Warn("grpc_force_stop")
		grpcServer.Stop()
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", slog.String("err", err.Error()))
	}

	// Явная очистка перед выходом.
	shutdownCancel()
	rootCancel()
	closeAll(closers)
	str.Close()

	log.Info("service_stopped")
	os.Exit(0)
}

// openStorage открывает хранилище по storage.driver и возвращает проверку готовности.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, func(context.Context) error, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		return memory.New(), nil, nil
	default:
		dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
		defer dbCancel()

		pg, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		return pg, pg.Ping, nil
	}
}

func closeAll(closers []func()) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// startTokenJanitor периодически удаляет непогашенные токены, истёкшие раньше
// чем retention назад. Погашенные токены остаются: на них ссылается журнал.
func startTokenJanitor(ctx context.Context, svc *service.Service, log *slog.Logger, period, retention time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := svc.PurgeExpiredTokens(ctx, retention); err != nil {
					log.Error("token_janitor_failed", slog.String("err", err.Error()))
				}
			}
		}
	}()
}
