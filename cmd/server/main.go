package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/wildlands/internal/api"
	"github.com/annel0/wildlands/internal/auth"
	"github.com/annel0/wildlands/internal/cache"
	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/engine"
	"github.com/annel0/wildlands/internal/eventbus"
	"github.com/annel0/wildlands/internal/logging"
	"github.com/annel0/wildlands/internal/middleware"
	"github.com/annel0/wildlands/internal/network"
	"github.com/annel0/wildlands/internal/observability"
	"github.com/annel0/wildlands/internal/persistence"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/storage"
	"github.com/annel0/wildlands/internal/world"
	"github.com/prometheus/client_golang/prometheus"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $GAME_CONFIG)")
	flag.Parse()

	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(*configPath); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, missing, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("конфигурация: %w", err)
	}
	logging.GetLoggerManager().Configure(logging.ParseLevel(cfg.LogLevel), cfg.LogFiles)
	defer logging.GetLoggerManager().CloseAll()
	if missing {
		logging.Warn("Файл конфигурации не найден, используются встроенные значения")
	}
	logging.Info("🎮 Запуск Wildlands %s (tick=%dHz, chunk=%.0f, view=%d)",
		version, cfg.Simulation.TickRateHz, cfg.Simulation.ChunkSize, cfg.Simulation.ViewRadius)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := observability.Init(ctx, cfg.Telemetry.ServiceName, version)
		if err != nil {
			logging.Warn("OpenTelemetry недоступен, трассировка выключена: %v", err)
		} else {
			defer func() { _ = shutdownTelemetry(context.Background()) }()
		}
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("каталог: %w", err)
	}

	// === ХРАНИЛИЩЕ ===
	players, err := openPlayerRepo(cfg)
	if err != nil {
		return fmt.Errorf("хранилище игроков: %w", err)
	}
	defer players.Close()

	chunks, err := openChunkStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("хранилище чанков: %w", err)
	}
	if chunks != nil {
		defer chunks.Close()
	}

	bridge := persistence.NewBridge(players, chunks, cfg.Storage, cfg.Simulation.CommandQueueSize)
	bridge.Start()

	// === СОБЫТИЯ ===
	bus, err := openEventBus(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("шина событий: %w", err)
	}
	defer bus.Close()
	if err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("LoggingListener не подписан: %v", err)
	}
	publisher := eventbus.NewAsyncPublisher(bus, cfg.Telemetry.ServiceName, cfg.EventBus.Buffer)

	// === ДВИЖОК ===
	w := world.New(cfg, cat, world.NewPerlinBiomes(cfg.Simulation.WorldSeed, cat))
	eng := engine.New(cfg, w, bridge, publisher)
	bridge.OnRetry = func(error) {
		eng.Metrics().PersistenceFailures.WithLabelValues("retry").Inc()
	}

	// все метрики в одном регистре движка
	reg := eng.Metrics().Registry()
	exporter := eventbus.NewMetricsExporter(publisher, reg)
	exporter.Start(time.Second)

	// === СЕТЬ ===
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		logging.Warn("auth.jwt_secret не задан: токены не переживут перезапуск")
	}
	claims := auth.NewClaimService(players, tokens, cfg.Auth.ClaimsPerMin, cfg.Auth.ClaimBurst, cfg.Auth.AllowPassword)
	gateway := network.NewGateway(tokens, eng, cfg.Session, network.NewMetrics(reg))

	rest := api.NewRestServer(api.Config{
		Port:           cfg.Server.HTTPPort,
		Claims:         claims,
		Stats:          eng,
		WebSocket:      gateway,
		Registerer:     reg,
		Gatherers:      []prometheus.Gatherer{reg},
		StaticDir:      cfg.Server.StaticDir,
		AllowedOrigins: cfg.Session.AllowedOrigins,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServeMetrics:   cfg.Server.MetricsPort == 0,
	})

	var metricsSrv *http.Server
	if cfg.Server.MetricsPort != 0 {
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			Handler:           middleware.MetricsHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logging.Info("📈 Prometheus /metrics на порту %d", cfg.Server.MetricsPort)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Ошибка сервера метрик: %v", err)
			}
		}()
	}

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		eng.Run(ctx)
	}()

	restErr := make(chan error, 1)
	go func() { restErr <- rest.Start() }()

	logging.Info("✅ Сервер запущен: http://localhost:%d (protocol %s)", cfg.Server.HTTPPort, protocol.Version)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case err := <-restErr:
		runErr = fmt.Errorf("http: %w", err)
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, stop := context.WithTimeout(context.Background(), 20*time.Second)
	defer stop()

	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки HTTP: %v", err)
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	cancel()
	<-engineDone
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logging.Error("Не все данные сохранены при остановке: %v", err)
	}
	gateway.CloseAll("server shutdown")

	if err := bridge.Close(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки моста хранилища: %v", err)
	}
	publisher.Close()
	exporter.Stop()

	logging.Info("👋 Сервер успешно остановлен")
	return runErr
}

func openPlayerRepo(cfg *config.Config) (storage.PlayerRepo, error) {
	var (
		repo storage.PlayerRepo
		err  error
	)
	switch cfg.Storage.Driver {
	case "mariadb":
		repo, err = storage.NewMariaPlayerRepo(cfg.Storage.MariaDSN, cfg.Storage.MaxOpenConns)
	case "mongo":
		repo, err = storage.NewMongoPlayerRepo(storage.MongoConfig{
			URI:        cfg.Storage.MongoURI,
			Database:   cfg.Storage.MongoDatabase,
			Collection: "players",
			MaxPool:    uint64(max(cfg.Storage.MaxOpenConns, 1)),
		})
	default:
		logging.Warn("storage.driver=memory: игроки не переживут перезапуск")
		repo = storage.NewMemoryPlayerRepo()
	}
	if err != nil {
		return nil, err
	}
	logging.Info("💾 Хранилище игроков: %s", cfg.Storage.Driver)

	if !cfg.Cache.Enabled {
		return repo, nil
	}
	rc, err := cache.NewRedisCache(cache.Config{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		MaxTTL:   cfg.Cache.TTL,
	})
	if err != nil {
		// кеш необязателен: работаем напрямую с хранилищем
		logging.Warn("Redis недоступен (%v), кеш игроков выключен", err)
		return repo, nil
	}
	logging.Info("⚡ Redis-кеш игроков: %s", cfg.Cache.RedisAddr)
	return storage.NewCachedPlayerRepo(repo, rc, cfg.Cache.TTL), nil
}

func openChunkStore(cfg config.StorageConfig) (storage.ChunkStore, error) {
	switch cfg.ChunkDriver {
	case "badger":
		return storage.NewBadgerChunkStore(cfg.ChunkPath)
	case "none":
		return nil, nil
	default:
		return storage.NewMemoryChunkStore(), nil
	}
}

func openEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.Driver == "jetstream" {
		bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
		if err != nil {
			return nil, err
		}
		logging.Info("📨 События публикуются в NATS JetStream %s (stream %s)", cfg.URL, cfg.Stream)
		return bus, nil
	}
	return eventbus.NewMemoryBus(cfg.Buffer), nil
}
