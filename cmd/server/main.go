package main // Entry point package

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/logging"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/realtime"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/router"
	"github.com/iliyamo/table-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment may be set already
	cfg := config.Load()
	slog.SetDefault(logging.New(os.Stdout, config.LoadLogConfig()))

	if err := run(cfg); err != nil {
		slog.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(config.LoadDBConfig(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}
	if err := database.Seed(ctx, db, cfg.SeedFile, cfg.BcryptCost); err != nil {
		return err
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}

	// background workers outlive the signal context so the dispatcher can
	// drain after the HTTP server has stopped
	bg, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	var workers sync.WaitGroup

	evCfg := config.LoadEventsConfig()
	hub := realtime.NewHub()
	pubs, closers := publishers(evCfg, hub)
	dispatcher := queue.NewDispatcher(evCfg, pubs...)
	dispatcher.Start(bg)

	if evCfg.NotifyConsumer && evCfg.SinkEnabled("amqp") {
		consumer := queue.NewNotificationConsumer(evCfg.AMQPURL, evCfg.AMQPQueue, evCfg.NotifyLogDir)
		workers.Add(1)
		go func() {
			defer workers.Done()
			_ = consumer.Run(bg)
		}()
	}
	if evCfg.KafkaConsume && len(evCfg.KafkaBrokers) > 0 {
		consumer := queue.NewKafkaConsumer(evCfg.KafkaBrokers, evCfg.KafkaGroupID, evCfg.KafkaTopic)
		workers.Add(1)
		go func() {
			defer workers.Done()
			_ = consumer.Consume(bg, hub.Publish)
		}()
	}

	store := repository.NewStore(db)
	booking := config.LoadBookingConfig()
	manager := service.NewManager(store.Repositories(), store, dispatcher, booking)
	grid := service.NewGridBuilder(store.Repositories(), booking)

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	limit := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)

	auth := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db))
	public := handler.NewPublicHandler(store.Locations, store.Tables, grid, manager)
	staff := handler.NewStaffHandler(manager)
	admin := handler.NewAdminHandler(store.Locations, store.Tables, cache)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover(), echomw.RequestID(), requestLogger())
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterPublic(e, public, cache.Middleware(), limit)
	router.RegisterStaff(e, staff, handler.NewBoardHandler(hub), cfg.JWTSecret)
	router.RegisterAdmin(e, admin, staff, auth, cfg.JWTSecret)

	serveErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		slog.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := e.Shutdown(shutdownCtx); serr != nil {
		slog.Warn("http shutdown", slog.Any("err", serr))
	}

	cancelBg()
	dispatcher.Close()
	workers.Wait()
	for _, c := range closers {
		if cerr := c.Close(); cerr != nil {
			slog.Warn("close publisher", slog.Any("err", cerr))
		}
	}
	return err
}

// publishers builds the configured event sinks. With KAFKA_CONSUME on, the
// hub is fed from the topic instead so each instance's board sees every
// instance's events exactly once.
func publishers(cfg config.EventsConfig, hub *realtime.Hub) ([]queue.Publisher, []io.Closer) {
	var (
		pubs    []queue.Publisher
		closers []io.Closer
	)
	if cfg.SinkEnabled("amqp") {
		pubs = append(pubs, queue.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue))
	}
	if cfg.SinkEnabled("kafka") && len(cfg.KafkaBrokers) > 0 {
		kp := queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		pubs = append(pubs, kp)
		closers = append(closers, kp)
	}
	if cfg.SinkEnabled("ws") && !cfg.KafkaConsume {
		pubs = append(pubs, hub)
	}
	names := make([]string, len(pubs))
	for i, p := range pubs {
		names[i] = p.Name()
	}
	slog.Info("event sinks", slog.Any("publishers", names), slog.Bool("kafka_consume", cfg.KafkaConsume))
	return pubs, closers
}

func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.Any("err", v.Error))
			}
			slog.LogAttrs(c.Request().Context(), level, "http request", attrs...)
			return nil
		},
	})
}
