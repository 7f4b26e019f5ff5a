package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/pkg/config"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := pkgdb.Migrate(db, models.All()...); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	var kafka *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka = events.NewKafkaPublisher(cfg.KafkaBrokers)
		publisher = kafka
	} else {
		logger.Warn("kafka disabled, KAFKA_BROKERS is empty")
	}

	var index search.Index = search.Nop{}
	if cfg.ESURL != "" {
		es, err := search.NewClient(search.ClientConfig{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		index = search.NewESIndex(es, cfg.ESIndex)
	} else {
		logger.Warn("search disabled, ES_URL is empty")
	}

	files := storage.NewLocalStore(cfg.ImageDir)
	r := &repo.GormRepo{DB: db}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Secure())
	e.Use(echomw.CORS())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		DB: db,
		Catalog: &httpserver.CatalogHTTP{
			Svc: &service.CatalogService{Repo: r, Events: publisher, Index: index, Files: files},
		},
		Products: &httpserver.ProductHTTP{
			Svc:   &service.InventoryService{Repo: r, Events: publisher, Index: index, Files: files},
			Index: index,
		},
		Cart: &httpserver.CartHTTP{
			Svc: &service.CartService{Repo: r, Events: publisher},
		},
		Orders: &httpserver.OrderHTTP{
			Svc: &service.OrderService{Repo: r, Events: publisher, Index: index},
		},
		JWTSecret: cfg.JWTAccessSecret,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db close", "error", err)
	}
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			logger.Error("kafka close", "error", err)
		}
	}

	logger.Info("storefront stopped")
}
