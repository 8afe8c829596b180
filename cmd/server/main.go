package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/movienight/internal/config"
	"github.com/iliyamo/movienight/internal/database"
	"github.com/iliyamo/movienight/internal/handler"
	"github.com/iliyamo/movienight/internal/logging"
	"github.com/iliyamo/movienight/internal/metrics"
	"github.com/iliyamo/movienight/internal/middleware"
	"github.com/iliyamo/movienight/internal/omdb"
	"github.com/iliyamo/movienight/internal/queue"
	"github.com/iliyamo/movienight/internal/repository"
	"github.com/iliyamo/movienight/internal/router"
	"github.com/iliyamo/movienight/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load() // Load environment config
	log := logging.New("movienight", cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(db); err != nil {
			log.WithError(err).Fatal("migrate database")
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig()) // nil when Redis is unreachable
	if rdb == nil {
		log.Warn("redis unavailable: response cache disabled, rate limiting is per-process")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	genres := repository.NewGenreRepo(db)
	movies := repository.NewMovieRepo(db)
	terms := repository.NewSearchTermRepo(db)
	screeningRepo := repository.NewScreeningRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	// Services
	meta := omdb.New(cfg.OMDB, log)
	enricher := service.NewEnricher(genres, movies, meta, log)
	searcher := service.NewSearcher(terms, movies, meta, log)
	catalog := service.NewCatalog(movies, genres, enricher, searcher)

	var events service.EventPublisher
	if cfg.RabbitURL != "" {
		events = queue.NewPublisher(cfg.RabbitURL, log)
		if cfg.ConsumerEnabled {
			go func() {
				if err := queue.StartScreeningConsumer(ctx, cfg.RabbitURL, cfg.ScreeningLogPath, log); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("screening consumer stopped")
				}
			}()
		}
	} else {
		log.Info("RABBITMQ_URL not set: screening events disabled")
	}
	screenings := service.NewScreenings(screeningRepo, movies, events, log)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, log), cfg.JWTSecret)
	cacheCfg := config.LoadCacheConfig()
	catalog.SetCacheInvalidator(middleware.NewCachePurger(cacheCfg, rdb, log))
	router.RegisterCatalog(e,
		handler.NewMovieHandler(catalog, log),
		middleware.NewRedisCache(cacheCfg, rdb, log),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	)
	router.RegisterScreenings(e, handler.NewScreeningHandler(screenings, log), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
