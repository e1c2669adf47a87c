package main // Entry point package

import (
    "context"
    "errors"
    "net/http"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/bookable/internal/clock"
    "github.com/iliyamo/bookable/internal/config"
    "github.com/iliyamo/bookable/internal/database"
    "github.com/iliyamo/bookable/internal/handler"
    "github.com/iliyamo/bookable/internal/logging"
    "github.com/iliyamo/bookable/internal/middleware"
    "github.com/iliyamo/bookable/internal/queue"
    "github.com/iliyamo/bookable/internal/repository"
    "github.com/iliyamo/bookable/internal/router"
    "github.com/iliyamo/bookable/internal/sequence"
    "github.com/iliyamo/bookable/internal/service"
    "github.com/iliyamo/bookable/internal/tracing"
)

func main() {
    _ = godotenv.Load() // .env is optional; real env vars win
    cfg := config.Load()
    logging.Init(cfg.LogLevel, cfg.LogFormat)

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    if err := run(ctx, cfg); err != nil {
        logrus.WithError(err).Fatal("server stopped")
    }
}

func run(ctx context.Context, cfg config.Config) error {
    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        return err
    }
    defer db.Close()
    if cfg.DBMigrate {
        if err := database.Migrate(ctx, db); err != nil {
            return err
        }
    }

    rdb := config.ConnectRedis(ctx, config.LoadRedisConfig()) // nil when Redis is unreachable
    if rdb != nil {
        defer rdb.Close()
    }

    shutdownTracing, err := tracing.Setup(ctx, cfg.OTLPEndpoint, "bookable")
    if err != nil {
        return err
    }
    defer func() {
        sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = shutdownTracing(sctx)
    }()

    var events service.EventPublisher
    if cfg.AMQPURL != "" {
        pub := queue.NewPublisher(cfg.AMQPURL)
        defer pub.Close()
        events = pub
    }

    var gen sequence.Generator = sequence.NewMySQL(db)
    if cfg.SequenceBackend == "redis" {
        if rdb == nil {
            return errors.New("SEQUENCE_BACKEND=redis but Redis is unavailable")
        }
        gen = sequence.NewRedis(rdb)
    }
    refs := sequence.NewReferencer(gen, cfg.RefPrefix, cfg.RefPadding)

    store := repository.NewStore(db)
    users := repository.NewUserRepo(store)
    tokens := repository.NewTokenRepo(store)
    items := repository.NewItemRepo(store)
    bookings := repository.NewBookingRepo(store)
    paging := service.Paging{Default: cfg.PageSizeDefault, Max: cfg.PageSizeMax}
    clk := clock.NewSystem()
    cache := middleware.NewCatalogCache(config.LoadCacheConfig(), rdb)

    catalog := service.NewCatalogService(store, repository.NewCategoryRepo(store), repository.NewTagRepo(store), items, bookings, clk,
        service.WithCatalogPaging(paging), service.WithDefaultCompany(cfg.CompanyID), service.WithCatalogCache(cache))
    booking := service.NewBookingService(store, items, bookings, refs, events, clk,
        service.WithBookingPaging(paging), service.WithBookingCompany(cfg.CompanyID), service.WithBookingCache(cache))

    if err := handler.EnsureAdmin(ctx, users, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
        return err
    }

    e := echo.New()
    e.HideBanner = true
    e.Use(middleware.RequestLogger())
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    bookingHandler := handler.NewBookingHandler(booking)
    router.RegisterRoutes(e, db, cfg.MetricsEnabled)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
    router.RegisterPublic(e, handler.NewPublicHandler(catalog), cache.Middleware())
    router.RegisterBookings(e, bookingHandler, cfg.JWTSecret)
    router.RegisterAdmin(e, handler.NewAdminHandler(catalog, booking), bookingHandler, cfg.JWTSecret)

    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error {
        addr := ":" + cfg.Port
        logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            return err
        }
        return nil
    })
    g.Go(func() error {
        <-gctx.Done()
        sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        return e.Shutdown(sctx)
    })
    if cfg.AMQPURL != "" {
        bl, err := queue.OpenBookingLog(cfg.BookingLogPath)
        if err != nil {
            return err
        }
        defer bl.Close()
        g.Go(func() error { return queue.NewConsumer(cfg.AMQPURL, bl).Run(gctx) })
    }
    return g.Wait()
}
