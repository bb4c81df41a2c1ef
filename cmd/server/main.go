package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/warnet-bowar/internal/config"
	"github.com/iliyamo/warnet-bowar/internal/database"
	"github.com/iliyamo/warnet-bowar/internal/handler"
	"github.com/iliyamo/warnet-bowar/internal/logger"
	"github.com/iliyamo/warnet-bowar/internal/middleware"
	"github.com/iliyamo/warnet-bowar/internal/queue"
	"github.com/iliyamo/warnet-bowar/internal/repository"
	"github.com/iliyamo/warnet-bowar/internal/router"
	"github.com/iliyamo/warnet-bowar/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()
	decimal.MarshalJSONWithoutQuotes = true

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		zl.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		zl.Fatal("ensure schema", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		zl.Warn("redis unavailable; response cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher
	if cfg.EventsEnabled {
		pub, err := queue.NewPublisher(cfg.RabbitURL, zl.Named("publisher"))
		if err != nil {
			zl.Warn("event publisher disabled", zap.Error(err))
		} else {
			defer pub.Close()
			events = pub
		}
		consumer := &queue.ActivityConsumer{
			URL:     cfg.RabbitURL,
			LogPath: filepath.Join("logs", "activity.log"),
			Log:     zl.Named("activity"),
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("activity consumer stopped", zap.Error(err))
			}
		}()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	warnets := repository.NewWarnetRepo(db)
	pcs := repository.NewPCRepo(db)
	bookings := repository.NewBookingRepo(db)
	wallets := repository.NewWalletRepo(db)
	ledger := repository.NewTransactionRepo(db)
	chats := repository.NewChatRepo(db)
	tx := service.DBTransactor{DB: db}

	bookingSvc := service.NewBookingService(service.BookingDeps{
		Tx: tx, Bookings: bookings, Wallets: wallets, Ledger: ledger, PCs: pcs,
		Warnets: warnets, Users: users, Publisher: events, Log: zl.Named("booking"),
		CancelWindow: cfg.CancelWindow,
	})
	walletSvc := service.NewWalletService(service.WalletDeps{
		Tx: tx, Wallets: wallets, Ledger: ledger, Bookings: bookings,
		Warnets: warnets, Users: users, Publisher: events, Log: zl.Named("wallet"),
	})

	base := handler.Base{Log: zl, Debug: cfg.IsDevelopment()}
	uploads := handler.Uploads{Dir: cfg.UploadDir, MaxBytes: cfg.MaxUploadBytes()}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler(zl, cfg.IsDevelopment())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(zl))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	// Multipart overhead on top of the largest allowed proof image.
	e.Use(echomw.BodyLimit(strconv.FormatInt(cfg.MaxUploadBytes()>>20+1, 10) + "M"))
	e.Static("/uploads", cfg.UploadDir)

	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(base, cfg, users, tokens),
		Warnets:  handler.NewWarnetHandler(base, service.NewWarnetService(warnets, pcs)),
		Bookings: handler.NewBookingHandler(base, bookingSvc, uploads),
		Bowar:    handler.NewBowarHandler(base, walletSvc, uploads),
		Chat:     handler.NewChatHandler(base, service.NewChatService(chats, warnets, users)),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Log:       zl.Named("ratelimit"),
		DB:        db,
	})

	go func() {
		zl.Info("listening", zap.String("addr", ":"+cfg.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}
