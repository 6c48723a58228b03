package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ArowuTest/rifa-backend/api/routes"
	"github.com/ArowuTest/rifa-backend/internal/clock"
	"github.com/ArowuTest/rifa-backend/internal/config"
	"github.com/ArowuTest/rifa-backend/internal/handlers"
	"github.com/ArowuTest/rifa-backend/internal/repositories"
	"github.com/ArowuTest/rifa-backend/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/rifa-backend/internal/repositories/mongodb"
	mysqlrepo "github.com/ArowuTest/rifa-backend/internal/repositories/mysql"
	"github.com/ArowuTest/rifa-backend/internal/services"
	"github.com/ArowuTest/rifa-backend/internal/ws"
	"github.com/ArowuTest/rifa-backend/pkg/cloudinary"
	"github.com/ArowuTest/rifa-backend/pkg/jwt"
	"github.com/ArowuTest/rifa-backend/pkg/mongodb"
	"github.com/ArowuTest/rifa-backend/pkg/smsgateway"
	"github.com/ArowuTest/rifa-backend/pkg/telegram"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	clk := clock.NewSystem()
	hub := ws.NewHub()
	tokens := jwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn, cfg.JWT.Issuer)

	var gateway smsgateway.Gateway
	switch {
	case cfg.SMS.BaseURL != "" && !cfg.SMS.Mock:
		gateway = smsgateway.NewHTTPGateway(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.Sender)
	case cfg.SMS.Mock:
		gateway = smsgateway.NewMockGateway(cfg.SMS.Sender)
	}

	var admin services.AdminChannel
	if cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
		if err != nil {
			slog.Warn("telegram alerts disabled", "error", err)
		} else {
			admin = bot
			go bot.Listen(ctx)
		}
	}

	authService := services.NewAuthService(store.Users, tokens, clk)
	ledger := services.NewTicketLedger(store.Tx, store.Tickets, clk)
	aggregate := services.NewRaffleAggregate(store.Raffles)
	notificationService := services.NewNotificationService(store.Notifications, store.Users, gateway, admin, clk)
	paymentService := services.NewPaymentService(store, ledger, aggregate, authService, hub, notificationService, clk)
	raffleService := services.NewRaffleService(store, hub, clk, services.DefaultMaxTotalTickets)
	ticketService := services.NewTicketService(store, ledger, aggregate, hub)
	sweeper := services.NewReservationSweeper(store.Tx, ledger, aggregate, hub, notificationService, clk,
		cfg.Reservation.TTL, cfg.Reservation.SweepInterval)

	proofs, uploadsDir, err := openProofStore(cfg)
	if err != nil {
		slog.Error("failed to set up proof storage", "error", err)
		os.Exit(1)
	}

	router := routes.SetupRouter(routes.Dependencies{
		Tokens:         tokens,
		Hub:            hub,
		Auth:           handlers.NewAuthHandler(authService, cfg.Admin.BootstrapToken),
		Raffles:        handlers.NewRaffleHandler(raffleService),
		Tickets:        handlers.NewTicketHandler(ticketService),
		Payments:       handlers.NewPaymentHandler(paymentService, proofs),
		Notifications:  handlers.NewNotificationHandler(notificationService),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		UploadsDir:     uploadsDir,
	})

	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("listen failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	notificationService.Wait()
	slog.Info("server exiting")
}

func setupLogger(level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openStore connects the configured backend and returns its repositories with
// a function that releases the connection.
func openStore(ctx context.Context, cfg *config.Config) (repositories.Store, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		db, err := mysqlrepo.NewDB(mysqlrepo.Options{
			DSN:             cfg.MySQL.DSN,
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		})
		if err != nil {
			return repositories.Store{}, nil, err
		}
		if err := mysqlrepo.AutoMigrate(db); err != nil {
			return repositories.Store{}, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return mysqlrepo.NewStore(db, cfg.Database.TxTimeout), closeFn, nil

	case config.DriverMemory:
		slog.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore().Repositories(), func() {}, nil

	default:
		client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
		if err != nil {
			return repositories.Store{}, nil, err
		}
		db := client.Database(cfg.MongoDB.Database)
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return repositories.Store{}, nil, err
		}
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				slog.Error("error disconnecting from MongoDB", "error", err)
			}
		}
		return mongorepo.NewStore(client.Mongo(), db, cfg.Database.TxTimeout), closeFn, nil
	}
}

// openProofStore uploads to Cloudinary when credentials are present and
// falls back to the local uploads directory, which is then served by the router.
func openProofStore(cfg *config.Config) (handlers.ProofStore, string, error) {
	if cfg.Cloudinary.CloudName != "" {
		cloud, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			return nil, "", err
		}
		return handlers.NewCloudinaryProofStore(cloud, cfg.Cloudinary.Folder), "", nil
	}
	disk, err := handlers.NewDiskProofStore(cfg.Uploads.Dir, "/uploads")
	if err != nil {
		return nil, "", err
	}
	return disk, cfg.Uploads.Dir, nil
}
