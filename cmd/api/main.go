package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"investa/internal/account"
	"investa/internal/handler"
	"investa/internal/investment"
	"investa/internal/ledger"
	"investa/internal/lifecycle"
	"investa/internal/middleware"
	"investa/internal/notification"
	"investa/internal/referral"
	"investa/internal/repository/postgres"
	"investa/internal/settings"
	"investa/pkg/cache"
	"investa/pkg/config"
	"investa/pkg/logger"
	"investa/pkg/validator"
)

func main() {
	cfg := config.Load()
	log := logger.New("investa-api")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting API", map[string]interface{}{"port": cfg.Server.Port})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	// Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Redis connected", nil)

	// Repositories
	accountRepo := postgres.NewAccountRepository(db)
	txRepo := postgres.NewTransactionRepository(db)
	investmentRepo := postgres.NewInvestmentRepository(db)
	referralRepo := postgres.NewReferralRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)
	bankCardRepo := postgres.NewBankCardRepository(db)
	txManager := postgres.NewTxManager(db, log)

	// Services
	ledgerService := ledger.NewService(accountRepo, log)
	settingsService := settings.NewService(settingsRepo, cache.NewFromClient(redisClient), cfg.Platform.SettingsCacheTTL, log)
	referralEngine := referral.NewEngine(accountRepo, referralRepo, txRepo, log)
	investmentService := investment.NewService(ledgerService, investmentRepo, txRepo, catalogRepo, txManager, log)
	notifier := notification.NewService(log)
	lifecycleService := lifecycle.NewService(
		ledgerService, txRepo, bankCardRepo, catalogRepo,
		settingsService, referralEngine, notifier, txManager,
		cfg.Platform.BaseCurrency, log,
	)
	accountService := account.NewService(accountRepo, bankCardRepo, cfg.JWT.Secret, cfg.JWT.Expiration, log)

	// Handlers
	val := validator.New()
	accountHandler := handler.NewAccountHandler(accountService, ledgerService, referralEngine, val, log)
	investmentHandler := handler.NewInvestmentHandler(investmentService, val, log)
	transactionHandler := handler.NewTransactionHandler(lifecycleService, val, log)
	adminHandler := handler.NewAdminHandler(lifecycleService, settingsService, accountService, val, log)

	// Router
	r := mux.NewRouter()

	logMW := middleware.NewLoggingMiddleware(log)
	r.Use(logMW.Recover)
	r.Use(middleware.CorrelationID)
	r.Use(logMW.Log)
	r.Use(middleware.NewRateLimiter(redisClient, 150, time.Minute).Limit)

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Health check routes (no auth)
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ready", readyCheck(db)).Methods("GET")

	// Account opening is the only unauthenticated business route.
	r.HandleFunc("/api/v1/accounts", accountHandler.OpenAccount).Methods("POST")

	// Protected routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	api.Use(middleware.NewRateLimiter(redisClient, 60, time.Minute).Limit)

	api.HandleFunc("/accounts/me/balances", accountHandler.GetBalances).Methods("GET")
	api.HandleFunc("/accounts/me/team", accountHandler.GetTeamStats).Methods("GET")
	api.HandleFunc("/accounts/me/password", accountHandler.ChangeTransactionPassword).Methods("PUT")
	api.HandleFunc("/cards", accountHandler.BindCard).Methods("POST")
	api.HandleFunc("/cards", accountHandler.GetCards).Methods("GET")

	api.HandleFunc("/packages", investmentHandler.ListPackages).Methods("GET")
	api.HandleFunc("/plans", investmentHandler.ListPlans).Methods("GET")
	api.HandleFunc("/investments/vip", investmentHandler.CreateVIP).Methods("POST")
	api.HandleFunc("/investments/staking", investmentHandler.CreateStaking).Methods("POST")
	api.HandleFunc("/investments/staking/{id}/redeem", investmentHandler.RedeemStaking).Methods("POST")
	api.HandleFunc("/investments/vip/{id}", investmentHandler.CloseVIP).Methods("DELETE")
	api.HandleFunc("/investments", investmentHandler.ListInvestments).Methods("GET")

	api.HandleFunc("/payment-methods", transactionHandler.ListPaymentMethods).Methods("GET")
	api.HandleFunc("/deposits", transactionHandler.SubmitDeposit).Methods("POST")
	api.HandleFunc("/withdrawals", transactionHandler.SubmitWithdrawal).Methods("POST")
	api.HandleFunc("/transactions", transactionHandler.GetTransactions).Methods("GET")
	api.HandleFunc("/transactions/{id}", transactionHandler.GetTransaction).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMW.RequireAdmin)
	admin.HandleFunc("/transactions/pending", adminHandler.GetPendingTransactions).Methods("GET")
	admin.HandleFunc("/transactions/{id}/review", adminHandler.ReviewTransaction).Methods("POST")
	admin.HandleFunc("/deposits/{id}", adminHandler.GetDepositDetail).Methods("GET")
	admin.HandleFunc("/accounts", adminHandler.ListAccounts).Methods("GET")
	admin.HandleFunc("/settings", adminHandler.GetSettings).Methods("GET")
	admin.HandleFunc("/settings", adminHandler.UpdateSettings).Methods("PUT")
	admin.HandleFunc("/accounts/{id}/status", adminHandler.UpdateAccountStatus).Methods("PUT")

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("API started", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Stopped gracefully", nil)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	_ = r
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"investa","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func readyCheck(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r
		if err := db.Ping(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not ready","reason":"database unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready","service":"investa"}`))
	}
}
