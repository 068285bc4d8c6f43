package routes

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/zjoart/go-topup-wallet/internal/auth"
	"github.com/zjoart/go-topup-wallet/internal/cashback"
	"github.com/zjoart/go-topup-wallet/internal/deposit"
	"github.com/zjoart/go-topup-wallet/internal/key"
	"github.com/zjoart/go-topup-wallet/internal/middleware"
	"github.com/zjoart/go-topup-wallet/internal/notification"
	"github.com/zjoart/go-topup-wallet/internal/purchase"
	"github.com/zjoart/go-topup-wallet/internal/user"
	"github.com/zjoart/go-topup-wallet/internal/wallet"
	"github.com/zjoart/go-topup-wallet/pkg/config"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

// Dependencies are the repositories and services the HTTP surface is built on.
type Dependencies struct {
	Users         user.Repository
	Keys          key.Repository
	Wallets       wallet.Repository
	Notifications notification.Repository
	Purchases     *purchase.Service
	Deposits      *deposit.Service
	Accounts      *deposit.AccountService
	Cashback      *cashback.Service
	RetryQueue    deposit.Queue
}

func RegisterRoutes(ctx context.Context, r *mux.Router, cfg config.Config, deps Dependencies) http.Handler {
	keyHandler := key.NewHandler(cfg, deps.Keys)
	walletHandler := wallet.NewHandler(deps.Wallets)
	purchaseHandler := purchase.NewHandler(deps.Purchases)
	depositHandler := deposit.NewHandler(deps.Deposits, deps.Accounts, deps.RetryQueue)
	cashbackHandler := cashback.NewHandler(deps.Cashback)
	notificationHandler := notification.NewHandler(deps.Notifications)

	jwtAuth := auth.JWTMiddleware(cfg.JWTSecret, deps.Users)
	unifiedAuth := auth.UnifiedAuthMiddleware(cfg.JWTSecret, deps.Users, deps.Keys)
	limiter := middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	r.Use(middleware.RequestID)
	r.Use(middleware.LoggingMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// provider callbacks: no auth, signature checked by the handler
	hooksR := r.PathPrefix("/api/webhooks").Subrouter()
	hooksR.Use(limiter.Limit)
	hooksR.HandleFunc("/deposit", depositHandler.Webhook).Methods("POST")

	keysR := r.PathPrefix("/api/keys").Subrouter()
	keysR.Use(jwtAuth)
	keysR.HandleFunc("", keyHandler.ListAPIKeys).Methods("GET")
	keysR.HandleFunc("/create", keyHandler.CreateAPIKey).Methods("POST")
	keysR.HandleFunc("/rollover", keyHandler.RolloverAPIKey).Methods("POST")
	keysR.HandleFunc("/revoke", keyHandler.RevokeAPIKey).Methods("POST")

	accountR := r.PathPrefix("/api/account").Subrouter()
	accountR.Use(jwtAuth)
	accountR.HandleFunc("/virtual-account", depositHandler.VirtualAccount).Methods("POST")

	walletR := r.PathPrefix("/api/wallet").Subrouter()

	createR := walletR.PathPrefix("/create").Subrouter()
	createR.Use(jwtAuth)
	createR.HandleFunc("", walletHandler.CreateWallet).Methods("POST")

	readR := walletR.PathPrefix("").Subrouter()
	readR.Use(unifiedAuth, auth.RequirePermission(key.PermissionRead))
	readR.HandleFunc("", walletHandler.GetWallet).Methods("GET")
	readR.HandleFunc("/transactions", walletHandler.GetTransactions).Methods("GET")
	readR.HandleFunc("/cashback/transactions", walletHandler.GetCashbackTransactions).Methods("GET")

	purchaseR := r.PathPrefix("/api/purchase").Subrouter()
	purchaseR.Use(unifiedAuth)

	validateR := purchaseR.PathPrefix("/validate").Subrouter()
	validateR.Use(auth.RequirePermission(key.PermissionRead))
	validateR.HandleFunc("/cable", purchaseHandler.ValidateSmartCard).Methods("GET")
	validateR.HandleFunc("/electricity", purchaseHandler.ValidateMeter).Methods("GET")

	buyR := purchaseR.PathPrefix("").Subrouter()
	buyR.Use(auth.RequirePermission(key.PermissionPurchase), limiter.Limit)
	buyR.HandleFunc("/{service}", purchaseHandler.Purchase).Methods("POST")

	cashbackR := r.PathPrefix("/api/cashback").Subrouter()
	cashbackR.Use(unifiedAuth, auth.RequirePermission(key.PermissionWithdraw), limiter.Limit)
	cashbackR.HandleFunc("/withdraw", cashbackHandler.Withdraw).Methods("POST")

	notifR := r.PathPrefix("/api/notifications").Subrouter()
	notifR.Use(unifiedAuth, auth.RequirePermission(key.PermissionRead))
	notifR.HandleFunc("", notificationHandler.List).Methods("GET")
	notifR.HandleFunc("/{id}/read", notificationHandler.MarkRead).Methods("POST")

	if cfg.Env != "production" {
		r.HandleFunc("/swagger.yaml", func(w http.ResponseWriter, r *http.Request) {
			content, err := os.ReadFile("docs/swagger.yaml")
			if err != nil {
				logger.Error("Failed to read swagger.yaml", logger.WithError(err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			modifiedContent := strings.ReplaceAll(string(content), "{{BASE_URL}}", "/")
			modifiedContent = strings.ReplaceAll(modifiedContent, "{{MIN_CASHBACK_WITHDRAWAL}}", cfg.MinCashbackWithdrawal.StringFixed(2))

			w.Header().Set("Content-Type", "application/yaml")
			w.Write([]byte(modifiedContent))
		})

		r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
			httpSwagger.URL("/swagger.yaml"),
		))
		logger.Info("Swagger documentation enabled at /swagger/index.html")
	}

	corsObj := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", auth.APIKeyHeader, middleware.RequestIDHeader}),
	)

	return corsObj(r)
}
