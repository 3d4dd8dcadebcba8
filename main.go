package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/username/assetfolio/backend/src/config"
	"github.com/username/assetfolio/backend/src/database"
	"github.com/username/assetfolio/backend/src/handlers"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/security"
	"github.com/username/assetfolio/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, X-Request-ID, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Assetfolio backend server starting...")

	fieldCipher, err := security.NewFieldCipher(config.Cfg.FieldCipherKey)
	if err != nil {
		logger.L.Error("Field cipher initialization failed", "error", err)
		stdlog.Fatalf("field cipher initialization failed: %v", err)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)

	if err := services.LoadFallbackRates(config.Cfg.FallbackRatesPath); err != nil {
		// Tolerable: live quotes still work, there is just no safety net.
		logger.L.Error("Failed to load fallback rates", "error", err)
	}

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()
	quoteService := services.NewQuoteService(config.Cfg.QuoteCacheTTL, config.Cfg.QuoteHTTPTimeout)
	holdingService := services.NewHoldingService(database.DB, fieldCipher, quoteService)

	userHandler := handlers.NewUserHandler(authService, emailService)
	accountHandler := handlers.NewAccountHandler()
	holdingHandler := handlers.NewHoldingHandler(holdingService)
	netWorthHandler := handlers.NewNetWorthHandler(holdingService)
	dividendHandler := handlers.NewDividendHandler(quoteService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)
	apiRouter.HandleFunc("GET /api/auth/verify-email", userHandler.VerifyEmailHandler)

	authActionRouter := http.NewServeMux()
	authActionRouter.HandleFunc("POST /login", userHandler.LoginUserHandler)
	authActionRouter.HandleFunc("POST /register", userHandler.RegisterUserHandler)
	authActionRouter.HandleFunc("POST /refresh", userHandler.RefreshTokenHandler)
	authActionRouter.HandleFunc("POST /logout", userHandler.AuthMiddleware(userHandler.LogoutUserHandler))

	apiRouter.Handle("/api/auth/", http.StripPrefix("/api/auth", handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey)(authActionRouter)))

	csrfProtection := handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey)
	applyCsrfAndAuth := func(handler http.HandlerFunc) http.Handler {
		return csrfProtection(http.HandlerFunc(userHandler.AuthMiddleware(handler)))
	}

	apiRouter.Handle("GET /api/accounts", applyCsrfAndAuth(accountHandler.HandleListAccounts))
	apiRouter.Handle("POST /api/accounts", applyCsrfAndAuth(accountHandler.HandleCreateAccount))
	apiRouter.Handle("DELETE /api/accounts/{id}", applyCsrfAndAuth(accountHandler.HandleDeleteAccount))

	apiRouter.Handle("GET /api/holdings", applyCsrfAndAuth(holdingHandler.HandleListHoldings))
	apiRouter.Handle("PUT /api/holdings", applyCsrfAndAuth(holdingHandler.HandleUpsertHolding))
	apiRouter.Handle("DELETE /api/holdings", applyCsrfAndAuth(holdingHandler.HandleDeleteHolding))
	apiRouter.Handle("POST /api/holdings/reconcile", applyCsrfAndAuth(holdingHandler.HandleReconcileHoldings))

	apiRouter.Handle("GET /api/networth", applyCsrfAndAuth(netWorthHandler.HandleGetNetWorth))

	apiRouter.Handle("GET /api/dividends", applyCsrfAndAuth(dividendHandler.HandleGetDividends))
	apiRouter.Handle("POST /api/dividends", applyCsrfAndAuth(dividendHandler.HandleCreateDividend))
	apiRouter.Handle("GET /api/dividends/summary", applyCsrfAndAuth(dividendHandler.HandleGetDividendSummary))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Assetfolio backend is running"})
		} else if !strings.HasPrefix(r.URL.Path, "/api/") {
			logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(handlers.RequestIDMiddleware(rootMux)))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
