package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/username/reusemarket/backend/src/config"
	"github.com/username/reusemarket/backend/src/database"
	"github.com/username/reusemarket/backend/src/handlers"
	"github.com/username/reusemarket/backend/src/ledger"
	"github.com/username/reusemarket/backend/src/logger"
	"github.com/username/reusemarket/backend/src/services"
	"github.com/username/reusemarket/backend/src/store"
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
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("ReuseMarket backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Connecting to ledger...", "rpc", config.Cfg.RPCURL, "contract", config.Cfg.MarketplaceAddress)
	ledgerCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ledgerClient, err := ledger.NewClient(ledgerCtx, config.Cfg)
	cancel()
	if err != nil {
		logger.L.Error("Failed to connect to ledger", "error", err)
		stdlog.Fatalf("Failed to connect to ledger: %v", err)
	}
	logger.L.Info("Ledger connection established.", "signer", ledgerClient.SignerAddress().Hex())

	logger.L.Info("Initializing services and handlers...")
	itemStore := store.NewItemStore(database.DB)

	emissionsService := services.NewEmissionsService(config.Cfg.EmissionsServiceURL, config.Cfg.EmissionsCacheTTL)
	rewardsService := services.NewRewardsService()
	listingService := services.NewListingService(itemStore, ledgerClient, emissionsService,
		config.Cfg.Confirmations, config.Cfg.ReceiptWaitTimeout)
	purchaseService := services.NewPurchaseService(itemStore, ledgerClient, rewardsService,
		config.Cfg.ReceiptWaitTimeout)
	impactService := services.NewImpactService(itemStore)

	itemHandler := handlers.NewItemHandler(listingService, purchaseService, emissionsService, itemStore)
	impactHandler := handlers.NewImpactHandler(impactService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	withAddress := func(handler http.HandlerFunc) http.Handler {
		return handlers.ValidateAddressParam(handler)
	}

	apiRouter.HandleFunc("POST /api/items", itemHandler.HandleCreateItem)
	apiRouter.HandleFunc("GET /api/items", itemHandler.HandleGetItems)
	apiRouter.HandleFunc("POST /api/items/calculate-emissions", itemHandler.HandleCalculateEmissions)
	apiRouter.HandleFunc("GET /api/items/{tokenId}", itemHandler.HandleGetItem)
	apiRouter.HandleFunc("DELETE /api/items/{tokenId}", itemHandler.HandleDeactivateItem)
	apiRouter.HandleFunc("POST /api/items/{tokenId}/buy", itemHandler.HandlePrepareBuy)
	apiRouter.HandleFunc("POST /api/items/{tokenId}/execute-buy", itemHandler.HandleExecuteBuy)
	apiRouter.Handle("GET /api/items/seller/{address}", withAddress(itemHandler.HandleGetItemsBySeller))
	apiRouter.Handle("GET /api/purchases/buyer/{address}", withAddress(itemHandler.HandleGetPurchasesByBuyer))

	apiRouter.HandleFunc("GET /api/impact/community", impactHandler.HandleCommunityImpact)
	apiRouter.HandleFunc("GET /api/impact/leaderboard", impactHandler.HandleLeaderboard)
	apiRouter.Handle("GET /api/impact/user/{address}", withAddress(impactHandler.HandleUserImpact))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "ReuseMarket Backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	// Listing requests block on ledger confirmation, so the write
	// timeout must outlive the receipt wait.
	writeTimeout := config.Cfg.ReceiptWaitTimeout + 30*time.Second

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
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
