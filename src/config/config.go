package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// Ledger settings
	RPCURL                   string
	ChainID                  int64
	MarketplaceAddress       string
	SignerPrivateKey         string
	Confirmations            uint64
	ReceiptWaitTimeout       time.Duration
	ConfirmationPollInterval time.Duration
	GasLimit                 uint64
	GasPriceGwei             int64

	// External emissions scoring service
	EmissionsServiceURL string
	EmissionsCacheTTL   time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	marketplaceAddress := getEnv("MARKETPLACE_ADDRESS", "")
	if marketplaceAddress == "" {
		log.Fatalf("FATAL: MARKETPLACE_ADDRESS is required but not set in environment or .env file.")
	}

	signerPrivateKey := getEnv("SIGNER_PRIVATE_KEY", "")
	if signerPrivateKey == "" {
		log.Fatalf("FATAL: SIGNER_PRIVATE_KEY is required but not set in environment or .env file.")
	}

	receiptWaitTimeout := getEnvAsDuration("RECEIPT_WAIT_TIMEOUT", 30*time.Second)
	confirmationPollInterval := getEnvAsDuration("CONFIRMATION_POLL_INTERVAL", 500*time.Millisecond)
	emissionsCacheTTL := getEnvAsDuration("EMISSIONS_CACHE_TTL", 15*time.Minute)

	chainIDStr := getEnv("CHAIN_ID", "80002")
	chainID, err := strconv.ParseInt(chainIDStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid CHAIN_ID format '%s'. Using default 80002 (Polygon Amoy). Error: %v", chainIDStr, err)
		chainID = 80002
	}

	gasLimitStr := getEnv("GAS_LIMIT", "300000")
	gasLimit, err := strconv.ParseUint(gasLimitStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid GAS_LIMIT format '%s'. Using default 300000. Error: %v", gasLimitStr, err)
		gasLimit = 300000
	}

	gasPriceGweiStr := getEnv("GAS_PRICE_GWEI", "50")
	gasPriceGwei, err := strconv.ParseInt(gasPriceGweiStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid GAS_PRICE_GWEI format '%s'. Using default 50. Error: %v", gasPriceGweiStr, err)
		gasPriceGwei = 50
	}

	confirmationsStr := getEnv("CONFIRMATIONS", "1")
	confirmations, err := strconv.ParseUint(confirmationsStr, 10, 64)
	if err != nil || confirmations == 0 {
		log.Printf("WARNING: Invalid CONFIRMATIONS value '%s'. Using default 1. Error (if any): %v", confirmationsStr, err)
		confirmations = 1
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./reusemarket.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		RPCURL:                   getEnv("RPC_URL", "https://rpc-amoy.polygon.technology"),
		ChainID:                  chainID,
		MarketplaceAddress:       marketplaceAddress,
		SignerPrivateKey:         signerPrivateKey,
		Confirmations:            confirmations,
		ReceiptWaitTimeout:       receiptWaitTimeout,
		ConfirmationPollInterval: confirmationPollInterval,
		GasLimit:                 gasLimit,
		GasPriceGwei:             gasPriceGwei,

		EmissionsServiceURL: getEnv("EMISSIONS_SERVICE_URL", ""),
		EmissionsCacheTTL:   emissionsCacheTTL,
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, RPCURL=%s, Marketplace=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.RPCURL, Cfg.MarketplaceAddress)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
