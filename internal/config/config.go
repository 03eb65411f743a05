package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	PostgresURL string
	FrontendURL string
	APIBaseURL  string

	Stripe      StripeConfig
	MercadoPago MercadoPagoConfig

	GatewayTimeout  time.Duration
	BalanceCacheTTL time.Duration
	StaleWindow     time.Duration
	SweepInterval   time.Duration
}

type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

type MercadoPagoConfig struct {
	AccessToken string
}

func Load() (*Config, error) {
	cacheTTL, _ := strconv.Atoi(getEnv("BALANCE_CACHE_TTL_SECONDS", "3600"))
	staleWindow, _ := strconv.Atoi(getEnv("STALE_PENDING_MINUTES", "30"))
	sweepInterval, _ := strconv.Atoi(getEnv("SWEEP_INTERVAL_SECONDS", "300"))
	gatewayTimeout, _ := strconv.Atoi(getEnv("GATEWAY_TIMEOUT_SECONDS", "10"))

	return &Config{
		Port:        getEnv("PORT", "3000"),
		PostgresURL: getEnv("POSTGRES_URL", ""),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:3000"),
		Stripe: StripeConfig{
			APIKey:        getEnv("STRIPE_API_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken: getEnv("MP_ACCESS_TOKEN", ""),
		},
		GatewayTimeout:  time.Duration(gatewayTimeout) * time.Second,
		BalanceCacheTTL: time.Duration(cacheTTL) * time.Second,
		StaleWindow:     time.Duration(staleWindow) * time.Minute,
		SweepInterval:   time.Duration(sweepInterval) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
