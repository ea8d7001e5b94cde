package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		BookingStore:       StoreDynamoDB,
		BookingsTable:      "paid-bookings",
		PaymentClaimsTable: "payment-claims",
		SessionStore:       SessionMemory,
		SessionTTL:         30 * time.Minute,
		GatewayDriver:      GatewayHTTP,
		GatewayBaseURL:     "https://gateway.example",
		GatewayTimeout:     15 * time.Second,
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_MissingDriverSettings(t *testing.T) {
	cases := map[string]func(c *Config){
		"postgres without dsn":  func(c *Config) { c.BookingStore = StorePostgres },
		"mongo without uri":     func(c *Config) { c.BookingStore = StoreMongo },
		"unknown store":         func(c *Config) { c.BookingStore = "sqlite" },
		"redis without address": func(c *Config) { c.SessionStore = SessionRedis; c.RedisAddr = "" },
		"omise without keys":    func(c *Config) { c.GatewayDriver = GatewayOmise },
		"http without base url": func(c *Config) { c.GatewayBaseURL = "" },
		"zero gateway timeout":  func(c *Config) { c.GatewayTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("BOOKING_STORE", StoreMemory)
	t.Setenv("SESSION_STORE", SessionMemory)
	t.Setenv("GATEWAY_BASE_URL", "https://gateway.example")
	t.Setenv("SESSION_TTL", "10m")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.SessionTTL != 10*time.Minute {
		t.Fatalf("expected 10m session ttl, got %s", c.SessionTTL)
	}
	if c.GatewayTimeout != 15*time.Second {
		t.Fatalf("expected default gateway timeout, got %s", c.GatewayTimeout)
	}
}
