// Package config reads service configuration from the environment.
// Required values are validated by each main, not here.
package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Port              string
	PostgresURL       string
	KafkaBrokers      []string
	RedisAddr         string
	SnapshotCacheTTL  time.Duration
	OrdersServiceURL  string
	CatalogServiceURL string
}

func Load(defaultPort string) Config {
	return Config{
		Port:              getenv("PORT", defaultPort),
		PostgresURL:       os.Getenv("POSTGRES_URL"),
		KafkaBrokers:      splitCSV(os.Getenv("KAFKA_BROKERS")),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		SnapshotCacheTTL:  getduration("SNAPSHOT_CACHE_TTL", 30*time.Second),
		OrdersServiceURL:  os.Getenv("ORDERS_SERVICE_URL"),
		CatalogServiceURL: os.Getenv("CATALOG_SERVICE_URL"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
