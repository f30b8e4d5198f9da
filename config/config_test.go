package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("KAFKA_ENABLED", "")
	t.Setenv("DEMO_PRODUCT_COUNT", "")
	t.Setenv("DOMAIN_MODE", "")

	cfg := Load()

	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "retailsmart.products", cfg.Storage.ProductsKey)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 12, cfg.Business.DemoProductCount)
	assert.Equal(t, "grocery", cfg.Business.DomainMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DEMO_PRODUCT_COUNT", "30")
	t.Setenv("DOMAIN_MODE", "pharmacy")

	cfg := Load()

	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30, cfg.Business.DemoProductCount)
	assert.Equal(t, "pharmacy", cfg.Business.DomainMode)
}
