package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestEnvIntDefault(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_PORT", "9090")
	assert.Equal(t, 9090, EnvIntDefault("STOREFRONT_TEST_PORT", 8080))

	t.Setenv("STOREFRONT_TEST_PORT", "not-a-number")
	assert.Equal(t, 8080, EnvIntDefault("STOREFRONT_TEST_PORT", 8080))

	assert.Equal(t, 7, EnvIntDefault("STOREFRONT_TEST_MISSING", 7))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "")
	t.Setenv("ES_INDEX", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("JWT_SECRET", "secret")

	cfg := Load("testdata/does-not-exist.env")

	assert.Equal(t, "storefront", cfg.ServiceName)
	assert.Equal(t, "products", cfg.ESIndex)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []byte("secret"), cfg.JWTAccessSecret)
}
