package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_DSN", "postgres://localhost/test")
	t.Setenv("REDIS_ADDRS", "localhost:6379")
	t.Setenv("ADMIN_TOKEN_HASH", "$2a$10$abcdefghijklmnopqrstuv")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", c.AppEnv)
	assert.Equal(t, ":8080", c.APIAddr)
	assert.Equal(t, 4, c.WorkerConcurrency)
	assert.Equal(t, 3, c.DefaultMaxRetries)
	assert.Equal(t, 30000, c.DefaultVisibilityTimeoutMS)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
}

func TestLoad_MissingRequiredFieldsErrors(t *testing.T) {
	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_RedisAddrList(t *testing.T) {
	c := Config{RedisAddrs: "host-a:6379, host-b:6379,host-c:6379"}
	assert.Equal(t, []string{"host-a:6379", "host-b:6379", "host-c:6379"}, c.RedisAddrList())
}

func TestConfig_RedisAddrList_Single(t *testing.T) {
	c := Config{RedisAddrs: "localhost:6379"}
	assert.Equal(t, []string{"localhost:6379"}, c.RedisAddrList())
}

func TestConfig_Queues(t *testing.T) {
	c := Config{WorkerQueues: "orders, emails ,default"}
	assert.Equal(t, []string{"orders", "emails", "default"}, c.Queues())
}
