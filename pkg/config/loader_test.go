package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	assert.Equal(t, "8080", v.GetString("server.port"))
	assert.Equal(t, "disable", v.GetString("database.sslmode"))
	assert.Equal(t, 10, v.GetInt("database.max_conns"))
	assert.Equal(t, "localhost:6379", v.GetString("redis.addr"))
	assert.True(t, v.GetBool("rate_limit.enabled"))
	assert.Equal(t, 3, v.GetInt("rate_limit.actions.bot_creation.limit"))
	assert.Equal(t, 10, v.GetInt("limits.max_bots_per_user"))
	assert.Equal(t, 30, v.GetInt("broadcast.pause_every"))
	assert.Equal(t, "0 3 * * *", v.GetString("backup.cron"))
	assert.Equal(t, 14, v.GetInt("backup.max_count"))
	assert.Equal(t, "10s", v.GetString("bot.poll_timeout"))
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     "5432",
		User:     "botforge",
		Password: "secret",
		Name:     "botforge",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "dbname=botforge")
	assert.Contains(t, dsn, "sslmode=disable")

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestAdminConfig_IsAdmin(t *testing.T) {
	cfg := AdminConfig{SuperAdminID: 100, AdminIDs: []int64{200, 300}}

	assert.True(t, cfg.IsAdmin(100))
	assert.True(t, cfg.IsAdmin(300))
	assert.False(t, cfg.IsAdmin(400))
	assert.False(t, AdminConfig{}.IsAdmin(0))
}
