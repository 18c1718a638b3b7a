package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEASE_EXPIRING_SOON_DAYS", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("KAFKA_BROKER", "")
	t.Setenv("ACTIVITY_SERVICE_URL", "")

	cfg := Load()
	assert.Equal(t, "8002", cfg.BackofficePort)
	assert.Equal(t, "http://localhost:8003", cfg.ActivityURL)
	assert.Equal(t, 90, cfg.ExpiringSoonDays)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "occupancy-events", cfg.EventsTopic)
	assert.Empty(t, cfg.KafkaBroker)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LEASE_EXPIRING_SOON_DAYS", "60")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_ENABLED", "false")

	cfg := Load()
	assert.Equal(t, 60, cfg.ExpiringSoonDays)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.False(t, cfg.RedisEnabled)
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	t.Setenv("LEASE_EXPIRING_SOON_DAYS", "soon")
	assert.Equal(t, 90, Load().ExpiringSoonDays)

	t.Setenv("LEASE_EXPIRING_SOON_DAYS", "-5")
	assert.Equal(t, 90, Load().ExpiringSoonDays)
}

func TestDatabaseDSN(t *testing.T) {
	pg := &DatabaseConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", DBName: "pm", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=pm sslmode=disable", pg.GetDSN())

	lite := &DatabaseConfig{Driver: "sqlite", Path: "/tmp/pm.db"}
	assert.Contains(t, lite.GetDSN(), "file:/tmp/pm.db")
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(&DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open(&DatabaseConfig{Driver: "sqlite", Path: t.TempDir() + "/pm.db"})
	if assert.NoError(t, err) {
		sqlDB, _ := db.DB()
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
		_ = sqlDB.Close()
	}
}
