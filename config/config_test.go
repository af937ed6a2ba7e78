package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DB_PORT", "HTTP_ADDR", "SESSION_TTL", "PAYMENT_DELAY", "STAFF_EMAILS", "CORS_ORIGINS", "AUTO_MIGRATE", "KITCHEN_CHAT_ID", "LOYALTY_VOUCHER_COST"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 50, cfg.Auth.LoyaltyVoucherCost)
	assert.Equal(t, time.Second, cfg.Payment.Delay)
	assert.Empty(t, cfg.Auth.StaffEmails)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "cafe")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "orders")
	t.Setenv("STAFF_EMAILS", " Barista@Terra.cafe , ,cozinha@terra.cafe")
	t.Setenv("KITCHEN_CHAT_ID", "-100123")
	t.Setenv("AUTO_MIGRATE", "TRUE")
	t.Setenv("PAYMENT_DELAY", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://cafe:secret@db:6543/orders", cfg.DB.ConnString())
	assert.Equal(t, []string{"barista@terra.cafe", "cozinha@terra.cafe"}, cfg.Auth.StaffEmails)
	assert.Equal(t, int64(-100123), cfg.Telegram.KitchenChatID)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 250*time.Millisecond, cfg.Payment.Delay)
}

func TestConnStringEscapesCredentials(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "cafe", Password: "p@ss:w/rd", Database: "terracafe"}
	got := c.ConnString()
	assert.Equal(t, "postgres://cafe:p%40ss%3Aw%2Frd@db:5432/terracafe", got)

	parsed, err := url.Parse(got)
	require.NoError(t, err)
	pass, _ := parsed.User.Password()
	assert.Equal(t, "p@ss:w/rd", pass)
	assert.Equal(t, "db:5432", parsed.Host)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DB_PORT", "five"},
		{"SESSION_TTL", "forever"},
		{"PAYMENT_DELAY", "soon"},
		{"KITCHEN_CHAT_ID", "kitchen"},
		{"LOYALTY_VOUCHER_COST", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
