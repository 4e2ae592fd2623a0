package database

import (
	"context"
	"testing"

	"coach_admin_backend/internal/config"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRedis_DisabledWithoutURL(t *testing.T) {
	client, cleanup, err := NewRedis(&config.Config{}, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, client)
}

func TestNewRedis_Connects(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client, cleanup, err := NewRedis(&config.Config{RedisURL: "redis://" + m.Addr()}, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, client)
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := m.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedis_BadURL(t *testing.T) {
	_, _, err := NewRedis(&config.Config{RedisURL: "not-a-url://"}, zap.NewNop())
	assert.Error(t, err)
}
