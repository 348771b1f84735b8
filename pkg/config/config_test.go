package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DOCUMENT_BACKEND", BackendMongo)

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9000, c.App.Port)
	require.Equal(t, "development", c.App.Env)
	require.Equal(t, BackendMongo, c.Backend.Documents)
	require.Equal(t, BackendMemory, c.Backend.Objects)
	require.Equal(t, 72*time.Hour, c.Auth.TokenTTL)
	require.Equal(t, time.Minute, c.Limits.Per)
	require.Equal(t, 10*time.Minute, c.Limits.Idle)
	require.Equal(t, "socialmedia", c.Mongo.Database)
}

func TestOpenPostgresRequiresConnStr(t *testing.T) {
	_, err := OpenPostgres("")
	require.Error(t, err)
}
