package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/physickd/platform/pkg/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewRedis(&config.Config{RedisHost: mr.Host(), RedisPort: mr.Port()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestClosePostgresNil(t *testing.T) {
	assert.NoError(t, ClosePostgres(nil))
}
