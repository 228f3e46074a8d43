package database

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client, err := ConnectRedis(context.Background(), "redis://"+server.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), JobKey("job-1"), "x", 0).Err())
	require.True(t, server.Exists("eval:jobs:job-1"))

	_, err = ConnectRedis(context.Background(), " ")
	require.ErrorContains(t, err, "must not be empty")

	_, err = ConnectRedis(context.Background(), "not-a-url")
	require.ErrorContains(t, err, "parse redis url")
}

func TestJobKey(t *testing.T) {
	require.Equal(t, "eval:jobs", JobKey())
	require.Equal(t, "eval:jobs:abc:notified", JobKey("abc", "notified"))
}
