package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestJobEventPublisherBroadcastsOverRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "eval:events:jobs")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewJobEventPublisher(client, nil, "eval:events", zerolog.Nop())
	require.NoError(t, publisher.Publish(ctx, WebhookPayload{JobID: "job-1", Status: "success", TotalItems: 2}))

	select {
	case msg := <-sub.Channel():
		var event JobEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		require.Equal(t, "job-1", event.Payload.JobID)
		require.Equal(t, 2, event.Payload.TotalItems)
		require.NotEmpty(t, event.Source)
	case <-ctx.Done():
		t.Fatal("job event was not published")
	}
}

func TestJobEventPublisherWithoutBrokersIsNoop(t *testing.T) {
	publisher := NewJobEventPublisher(nil, nil, "eval:events", zerolog.Nop())
	require.NoError(t, publisher.Publish(context.Background(), WebhookPayload{JobID: "job"}))
}
