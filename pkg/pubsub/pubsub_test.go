package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomFromChannel(t *testing.T) {
	tests := []struct {
		channel string
		want    string
		wantErr bool
	}{
		{channel: RoomEventsChannel("lofi-42"), want: "lofi-42"},
		{channel: RoomEventsChannel("a:b"), want: "a:b"},
		{channel: "watchparty:room::events", wantErr: true},
		{channel: "signal:room:x:to_media", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			got, err := RoomFromChannel(tt.channel)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPublisher(t *testing.T) {
	p, err := NewPublisher(Config{Driver: "none"}, nil)
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)

	_, err = NewPublisher(Config{Driver: "redis"}, nil)
	assert.Error(t, err)

	_, err = NewPublisher(Config{Driver: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}

func TestRedisPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := RoomEventsChannel("lofi-42")
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(client)
	event, err := NewEvent(EventChatSent, "lofi-42", map[string]string{"text": "hi"})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, channel, event))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, channel, msg.Channel)
	assert.Contains(t, msg.Payload, `"type":"chat_sent"`)
	assert.Contains(t, msg.Payload, `"room_id":"lofi-42"`)
}
