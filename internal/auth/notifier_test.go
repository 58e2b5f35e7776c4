package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffee-export/export-manager/internal/auth"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNotifierDeliversToListeners(t *testing.T) {
	ctx := context.Background()
	client, _ := newRedis(t)
	notifier := auth.NewNotifier(client, "", nil)

	received := make(chan auth.SessionEvent, 2)
	notifier.Listen(func(ev auth.SessionEvent) { received <- ev })

	stop, err := notifier.Start(ctx)
	require.NoError(t, err)
	defer stop()

	event := auth.SessionEvent{Type: auth.EventSignedIn, UserID: "u-1", SessionID: "s-1", At: testNow}
	require.NoError(t, notifier.Publish(ctx, event))

	select {
	case got := <-received:
		assert.Equal(t, auth.EventSignedIn, got.Type)
		assert.Equal(t, "u-1", got.UserID)
		assert.True(t, testNow.Equal(got.At))
	case <-time.After(2 * time.Second):
		t.Fatal("session event not delivered")
	}
}

func TestNotifierIgnoresMalformedPayloads(t *testing.T) {
	ctx := context.Background()
	client, mr := newRedis(t)
	notifier := auth.NewNotifier(client, "sessions-test", nil)

	received := make(chan auth.SessionEvent, 2)
	notifier.Listen(func(ev auth.SessionEvent) { received <- ev })
	stop, err := notifier.Start(ctx)
	require.NoError(t, err)
	defer stop()

	mr.Publish("sessions-test", "{not json")
	require.NoError(t, notifier.Publish(ctx, auth.SessionEvent{Type: auth.EventSignedOut, UserID: "u-2"}))

	select {
	case got := <-received:
		assert.Equal(t, auth.EventSignedOut, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("session event not delivered")
	}
}

func TestNotifierStartFailsWithoutRedis(t *testing.T) {
	client, mr := newRedis(t)
	mr.Close()

	_, err := auth.NewNotifier(client, "", nil).Start(context.Background())
	assert.Error(t, err)
}
