package activitymap_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/activitymap"
)

type recordingLogger struct {
	infos []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Warn(string, ...any) {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Info(format string, _ ...any) { l.infos = append(l.infos, format) }

func TestStreamSink_Record(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := activitymap.NewStreamSink(client, "", 0)
	err := sink.Record(context.Background(), auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
		UserID:    5,
	})
	require.NoError(t, err)

	entries, err := client.XRange(context.Background(), activitymap.DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, string(auth.ActivityEventLoginSuccess), values["verb"])
	assert.Equal(t, "5", values["actor_id"])

	var n activitymap.Normalized
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &n))
	assert.Equal(t, "5", n.ObjectID)
}

func TestStreamSink_RecordFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	sink := activitymap.NewStreamSink(client, "audit", 0)
	err := sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLogout})
	assert.Error(t, err)
}

func TestFanout_RunsEverySink(t *testing.T) {
	logger := &recordingLogger{}
	boom := errors.New("boom")
	calls := 0

	sink := activitymap.Fanout(
		auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
			calls++
			return boom
		}),
		nil,
		activitymap.NewLogSink(logger),
	)

	err := sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLogout})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"activity"}, logger.infos)
}
