package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvp-go/internal/config"
	"tvp-go/internal/tv"
)

type recordingLogger struct {
	tv.NopLogger
	infos []string
}

func (l *recordingLogger) Info(msg string, args ...any) {
	l.infos = append(l.infos, msg)
}

func TestMemory_RecordsInOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Notify(ctx, "content://tv/channel/1"))
	require.NoError(t, m.Notify(ctx, "content://tv/program/7"))

	assert.Equal(t, []string{"content://tv/channel/1", "content://tv/program/7"}, m.URIs())

	m.Reset()
	assert.Empty(t, m.URIs())
}

func TestLog_WritesInfo(t *testing.T) {
	log := &recordingLogger{}
	require.NoError(t, NewLog(log).Notify(context.Background(), "content://tv/channel/1"))
	assert.Equal(t, []string{"content changed"}, log.infos)
}

func TestMulti_TriesEverySink(t *testing.T) {
	first := NewMemory()
	second := NewMemory()
	boom := errors.New("sink down")
	failing := tv.NotifierFunc(func(context.Context, string) error { return boom })

	err := Multi{first, failing, second}.Notify(context.Background(), "content://tv/channel/1")

	require.ErrorIs(t, err, boom)
	assert.Len(t, first.URIs(), 1)
	assert.Len(t, second.URIs(), 1)
}

func TestRedis_Publishes(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	sub := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer sub.Close()
	ps := sub.Subscribe(ctx, "tv-changes")
	defer ps.Close()
	_, err := ps.Receive(ctx)
	require.NoError(t, err)

	n := NewRedis(redis.NewClient(&redis.Options{Addr: srv.Addr()}), "tv-changes")
	defer n.Close()
	require.NoError(t, n.Notify(ctx, "content://tv/channel/3/logo"))

	msg, err := ps.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tv-changes", msg.Channel)
	assert.Equal(t, "content://tv/channel/3/logo", msg.Payload)
}

func TestRedis_ReportsFailure(t *testing.T) {
	srv := miniredis.RunT(t)
	n := NewRedis(redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1}), "tv-changes")
	defer n.Close()
	srv.Close()

	err := n.Notify(context.Background(), "content://tv/channel/1")
	assert.Error(t, err)
}

func TestNewNotifierFromConfig(t *testing.T) {
	srv := miniredis.RunT(t)
	log := tv.NewNopLogger()

	tests := []struct {
		name    string
		cfg     config.NotifyConfig
		wantErr bool
	}{
		{"log", config.NotifyConfig{Type: "log"}, false},
		{"default", config.NotifyConfig{}, false},
		{"none", config.NotifyConfig{Type: "none"}, false},
		{"redis", config.NotifyConfig{Type: "redis", RedisAddr: srv.Addr()}, false},
		{"redis without addr", config.NotifyConfig{Type: "redis"}, true},
		{"unknown", config.NotifyConfig{Type: "carrier-pigeon"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNotifierFromConfig(tt.cfg, log)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, n.Notify(context.Background(), "content://tv/channel/1"))
		})
	}
}

func TestMulti_CloseClosesRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	m := Multi{NewMemory(), NewRedis(client, "tv-changes")}

	require.NoError(t, m.Close())
	assert.ErrorIs(t, client.Ping(context.Background()).Err(), redis.ErrClosed)
}
