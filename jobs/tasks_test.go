package jobs

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/daftar-ledger/daftar/internal/ledger"
	"github.com/daftar-ledger/daftar/internal/offline"
)

func TestNewOfflineSyncTask(t *testing.T) {
	task := NewOfflineSyncTask()
	require.Equal(t, TaskTypeOfflineSync, task.Type())
	require.Empty(t, task.Payload())
}

func TestClientEnqueuesOfflineSync(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })

	info, err := c.EnqueueOfflineSync(context.Background())
	require.NoError(t, err)
	require.Equal(t, TaskTypeOfflineSync, info.Type)
	require.Equal(t, QueueDefault, info.Queue)
}

func TestOfflineSyncHandlerNoRemoteIsNoop(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := offline.NewRedisStore(client)
	queue := offline.NewQueue(store, nil)
	svc := ledger.NewService(nil, store, queue, offline.NewMonitor(false), nil, nil)

	handler := OfflineSyncHandler(nil, svc)
	require.NoError(t, handler(context.Background(), NewOfflineSyncTask()))
}
