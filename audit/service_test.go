package audit

import (
	"context"
	"testing"

	"github.com/LeeIsaac1201/gaole/model"
	"github.com/LeeIsaac1201/gaole/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_StartsWorker(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nil)
	require.NotNil(t, svc)
	svc.Stop(context.Background())
}

func TestLog_EnqueuedAndFlushed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	trainerID := int64(1)
	accountID := int64(2)
	svc.Log(Entry{
		TraceID:     "trace-123",
		TrainerID:   &trainerID,
		AccountID:   &accountID,
		TrainerName: "Alice",
		Action:      "session_pay",
		Mode:        "battle",
		YenDelta:    -100,
		Request:     map[string]string{"mode": "battle"},
		Response:    map[string]bool{"ok": true},
		IP:          "127.0.0.1",
		DurationMs:  42,
	})

	// Stop flushes remaining entries
	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-123", logs[0].TraceID)
	assert.Equal(t, "Alice", logs[0].TrainerName)
	assert.Equal(t, "session_pay", logs[0].Action)
	assert.Equal(t, "battle", logs[0].Mode)
	assert.Equal(t, int64(-100), logs[0].YenDelta)
	assert.Equal(t, "127.0.0.1", logs[0].IP)
	assert.Equal(t, 42, logs[0].DurationMs)
	assert.JSONEq(t, `{"mode":"battle"}`, string(logs[0].Request))
}

func TestLog_BatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	for i := 0; i < batchSize+5; i++ {
		svc.Log(Entry{Action: "batch"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.Equal(t, int64(batchSize+5), count)
}

func TestRecent_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	mine, other := int64(7), int64(8)
	svc.Log(Entry{TrainerID: &mine, Action: "deposit", YenDelta: 500})
	svc.Log(Entry{TrainerID: &other, Action: "deposit", YenDelta: 100})
	svc.Log(Entry{TrainerID: &mine, Action: "session_pay", YenDelta: -100})
	svc.Stop(context.Background())

	logs, err := svc.Recent(context.Background(), mine, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "session_pay", logs[0].Action)
	assert.Equal(t, "deposit", logs[1].Action)

	one, err := svc.Recent(context.Background(), mine, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestStop_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	svc.Stop(context.Background())
	svc.Stop(context.Background()) // must not panic
}

func TestLog_AfterStopDropped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	svc.Stop(context.Background())

	svc.Log(Entry{Action: "late"})

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.Zero(t, count)
}
