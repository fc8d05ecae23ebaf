// Package updater tests the serial work queue.
// Related: internal/updater/queue.go
// Tags: updater, queue, concurrency

package updater

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkQueue_RunsInSubmissionOrder(t *testing.T) {
	t.Parallel()

	log, _ := logtest.NewNullLogger()
	q := NewWorkQueue("test", 4, log)
	defer q.Stop()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		require.True(t, q.Submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	require.True(t, q.Wait())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestWorkQueue_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	log, hook := logtest.NewNullLogger()
	q := NewWorkQueue("test", 1, log)
	defer q.Stop()

	ran := false
	q.Submit(func() { panic("bad task") })
	q.Submit(func() { ran = true })
	require.True(t, q.Wait())

	assert.True(t, ran)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "test", entry.Data["queue"])
	assert.Contains(t, entry.Data[logrus.ErrorKey].(error).Error(), "bad task")
}

func TestWorkQueue_StopDrainsAndRejects(t *testing.T) {
	t.Parallel()

	log, _ := logtest.NewNullLogger()
	q := NewWorkQueue("test", 8, log)

	count := 0
	for i := 0; i < 5; i++ {
		q.Submit(func() { count++ })
	}
	q.Stop()
	q.Stop()

	assert.Equal(t, 5, count)
	assert.False(t, q.Submit(func() { count++ }))
	assert.False(t, q.Wait())
	assert.Equal(t, 5, count)
}
