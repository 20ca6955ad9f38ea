package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxly/inbox-intel/internal/config"
	"github.com/inboxly/inbox-intel/internal/email"
)

func TestEnqueueOverflowDropsWithoutBlocking(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeInvoker{
		calendar: okJSON, notes: okJSON, shopping: okJSON,
	})
	d := NewDispatcher(p, config.ExtractionConfig{Workers: 1, QueueSize: 2})

	// Workers not started: the queue fills and the third enqueue must
	// return immediately instead of blocking the webhook response.
	assert.True(t, d.Enqueue(1))
	assert.True(t, d.Enqueue(2))

	done := make(chan bool, 1)
	go func() { done <- d.Enqueue(3) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	stats := d.Stats()
	assert.Equal(t, int64(2), stats["dispatched"])
	assert.Equal(t, int64(1), stats["dropped"])
	assert.Equal(t, int64(2), stats["queued"])
}

func TestDispatcherProcessesQueued(t *testing.T) {
	p, mock := newTestPipeline(t, &fakeInvoker{
		calendar: okJSON, notes: okJSON, shopping: okJSON,
	})
	mock.MatchExpectationsInOrder(false)
	expectStatus(mock, email.ActionablesProcessing)
	expectEmailRow(mock)
	expectStatus(mock, email.ActionablesProcessed)

	d := NewDispatcher(p, config.ExtractionConfig{Workers: 2, QueueSize: 4})
	d.Start()
	defer d.Stop()

	require.True(t, d.Enqueue(5))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mock.ExpectationsWereMet() == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("queued email was never processed: %v", mock.ExpectationsWereMet())
}

func TestStartStopIdempotent(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeInvoker{
		calendar: okJSON, notes: okJSON, shopping: okJSON,
	})
	d := NewDispatcher(p, config.ExtractionConfig{})

	d.Start()
	d.Start()
	d.Stop()
	d.Stop()
}
