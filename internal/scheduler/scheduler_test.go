package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ryvertools/ryver-relay/internal/model"
)

// mockCollector implements Collector for testing
type mockCollector struct {
	batch      *model.MatchBatch
	collectErr error
	acked      int
}

func (m *mockCollector) Collect(ctx context.Context) (*model.MatchBatch, error) {
	return m.batch, m.collectErr
}

func (m *mockCollector) Ack(ctx context.Context, batch *model.MatchBatch) error {
	m.acked++
	return nil
}

// mockNotifier implements notifier.Notifier for testing
type mockNotifier struct {
	sentCount int
	sendErr   error
}

func (m *mockNotifier) Send(ctx context.Context, batch *model.MatchBatch) error {
	m.sentCount++
	return m.sendErr
}

func (m *mockNotifier) Name() string {
	return "mock"
}

func (m *mockNotifier) Info() map[string]string {
	return map[string]string{"type": "mock"}
}

func TestScheduler_RunNow(t *testing.T) {
	col := &mockCollector{
		batch: &model.MatchBatch{
			ReqID:   "r1",
			Rule:    "cpu_spike",
			Matches: []model.Match{{ID: 1}},
		},
	}
	notify := &mockNotifier{}
	sched := New(col, notify, nil)

	sched.RunNow()

	if notify.sentCount != 1 {
		t.Errorf("sent count = %d, want 1", notify.sentCount)
	}
	if col.acked != 1 {
		t.Errorf("acked count = %d, want 1", col.acked)
	}
}

func TestScheduler_RunNow_EmptyQueue(t *testing.T) {
	col := &mockCollector{batch: nil}
	notify := &mockNotifier{}
	sched := New(col, notify, nil)

	sched.RunNow()

	if notify.sentCount != 0 {
		t.Errorf("nothing should be sent for an empty queue, sent %d", notify.sentCount)
	}
	if col.acked != 0 {
		t.Errorf("nothing should be acked for an empty queue, acked %d", col.acked)
	}
}

func TestScheduler_RunNow_SendFailureSkipsAck(t *testing.T) {
	col := &mockCollector{
		batch: &model.MatchBatch{ReqID: "r1", Matches: []model.Match{{ID: 1}}},
	}
	notify := &mockNotifier{sendErr: errors.New("503")}
	sched := New(col, notify, nil)

	sched.RunNow()

	if col.acked != 0 {
		t.Errorf("a failed send must not acknowledge the batch, acked %d", col.acked)
	}
}

func TestScheduler_RunNow_CollectFailure(t *testing.T) {
	col := &mockCollector{collectErr: errors.New("connection reset")}
	notify := &mockNotifier{}
	sched := New(col, notify, nil)

	sched.RunNow()

	if notify.sentCount != 0 {
		t.Errorf("nothing should be sent when collection fails, sent %d", notify.sentCount)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	sched := New(&mockCollector{}, &mockNotifier{}, nil)

	if sched.IsRunning() {
		t.Error("Scheduler should not be running initially")
	}

	sched.Start()
	time.Sleep(10 * time.Millisecond) // Yield

	if !sched.IsRunning() {
		t.Error("Scheduler should be running after Start()")
	}

	// Start again should be no-op
	sched.Start()
	if !sched.IsRunning() {
		t.Error("Scheduler should still be running")
	}

	ctx := sched.Stop()
	select {
	case <-ctx.Done():
		// Success
	case <-time.After(1 * time.Second):
		t.Error("Stop context should be done")
	}

	if sched.IsRunning() {
		t.Error("Scheduler should not be running after Stop()")
	}
}

func TestScheduler_Schedule_InvalidExpression(t *testing.T) {
	sched := New(&mockCollector{}, &mockNotifier{}, nil)

	if err := sched.Schedule("not a cron line"); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestScheduler_TimeoutConfig(t *testing.T) {
	sched := New(&mockCollector{}, &mockNotifier{}, nil)

	// Default
	if sched.dispatchTimeout != DefaultDispatchTimeout {
		t.Errorf("Default timeout = %v, want %v", sched.dispatchTimeout, DefaultDispatchTimeout)
	}

	// Set new
	newTimeout := 10 * time.Second
	sched.SetDispatchTimeout(newTimeout)

	if sched.dispatchTimeout != newTimeout {
		t.Errorf("Timeout = %v, want %v", sched.dispatchTimeout, newTimeout)
	}
}
