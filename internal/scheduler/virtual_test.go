package scheduler

import (
	"testing"
	"time"
)

func TestVirtual_SubmitRunsOnNextAdvance(t *testing.T) {
	v := NewVirtual()
	ran := false
	v.Submit(func() { ran = true })

	if ran {
		t.Fatalf("Submit must not run the task synchronously")
	}
	result := v.Advance(0)
	if !ran {
		t.Errorf("expected submitted task to run on Advance(0)")
	}
	if result.Executed != 1 {
		t.Errorf("Executed = %d, want 1", result.Executed)
	}
}

func TestVirtual_ScheduleFiresAtDelay(t *testing.T) {
	v := NewVirtual()
	var firedAt time.Duration = -1
	v.Schedule(func() { firedAt = v.Now() }, 5*time.Second)

	v.Advance(4 * time.Second)
	if firedAt != -1 {
		t.Fatalf("task fired early at %v", firedAt)
	}

	v.Advance(1 * time.Second)
	if firedAt != 5*time.Second {
		t.Errorf("firedAt = %v, want 5s", firedAt)
	}
}

func TestVirtual_CancelPreventsExecution(t *testing.T) {
	v := NewVirtual()
	ran := false
	handle := v.Schedule(func() { ran = true }, time.Second)
	handle.Cancel()

	v.Advance(time.Hour)
	if ran {
		t.Errorf("canceled task must not run")
	}
}

func TestVirtual_FireOrderIsTimeThenSubmissionOrder(t *testing.T) {
	v := NewVirtual()
	var order []string

	v.Schedule(func() { order = append(order, "b-at-2s") }, 2*time.Second)
	v.Schedule(func() { order = append(order, "a-at-1s") }, 1*time.Second)
	v.Schedule(func() { order = append(order, "c-at-2s") }, 2*time.Second)

	v.Advance(2 * time.Second)

	want := []string{"a-at-1s", "b-at-2s", "c-at-2s"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestVirtual_SelfReschedulingChainFiresWithinSameAdvance(t *testing.T) {
	v := NewVirtual()
	count := 0
	var chain func()
	chain = func() {
		count++
		if count < 3 {
			v.Schedule(chain, 0)
		}
	}
	v.Schedule(chain, time.Second)

	result := v.Advance(time.Second)

	if count != 3 {
		t.Errorf("count = %d, want 3 (zero-delay follow-ups should run within the same Advance)", count)
	}
	if result.Executed != 3 {
		t.Errorf("Executed = %d, want 3", result.Executed)
	}
}

func TestVirtual_CloseDropsPendingAndRejectsNewWork(t *testing.T) {
	v := NewVirtual()
	ran := false
	v.Schedule(func() { ran = true }, time.Second)
	v.Close()

	v.Advance(time.Hour)
	if ran {
		t.Errorf("task scheduled before Close must not run after Close")
	}

	v.Submit(func() { ran = true })
	v.Advance(time.Hour)
	if ran {
		t.Errorf("Submit after Close must be a no-op")
	}
}

func TestVirtual_AdvanceReportsQueuedBeforeRunning(t *testing.T) {
	v := NewVirtual()
	v.Submit(func() {})
	v.Submit(func() {})

	result := v.Advance(0)
	if result.Queued != 2 {
		t.Errorf("Queued = %d, want 2", result.Queued)
	}
	if result.Executed != 2 {
		t.Errorf("Executed = %d, want 2", result.Executed)
	}
}
