package idle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsTasks(t *testing.T) {
	p := NewPool(2, 16)
	var n atomic.Int32
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		p.Schedule(func() { n.Add(1); wg.Done() })
	}
	wg.Wait()
	p.Close()
	if got := n.Load(); got != 10 {
		t.Fatalf("ran=%d want=10", got)
	}
}

func TestPoolDropsWhenFull(t *testing.T) {
	p := NewPool(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	p.Schedule(func() { close(started); <-block })
	<-started

	if !p.Schedule(func() {}) { // fills the queue
		t.Fatalf("task refused with room in the queue")
	}
	if p.Schedule(func() {}) { // dropped
		t.Fatalf("task accepted by a full queue")
	}
	if got := p.Dropped(); got != 1 {
		t.Fatalf("dropped=%d want=1", got)
	}
	close(block)
	p.Close()
}

func TestPoolScheduleAfterCloseIsNoop(t *testing.T) {
	p := NewPool(1, 1)
	p.Close()
	p.Close()

	done := make(chan struct{})
	go func() {
		if p.Schedule(func() { t.Error("task ran after Close") }) {
			t.Error("closed pool accepted a task")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Schedule blocked after Close")
	}
}

func TestManual(t *testing.T) {
	var m Manual
	var order []int
	m.Schedule(func() { order = append(order, 1) })
	m.Schedule(func() {
		order = append(order, 2)
		m.Schedule(func() { order = append(order, 3) })
	})
	if m.Pending() != 2 {
		t.Fatalf("pending=%d want=2", m.Pending())
	}
	if ran := m.RunPending(); ran != 2 {
		t.Fatalf("ran=%d want=2", ran)
	}
	if m.Pending() != 1 {
		t.Fatalf("task scheduled during run should wait, pending=%d", m.Pending())
	}
	m.RunPending()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order=%v", order)
	}
}
