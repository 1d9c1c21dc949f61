// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import (
	"sync"
	"testing"
)

// fakeOp is an Operation with a recordable Run and an optional gate to
// hold the worker.
type fakeOp struct {
	tile    *Tile
	painter Painter
	scale   float32
	gate    chan struct{}
	onRun   func()
}

func (op *fakeOp) Run() {
	if op.gate != nil {
		<-op.gate
	}
	if op.onRun != nil {
		op.onRun()
	}
}

func (op *fakeOp) Tile() *Tile { return op.tile }

func (op *fakeOp) Painter() Painter { return op.painter }

func (op *fakeOp) Scale() float32 { return op.scale }

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q := NewQueue()
	q.Start()
	<-q.Ready()
	t.Cleanup(q.Close)
	return q
}

func queueTile() *Tile {
	return NewTile(nil, NewViewState("queue-test"), false)
}

func TestQueueFIFO(t *testing.T) {
	q := newTestQueue(t)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		ok := q.Schedule(&fakeOp{tile: queueTile(), onRun: func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}})
		if !ok {
			t.Fatalf("Schedule(op %d) = false, want true", i)
		}
	}
	q.Drain()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("ran %d ops, want 3", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("run order = %v, want [0 1 2]", order)
			break
		}
	}
}

func TestQueueRepaintPendingLifecycle(t *testing.T) {
	q := newTestQueue(t)

	gate := make(chan struct{})
	q.Schedule(&fakeOp{tile: queueTile(), gate: gate})

	tile := queueTile()
	q.Schedule(&fakeOp{tile: tile})
	if !tile.IsRepaintPending() {
		t.Error("IsRepaintPending() = false while queued, want true")
	}

	close(gate)
	q.Drain()
	if tile.IsRepaintPending() {
		t.Error("IsRepaintPending() = true after run, want false")
	}
}

func TestQueueRepaintPendingSettlesUnderChurn(t *testing.T) {
	q := newTestQueue(t)

	// A fast worker can finish an op and reach its flag clear right
	// around the time the scheduler's flag set lands; the flag must
	// never end up stuck true on a drained, idle queue.
	tile := queueTile()
	for i := 0; i < 10000; i++ {
		q.Schedule(&fakeOp{tile: tile})
		q.Drain()
		if tile.IsRepaintPending() {
			t.Fatalf("iteration %d: IsRepaintPending() = true on a drained queue, want false", i)
		}
	}
}

func TestQueueDuplicateDropped(t *testing.T) {
	q := newTestQueue(t)

	gate := make(chan struct{})
	q.Schedule(&fakeOp{tile: queueTile(), gate: gate})

	tile := queueTile()
	runs := 0
	var mu sync.Mutex
	count := func() {
		mu.Lock()
		runs++
		mu.Unlock()
	}
	if !q.Schedule(&fakeOp{tile: tile, onRun: count}) {
		t.Fatal("first Schedule() = false, want true")
	}
	if q.Schedule(&fakeOp{tile: tile, onRun: count}) {
		t.Error("duplicate Schedule() = true, want false")
	}

	close(gate)
	q.Drain()
	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Errorf("tile painted %d times, want 1", runs)
	}
}

func TestQueueCancelMatching(t *testing.T) {
	q := newTestQueue(t)

	gate := make(chan struct{})
	q.Schedule(&fakeOp{tile: queueTile(), gate: gate})

	p1 := &fakePainter{}
	p2 := &fakePainter{}
	tileB, tileC, tileD := queueTile(), queueTile(), queueTile()

	var mu sync.Mutex
	ran := map[*Tile]bool{}
	record := func(tile *Tile) func() {
		return func() {
			mu.Lock()
			ran[tile] = true
			mu.Unlock()
		}
	}
	q.Schedule(&fakeOp{tile: tileB, painter: p1, onRun: record(tileB)})
	q.Schedule(&fakeOp{tile: tileC, painter: p1, onRun: record(tileC)})
	q.Schedule(&fakeOp{tile: tileD, painter: p2, onRun: record(tileD)})

	if got := q.CancelMatching(PainterFilter{Target: p1}); got != 2 {
		t.Errorf("CancelMatching() = %d, want 2", got)
	}
	if tileB.IsRepaintPending() || tileC.IsRepaintPending() {
		t.Error("cancelled tiles still repaint-pending")
	}
	if !tileD.IsRepaintPending() {
		t.Error("surviving tile lost repaint-pending")
	}

	close(gate)
	q.Drain()
	mu.Lock()
	defer mu.Unlock()
	if ran[tileB] || ran[tileC] {
		t.Error("cancelled ops ran")
	}
	if !ran[tileD] {
		t.Error("surviving op did not run")
	}
}

func TestScaleFilter(t *testing.T) {
	p1 := &fakePainter{}
	p2 := &fakePainter{}
	f := ScaleFilter{Target: p1, Scale: 2}

	tests := []struct {
		name string
		op   Operation
		want bool
	}{
		{"same painter stale scale", &fakeOp{painter: p1, scale: 1}, true},
		{"same painter current scale", &fakeOp{painter: p1, scale: 2}, false},
		{"other painter stale scale", &fakeOp{painter: p2, scale: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Check(tt.op); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueueDiscardAll(t *testing.T) {
	q := newTestQueue(t)

	gate := make(chan struct{})
	q.Schedule(&fakeOp{tile: queueTile(), gate: gate})

	tile := queueTile()
	ran := false
	q.Schedule(&fakeOp{tile: tile, onRun: func() { ran = true }})
	q.DiscardAll()
	if tile.IsRepaintPending() {
		t.Error("IsRepaintPending() = true after discard, want false")
	}

	close(gate)
	q.Drain()
	if ran {
		t.Error("discarded op ran")
	}
}

func TestQueueCloseRejectsSchedule(t *testing.T) {
	q := NewQueue()
	q.Start()
	<-q.Ready()
	q.Close()
	if q.Schedule(&fakeOp{tile: queueTile()}) {
		t.Error("Schedule() = true after Close, want false")
	}
}

func TestQueueRescheduleDuringRun(t *testing.T) {
	q := newTestQueue(t)

	tile := queueTile()
	var mu sync.Mutex
	runs := 0
	var op2 *fakeOp
	op2 = &fakeOp{tile: tile, onRun: func() {
		mu.Lock()
		runs++
		mu.Unlock()
	}}
	op1 := &fakeOp{tile: tile, onRun: func() {
		mu.Lock()
		runs++
		mu.Unlock()
		q.Schedule(op2)
	}}

	q.Schedule(op1)
	q.Drain()

	mu.Lock()
	defer mu.Unlock()
	if runs != 2 {
		t.Errorf("tile painted %d times, want 2", runs)
	}
	if tile.IsRepaintPending() {
		t.Error("IsRepaintPending() = true after both runs, want false")
	}
}
