// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import "sync"

// Operation is one unit of work for the paint queue.
type Operation interface {
	// Run executes the operation on the paint worker.
	Run()

	// Tile returns the tile the operation targets.
	Tile() *Tile

	// Painter returns the painter the operation paints with.
	Painter() Painter

	// Scale returns the scale the operation was scheduled at.
	Scale() float32
}

// PaintTileOperation paints one tile's dirty region through a renderer.
type PaintTileOperation struct {
	tile     *Tile
	painter  Painter
	scale    float32
	renderer Renderer
}

// NewPaintTileOperation captures the tile's current painter and scale so
// stale operations can be filtered after a retarget.
func NewPaintTileOperation(tile *Tile, renderer Renderer) *PaintTileOperation {
	return &PaintTileOperation{
		tile:     tile,
		painter:  tile.Painter(),
		scale:    tile.Scale(),
		renderer: renderer,
	}
}

// Run paints the tile.
func (op *PaintTileOperation) Run() { op.tile.PaintBitmap(op.renderer) }

// Tile returns the target tile.
func (op *PaintTileOperation) Tile() *Tile { return op.tile }

// Painter returns the painter captured at scheduling time.
func (op *PaintTileOperation) Painter() Painter { return op.painter }

// Scale returns the scale captured at scheduling time.
func (op *PaintTileOperation) Scale() float32 { return op.scale }

// OperationFilter selects queued operations for removal.
type OperationFilter interface {
	// Check returns true if op should be removed from the queue.
	Check(op Operation) bool
}

// PainterFilter removes every operation scheduled for one painter. Used
// when a surface goes away.
type PainterFilter struct {
	Target Painter
}

// Check reports whether op belongs to the filtered painter.
func (f PainterFilter) Check(op Operation) bool {
	return op.Painter() == f.Target
}

// ScaleFilter removes operations for a painter whose captured scale no
// longer matches. Used on zoom: paints for the old scale are wasted
// work.
type ScaleFilter struct {
	Target Painter
	Scale  float32
}

// Check reports whether op is a stale-scale paint for the painter.
func (f ScaleFilter) Check(op Operation) bool {
	return op.Painter() == f.Target && op.Scale() != f.Scale
}

// PaintScheduler is the scheduling surface tiles and surfaces talk to.
// Queue is the canonical implementation; tests substitute their own.
type PaintScheduler interface {
	// Schedule enqueues op. Returns false if the op was rejected.
	Schedule(op Operation) bool

	// CancelMatching removes queued operations the filter selects and
	// returns how many were removed.
	CancelMatching(f OperationFilter) int

	// DiscardAll drops every queued operation.
	DiscardAll()
}

var _ PaintScheduler = (*Queue)(nil)

// Queue is the FIFO paint scheduler. The GL goroutine schedules and
// cancels operations; a single worker goroutine drains them in order.
//
// The queue owns the repaint-pending flag of every tile it touches: the
// flag is set when an operation is accepted and cleared when the
// operation finishes, is cancelled, or is discarded. Every flag
// transition happens under the queue mutex so the flag always agrees
// with queue membership. Prepare relies on the flag to avoid scheduling
// duplicate paints, and eviction relies on it to avoid stealing
// textures out from under a queued paint.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	ops     []Operation
	running Operation
	closed  bool

	ready     chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewQueue creates a paint queue. Call Start to spawn the worker.
func NewQueue() *Queue {
	q := &Queue{ready: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start launches the worker goroutine. The Ready channel closes once the
// worker is servicing the queue. Start is idempotent.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		go q.worker()
	})
}

// Ready is closed once the worker goroutine is running.
func (q *Queue) Ready() <-chan struct{} { return q.ready }

// Schedule appends op to the queue and marks its tile repaint-pending.
// An operation for a tile that is already queued is dropped as a
// duplicate. Returns false if the queue is closed or the op was a
// duplicate.
//
// The flag is set under the queue mutex, before the op becomes visible
// to the worker. Setting it after the unlock would let a fast worker
// run the op and clear the flag first, leaving it stuck true on an
// idle queue.
func (q *Queue) Schedule(op Operation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	for _, queued := range q.ops {
		if queued.Tile() == op.Tile() {
			return false
		}
	}
	q.ops = append(q.ops, op)
	op.Tile().SetRepaintPending(true)
	q.cond.Broadcast()
	return true
}

// CancelMatching removes every queued operation the filter selects,
// preserving the relative order of the survivors, and clears the
// repaint-pending flag of removed tiles. The running operation is not
// interrupted. Returns the number of removed operations.
func (q *Queue) CancelMatching(f OperationFilter) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.ops[:0]
	removed := 0
	for _, op := range q.ops {
		if f.Check(op) {
			op.Tile().SetRepaintPending(false)
			removed++
		} else {
			kept = append(kept, op)
		}
	}
	q.ops = kept
	return removed
}

// DiscardAll drops every queued operation and clears the pending flags.
func (q *Queue) DiscardAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, op := range q.ops {
		op.Tile().SetRepaintPending(false)
	}
	q.ops = nil
}

// Drain blocks until the queue is empty and no operation is running.
func (q *Queue) Drain() {
	q.mu.Lock()
	for len(q.ops) > 0 || q.running != nil {
		q.cond.Wait()
	}
	q.mu.Unlock()
}

// Close stops the worker after the current operation and discards the
// rest of the queue. Close is idempotent.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		for _, op := range q.ops {
			op.Tile().SetRepaintPending(false)
		}
		q.ops = nil
		q.cond.Broadcast()
		q.mu.Unlock()
	})
}

func (q *Queue) worker() {
	close(q.ready)
	for {
		q.mu.Lock()
		for len(q.ops) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.ops) == 0 {
			q.mu.Unlock()
			return
		}
		op := q.ops[0]
		q.ops = q.ops[1:]
		q.running = op
		q.mu.Unlock()

		op.Run()

		// Requeue check, flag clear and idle broadcast are one critical
		// section: clearing outside the lock could race a concurrent
		// Schedule for the same tile and overwrite its fresh flag.
		q.mu.Lock()
		requeued := false
		for _, queued := range q.ops {
			if queued.Tile() == op.Tile() {
				requeued = true
				break
			}
		}
		if !requeued {
			op.Tile().SetRepaintPending(false)
		}
		q.running = nil
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}
