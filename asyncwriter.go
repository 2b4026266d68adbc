package tdms

import (
	"context"
	"sync"
)

// AsyncWriter wraps a [Writer] with a single background worker goroutine
// draining a bounded, FIFO queue of write operations. Submissions are
// applied to the underlying [Writer] strictly in submission order, so
// callers get the ergonomics of a non-blocking write path without losing
// the ordering guarantees plain [Writer] usage relies on.
//
// A queued task always runs once accepted: the only cancellation point is
// before acceptance, while [AsyncWriter.Submit] is still waiting for queue
// space.
type AsyncWriter struct {
	w     *Writer
	queue chan asyncTask
	wg    sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	firstErr error
}

type asyncTask struct {
	fn func(*Writer) error
}

// defaultAsyncQueueSize is used when NewAsyncWriter is given a
// non-positive queue size.
const defaultAsyncQueueSize = 64

// NewAsyncWriter starts a worker goroutine draining writes against w.
// queueSize bounds how many submitted tasks may be waiting at once; a
// non-positive value uses a built-in default.
func NewAsyncWriter(w *Writer, queueSize int) *AsyncWriter {
	if queueSize <= 0 {
		queueSize = defaultAsyncQueueSize
	}
	aw := &AsyncWriter{w: w, queue: make(chan asyncTask, queueSize)}
	aw.wg.Add(1)
	go aw.run()
	return aw
}

func (aw *AsyncWriter) run() {
	defer aw.wg.Done()
	for task := range aw.queue {
		if err := task.fn(aw.w); err != nil {
			aw.recordErr(err)
		}
	}
}

func (aw *AsyncWriter) recordErr(err error) {
	aw.mu.Lock()
	if aw.firstErr == nil {
		aw.firstErr = err
	}
	aw.mu.Unlock()
}

// Submit enqueues fn to run on the writer's worker goroutine. It blocks
// until the task is accepted onto the queue or ctx is cancelled first.
func (aw *AsyncWriter) Submit(ctx context.Context, fn func(*Writer) error) error {
	aw.mu.Lock()
	closed := aw.closed
	aw.mu.Unlock()
	if closed {
		return ErrClosed
	}

	select {
	case aw.queue <- asyncTask{fn: fn}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the first error recorded by a queued task, if any. A queued
// task's error doesn't stop later tasks from running.
func (aw *AsyncWriter) Err() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.firstErr
}

// Close stops accepting new submissions, waits for every already-queued
// task to finish, and closes the underlying [Writer]. It returns the first
// error recorded by a queued task, or else any error from closing the
// writer.
func (aw *AsyncWriter) Close() error {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return ErrClosed
	}
	aw.closed = true
	aw.mu.Unlock()

	close(aw.queue)
	aw.wg.Wait()

	closeErr := aw.w.Close()
	if err := aw.Err(); err != nil {
		return err
	}
	return closeErr
}

// CreateChannel queues [Writer.CreateChannel].
func (aw *AsyncWriter) CreateChannel(ctx context.Context, group, channel string, dt DataType) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.CreateChannel(group, channel, dt) })
}

// SetFileProperty queues [Writer.SetFileProperty].
func (aw *AsyncWriter) SetFileProperty(ctx context.Context, name string, value any) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.SetFileProperty(name, value) })
}

// SetGroupProperty queues [Writer.SetGroupProperty].
func (aw *AsyncWriter) SetGroupProperty(ctx context.Context, group, name string, value any) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.SetGroupProperty(group, name, value) })
}

// SetChannelProperty queues [Writer.SetChannelProperty].
func (aw *AsyncWriter) SetChannelProperty(ctx context.Context, group, channel, name string, value any) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.SetChannelProperty(group, channel, name, value) })
}

// WriteInt8 queues [Writer.WriteInt8].
func (aw *AsyncWriter) WriteInt8(ctx context.Context, group, channel string, values []int8) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteInt8(group, channel, values) })
}

// WriteInt16 queues [Writer.WriteInt16].
func (aw *AsyncWriter) WriteInt16(ctx context.Context, group, channel string, values []int16) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteInt16(group, channel, values) })
}

// WriteInt32 queues [Writer.WriteInt32].
func (aw *AsyncWriter) WriteInt32(ctx context.Context, group, channel string, values []int32) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteInt32(group, channel, values) })
}

// WriteInt64 queues [Writer.WriteInt64].
func (aw *AsyncWriter) WriteInt64(ctx context.Context, group, channel string, values []int64) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteInt64(group, channel, values) })
}

// WriteUint8 queues [Writer.WriteUint8].
func (aw *AsyncWriter) WriteUint8(ctx context.Context, group, channel string, values []uint8) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteUint8(group, channel, values) })
}

// WriteUint16 queues [Writer.WriteUint16].
func (aw *AsyncWriter) WriteUint16(ctx context.Context, group, channel string, values []uint16) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteUint16(group, channel, values) })
}

// WriteUint32 queues [Writer.WriteUint32].
func (aw *AsyncWriter) WriteUint32(ctx context.Context, group, channel string, values []uint32) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteUint32(group, channel, values) })
}

// WriteUint64 queues [Writer.WriteUint64].
func (aw *AsyncWriter) WriteUint64(ctx context.Context, group, channel string, values []uint64) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteUint64(group, channel, values) })
}

// WriteFloat32 queues [Writer.WriteFloat32].
func (aw *AsyncWriter) WriteFloat32(ctx context.Context, group, channel string, values []float32) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteFloat32(group, channel, values) })
}

// WriteFloat64 queues [Writer.WriteFloat64].
func (aw *AsyncWriter) WriteFloat64(ctx context.Context, group, channel string, values []float64) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteFloat64(group, channel, values) })
}

// WriteBool queues [Writer.WriteBool].
func (aw *AsyncWriter) WriteBool(ctx context.Context, group, channel string, values []bool) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteBool(group, channel, values) })
}

// WriteTimestamp queues [Writer.WriteTimestamp].
func (aw *AsyncWriter) WriteTimestamp(ctx context.Context, group, channel string, values []Timestamp) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteTimestamp(group, channel, values) })
}

// WriteComplex64 queues [Writer.WriteComplex64].
func (aw *AsyncWriter) WriteComplex64(ctx context.Context, group, channel string, values []complex64) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteComplex64(group, channel, values) })
}

// WriteComplex128 queues [Writer.WriteComplex128].
func (aw *AsyncWriter) WriteComplex128(ctx context.Context, group, channel string, values []complex128) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteComplex128(group, channel, values) })
}

// WriteStrings queues [Writer.WriteStrings].
func (aw *AsyncWriter) WriteStrings(ctx context.Context, group, channel string, values []string) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.WriteStrings(group, channel, values) })
}

// Flush queues [Writer.Flush].
func (aw *AsyncWriter) Flush(ctx context.Context) error {
	return aw.Submit(ctx, func(w *Writer) error { return w.Flush() })
}
