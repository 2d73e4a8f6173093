package engine

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// Serializer runs submitted work one at a time per key, in submission order.
// Different keys run concurrently.
type Serializer struct {
	mu     sync.Mutex
	queues map[int64]*keyQueue
	wg     sync.WaitGroup
}

type keyQueue struct {
	pending []func()
}

func NewSerializer() *Serializer {
	return &Serializer{queues: make(map[int64]*keyQueue)}
}

func (q *Serializer) Submit(key int64, fn func()) {
	q.mu.Lock()
	if kq, busy := q.queues[key]; busy {
		kq.pending = append(kq.pending, fn)
		q.mu.Unlock()
		return
	}
	kq := &keyQueue{}
	q.queues[key] = kq
	q.wg.Add(1)
	q.mu.Unlock()

	go q.drain(key, kq, fn)
}

func (q *Serializer) drain(key int64, kq *keyQueue, fn func()) {
	defer q.wg.Done()
	for {
		q.safeRun(key, fn)

		q.mu.Lock()
		if len(kq.pending) == 0 {
			delete(q.queues, key)
			q.mu.Unlock()
			return
		}
		fn = kq.pending[0]
		kq.pending[0] = nil
		kq.pending = kq.pending[1:]
		q.mu.Unlock()
	}
}

func (q *Serializer) safeRun(key int64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panic", "user_id", key, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Wait blocks until every submitted function has run.
func (q *Serializer) Wait() {
	q.wg.Wait()
}
