package io

import (
	"sync"
)

// TileWriter fans produced files out to a pool of consumers. The quadtree
// generator submits through Write; Close drains the pool and reports the
// first failure.
type TileWriter struct {
	workchan chan *WorkUnit
	errchan  chan error
	wg       sync.WaitGroup
	done     chan struct{}

	mu       sync.Mutex
	firstErr error
}

func NewTileWriter(workers int) *TileWriter {
	if workers < 1 {
		workers = 1
	}
	w := &TileWriter{
		workchan: make(chan *WorkUnit, workers*4),
		errchan:  make(chan error, workers),
		done:     make(chan struct{}),
	}
	w.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go NewStandardConsumer().Consume(w.workchan, w.errchan, &w.wg)
	}
	go w.collectErrors()
	return w
}

func (w *TileWriter) collectErrors() {
	for err := range w.errchan {
		w.mu.Lock()
		if w.firstErr == nil {
			w.firstErr = err
		}
		w.mu.Unlock()
	}
	close(w.done)
}

// Write queues one file. A consumer failure surfaces on a later Write or at
// Close; tiles already queued still get written.
func (w *TileWriter) Write(path string, data []byte) error {
	w.mu.Lock()
	err := w.firstErr
	w.mu.Unlock()
	if err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	w.workchan <- &WorkUnit{FilePath: path, Data: buf}
	return nil
}

// Close signals the consumers, waits for them to finish and returns the
// first error any of them hit.
func (w *TileWriter) Close() error {
	close(w.workchan)
	w.wg.Wait()
	close(w.errchan)
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.firstErr
}
