package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter moves record writes off the caller goroutine and fans them out to every sink.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}
	stop    sync.Once

	mu    sync.Mutex
	sinks []*bufio.Writer
	err   error
}

func newAsyncWriter(outputs []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	for _, out := range outputs {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.flushSinks()
				return
			}
			w.write(line)
		case reply := <-w.flushes:
			reply <- w.flushSinks()
		}
	}
}

// Write copies p and queues it. It blocks when the queue is full rather than dropping records.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until queued records reach the sinks.
func (w *asyncWriter) Flush() error {
	reply := make(chan error, 1)
	select {
	case w.flushes <- reply:
		return errors.Join(<-reply, w.firstErr())
	case <-w.done:
		return w.firstErr()
	}
}

// Close drains the queue and stops the writer goroutine.
func (w *asyncWriter) Close() error {
	w.stop.Do(func() { close(w.lines) })
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) write(p []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if _, err := s.Write(p); err != nil && w.err == nil {
			w.err = err
		}
		if err := s.Flush(); err != nil && w.err == nil {
			w.err = err
		}
	}
}

func (w *asyncWriter) flushSinks() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
