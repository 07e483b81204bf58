package wasi

import (
	"bytes"
	"io"
	"sync"
)

// pipe is an in-memory unidirectional byte stream. Writes append to an
// unbounded buffer and never block; reads block until data arrives or the
// write end closes. Per-stream write order is preserved.
type pipe struct {
	mu   sync.Mutex
	wake chan struct{}
	buf  bytes.Buffer
	werr error
	rerr error
}

// PipeReader is the read end of a pipe.
type PipeReader struct {
	p *pipe
}

// PipeWriter is the write end of a pipe.
type PipeWriter struct {
	p *pipe
}

// NewPipe creates an in-memory stream pair. The reader sees every byte the
// writer produced, in order, and io.EOF once the writer closes and the
// buffer is drained.
func NewPipe() (*PipeReader, *PipeWriter) {
	p := &pipe{wake: make(chan struct{}, 1)}
	return &PipeReader{p: p}, &PipeWriter{p: p}
}

// signalLocked wakes one blocked reader. The caller holds p.mu.
func (p *pipe) signalLocked() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (r *PipeReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	p := r.p
	p.mu.Lock()
	for {
		if p.rerr != nil {
			p.mu.Unlock()
			return 0, p.rerr
		}
		if p.buf.Len() > 0 {
			n, _ := p.buf.Read(b)
			if p.buf.Len() > 0 || p.werr != nil {
				p.signalLocked()
			}
			p.mu.Unlock()
			return n, nil
		}
		if p.werr != nil {
			p.signalLocked()
			p.mu.Unlock()
			return 0, p.werr
		}
		p.mu.Unlock()
		<-p.wake
		p.mu.Lock()
	}
}

// Close discards buffered data and fails subsequent writes with
// io.ErrClosedPipe. It is safe to call more than once.
func (r *PipeReader) Close() error {
	p := r.p
	p.mu.Lock()
	if p.rerr == nil {
		p.rerr = io.ErrClosedPipe
		p.buf.Reset()
	}
	p.signalLocked()
	p.mu.Unlock()
	return nil
}

func (w *PipeWriter) Write(b []byte) (int, error) {
	p := w.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rerr != nil {
		return 0, io.ErrClosedPipe
	}
	if p.werr != nil {
		return 0, io.ErrClosedPipe
	}
	n, _ := p.buf.Write(b)
	p.signalLocked()
	return n, nil
}

// Close marks the stream complete. Blocked and future reads observe io.EOF
// once the buffer is drained. It is safe to call more than once.
func (w *PipeWriter) Close() error {
	p := w.p
	p.mu.Lock()
	if p.werr == nil {
		p.werr = io.EOF
	}
	p.signalLocked()
	p.mu.Unlock()
	return nil
}
