package transport

import (
	"bytes"
	"sync"
	"time"

	"github.com/seagrayinc/halproto/pkg/hal"
)

// pump buffers input that arrives in device-sized chunks from a reader goroutine, and serves it
// back as a byte stream with per-call timeouts.
type pump struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	err    error
	notify chan struct{}
}

func newPump() *pump {
	return &pump{notify: make(chan struct{}, 1)}
}

func (p *pump) push(b []byte) {
	p.mu.Lock()
	p.buf.Write(b)
	p.mu.Unlock()
	p.wake()
}

// fail makes every later read return err once the buffered bytes are drained.
func (p *pump) fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
	p.wake()
}

func (p *pump) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *pump) read(dst []byte, timeout time.Duration) (int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		p.mu.Lock()
		if p.buf.Len() > 0 {
			n, _ := p.buf.Read(dst)
			p.mu.Unlock()
			return n, nil
		}
		err := p.err
		p.mu.Unlock()
		if err != nil {
			return 0, err
		}

		select {
		case <-p.notify:
		case <-timer.C:
			return 0, hal.ErrTimeout
		}
	}
}

func (p *pump) reset() {
	p.mu.Lock()
	p.buf.Reset()
	p.mu.Unlock()
}
