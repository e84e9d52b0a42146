package ctrl

import (
	"time"
)

// NewDebouncer starts a trailing-edge debouncer with the given window. Each
// incoming message replaces the pending one and restarts the window; when the
// window elapses the latest pending message is delivered. A window of 0
// passes every message through unchanged, still asynchronously.
func NewDebouncer(window time.Duration) *Debouncer {
	result := &Debouncer{
		window: window,
		in:     make(chan RawMessage, 1000),
		out:    make(chan RawMessage, 1000),
		closed: make(chan struct{}),
	}

	result.start()

	return result
}

type Debouncer struct {
	window time.Duration
	in     chan RawMessage
	out    chan RawMessage
	closed chan struct{}
}

func (d *Debouncer) start() {
	go func() {
		defer close(d.closed)
		defer close(d.out)

		timer := time.NewTimer(time.Hour)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		var pending RawMessage
		hasPending := false

		for {
			select {
			case msg, valid := <-d.in:
				if !valid {
					return
				}
				if d.window <= 0 {
					d.out <- msg
					continue
				}
				pending = msg
				hasPending = true
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d.window)
			case <-timer.C:
				if hasPending {
					d.out <- pending
					hasPending = false
				}
			}
		}
	}()
}

// Put hands a message to the debouncer. It must not be called after Close.
func (d *Debouncer) Put(msg RawMessage) {
	d.in <- msg
}

// Messages returns the channel of debounced messages. It is closed when the
// debouncer is closed.
func (d *Debouncer) Messages() <-chan RawMessage {
	return d.out
}

// Close stops the debouncer, dropping a still pending message. Closing twice
// is a no-op.
func (d *Debouncer) Close() {
	select {
	case <-d.closed:
		return
	default:
		close(d.in)
		<-d.closed
	}
}
