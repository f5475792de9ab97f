package mqtt

import (
	"github.com/autopeer-io/garage-agent/pkg/log"
)

// inbox is the fixed-capacity hand-off between the transport's reader
// goroutine and the caller's Poll. When it is full new messages are dropped.
type inbox struct {
	ch chan Message
}

func newInbox(size int) *inbox {
	return &inbox{ch: make(chan Message, size)}
}

func (b *inbox) push(m Message) {
	select {
	case b.ch <- m:
	default:
		log.Warn("MQTT inbox full, dropping message", "topic", m.Topic, "capacity", cap(b.ch))
	}
}

func (b *inbox) poll(max int, fn func(Message)) int {
	n := 0
	for n < max {
		select {
		case m := <-b.ch:
			fn(m)
			n++
		default:
			return n
		}
	}
	return n
}
