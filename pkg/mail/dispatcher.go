package mail

import (
	"sync"

	"medbook/pkg/logger"
)

// Dispatcher sends mail off the request path. Enqueue never blocks a booking:
// when the queue is full the message is dropped and logged.
type Dispatcher struct {
	sender Sender
	queue  chan Message
	log    *logger.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

func NewDispatcher(sender Sender, queueSize int, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		queue:  make(chan Message, queueSize),
		log:    log,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for msg := range d.queue {
		if err := d.sender.Send(msg); err != nil {
			d.log.Error("Email delivery failed",
				"to", msg.To,
				"subject", msg.Subject,
				"error", err,
			)
			continue
		}
		d.log.Debug("Email delivered", "to", msg.To, "subject", msg.Subject)
	}
}

func (d *Dispatcher) Enqueue(msg Message) {
	select {
	case d.queue <- msg:
	default:
		d.log.Warn("Email queue full, dropping message", "to", msg.To, "subject", msg.Subject)
	}
}

// Stop drains the queue and waits for in-flight sends.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}
