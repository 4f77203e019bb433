package events

import (
	"Go2FlowText/internal/config"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const closeTimeout = 5 * time.Second

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Drain() error
}

// Publisher publishes class events to a NATS subject.
type Publisher struct {
	nc      conn
	subject string
	closed  chan struct{}
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.EventsConfig) (*Publisher, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(cfg.NATSURL, nats.ClosedHandler(func(*nats.Conn) { close(closed) }))
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject, closed: closed}, nil
}

// PublishClass serializes the event and publishes it to the configured subject.
func (p *Publisher) PublishClass(ev ClassEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close flushes pending events, drains the connection and waits until it is
// closed so nothing buffered is lost on exit.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.FlushTimeout(closeTimeout); err != nil {
		log.Printf("Error flushing pending events: %v", err)
	}
	if err := p.nc.Drain(); err != nil {
		log.Printf("Error draining NATS connection: %v", err)
		return
	}
	select {
	case <-p.closed:
		log.Println("NATS connection drained and closed.")
	case <-time.After(closeTimeout):
		log.Printf("Timed out after %v waiting for NATS connection to close.", closeTimeout)
	}
}
