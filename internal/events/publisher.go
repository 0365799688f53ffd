package events

import (
	"encoding/json"
	"log"

	"RelayScope/internal/poller"

	"github.com/nats-io/nats.go"
)

// Publisher emits one cycle summary to a NATS subject after every publish,
// so external consumers can watch relay activity without polling the API.
// Publishing is best effort: a failed emit is logged and never fails the
// cycle that produced it.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to the NATS server.
func NewPublisher(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", url)
	return &Publisher{nc: nc, subject: subject}, nil
}

// Publish serializes a cycle summary to JSON and publishes it.
func (p *Publisher) Publish(summary poller.CycleSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		log.Printf("Error marshalling cycle summary: %v", err)
		return
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		log.Printf("Error publishing cycle summary: %v", err)
	}
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
