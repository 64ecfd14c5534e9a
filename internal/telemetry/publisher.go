package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Sample is the per-frame telemetry message sent to live subscribers.
type Sample struct {
	SessionID    string  `json:"session_id"`
	FrameIndex   int     `json:"frame_index"`
	Steering     float64 `json:"steering"`
	LaneDetected bool    `json:"lane_detected"`
	TurnState    string  `json:"turn_state"`
	Timestamp    int64   `json:"timestamp"`
}

// Publisher pushes samples to an external consumer.
type Publisher interface {
	Publish(sample Sample) error
	Close() error
}

// NATSPublisher publishes samples as JSON to a NATS subject. A broker that
// is down never fails the control loop; publishing degrades to a no-op
// until the connection recovers.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	mu      sync.Mutex
}

// NewNATSPublisher connects to the broker and returns a publisher for the
// given subject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("lanekeeper-telemetry"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}

	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish sends one sample. Disconnected states are tolerated silently; the
// client buffers or drops per its reconnect settings.
func (p *NATSPublisher) Publish(sample Sample) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal telemetry sample: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish telemetry sample: %w", err)
	}

	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	return nil
}
