// Package events streams lifecycle changes to NATS.
//
// Each timeoff.Event is published as JSON on "<prefix>.<type>", for example
// "vacation.request.approved". Consumers subscribe to "<prefix>.>" to follow
// everything, or to a single subject.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/timeoff"
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher implements timeoff.Notifier on a NATS connection.
type Publisher struct {
	conn   Conn
	nc     *nats.Conn // set when the publisher owns the connection
	prefix string
	logger *slog.Logger
}

var _ timeoff.Notifier = (*Publisher)(nil)

// NewPublisher connects to natsURL.
func NewPublisher(natsURL, prefix string, logger *slog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("vacation-engine"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", "url", natsURL, "prefix", prefix)

	p := NewPublisherWithConn(nc, prefix, logger)
	p.nc = nc
	return p, nil
}

// NewPublisherWithConn publishes on an existing connection.
func NewPublisherWithConn(conn Conn, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, prefix: prefix, logger: logger}
}

// Close drains the connection if the publisher opened it.
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
		}
	}
}

// Subject returns the subject an event type is published on.
func Subject(prefix string, typ timeoff.EventType) string {
	if prefix == "" {
		return string(typ)
	}
	return prefix + "." + string(typ)
}

func (p *Publisher) Notify(_ context.Context, e timeoff.Event) error {
	data, err := json.Marshal(NewMessage(e))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(p.prefix, e.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published event", "subject", subject, "request", e.RequestID)
	return nil
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

type Message struct {
	Type       string          `json:"type"`
	RequestID  string          `json:"request_id,omitempty"`
	EmployeeID string          `json:"employee_id,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	State      string          `json:"state,omitempty"`
	Hours      int             `json:"hours,omitempty"`
	Balance    *BalanceMessage `json:"balance,omitempty"`
	ActorID    string          `json:"actor_id,omitempty"`
	Sweep      *SweepMessage   `json:"sweep,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

type BalanceMessage struct {
	Available float64 `json:"available"`
	Pending   float64 `json:"pending"`
	Assigned  float64 `json:"assigned"`
}

type SweepMessage struct {
	RunID     string `json:"run_id"`
	Trigger   string `json:"trigger"`
	Status    string `json:"status"`
	Scanned   int    `json:"scanned"`
	Cancelled int    `json:"cancelled"`
	Failed    int    `json:"failed"`
}

// NewMessage converts an event to its wire form.
func NewMessage(e timeoff.Event) Message {
	m := Message{
		Type:       string(e.Type),
		RequestID:  string(e.RequestID),
		EmployeeID: string(e.EmployeeID),
		Kind:       string(e.Kind),
		State:      string(e.State),
		Hours:      e.Hours,
		ActorID:    e.ActorID,
		Timestamp:  e.At.UTC(),
	}
	if e.Balance != nil {
		m.Balance = balanceMessage(*e.Balance)
	}
	if e.Sweep != nil {
		m.Sweep = &SweepMessage{
			RunID:     e.Sweep.ID,
			Trigger:   e.Sweep.Trigger,
			Status:    string(e.Sweep.Status),
			Scanned:   e.Sweep.Scanned,
			Cancelled: e.Sweep.Cancelled,
			Failed:    e.Sweep.Failed,
		}
	}
	return m
}

func balanceMessage(b generic.Balance) *BalanceMessage {
	return &BalanceMessage{
		Available: b.Available.Float(),
		Pending:   b.Pending.Float(),
		Assigned:  b.Assigned.Float(),
	}
}
