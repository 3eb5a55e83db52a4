// Package events publishes session lifecycle events to RabbitMQ so external
// consumers (analytics, moderation tooling) can follow chat activity without
// touching the database.
package events

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const Exchange = "anonpair.sessions"

// Event names carried in the payload.
const (
	EventSessionOpened = "session.opened"
	EventSessionClosed = "session.closed"
)

// SessionEvent is the JSON payload published for every lifecycle change.
type SessionEvent struct {
	Event     string    `json:"event"`
	SessionID uint      `json:"session_id"`
	UserA     int64     `json:"user_a,omitempty"`
	UserB     int64     `json:"user_b,omitempty"`
	EndedBy   *int64    `json:"ended_by,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher pushes session events to a fanout exchange. A nil Publisher is
// valid and drops everything, so the broker stays optional.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *logrus.Entry
}

// NewPublisher connects to RabbitMQ and declares the session exchange.
func NewPublisher(amqpURL string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{
		conn:    conn,
		channel: ch,
		log:     logrus.WithField("component", "events"),
	}, nil
}

// SessionOpened publishes a session.opened event. Best effort: a publish
// failure is logged, never propagated to the matchmaking path.
func (p *Publisher) SessionOpened(sessionID uint, userA, userB int64) {
	p.publish(SessionEvent{
		Event:     EventSessionOpened,
		SessionID: sessionID,
		UserA:     userA,
		UserB:     userB,
		At:        time.Now(),
	})
}

// SessionClosed publishes a session.closed event.
func (p *Publisher) SessionClosed(sessionID uint, endedBy *int64) {
	p.publish(SessionEvent{
		Event:     EventSessionClosed,
		SessionID: sessionID,
		EndedBy:   endedBy,
		At:        time.Now(),
	})
}

func (p *Publisher) publish(evt SessionEvent) {
	if p == nil {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		p.log.WithError(err).Error("marshal event failed")
		return
	}
	err = p.channel.Publish(Exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		p.log.WithError(err).WithField("event", evt.Event).Warn("publish failed")
	}
}

// Close shuts down the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
