package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/webserv/sessionauth/internal/mq"
	"github.com/webserv/sessionauth/types"
)

// Session lifecycle event types.
const (
	EventUserRegistered  = "user.registered"
	EventSessionStarted  = "session.started"
	EventSessionReplaced = "session.replaced"
	EventSessionEnded    = "session.ended"
)

const publishTimeout = 2 * time.Second

// Event describes a committed change to a user's credentials or session.
// It never carries a token or password.
type Event struct {
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

func newEvent(eventType string, identity types.Identity) Event {
	return Event{
		Type:     eventType,
		UserID:   identity.UserID,
		Username: identity.Username,
		At:       time.Now().UTC(),
	}
}

// EventPublisher delivers events on a best-effort basis. Publishing never
// fails the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

// MQPublisher encodes events as JSON onto a message bus channel.
type MQPublisher struct {
	bus     *mq.MQ
	channel string
	logger  *slog.Logger
}

func NewMQPublisher(bus *mq.MQ, channel string, logger *slog.Logger) *MQPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQPublisher{bus: bus, channel: channel, logger: logger}
}

func (p *MQPublisher) Publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "encode session event", "type", event.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	attrs := map[string]string{
		mq.AttrType: event.Type,
		mq.AttrKey:  strconv.FormatInt(event.UserID, 10),
	}
	if _, err := p.bus.Publish(ctx, p.channel, data, attrs); err != nil {
		p.logger.WarnContext(ctx, "publish session event failed",
			"type", event.Type,
			"user_id", event.UserID,
			"channel", p.channel,
			"error", err,
		)
	}
}

// DecodeEvent parses an event published by MQPublisher.
func DecodeEvent(msg mq.Message) (Event, error) {
	var event Event
	err := json.Unmarshal(msg.Data, &event)
	return event, err
}
