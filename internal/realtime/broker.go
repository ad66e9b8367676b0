// Package realtime fans out row change events to in-process subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrBrokerFull   = errors.New("broker buffer is full")
	ErrBrokerClosed = errors.New("broker is closed")
)

const (
	KindInsert = "insert"
	KindUpdate = "update"
	KindDelete = "delete"
)

// Event describes one change to a row of a relation
type Event struct {
	Topic   string          `json:"topic"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Topic names the stream of events of one kind on one relation
func Topic(relation, kind string) string {
	return relation + ":" + kind
}

func NewEvent(relation, kind string, record any) (Event, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return Event{}, err
	}
	return Event{Topic: Topic(relation, kind), Kind: kind, Payload: payload}, nil
}

type Handler func(Event)

// Subscription is the teardown handle returned by Subscribe. The owner must
// call Close once it no longer wants events.
type Subscription interface {
	Close() error
}

type Broker interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(topic string, handler Handler) (Subscription, error)
	Close() error
}
