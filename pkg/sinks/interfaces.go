package sinks

import "context"

// Sink sends interaction events to a downstream consumer (SQS, HTTP, etc).
type Sink interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
