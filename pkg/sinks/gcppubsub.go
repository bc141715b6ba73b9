package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// gcpPubSubSender pushes a single event onto a Google Pub/Sub topic.
type gcpPubSubSender struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	log    Logger
}

// newGCPPubSubSender connects to Pub/Sub and verifies the topic exists.
func newGCPPubSubSender(ctx context.Context, cfg *GCPSinkConfig, log Logger) (*gcpPubSubSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing gcp configuration")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(cfg.Topic)
	ok, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("check topic %q: %w", cfg.Topic, err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("pubsub topic %q does not exist", cfg.Topic)
	}

	return &gcpPubSubSender{
		client: client,
		topic:  topic,
		log:    ensureLogger(log),
	}, nil
}

// Send publishes the event and waits for the server ack.
func (g *gcpPubSubSender) Send(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	res := g.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"category": string(evt.Category),
		},
	})
	id, err := res.Get(ctx)
	if err != nil {
		g.log.ErrorObj("pubsub sender publish failed", "sink_pubsub_error", map[string]any{
			"topic": g.topic.ID(),
			"error": err.Error(),
		})
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	g.log.DebugObj("pubsub sender delivered event", "sink_pubsub_delivery", map[string]any{
		"message_id": id,
	})
	return nil
}

// Close stops the topic's publish goroutines and releases the client.
func (g *gcpPubSubSender) Close() {
	g.topic.Stop()
	g.client.Close()
}

// gcpPubSubSink adapts gcpPubSubSender to the Sink interface.
type gcpPubSubSink struct {
	id     string
	typ    string
	sender *gcpPubSubSender
}

// newGCPPubSubSink creates a new Pub/Sub sink with the given configuration.
func newGCPPubSubSink(ctx context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	if cfg.GCP == nil {
		return nil, fmt.Errorf("sink %q missing gcp configuration", cfg.ID)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	sender, err := newGCPPubSubSender(ctx, cfg.GCP, log)
	if err != nil {
		return nil, err
	}

	return &gcpPubSubSink{
		id:     cfg.ID,
		typ:    TypeGCPPubSub,
		sender: sender,
	}, nil
}

func (g *gcpPubSubSink) ID() string   { return g.id }
func (g *gcpPubSubSink) Type() string { return g.typ }

func (g *gcpPubSubSink) Publish(ctx context.Context, evt Event) error {
	return g.sender.Send(ctx, evt)
}
