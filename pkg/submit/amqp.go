package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/goliatone/go-multistep/pkg/wizard"
)

// MessageType is the AMQP type of published submissions.
const MessageType = "form.submitted"

// Publisher is the subset of *amqp.Channel the broker sink needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type amqpSink struct {
	pub        Publisher
	exchange   string
	routingKey string
	cfg        sinkConfig
}

// AMQP returns a submit handler that publishes each submission as a
// persistent JSON message. A failed publish rejects the submission.
func AMQP(pub Publisher, exchange, routingKey string, options ...SinkOption) (wizard.SubmitHandler, error) {
	if pub == nil {
		return nil, errors.New("submit: publisher is nil")
	}
	s := &amqpSink{
		pub:        pub,
		exchange:   exchange,
		routingKey: routingKey,
		cfg:        newSinkConfig(options),
	}
	return wizard.SubmitHandlerFunc(s.publish), nil
}

func (s *amqpSink) publish(ctx context.Context, values map[string]any) error {
	env := s.cfg.envelope(values)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("submit: encode message: %w", err)
	}
	err = s.pub.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Type:         MessageType,
		Timestamp:    env.SubmittedAt,
		Body:         body,
	})
	if err != nil {
		s.cfg.logger.Warn("submission not published", "exchange", s.exchange, "routing_key", s.routingKey, "error", err)
		return fmt.Errorf("submit: publish to %s/%s: %w", s.exchange, s.routingKey, err)
	}
	s.cfg.logger.Debug("submission published", "exchange", s.exchange, "routing_key", s.routingKey, "message_id", env.ID)
	return nil
}
