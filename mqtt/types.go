package mqtt

import "context"

type (
	// Client represents the underlying MQTT client utilized by the
	// telemetry bridge.
	Client interface {
		// Subscribe sends a subscription request to the MQTT broker. It returns
		// a subscription object which can be used to unsubscribe.
		Subscribe(
			ctx context.Context,
			topic string,
			handler MessageHandler,
			opts ...SubscribeOption,
		) (Subscription, error)

		// Publish sends a publish request to the MQTT broker.
		Publish(
			ctx context.Context,
			topic string,
			payload []byte,
			opts ...PublishOption,
		) error

		// ClientID returns the identifier used by this client.
		ClientID() string
	}

	// Message represents a received message. The client implementation must
	// support manual ack, since acks are managed by the bridge.
	Message struct {
		Topic   string
		Payload []byte
		PublishOptions
		Ack func() error
	}

	// MessageHandler is a user-defined callback function used to handle
	// messages received on the subscribed topic.
	MessageHandler func(context.Context, *Message) error

	// Subscription represents an open subscription.
	Subscription interface {
		// Unsubscribe this subscription.
		Unsubscribe(context.Context) error
	}

	// QoS is an MQTT quality-of-service level.
	QoS byte

	// PayloadFormat is the MQTT payload format indicator.
	PayloadFormat byte

	// SubscribeOptions are the resolved subscribe options.
	SubscribeOptions struct {
		NoLocal        bool
		QoS            QoS
		UserProperties map[string]string
	}

	// SubscribeOption represents a single subscribe option.
	SubscribeOption interface{ subscribe(*SubscribeOptions) }

	// PublishOptions are the resolved publish options.
	PublishOptions struct {
		ContentType     string
		CorrelationData []byte
		MessageExpiry   uint32
		PayloadFormat   PayloadFormat
		QoS             QoS
		Retain          bool
		UserProperties  map[string]string
	}

	// PublishOption represents a single publish option.
	PublishOption interface{ publish(*PublishOptions) }
)
