package mqtt

import (
	"context"
	"net"
	"sync"

	"github.com/eclipse/paho.golang/paho"
)

type (
	// PahoClient adapts an eclipse/paho.golang client to the Client
	// contract over an established network connection. Subscriptions
	// use literal topics; wildcard filters are not supported.
	PahoClient struct {
		client *paho.Client
		id     string

		mu       sync.RWMutex
		handlers map[string][]MessageHandler
	}

	pahoSubscription struct {
		client *PahoClient
		topic  string
		remove func()
	}
)

// NewPahoClient creates a client over the given connection. Connect
// must be called before use.
func NewPahoClient(id string, conn net.Conn) *PahoClient {
	c := &PahoClient{
		id:       id,
		handlers: map[string][]MessageHandler{},
	}
	c.client = paho.NewClient(paho.ClientConfig{
		ClientID:                   id,
		Conn:                       conn,
		EnableManualAcknowledgment: true,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			c.received,
		},
	})
	return c
}

// Connect performs the MQTT connection handshake.
func (c *PahoClient) Connect(ctx context.Context) error {
	_, err := c.client.Connect(ctx, &paho.Connect{
		ClientID:   c.id,
		KeepAlive:  5,
		CleanStart: true,
	})
	return err
}

// Disconnect closes the MQTT connection.
func (c *PahoClient) Disconnect() error {
	return c.client.Disconnect(&paho.Disconnect{})
}

// ClientID returns the identifier used by this client.
func (c *PahoClient) ClientID() string {
	return c.id
}

// Publish sends a publish request to the MQTT broker.
func (c *PahoClient) Publish(
	ctx context.Context,
	topic string,
	payload []byte,
	opts ...PublishOption,
) error {
	var o PublishOptions
	o.Apply(opts)

	_, err := c.client.Publish(ctx, &paho.Publish{
		QoS:     byte(o.QoS),
		Retain:  o.Retain,
		Topic:   topic,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType:     o.ContentType,
			CorrelationData: o.CorrelationData,
			PayloadFormat:   (*byte)(&o.PayloadFormat),
			MessageExpiry:   &o.MessageExpiry,
			User:            mapToUserProperties(o.UserProperties),
		},
	})
	return err
}

// Subscribe sends a subscription request to the MQTT broker and
// registers the handler for messages arriving on the topic.
func (c *PahoClient) Subscribe(
	ctx context.Context,
	topic string,
	handler MessageHandler,
	opts ...SubscribeOption,
) (Subscription, error) {
	var o SubscribeOptions
	o.Apply(opts)

	c.mu.Lock()
	c.handlers[topic] = append(c.handlers[topic], handler)
	c.mu.Unlock()

	// One active subscription per topic; unsubscribing drops all of
	// the topic's handlers.
	remove := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers, topic)
	}

	_, err := c.client.Subscribe(ctx, &paho.Subscribe{
		Properties: &paho.SubscribeProperties{
			User: mapToUserProperties(o.UserProperties),
		},
		Subscriptions: []paho.SubscribeOptions{{
			Topic:   topic,
			QoS:     byte(o.QoS),
			NoLocal: o.NoLocal,
		}},
	})
	if err != nil {
		remove()
		return nil, err
	}

	return pahoSubscription{client: c, topic: topic, remove: remove}, nil
}

// Unsubscribe this subscription.
func (s pahoSubscription) Unsubscribe(ctx context.Context) error {
	s.remove()
	_, err := s.client.client.Unsubscribe(ctx, &paho.Unsubscribe{
		Topics: []string{s.topic},
	})
	return err
}

// received dispatches an incoming publish to the handlers registered
// for its topic.
func (c *PahoClient) received(pub paho.PublishReceived) (bool, error) {
	c.mu.RLock()
	handlers := c.handlers[pub.Packet.Topic]
	c.mu.RUnlock()

	p := pub.Packet
	msg := &Message{
		Topic:   p.Topic,
		Payload: p.Payload,
		PublishOptions: PublishOptions{
			QoS:    QoS(p.QoS),
			Retain: p.Retain,
		},
		Ack: func() error { return c.client.Ack(p) },
	}
	if prop := p.Properties; prop != nil {
		msg.ContentType = prop.ContentType
		msg.CorrelationData = prop.CorrelationData
		msg.UserProperties = userPropertiesToMap(prop.User)
		if prop.MessageExpiry != nil {
			msg.MessageExpiry = *prop.MessageExpiry
		}
		if prop.PayloadFormat != nil {
			msg.PayloadFormat = PayloadFormat(*prop.PayloadFormat)
		}
	}

	ctx := context.Background()
	for _, handle := range handlers {
		if err := handle(ctx, msg); err != nil {
			return true, err
		}
	}
	return true, nil
}

func userPropertiesToMap(ups paho.UserProperties) map[string]string {
	m := make(map[string]string, len(ups))
	for _, prop := range ups {
		m[prop.Key] = prop.Value
	}
	return m
}

func mapToUserProperties(m map[string]string) paho.UserProperties {
	ups := make(paho.UserProperties, 0, len(m))
	for key, value := range m {
		ups = append(ups, paho.UserProperty{Key: key, Value: value})
	}
	return ups
}
