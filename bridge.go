package simtemp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/AlonsoVallejo/simtemp/errors"
	"github.com/AlonsoVallejo/simtemp/internal"
	"github.com/AlonsoVallejo/simtemp/internal/log"
	"github.com/AlonsoVallejo/simtemp/mqtt"
	"github.com/google/uuid"
	"github.com/sosodev/duration"
)

type (
	// Bridge fans engine samples out to an MQTT topic and applies
	// remote configuration writes, standing in for the character
	// device and attribute files of a hardware deployment.
	Bridge struct {
		engine   *Engine
		client   mqtt.Client
		encoding Encoding[Sample]
		topic    string
		config   string
		expiry   uint32
		workers  uint
		log      log.Logger
	}

	// BridgeOption represents a single bridge option.
	BridgeOption interface {
		bridge(*BridgeOptions)
	}

	// BridgeOptions are the resolved bridge options.
	BridgeOptions struct {
		ConfigTopic   string
		Encoding      Encoding[Sample]
		MessageExpiry time.Duration
		Concurrency   uint
		Logger        *slog.Logger
	}

	// WithConfigTopic subscribes the bridge to a topic carrying
	// remote configuration documents.
	WithConfigTopic string

	// WithEncoding substitutes the sample payload encoding.
	WithEncoding struct{ Encoding[Sample] }

	// WithMessageExpiry sets the expiry applied to published samples.
	WithMessageExpiry time.Duration

	// WithConcurrency indicates how many configuration handlers can
	// execute in parallel.
	WithConcurrency uint

	// configUpdate is the remote reconfiguration document. Absent
	// fields are left untouched; sampling is an ISO 8601 duration.
	configUpdate struct {
		Sampling    *string `json:"sampling,omitempty"`
		ThresholdMC *int32  `json:"threshold_mC,omitempty"`
		Mode        *string `json:"mode,omitempty"`
	}
)

const defaultMessageExpiry = 10 * time.Second

// NewBridge creates a bridge publishing the engine's sample stream to
// the given topic.
func NewBridge(
	engine *Engine,
	client mqtt.Client,
	topic string,
	opt ...BridgeOption,
) (*Bridge, error) {
	var opts BridgeOptions
	opts.Apply(opt)

	if engine == nil || client == nil || topic == "" {
		return nil, &errors.Error{
			Message:      "bridge requires an engine, a client, and a topic",
			Kind:         errors.ConfigurationInvalid,
			PropertyName: "topic",
		}
	}

	b := &Bridge{
		engine:   engine,
		client:   client,
		encoding: Binary{},
		topic:    topic,
		config:   opts.ConfigTopic,
		expiry:   uint32(defaultMessageExpiry / time.Second),
		workers:  opts.Concurrency,
		log:      log.Wrap(opts.Logger),
	}
	if opts.Encoding != nil {
		b.encoding = opts.Encoding
	}
	if opts.MessageExpiry > 0 {
		b.expiry = uint32(opts.MessageExpiry / time.Second)
	}
	return b, nil
}

// Run opens a session and publishes every sample the engine produces
// until ctx ends or the engine stops. A failed publish does not
// advance the session cursor; after a one-period back-off the next
// read publishes the reading current at that time, which is a later
// sample when a tick occurred during the back-off.
func (b *Bridge) Run(ctx context.Context) error {
	s, err := b.engine.Open()
	if err != nil {
		return err
	}
	defer s.Close()

	if b.config != "" {
		done, err := b.listen(ctx)
		if err != nil {
			return err
		}
		defer done()
	}

	for {
		_, err := s.read(ctx, func(smp Sample) error {
			return b.publish(ctx, smp)
		})
		switch errors.KindOf(err) {
		case errors.Shutdown:
			return nil

		case errors.Cancellation:
			return err

		case errors.TransportFailure:
			// Back off for one period before reading again.
			select {
			case <-b.engine.clock.After(b.engine.interval()):
			case <-ctx.Done():
				return errors.Context(ctx, "bridge run")
			case <-b.engine.Done():
				return nil
			}

		default:
			if err != nil {
				return err
			}
		}
	}
}

// publish sends one encoded sample record.
func (b *Bridge) publish(ctx context.Context, smp Sample) error {
	data, err := serialize(b.encoding, smp)
	if err != nil {
		return err
	}

	correlation, err := uuid.NewV7()
	if err != nil {
		return &errors.Error{
			Message:     "cannot generate correlation data",
			Kind:        errors.TransportFailure,
			NestedError: err,
		}
	}

	b.log.Debug(ctx, "publishing sample",
		slog.String("topic", b.topic),
		slog.Int("temp_mC", int(smp.TempMC)))

	err = b.client.Publish(ctx, b.topic, data.Payload,
		mqtt.WithQoS(1),
		mqtt.WithContentType(data.ContentType),
		mqtt.WithPayloadFormat(mqtt.PayloadFormat(data.PayloadFormat)),
		mqtt.WithCorrelationData(correlation[:]),
		mqtt.WithMessageExpiry(b.expiry),
		mqtt.WithUserProperties{
			"temp_mC": fmt.Sprintf("%d", smp.TempMC),
			"alert":   fmt.Sprintf("%t", smp.Alert()),
		},
	)
	if err != nil {
		return &errors.Error{
			Message:     "sample publish failed",
			Kind:        errors.TransportFailure,
			NestedError: err,
		}
	}
	return nil
}

// listen subscribes to the configuration topic. The returned cleanup
// unsubscribes and drains the handler pool.
func (b *Bridge) listen(ctx context.Context) (func(), error) {
	handle, idle := internal.Concurrent(b.workers, b.handleConfig)

	sub, err := b.client.Subscribe(
		ctx,
		b.config,
		func(ctx context.Context, msg *mqtt.Message) error {
			handle(ctx, msg)
			return nil
		},
		mqtt.WithQoS(1),
	)
	if err != nil {
		idle()
		return nil, err
	}

	return func() {
		if err := sub.Unsubscribe(ctx); err != nil {
			// Returning an error from a close function that is most
			// likely to be deferred is rarely useful, so just log it.
			b.log.Err(ctx, err)
		}
		idle()
	}, nil
}

// handleConfig applies one remote configuration document. Each item
// is validated by the engine's setters; rejected items are logged and
// the rest still apply.
func (b *Bridge) handleConfig(ctx context.Context, msg *mqtt.Message) {
	defer b.ack(ctx, msg)

	var upd configUpdate
	if err := json.Unmarshal(msg.Payload, &upd); err != nil {
		b.log.Err(ctx, &errors.Error{
			Message:     "cannot parse configuration document",
			Kind:        errors.ConfigurationInvalid,
			NestedError: err,
		})
		return
	}

	if upd.Sampling != nil {
		if d, err := duration.Parse(*upd.Sampling); err != nil {
			b.log.Err(ctx, &errors.Error{
				Message:       "cannot parse sampling duration",
				Kind:          errors.ConfigurationInvalid,
				PropertyName:  "sampling",
				PropertyValue: *upd.Sampling,
				NestedError:   err,
			})
		} else {
			ms := d.ToTimeDuration() / time.Millisecond
			if err := b.engine.SetSamplingMS(uint32(ms)); err != nil {
				b.log.Err(ctx, err)
			}
		}
	}

	if upd.ThresholdMC != nil {
		if err := b.engine.SetThresholdMC(*upd.ThresholdMC); err != nil {
			b.log.Err(ctx, err)
		}
	}

	if upd.Mode != nil {
		if err := b.engine.SetMode(*upd.Mode); err != nil {
			b.log.Err(ctx, err)
		}
	}
}

// ack acknowledges a configuration message, dropping it on failure so
// we don't attempt to double-ack.
func (b *Bridge) ack(ctx context.Context, msg *mqtt.Message) {
	if msg.Ack == nil {
		return
	}
	if err := msg.Ack(); err != nil {
		b.log.Err(ctx, err)
	}
}

// Apply resolves the provided list of options.
func (o *BridgeOptions) Apply(opts []BridgeOption, rest ...BridgeOption) {
	for opt := range internal.Apply[BridgeOption](opts, rest...) {
		opt.bridge(o)
	}
}

// ApplyOptions filters and resolves the provided list of options.
func (o *BridgeOptions) ApplyOptions(opts []Option, rest ...Option) {
	for opt := range internal.Apply[BridgeOption](opts, rest...) {
		opt.bridge(o)
	}
}

func (o *BridgeOptions) bridge(opt *BridgeOptions) {
	if o != nil {
		*opt = *o
	}
}

func (*BridgeOptions) option() {}

func (o WithConfigTopic) bridge(opt *BridgeOptions) {
	opt.ConfigTopic = string(o)
}

func (WithConfigTopic) option() {}

func (o WithEncoding) bridge(opt *BridgeOptions) {
	opt.Encoding = o.Encoding
}

func (WithEncoding) option() {}

func (o WithMessageExpiry) bridge(opt *BridgeOptions) {
	opt.MessageExpiry = time.Duration(o)
}

func (WithMessageExpiry) option() {}

func (o WithConcurrency) bridge(opt *BridgeOptions) {
	opt.Concurrency = uint(o)
}

func (WithConcurrency) option() {}
