package simtemp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AlonsoVallejo/simtemp/errors"
	"github.com/AlonsoVallejo/simtemp/internal"
	"github.com/AlonsoVallejo/simtemp/internal/log"
	"github.com/AlonsoVallejo/simtemp/internal/wallclock"
)

// Engine defaults.
const (
	DefaultSamplingMS  = 100
	DefaultThresholdMC = 45000

	initialTempMC = 44000
)

type (
	// Engine is the simulated temperature sensor: a timer-driven
	// producer of milli-degree readings with per-consumer blocking
	// reads and a runtime-reconfigurable period, threshold, and mode.
	//
	// An engine is created, started, optionally reconfigured, and
	// stopped once; it is not restartable.
	Engine struct {
		mu   sync.Mutex
		wake chan struct{}

		clock wallclock.WallClock
		log   log.Logger

		current   int32
		seq       uint32
		rampDir   int32
		sampling  uint32
		threshold int32
		mode      Mode

		updates   uint32
		alerts    uint32
		lastError int

		running bool
		stopped bool
		done    chan struct{}
		idle    chan struct{}
	}

	// EngineOption represents a single engine option.
	EngineOption interface {
		engine(*EngineOptions)
	}

	// EngineOptions are the resolved engine options.
	EngineOptions struct {
		SamplingMS  uint32
		ThresholdMC *int32
		Mode        string
		Clock       wallclock.WallClock
		Logger      *slog.Logger
	}

	// WithSamplingMS sets the initial sampling period in milliseconds.
	WithSamplingMS uint32

	// WithThresholdMC sets the initial alert threshold in
	// milli-degrees Celsius.
	WithThresholdMC int32

	// WithMode sets the initial generator mode token.
	WithMode string

	// WithClock substitutes the time source used for the sampling
	// timer and record timestamps.
	WithClock struct{ wallclock.WallClock }

	// This option is not used directly; see WithLogger below.
	withLogger struct{ *slog.Logger }

	// Option represents any of the option types, and can be filtered
	// and applied by the ApplyOptions methods on the option structs.
	Option interface{ option() }
)

// NewEngine creates an engine with the default state (reading 44000,
// period 100ms, threshold 45000, mode normal). Initial configuration
// options are validated like their runtime setters; a zero sampling
// period or an empty mode token counts as unset and keeps the default.
func NewEngine(opt ...EngineOption) (*Engine, error) {
	var opts EngineOptions
	opts.Apply(opt)

	e := &Engine{
		wake:      make(chan struct{}),
		clock:     wallclock.Instance,
		log:       log.Wrap(opts.Logger),
		current:   initialTempMC,
		rampDir:   1,
		sampling:  DefaultSamplingMS,
		threshold: DefaultThresholdMC,
		mode:      ModeNormal,
		done:      make(chan struct{}),
		idle:      make(chan struct{}),
	}
	if opts.Clock != nil {
		e.clock = opts.Clock
	}

	if opts.SamplingMS != 0 {
		if err := e.SetSamplingMS(opts.SamplingMS); err != nil {
			return nil, err
		}
	}
	if opts.ThresholdMC != nil {
		if err := e.SetThresholdMC(*opts.ThresholdMC); err != nil {
			return nil, err
		}
	}
	if opts.Mode != "" {
		if err := e.SetMode(opts.Mode); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Start arms the sampling timer. The first tick occurs one period
// after the call.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return &errors.Error{
			Message: "engine already stopped",
			Kind:    errors.StateInvalid,
		}
	}
	if e.running {
		return &errors.Error{
			Message: "engine already started",
			Kind:    errors.StateInvalid,
		}
	}
	e.running = true

	t := e.clock.NewTimer(time.Duration(e.sampling) * time.Millisecond)
	go e.run(t)

	e.log.Info(context.Background(), "engine started",
		slog.Uint64("sampling_ms", uint64(e.sampling)))
	return nil
}

// Stop cancels the timer and releases every blocked reader with a
// shutdown indication. It is idempotent and safe without Start.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	running := e.running
	e.running = false
	wake := e.wake
	e.wake = make(chan struct{})
	e.mu.Unlock()

	close(e.done)
	if running {
		<-e.idle
	}

	// Terminal broadcast for waiters that only hold the wake channel.
	close(wake)

	e.log.Info(context.Background(), "engine stopped")
}

// Done is closed when the engine has been stopped.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// run drives the sampling timer until shutdown, re-arming with the
// currently configured period so changes apply from the next tick.
func (e *Engine) run(t wallclock.Timer) {
	defer close(e.idle)
	for {
		select {
		case <-t.C():
			e.tick()
			t.Reset(e.interval())
		case <-e.done:
			t.Stop()
			return
		}
	}
}

// tick produces one sample: advance the generator, bump the counters,
// and wake every blocked reader. The broadcast happens after the
// mutation is published, so a woken waiter always observes an
// advanced sequence.
func (e *Engine) tick() {
	e.mu.Lock()
	e.step()
	e.updates++
	e.seq++
	wake := e.wake
	e.wake = make(chan struct{})
	e.mu.Unlock()

	close(wake)
}

// interval returns the currently configured sampling period.
func (e *Engine) interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.sampling) * time.Millisecond
}

// fail records a sticky error kind as the engine's last error.
func (e *Engine) fail(err error) {
	if kind := errors.KindOf(err); kind.Sticky() {
		e.mu.Lock()
		e.lastError = kind.Code()
		e.mu.Unlock()
	}
}

// shutdownError is returned to callers blocked across a Stop.
func shutdownError() error {
	return &errors.Error{
		Message: "engine stopped",
		Kind:    errors.Shutdown,
	}
}

// Apply resolves the provided list of options.
func (o *EngineOptions) Apply(opts []EngineOption, rest ...EngineOption) {
	for opt := range internal.Apply[EngineOption](opts, rest...) {
		opt.engine(o)
	}
}

// ApplyOptions filters and resolves the provided list of options.
func (o *EngineOptions) ApplyOptions(opts []Option, rest ...Option) {
	for opt := range internal.Apply[EngineOption](opts, rest...) {
		opt.engine(o)
	}
}

func (o *EngineOptions) engine(opt *EngineOptions) {
	if o != nil {
		*opt = *o
	}
}

func (*EngineOptions) option() {}

func (o WithSamplingMS) engine(opt *EngineOptions) {
	opt.SamplingMS = uint32(o)
}

func (WithSamplingMS) option() {}

func (o WithThresholdMC) engine(opt *EngineOptions) {
	v := int32(o)
	opt.ThresholdMC = &v
}

func (WithThresholdMC) option() {}

func (o WithMode) engine(opt *EngineOptions) {
	opt.Mode = string(o)
}

func (WithMode) option() {}

func (o WithClock) engine(opt *EngineOptions) {
	opt.Clock = o.WallClock
}

func (WithClock) option() {}

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) interface {
	Option
	EngineOption
	BridgeOption
} {
	return withLogger{logger}
}

func (o withLogger) engine(opt *EngineOptions) {
	opt.Logger = o.Logger
}

func (o withLogger) bridge(opt *BridgeOptions) {
	opt.Logger = o.Logger
}

func (withLogger) option() {}
