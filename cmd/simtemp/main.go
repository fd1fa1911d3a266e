// Command simtemp runs the simulated temperature sensor in-process
// and streams formatted samples to stdout, mirroring the workflow of
// the character-device deployment. With -broker it also serves an
// embedded MQTT broker and fans samples out through the telemetry
// bridge.
//
// Exit codes: 0 on success (including a passed -test), 1 when -test
// does not observe an alert within two periods, 2 on environment
// errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlonsoVallejo/simtemp"
	"github.com/AlonsoVallejo/simtemp/errors"
	"github.com/AlonsoVallejo/simtemp/mqtt"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		count       = flag.Int("count", 0, "samples to print before exiting (0 = until interrupted)")
		samplingMS  = flag.Uint("sampling-ms", simtemp.DefaultSamplingMS, "sampling period in milliseconds")
		thresholdMC = flag.Int("threshold-mC", simtemp.DefaultThresholdMC, "alert threshold in milli-degrees Celsius")
		mode        = flag.String("mode", "normal", "generator mode (normal|noisy|ramp)")
		test        = flag.Bool("test", false, "expect a threshold alert within two periods")
		broker      = flag.String("broker", "", "serve an embedded MQTT broker on this address and publish samples")
		topic       = flag.String("topic", "simtemp/sample", "sample topic for the bridge")
		configTopic = flag.String("config-topic", "simtemp/config", "configuration topic for the bridge")
		encoding    = flag.String("encoding", "binary", "bridge payload encoding (binary|json)")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	engine, err := simtemp.NewEngine(
		simtemp.WithSamplingMS(uint32(*samplingMS)),
		simtemp.WithThresholdMC(int32(*thresholdMC)),
		simtemp.WithMode(*mode),
		simtemp.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "simtemp:", err)
		return 2
	}
	if err := engine.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "simtemp:", err)
		return 2
	}
	defer engine.Stop()

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *broker != "" {
		enc, err := parseEncoding(*encoding)
		if err != nil {
			fmt.Fprintln(os.Stderr, "simtemp:", err)
			return 2
		}
		done, err := serveBroker(ctx, engine, logger, enc, *broker, *topic, *configTopic)
		if err != nil {
			fmt.Fprintln(os.Stderr, "simtemp:", err)
			return 2
		}
		defer done()
	}

	if *test {
		return selfTest(ctx, engine)
	}
	return watch(ctx, engine, *count)
}

// watch prints samples until the count is reached or the run is
// interrupted.
func watch(ctx context.Context, engine *simtemp.Engine, count int) int {
	s, err := engine.Open()
	if err != nil {
		fmt.Fprintln(os.Stderr, "simtemp:", err)
		return 2
	}
	defer s.Close()

	for n := 0; count == 0 || n < count; n++ {
		smp, err := s.ReadSample(ctx)
		if err != nil {
			switch errors.KindOf(err) {
			case errors.Cancellation, errors.Shutdown:
				return 0
			}
			fmt.Fprintln(os.Stderr, "simtemp:", err)
			return 2
		}
		fmt.Println(formatSample(smp))
	}
	return 0
}

// selfTest lowers the threshold to just above the current reading and
// expects the next samples to carry the alert flag within two
// periods.
func selfTest(ctx context.Context, engine *simtemp.Engine) int {
	s, err := engine.Open()
	if err != nil {
		fmt.Fprintln(os.Stderr, "simtemp:", err)
		return 2
	}
	defer s.Close()

	if err := engine.SetThresholdMC(engine.TempMC() + 5); err != nil {
		fmt.Fprintln(os.Stderr, "simtemp:", err)
		return 2
	}

	period := time.Duration(engine.SamplingMS()) * time.Millisecond
	tctx, cancel := context.WithTimeout(ctx, 2*period)
	defer cancel()

	for {
		smp, err := s.ReadSample(tctx)
		if err != nil {
			if errors.KindOf(err) == errors.Cancellation {
				fmt.Fprintln(os.Stderr, "simtemp: no alert within two periods")
				return 1
			}
			fmt.Fprintln(os.Stderr, "simtemp:", err)
			return 2
		}
		if smp.Alert() {
			fmt.Println("PASS:", formatSample(smp))
			return 0
		}
	}
}

// parseEncoding maps the -encoding flag to a sample encoding.
func parseEncoding(name string) (simtemp.Encoding[simtemp.Sample], error) {
	switch name {
	case "binary":
		return simtemp.Binary{}, nil
	case "json":
		return simtemp.JSON[simtemp.Sample]{}, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", name)
}

// serveBroker starts an embedded MQTT broker on addr and runs the
// telemetry bridge against it.
func serveBroker(
	ctx context.Context,
	engine *simtemp.Engine,
	logger *slog.Logger,
	encoding simtemp.Encoding[simtemp.Sample],
	addr, topic, configTopic string,
) (func(), error) {
	server := mochi.New(nil)
	if err := server.AddHook(&auth.AllowHook{}, nil); err != nil {
		return nil, err
	}
	if err := server.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		Address: addr,
	})); err != nil {
		return nil, err
	}
	if err := server.Serve(); err != nil {
		return nil, err
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		server.Close()
		return nil, err
	}
	client := mqtt.NewPahoClient("simtemp-bridge", conn)
	if err := client.Connect(ctx); err != nil {
		server.Close()
		return nil, err
	}

	bridge, err := simtemp.NewBridge(engine, client, topic,
		simtemp.WithConfigTopic(configTopic),
		simtemp.WithEncoding{Encoding: encoding},
		simtemp.WithLogger(logger),
	)
	if err != nil {
		server.Close()
		return nil, err
	}

	go func() {
		if err := bridge.Run(ctx); err != nil {
			logger.Error("bridge stopped", slog.Any("error", err))
		}
	}()

	return func() {
		_ = client.Disconnect()
		_ = server.Close()
	}, nil
}

// formatSample renders one record the way the hardware CLI does.
func formatSample(smp simtemp.Sample) string {
	ts := time.Unix(0, int64(smp.TimestampNS)).UTC()
	alert := 0
	if smp.Alert() {
		alert = 1
	}
	return fmt.Sprintf("%s temp=%.1fC alert=%d",
		ts.Format("2006-01-02T15:04:05.000Z"),
		float64(smp.TempMC)/1000,
		alert)
}
