// Command wheel-remote polls the steering-wheel resistor ladder, classifies
// button presses by voltage band and drives the Bluetooth module's control
// pins. Events are published to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/wheel-remote/internal/adc"
	"github.com/sweeney/wheel-remote/internal/config"
	"github.com/sweeney/wheel-remote/internal/filter"
	"github.com/sweeney/wheel-remote/internal/gpio"
	"github.com/sweeney/wheel-remote/internal/logic"
	"github.com/sweeney/wheel-remote/internal/mqtt"
	"github.com/sweeney/wheel-remote/internal/status"
	"github.com/sweeney/wheel-remote/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/wheel-remote.yaml", "Path to YAML configuration")
	poll := flag.Duration("poll", 0, "Override polling interval (0 = use config)")
	broker := flag.String("broker", "", "Override MQTT broker address")
	httpAddr := flag.String("http", "", "Override HTTP status address")
	printVoltage := flag.Bool("print-voltage", false, "Print one raw reading and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *poll > 0 {
		cfg.PollMs = poll.Milliseconds()
	}
	if *broker != "" {
		cfg.Broker = *broker
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := run(cfg, *printVoltage); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printVoltage bool) error {
	// Initialize ADC
	reader, err := adc.NewSerialReader(cfg.Serial.Port, cfg.Serial.Baud, cfg.ADC.Max)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer reader.Close()

	// Print voltage mode
	if printVoltage {
		raw, err := waitForReading(reader, 2*time.Second)
		if err != nil {
			return fmt.Errorf("read adc: %w", err)
		}
		fmt.Printf("raw=%d voltage=%.3fV\n", raw, float64(raw)*cfg.ADC.VRef/float64(cfg.ADC.Max))
		return nil
	}

	// Initialize GPIO outputs
	driver, err := gpio.NewRealDriver(gpioOutputs(cfg))
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer driver.Close()

	// Boot pulse for the Bluetooth module, before the loop starts.
	if cfg.StartupPulse.DurationMs > 0 {
		id := logic.OutputID(cfg.StartupPulse.Output)
		if err := driver.Set(id, true); err != nil {
			return fmt.Errorf("startup pulse: %w", err)
		}
		time.Sleep(time.Duration(cfg.StartupPulse.DurationMs) * time.Millisecond)
		if err := driver.Set(id, false); err != nil {
			return fmt.Errorf("startup pulse: %w", err)
		}
		log.Printf("startup pulse: %s for %dms", cfg.StartupPulse.Output, cfg.StartupPulse.DurationMs)
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.Broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:       cfg.PollMs,
		FilterWindow: cfg.FilterWindow,
		HeartbeatMs:  cfg.HeartbeatMs,
		Broker:       cfg.Broker,
		HTTPPort:     cfg.HTTPAddr,
		SerialPort:   cfg.Serial.Port,
	})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: poll=%v window=%d bands=%d broker=%s",
		cfg.Poll(), cfg.FilterWindow, len(cfg.Bands), cfg.Broker)

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(reader, driver, publisher, publisher, tracker, cfg, time.Now, ticker.C, sigCh)
}

func runLoop(reader adc.Reader, driver gpio.Driver, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, cfg *config.Config, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	flt := filter.New(cfg.FilterWindow, cfg.ADC.Max, cfg.ADC.VRef)
	classifier := logic.NewClassifier(logicBands(cfg), startTime)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			raw, err := reader.Read()
			if err != nil {
				log.Printf("adc read error: %v", err)
				continue
			}

			voltage := flt.Sample(raw)
			events := classifier.Process(voltage, t)

			for _, event := range events {
				log.Printf("event: %s %s (band=%s v=%.3f)", event.Output, stateString(event.Active), event.Band, voltage)
				if err := driver.Set(event.Output, event.Active); err != nil {
					log.Printf("gpio set error: %v", err)
					// Don't crash on drive failure
				}
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
				}
				if tracker != nil {
					tracker.SetOutput(event.Output, event.Active)
				}
			}

			// Check for heartbeat
			if hbData := classifier.CheckHeartbeat(t, cfg.Heartbeat()); hbData != nil {
				log.Printf("heartbeat: uptime=%v outputs=%d", hbData.Uptime, len(hbData.Counts))

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					tracker.Update(voltage, classifier.Active(), classifier.CountsSnapshot())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(voltage, classifier.Active(), classifier.CountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// waitForReading polls the reader until the serial stream has produced its
// first sample or the timeout expires.
func waitForReading(reader adc.Reader, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		raw, err := reader.Read()
		if err == nil {
			return raw, nil
		}
		if time.Now().After(deadline) {
			return 0, err
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// logicBands converts the configured bands into classifier bands.
func logicBands(cfg *config.Config) []logic.Band {
	bands := make([]logic.Band, 0, len(cfg.Bands))
	for _, b := range cfg.Bands {
		actions := make([]logic.Action, 0, len(b.Actions))
		for _, a := range b.Actions {
			actions = append(actions, logic.Action{
				Hold:   time.Duration(a.HoldMs) * time.Millisecond,
				Output: logic.OutputID(a.Output),
			})
		}
		bands = append(bands, logic.Band{
			Name:    b.Name,
			Low:     b.Low,
			High:    b.High,
			Actions: actions,
			Holdoff: time.Duration(b.HoldoffMs) * time.Millisecond,
		})
	}
	return bands
}

// gpioOutputs converts the configured outputs into driver outputs.
func gpioOutputs(cfg *config.Config) []gpio.Output {
	outputs := make([]gpio.Output, 0, len(cfg.Outputs))
	for _, out := range cfg.Outputs {
		outputs = append(outputs, gpio.Output{
			ID:        logic.OutputID(out.ID),
			Pin:       out.Pin,
			ActiveLow: out.ActiveLow,
		})
	}
	return outputs
}

func stateString(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "INACTIVE"
}
