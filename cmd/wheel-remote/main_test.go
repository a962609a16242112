package main

import (
	"encoding/json"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/wheel-remote/internal/adc"
	"github.com/sweeney/wheel-remote/internal/config"
	"github.com/sweeney/wheel-remote/internal/gpio"
	"github.com/sweeney/wheel-remote/internal/mqtt"
	"github.com/sweeney/wheel-remote/internal/status"
)

// count491 converts to 2.3998V at 10 bits / 5V, inside the 2.30-2.50 band.
const count491 = 491

func testConfig() *config.Config {
	return &config.Config{
		Serial:       config.SerialConfig{Port: "/dev/ttyACM0", Baud: 115200},
		ADC:          config.ADCConfig{Max: 1023, VRef: 5.0},
		FilterWindow: 1,
		PollMs:       20,
		Outputs:      []config.OutputConfig{{ID: "vol_up", Pin: 17}},
		Bands: []config.BandConfig{
			{
				Name: "volume_up", Low: 2.30, High: 2.50,
				Actions: []config.ActionConfig{{HoldMs: 300, Output: "vol_up"}},
			},
		},
	}
}

// fakeClock returns a now func that advances by step on every call.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestLogicBands(t *testing.T) {
	bands := logicBands(config.Default())

	if len(bands) != 3 {
		t.Fatalf("expected 3 bands, got %d", len(bands))
	}

	mr := bands[2]
	if mr.Name != "mute_reset" {
		t.Errorf("band 2 name: got %q, want mute_reset", mr.Name)
	}
	if mr.Low != 2.30 || mr.High != 2.50 {
		t.Errorf("band 2 range: got [%g, %g]", mr.Low, mr.High)
	}
	if len(mr.Actions) != 2 {
		t.Fatalf("band 2: expected 2 actions, got %d", len(mr.Actions))
	}
	if mr.Actions[0].Hold != 300*time.Millisecond || mr.Actions[0].Output != "mute" {
		t.Errorf("band 2 action 0: got %+v", mr.Actions[0])
	}
	if mr.Actions[1].Hold != 3*time.Second || mr.Actions[1].Output != "bt_reset" {
		t.Errorf("band 2 action 1: got %+v", mr.Actions[1])
	}
	if mr.Holdoff != 500*time.Millisecond {
		t.Errorf("band 2 holdoff: got %v, want 500ms", mr.Holdoff)
	}
}

func TestGpioOutputs(t *testing.T) {
	outputs := gpioOutputs(config.Default())

	if len(outputs) != 4 {
		t.Fatalf("expected 4 outputs, got %d", len(outputs))
	}
	if outputs[0].ID != "vol_up" || outputs[0].Pin != 17 || outputs[0].ActiveLow {
		t.Errorf("output 0: got %+v", outputs[0])
	}
	if outputs[3].ID != "bt_reset" || !outputs[3].ActiveLow {
		t.Errorf("output 3: got %+v", outputs[3])
	}
}

func TestStateString(t *testing.T) {
	if got := stateString(true); got != "ACTIVE" {
		t.Errorf("stateString(true): got %q", got)
	}
	if got := stateString(false); got != "INACTIVE" {
		t.Errorf("stateString(false): got %q", got)
	}
}

func TestWaitForReadingImmediate(t *testing.T) {
	reader := adc.NewFakeReader([]int{count491})

	raw, err := waitForReading(reader, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != count491 {
		t.Errorf("raw: got %d, want %d", raw, count491)
	}
}

func TestWaitForReadingTimeout(t *testing.T) {
	reader := adc.NewFakeReader(nil)
	reader.ReadError = errors.New("no sample received yet")

	_, err := waitForReading(reader, 10*time.Millisecond)
	if err == nil {
		t.Error("expected error after timeout")
	}
}

func TestRunLoopPublishesEvents(t *testing.T) {
	cfg := testConfig()
	reader := adc.NewFakeReader([]int{count491})
	driver := gpio.NewFakeDriver()
	publisher := mqtt.NewFakePublisher()
	publisher.Connected = true

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := status.NewTracker(start, status.Config{})

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan error, 1)

	go func() {
		done <- runLoop(reader, driver, publisher, publisher, tracker, cfg,
			fakeClock(start, 20*time.Millisecond), tick, sig)
	}()

	// Entry on the first tick, latch once the hold elapses.
	for i := 0; i < 20; i++ {
		tick <- time.Time{}
	}
	sig <- syscall.SIGTERM

	if err := <-done; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(publisher.Events) != 1 {
		t.Fatalf("expected 1 event, got %d: %v", len(publisher.Events), publisher.Events)
	}
	latch := publisher.Events[0]
	if latch.Output != "vol_up" || !latch.Active {
		t.Errorf("expected vol_up latch, got %+v", latch)
	}
	if !driver.Active("vol_up") {
		t.Error("vol_up pin should still be driven active")
	}

	snap := tracker.Snapshot()
	if snap.ActiveBand != "volume_up" {
		t.Errorf("ActiveBand: got %q, want volume_up", snap.ActiveBand)
	}
	if !snap.Outputs["vol_up"] {
		t.Error("tracker should report vol_up active")
	}
	if !snap.MQTTConnected {
		t.Error("tracker should report MQTT connected")
	}
	if snap.Counts["vol_up"].Latches != 1 {
		t.Errorf("latch count: got %d, want 1", snap.Counts["vol_up"].Latches)
	}
}

func TestRunLoopShutdownEvent(t *testing.T) {
	cfg := testConfig()
	publisher := mqtt.NewFakePublisher()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := status.NewTracker(start, status.Config{})

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan error, 1)

	go func() {
		done <- runLoop(adc.NewFakeReader([]int{0}), gpio.NewFakeDriver(), publisher, publisher,
			tracker, cfg, fakeClock(start, 20*time.Millisecond), tick, sig)
	}()

	sig <- syscall.SIGINT
	if err := <-done; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(publisher.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(publisher.SystemEvents))
	}
	ev := publisher.SystemEvents[0]
	if ev.Event != "SHUTDOWN" {
		t.Errorf("event: got %q, want SHUTDOWN", ev.Event)
	}
	if ev.Reason != "SIGINT" {
		t.Errorf("reason: got %q, want SIGINT", ev.Reason)
	}
	if !ev.Retained {
		t.Error("shutdown event should be retained")
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(publisher.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("shutdown payload is not valid status JSON: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" {
		t.Errorf("payload event: got %q, want SHUTDOWN", sj.Status.Event)
	}
}

func TestRunLoopSkipsTickOnReadError(t *testing.T) {
	cfg := testConfig()
	reader := adc.NewFakeReader(nil)
	reader.ReadError = errors.New("no sample received yet")
	driver := gpio.NewFakeDriver()
	publisher := mqtt.NewFakePublisher()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan error, 1)

	go func() {
		done <- runLoop(reader, driver, publisher, publisher,
			status.NewTracker(start, status.Config{}), cfg,
			fakeClock(start, 20*time.Millisecond), tick, sig)
	}()

	for i := 0; i < 5; i++ {
		tick <- time.Time{}
	}
	sig <- syscall.SIGTERM

	if err := <-done; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if len(publisher.Events) != 0 {
		t.Errorf("expected no events on read errors, got %v", publisher.Events)
	}
	if len(driver.Transitions) != 0 {
		t.Errorf("expected no transitions on read errors, got %v", driver.Transitions)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatMs = 100
	publisher := mqtt.NewFakePublisher()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan error, 1)

	go func() {
		done <- runLoop(adc.NewFakeReader([]int{0}), gpio.NewFakeDriver(), publisher, publisher,
			status.NewTracker(start, status.Config{}), cfg,
			fakeClock(start, 20*time.Millisecond), tick, sig)
	}()

	// 10 ticks at 20ms per tick covers two 100ms heartbeat intervals.
	for i := 0; i < 10; i++ {
		tick <- time.Time{}
	}
	sig <- syscall.SIGTERM
	<-done

	heartbeats := 0
	for _, ev := range publisher.SystemEvents {
		if ev.Event == "HEARTBEAT" {
			heartbeats++
		}
	}
	if heartbeats != 2 {
		t.Errorf("expected 2 heartbeats, got %d", heartbeats)
	}
}
