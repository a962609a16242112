package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/wheel-remote/internal/adc"
	"github.com/sweeney/wheel-remote/internal/filter"
	"github.com/sweeney/wheel-remote/internal/gpio"
	"github.com/sweeney/wheel-remote/internal/logic"
	"github.com/sweeney/wheel-remote/internal/mqtt"
)

const (
	adcMax = 1023
	vref   = 5.0
)

// count491 converts to 2.3998V, inside the 2.30-2.50 band.
const count491 = 491

func testBands() []logic.Band {
	return []logic.Band{
		{
			Name: "low_band", Low: 0.40, High: 0.60,
			Actions: []logic.Action{{Hold: 300 * time.Millisecond, Output: "low_out"}},
		},
		{
			Name: "volume_up", Low: 2.30, High: 2.50,
			Actions: []logic.Action{{Hold: 300 * time.Millisecond, Output: "vol_up"}},
		},
	}
}

// TestIntegrationFullFlow runs the complete tick pipeline over fakes:
// ADC counts -> filter -> classifier -> GPIO driver + MQTT publisher.
func TestIntegrationFullFlow(t *testing.T) {
	// 5 warm-up ticks at 0, 25 ticks of a held button, 5 ticks released.
	var counts []int
	for i := 0; i < 5; i++ {
		counts = append(counts, 0)
	}
	for i := 0; i < 25; i++ {
		counts = append(counts, count491)
	}
	for i := 0; i < 5; i++ {
		counts = append(counts, 0)
	}

	reader := adc.NewFakeReader(counts)
	driver := gpio.NewFakeDriver()
	publisher := mqtt.NewFakePublisher()
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	flt := filter.New(5, adcMax, vref)
	classifier := logic.NewClassifier(testBands(), startTime)

	pollInterval := 20 * time.Millisecond

	// Simulate the main loop. With a window of 5, the filtered voltage
	// ramps through the low band for a single tick (no latch: the hold is
	// 15 ticks) and first enters the 2.30-2.50 band on tick 9. The latch
	// lands 300ms later on tick 24, and the release on tick 30 when the
	// decaying average drops out of band.
	for i := range counts {
		raw, err := reader.Read()
		if err != nil {
			t.Fatalf("tick %d: adc read error: %v", i, err)
		}

		now := startTime.Add(time.Duration(i) * pollInterval)
		voltage := flt.Sample(raw)
		events := classifier.Process(voltage, now)

		for _, event := range events {
			if err := driver.Set(event.Output, event.Active); err != nil {
				t.Fatalf("tick %d: gpio set error: %v", i, err)
			}
			if err := publisher.Publish(event); err != nil {
				t.Fatalf("tick %d: publish error: %v", i, err)
			}
		}
	}

	// Exactly one latch and one release, for vol_up only.
	if len(publisher.Events) != 2 {
		t.Fatalf("expected 2 events, got %d: %v", len(publisher.Events), publisher.Events)
	}

	latch := publisher.Events[0]
	if latch.Output != "vol_up" || !latch.Active {
		t.Errorf("event 0: expected vol_up latch, got %+v", latch)
	}
	if latch.Band != "volume_up" {
		t.Errorf("event 0: expected band volume_up, got %q", latch.Band)
	}
	wantLatch := startTime.Add(24 * pollInterval)
	if !latch.Timestamp.Equal(wantLatch) {
		t.Errorf("event 0: expected timestamp %v, got %v", wantLatch, latch.Timestamp)
	}

	release := publisher.Events[1]
	if release.Output != "vol_up" || release.Active {
		t.Errorf("event 1: expected vol_up release, got %+v", release)
	}
	wantRelease := startTime.Add(30 * pollInterval)
	if !release.Timestamp.Equal(wantRelease) {
		t.Errorf("event 1: expected timestamp %v, got %v", wantRelease, release.Timestamp)
	}

	// The driver saw both transitions and the output ended inactive.
	if len(driver.Transitions) != 2 {
		t.Fatalf("expected 2 gpio transitions, got %d", len(driver.Transitions))
	}
	if driver.Active("vol_up") {
		t.Error("vol_up should end inactive")
	}
	if driver.Active("low_out") {
		t.Error("low_out should never have latched")
	}

	// Payloads are valid JSON with the expected fields.
	for i, payload := range publisher.Payloads {
		var parsed mqtt.Payload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Errorf("payload %d: invalid JSON: %v", i, err)
			continue
		}
		if parsed.Wheel.Timestamp == "" {
			t.Errorf("payload %d: missing timestamp", i)
		}
		if parsed.Wheel.Output != "vol_up" {
			t.Errorf("payload %d: unexpected output %q", i, parsed.Wheel.Output)
		}
	}
}

// TestIntegrationShortPressRejected verifies an in-band period shorter than
// the hold produces no events at all.
func TestIntegrationShortPressRejected(t *testing.T) {
	// 10 warm-up ticks, 5 in-band ticks (100ms < 300ms hold), back to idle.
	var counts []int
	for i := 0; i < 10; i++ {
		counts = append(counts, 0)
	}
	for i := 0; i < 5; i++ {
		counts = append(counts, count491)
	}
	for i := 0; i < 15; i++ {
		counts = append(counts, 0)
	}

	reader := adc.NewFakeReader(counts)
	publisher := mqtt.NewFakePublisher()
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	flt := filter.New(1, adcMax, vref)
	classifier := logic.NewClassifier(testBands(), startTime)

	for i := range counts {
		raw, _ := reader.Read()
		now := startTime.Add(time.Duration(i) * 20 * time.Millisecond)
		for _, event := range classifier.Process(flt.Sample(raw), now) {
			publisher.Publish(event)
		}
	}

	if len(publisher.Events) != 0 {
		t.Errorf("expected no events for a short press, got %v", publisher.Events)
	}
}

// TestIntegrationDualThreshold verifies the short-hold action of a dual
// threshold band drives its own output and leaves the long-hold output alone.
func TestIntegrationDualThreshold(t *testing.T) {
	bands := []logic.Band{
		{
			Name: "mute_reset", Low: 2.30, High: 2.50,
			Actions: []logic.Action{
				{Hold: 300 * time.Millisecond, Output: "mute"},
				{Hold: 3000 * time.Millisecond, Output: "bt_reset"},
			},
		},
	}

	driver := gpio.NewFakeDriver()
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	flt := filter.New(1, adcMax, vref)
	classifier := logic.NewClassifier(bands, startTime)

	// Hold for 3.5 seconds of 10ms ticks, then release.
	for i := 0; i <= 350; i++ {
		now := startTime.Add(time.Duration(i) * 10 * time.Millisecond)
		for _, event := range classifier.Process(flt.Sample(count491), now) {
			driver.Set(event.Output, event.Active)
		}
	}
	for _, event := range classifier.Process(flt.Sample(0), startTime.Add(4*time.Second)) {
		driver.Set(event.Output, event.Active)
	}

	want := []gpio.Transition{
		{Output: "mute", Active: true},
		{Output: "mute", Active: false},
	}
	if len(driver.Transitions) != len(want) {
		t.Fatalf("expected %d transitions, got %v", len(want), driver.Transitions)
	}
	for i, tr := range want {
		if driver.Transitions[i] != tr {
			t.Errorf("transition %d: got %+v, want %+v", i, driver.Transitions[i], tr)
		}
	}
	if driver.Active("bt_reset") {
		t.Error("bt_reset must never latch while mute wins the band")
	}
}
