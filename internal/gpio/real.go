//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/wheel-remote/internal/logic"
)

// RealDriver drives GPIO outputs on actual hardware using the Linux GPIO
// character device.
type RealDriver struct {
	chip    *gpiocdev.Chip
	lines   map[string]*gpiocdev.Line
	outputs map[string]Output
}

// NewRealDriver requests every configured output line, initialized to its
// inactive level.
func NewRealDriver(outputs []Output) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	d := &RealDriver{
		chip:    chip,
		lines:   make(map[string]*gpiocdev.Line, len(outputs)),
		outputs: make(map[string]Output, len(outputs)),
	}

	for _, out := range outputs {
		line, err := chip.RequestLine(out.Pin, gpiocdev.AsOutput(level(out, false)))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("request output %q pin %d: %w", out.ID, out.Pin, err)
		}
		d.lines[string(out.ID)] = line
		d.outputs[string(out.ID)] = out
	}

	return d, nil
}

// Set drives the output to its active or inactive level.
func (d *RealDriver) Set(id logic.OutputID, active bool) error {
	out, ok := d.outputs[string(id)]
	if !ok {
		return fmt.Errorf("unknown output %q", id)
	}
	if err := d.lines[string(id)].SetValue(level(out, active)); err != nil {
		return fmt.Errorf("set output %q: %w", id, err)
	}
	return nil
}

// Close drives every output inactive before releasing the lines, so the
// Bluetooth module never sees a control pin stuck active across restarts.
func (d *RealDriver) Close() error {
	var errs []error

	for id, line := range d.lines {
		if err := line.SetValue(level(d.outputs[id], false)); err != nil {
			errs = append(errs, fmt.Errorf("park output %q: %w", id, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output %q: %w", id, err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// level maps a logical active/inactive state to the wire level for an output.
func level(out Output, active bool) int {
	if active != out.ActiveLow {
		return 1
	}
	return 0
}
