// Package gpio drives the digital control outputs wired to the Bluetooth
// module, with hardware abstraction. The real implementation uses the Linux
// GPIO character device. The fake implementation allows testing without
// hardware.
package gpio

import "github.com/sweeney/wheel-remote/internal/logic"

// Output describes one digital control line.
type Output struct {
	ID  logic.OutputID
	Pin int // BCM pin number
	// ActiveLow inverts the drive level: Set(id, true) pulls the line low.
	// The reset pin is active-low on some panel revisions and active-high
	// on others, so polarity is per-output configuration.
	ActiveLow bool
}

// Driver sets output levels.
type Driver interface {
	// Set drives the output to its active or inactive level, honoring the
	// configured polarity.
	Set(id logic.OutputID, active bool) error

	// Close drives every output inactive and releases GPIO resources.
	Close() error
}
