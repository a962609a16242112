// Package adc provides analog readings of the steering-wheel resistor ladder.
// The real implementation reads counts streamed over USB serial by a small
// MCU next to the ladder. The fake implementation allows testing without
// hardware.
package adc

// Reader returns raw ADC counts, one per polling tick.
type Reader interface {
	// Read returns the most recent raw count in [0, adcMax].
	Read() (int, error)

	// Close releases the underlying resources.
	Close() error
}
