package adc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the sketch running on the ladder MCU.
const DefaultBaudRate = 115200

// SerialReader reads ADC counts from an MCU streaming one sample per line:
//
//	unix_micros,count
//
// A goroutine parses lines as they arrive and keeps the latest count; Read
// returns that snapshot, so the polling loop never blocks on the port.
type SerialReader struct {
	port   serial.Port
	adcMax int

	mu     sync.Mutex
	last   int
	seen   bool
	closed bool
}

// NewSerialReader opens the given port and starts consuming samples.
// adcMax is the full-scale count; lines reporting more are discarded.
func NewSerialReader(portName string, baudRate, adcMax int) (*SerialReader, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}

	r := &SerialReader{port: port, adcMax: adcMax}
	go r.readLines()
	return r, nil
}

// Read returns the most recently received count. It fails until the first
// valid line has arrived.
func (r *SerialReader) Read() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, errors.New("adc: reader closed")
	}
	if !r.seen {
		return 0, errors.New("adc: no sample received yet")
	}
	return r.last, nil
}

// Close stops the reader and closes the port.
func (r *SerialReader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	return r.port.Close()
}

func (r *SerialReader) readLines() {
	scanner := bufio.NewScanner(r.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		count, err := parseLine(line, r.adcMax)
		if err != nil {
			log.Printf("adc: skipping line %q: %v", line, err)
			continue
		}

		r.mu.Lock()
		r.last = count
		r.seen = true
		r.mu.Unlock()
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if !closed {
			log.Printf("adc: serial read error: %v", err)
		}
	}
}

// parseLine parses an MCU sample line into a raw count.
// Format: unix_micros,count — e.g. "1234567890123,2048".
func parseLine(line string, adcMax int) (int, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected 2 comma-separated values, got %d", len(parts))
	}

	if _, err := strconv.ParseInt(parts[0], 10, 64); err != nil {
		return 0, fmt.Errorf("invalid timestamp: %w", err)
	}

	count, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid count: %w", err)
	}
	if int(count) > adcMax {
		return 0, fmt.Errorf("count out of range: %d (max %d)", count, adcMax)
	}

	return int(count), nil
}
