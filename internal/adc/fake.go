package adc

import "errors"

// FakeReader is a test double that returns scripted ADC counts.
type FakeReader struct {
	// Counts contains scripted raw values to return.
	// Each call to Read() consumes the next one.
	Counts []int

	// index tracks current position in Counts
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given counts.
func NewFakeReader(counts []int) *FakeReader {
	return &FakeReader{Counts: counts}
}

// Read returns the next scripted count.
// If counts are exhausted, returns the last one repeatedly.
func (f *FakeReader) Read() (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}

	if len(f.Counts) == 0 {
		return 0, errors.New("no counts configured")
	}

	count := f.Counts[f.index]
	if f.index < len(f.Counts)-1 {
		f.index++
	}

	return count, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of the script.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}
